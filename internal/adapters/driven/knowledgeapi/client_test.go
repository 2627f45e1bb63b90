package knowledgeapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// fakeBackend records requests and serves canned answers.
type fakeBackend struct {
	mu       sync.Mutex
	bodies   map[string][]map[string]any
	headers  []http.Header
	listHits atomic.Int32
	uploads  []uploadCall
}

type uploadCall struct {
	Filename string
	Content  string
	SourceID string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{bodies: make(map[string][]map[string]any)}
}

func (f *fakeBackend) record(r *http.Request, endpoint string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = append(f.headers, r.Header.Clone())
	if r.Header.Get("Content-Type") == "application/json" {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.bodies[endpoint] = append(f.bodies[endpoint], body)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.Handler, cfg Config) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg.BaseURL = srv.URL
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = time.Millisecond
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = -1
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Equal(t, DefaultPathPrefix, c.prefix)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
	assert.Equal(t, DefaultMaxRetries, c.maxRetries)
	assert.NotNil(t, c.limiter)
}

func TestNewClient_RejectsNonHTTPBase(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://example.com"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClient_List(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantIDs []string
	}{
		{
			name:    "envelope",
			body:    `{"ok":true,"sources":[{"source_id":"a","type":"text"},{"source_id":"b","type":"site"}]}`,
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "bare array",
			body:    `[{"source_id":"a","type":"file"}]`,
			wantIDs: []string{"a"},
		},
		{
			name:    "skips malformed entries",
			body:    `{"sources":[{"source_id":"a"},42,{"source_id":7},{"source_id":"c"}]}`,
			wantIDs: []string{"a", "c"},
		},
		{
			name:    "unexpected shape",
			body:    `{"ok":true,"sources":"nope"}`,
			wantIDs: []string{},
		},
		{
			name:    "not json",
			body:    `<html>hi</html>`,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Get("/knowledge/list", func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})
			c := newTestClient(t, r, Config{})

			sources, err := c.List(context.Background())
			require.NoError(t, err)
			ids := make([]string, 0, len(sources))
			for _, s := range sources {
				ids = append(ids, s.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestClient_List_NormalisesType(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/knowledge/list", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"source_id":"a","type":"link"},{"source_id":"b","type":"weird"}]`)
	})
	c := newTestClient(t, r, Config{})

	sources, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, domain.SourceTypeURL, sources[0].Type)
	assert.Equal(t, domain.SourceTypeUnknown, sources[1].Type)
}

func TestClient_List_RetriesServerErrors(t *testing.T) {
	backend := newFakeBackend()
	r := chi.NewRouter()
	r.Get("/knowledge/list", func(w http.ResponseWriter, _ *http.Request) {
		if backend.listHits.Add(1) < 3 {
			writeJSON(w, http.StatusBadGateway, map[string]any{"ok": false, "error": "upstream"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sources": []any{map[string]any{"source_id": "a"}}})
	})
	c := newTestClient(t, r, Config{})

	sources, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, sources, 1)
	assert.Equal(t, int32(3), backend.listHits.Load())
}

func TestClient_List_GivesUpAfterMaxRetries(t *testing.T) {
	backend := newFakeBackend()
	r := chi.NewRouter()
	r.Get("/knowledge/list", func(w http.ResponseWriter, _ *http.Request) {
		backend.listHits.Add(1)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": "boom"})
	})
	c := newTestClient(t, r, Config{MaxRetries: 2})

	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrServer)
	assert.Equal(t, int32(3), backend.listHits.Load())

	var se *domain.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "boom", se.Message)
}

func TestClient_List_DoesNotRetryClientErrors(t *testing.T) {
	backend := newFakeBackend()
	r := chi.NewRouter()
	r.Get("/knowledge/list", func(w http.ResponseWriter, _ *http.Request) {
		backend.listHits.Add(1)
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "bad"})
	})
	c := newTestClient(t, r, Config{})

	_, err := c.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrServer)
	assert.Equal(t, int32(1), backend.listHits.Load())
}

func TestClient_LoginRedirectIsAuthRequired(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/knowledge/list", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/business/login", http.StatusSeeOther)
	})
	r.Get("/business/login", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "<html>login</html>")
	})
	c := newTestClient(t, r, Config{})

	_, err := c.List(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrAuthRequired)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: base, MaxRetries: -1, RequestsPerSecond: -1})
	require.NoError(t, err)

	_, err = c.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.NotErrorIs(t, err, domain.ErrServer)
}

func TestClient_Auth(t *testing.T) {
	backend := newFakeBackend()
	r := chi.NewRouter()
	var cookie string
	r.Get("/knowledge/list", func(w http.ResponseWriter, r *http.Request) {
		backend.record(r, "list")
		if c, err := r.Cookie("sid"); err == nil {
			cookie = c.Value
		}
		_, _ = io.WriteString(w, `[]`)
	})
	c := newTestClient(t, r, Config{Token: "tok", SessionCookie: "s3cret", CookieName: "sid"})

	_, err := c.List(context.Background())
	require.NoError(t, err)
	require.Len(t, backend.headers, 1)
	assert.Equal(t, "Bearer tok", backend.headers[0].Get("Authorization"))
	assert.NotEmpty(t, backend.headers[0].Get(RequestIDHeader))
	assert.Equal(t, "s3cret", cookie)
}

func TestClient_Add(t *testing.T) {
	backend := newFakeBackend()
	r := chi.NewRouter()
	r.Post("/knowledge/add", func(w http.ResponseWriter, r *http.Request) {
		backend.record(r, "add")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "source_id": "new-1"})
	})
	c := newTestClient(t, r, Config{})

	created, err := c.Add(context.Background(), domain.NewTextDraft("", "hello world"))
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
	assert.Equal(t, domain.SourceTypeText, created.Type)
	assert.Equal(t, "hello world", created.Title)

	require.Len(t, backend.bodies["add"], 1)
	body := backend.bodies["add"][0]
	assert.Equal(t, "text", body["type"])
	assert.Equal(t, "hello world", body["content"])
	assert.Equal(t, "hello world", body["preview"])
	assert.NotContains(t, body, "uri")
}

func TestClient_Add_OkFalse(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/knowledge/add", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "invalid_uri"})
	})
	c := newTestClient(t, r, Config{})

	_, err := c.Add(context.Background(), domain.NewURLDraft("nope"))
	require.Error(t, err)
	var se *domain.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "invalid_uri", se.Message)
}

func TestClient_Upload(t *testing.T) {
	backend := newFakeBackend()
	r := chi.NewRouter()
	r.Post("/knowledge/upload", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "no_file"})
			return
		}
		defer f.Close()
		content, _ := io.ReadAll(f)
		backend.mu.Lock()
		backend.uploads = append(backend.uploads, uploadCall{
			Filename: hdr.Filename,
			Content:  string(content),
			SourceID: r.URL.Query().Get("source_id"),
		})
		backend.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{
			"ok": true, "source_id": "f-1", "filename": hdr.Filename, "file_url": "/knowledge/file/f-1",
		})
	})
	c := newTestClient(t, r, Config{})

	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o600))
	file := domain.NewFileHandle(path)

	t.Run("new source", func(t *testing.T) {
		res, err := c.Upload(context.Background(), file, "")
		require.NoError(t, err)
		assert.Equal(t, &domain.UploadResult{SourceID: "f-1", Filename: "notes.pdf", FileURL: "/knowledge/file/f-1"}, res)
	})

	t.Run("associate to existing", func(t *testing.T) {
		_, err := c.Upload(context.Background(), file, "existing")
		require.NoError(t, err)
	})

	require.Len(t, backend.uploads, 2)
	assert.Equal(t, uploadCall{Filename: "notes.pdf", Content: "%PDF-1.4"}, backend.uploads[0])
	assert.Equal(t, "existing", backend.uploads[1].SourceID)
}

func TestClient_Upload_Rejected(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/knowledge/upload", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "images_not_allowed"})
	})
	c := newTestClient(t, r, Config{})

	path := filepath.Join(t.TempDir(), "pic.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	_, err := c.Upload(context.Background(), domain.NewFileHandle(path), "")
	assert.ErrorIs(t, err, domain.ErrUploadRejected)
	assert.ErrorIs(t, err, domain.ErrImagesNotAllowed)
}

func TestClient_Upload_MissingFile(t *testing.T) {
	c := newTestClient(t, chi.NewRouter(), Config{})
	_, err := c.Upload(context.Background(), domain.NewFileHandle(filepath.Join(t.TempDir(), "gone.txt")), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClient_UpdateRemoveReindex(t *testing.T) {
	backend := newFakeBackend()
	r := chi.NewRouter()
	r.Post("/knowledge/update", func(w http.ResponseWriter, r *http.Request) {
		backend.record(r, "update")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Post("/knowledge/remove", func(w http.ResponseWriter, r *http.Request) {
		backend.record(r, "remove")
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "not_found"})
	})
	r.Post("/knowledge/reindex", func(w http.ResponseWriter, r *http.Request) {
		backend.record(r, "reindex")
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "queued": false, "message": "reindex_requires_crawler"})
	})
	c := newTestClient(t, r, Config{})
	ctx := context.Background()

	updated, err := c.Update(ctx, "s1", domain.PinPatch(true))
	require.NoError(t, err)
	assert.Nil(t, updated)
	require.Len(t, backend.bodies["update"], 1)
	assert.Equal(t, map[string]any{"source_id": "s1", "pinned": true}, backend.bodies["update"][0])

	err = c.Remove(ctx, "s1")
	var se *domain.ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "not_found", se.Message)

	_, err = c.Reindex(ctx, "s1")
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "reindex_requires_crawler", se.Message)
	assert.Equal(t, map[string]any{"source_id": "s1"}, backend.bodies["reindex"][0])
}

func TestClient_View(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/knowledge/view", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("source_id") {
		case "file-1":
			writeJSON(w, http.StatusOK, map[string]any{
				"ok": true, "type": "file", "filename": "a.docx",
				"file_url":               "/knowledge/file/file-1",
				"preview_pdf_generation": "skipped_no_soffice",
				"downloads": []any{
					map[string]any{"label": "Original", "url": "/knowledge/download/file-1"},
				},
			})
		case "broken":
			writeJSON(w, http.StatusOK, map[string]any{"ok": false})
		case "odd":
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "unsupported_type"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "not_found"})
		}
	})
	c := newTestClient(t, r, Config{})
	ctx := context.Background()

	detail, err := c.View(ctx, "file-1")
	require.NoError(t, err)
	assert.Equal(t, "file-1", detail.ID)
	assert.Equal(t, domain.SourceTypeFile, detail.Type)
	assert.Equal(t, domain.PreviewSkippedNoConverter, detail.PreviewPDFGeneration)
	require.Len(t, detail.Downloads, 1)
	assert.Equal(t, "Original", detail.Downloads[0].Label)

	_, err = c.View(ctx, "broken")
	assert.ErrorIs(t, err, domain.ErrDetailUnavailable)

	_, err = c.View(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrDetailUnavailable)
	assert.ErrorIs(t, err, domain.ErrServer)

	_, err = c.View(ctx, "odd")
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
		want string
	}{
		{"detail wins", 422, `{"detail":"bad field","error":"x"}`, "bad field"},
		{"error field", 400, `{"ok":false,"error":"missing_source_id"}`, "missing_source_id"},
		{"message field", 500, `{"message":"schedule_failed"}`, "schedule_failed"},
		{"non-string detail", 422, `{"detail":[{"loc":"x"}]}`, `{"detail":[{"loc":"x"}]}`},
		{"bare JSON string", 429, `"quota exceeded"`, "quota exceeded"},
		{"unrecognised object", 400, ` {"foo":1} `, `{"foo":1}`},
		{"blank JSON string", 503, `"  "`, "Service Unavailable"},
		{"plain text", 502, "  upstream down \n", "upstream down"},
		{"empty body", 404, "", "Not Found"},
		{"unknown status", 599, "", "599 custom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorMessage(tt.code, "599 custom", []byte(tt.body)))
		})
	}
}

func TestErrorMessage_ClipsOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("ошибка ", 60)

	got := errorMessage(500, "", []byte(body))

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, maxMessageLength, utf8.RuneCountInString(got))
	assert.True(t, strings.HasPrefix(body, got))
}
