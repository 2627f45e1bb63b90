package sources

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

func TestRenderList_States(t *testing.T) {
	tests := []struct {
		name     string
		snapshot []domain.Source
		state    RenderState
		want     []string
		notWant  []string
	}{
		{
			name:    "empty",
			want:    []string{"No sources yet"},
			notWant: []string{"loading"},
		},
		{
			name:    "loading empty",
			state:   RenderState{Loading: true, Spinner: "*"},
			want:    []string{"loading"},
			notWant: []string{"No sources yet"},
		},
		{
			name:     "error block",
			snapshot: nil,
			state:    RenderState{Err: "Cannot reach the server"},
			want:     []string{"Could not load sources: Cannot reach the server", "Press r to retry"},
		},
		{
			name: "cards",
			snapshot: []domain.Source{
				{ID: "a", Type: domain.SourceTypeText, Title: "Alpha", Preview: "first words", LastUpdated: "2026-01-02"},
				{ID: "b", Type: domain.SourceTypeURL, URI: "https://b.example", Pinned: true, Status: "indexing", Progress: 40},
			},
			want: []string{"Text", "Alpha", "first words", "Updated 2026-01-02", "Link", "★", "https://b.example", "indexing", "40%"},
		},
		{
			name:     "menu under its card",
			snapshot: []domain.Source{{ID: "a", Type: domain.SourceTypeText, Title: "Alpha"}},
			state:    RenderState{MenuFor: "a", Menu: "MENU"},
			want:     []string{"MENU"},
		},
		{
			name:     "unknown type",
			snapshot: []domain.Source{{ID: "z", Type: domain.SourceTypeUnknown, Preview: "raw"}},
			want:     []string{"Source", "raw"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderList(nil, tt.snapshot, tt.state)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, out, w)
			}
		})
	}
}

func TestRenderList_ProgressBar(t *testing.T) {
	bar := progress.New(progress.WithWidth(10), progress.WithoutPercentage())
	snapshot := []domain.Source{{ID: "a", Type: domain.SourceTypeFile, Filename: "f.pdf", Progress: 50}}

	withBar := RenderList(nil, snapshot, RenderState{Bar: &bar})
	withoutBar := RenderList(nil, snapshot, RenderState{})

	assert.NotContains(t, withBar, "50%")
	assert.Contains(t, withoutBar, "50%")
}

func TestRenderList_CompleteProgressHidden(t *testing.T) {
	snapshot := []domain.Source{{ID: "a", Type: domain.SourceTypeText, Title: "x", Progress: 100}}

	assert.NotContains(t, RenderList(nil, snapshot, RenderState{}), "100%")
}

func TestRenderList_Pure(t *testing.T) {
	snapshot := []domain.Source{{ID: "a", Type: domain.SourceTypeText, Title: "Alpha"}}
	st := RenderState{Selected: 0, Width: 60}

	assert.Equal(t, RenderList(nil, snapshot, st), RenderList(nil, snapshot, st))
}

func TestExcerpt(t *testing.T) {
	content := strings.Repeat("a", 600)
	draft := domain.NewTextDraft("", content)
	src := &domain.Source{Type: domain.SourceTypeText, Content: content, Preview: draft.Preview}

	excerpt := Excerpt(src, 0)

	assert.Equal(t, 401, len([]rune(draft.Preview)))
	assert.Equal(t, strings.Repeat("a", domain.ExcerptLength)+domain.Ellipsis, excerpt)
}

func TestExcerpt_Variants(t *testing.T) {
	tests := []struct {
		name string
		src  domain.Source
		want string
	}{
		{"text falls back to content", domain.Source{Type: domain.SourceTypeText, Content: "line one\nline two"}, "line one line two"},
		{"url preview", domain.Source{Type: domain.SourceTypeURL, URI: "https://x", Preview: "About x"}, "About x"},
		{"url without preview", domain.Source{Type: domain.SourceTypeURL, URI: "https://x"}, "https://x"},
		{"file", domain.Source{Type: domain.SourceTypeFile, Filename: "f.pdf"}, "f.pdf"},
		{"short length", domain.Source{Type: domain.SourceTypeText, Content: "abcdef"}, "abc" + domain.Ellipsis},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 0
			if tt.name == "short length" {
				n = 3
			}
			assert.Equal(t, tt.want, Excerpt(&tt.src, n))
		})
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		name                    string
		total, selected, height int
		wantStart, wantEnd      int
	}{
		{"no height shows all", 10, 5, 0, 0, 10},
		{"fits", 2, 1, 40, 0, 2},
		{"scrolls to selection", 10, 7, 4 + 3*cardHeight, 5, 8},
		{"at least one", 10, 3, 2, 3, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := window(tt.total, tt.selected, tt.height)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}
