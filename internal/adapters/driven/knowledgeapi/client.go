// Package knowledgeapi provides the HTTP adapter for the knowledge backend.
package knowledgeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
)

// Ensure Client implements the interface.
var _ driven.KnowledgeAPI = (*Client)(nil)

// Default configuration values.
const (
	DefaultBaseURL           = "http://localhost:8000"
	DefaultPathPrefix        = "/knowledge"
	DefaultTimeout           = 30 * time.Second
	DefaultCookieName        = "session"
	DefaultMaxRetries        = 3
	DefaultRequestsPerSecond = 5.0
	DefaultRetryInterval     = 250 * time.Millisecond
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 32 << 20

// Config holds configuration for the knowledge backend client.
type Config struct {
	// BaseURL is the server address (default: http://localhost:8000).
	BaseURL string

	// PathPrefix is prepended to every endpoint (default: /knowledge).
	PathPrefix string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration

	// Token, if set, is sent as a bearer token.
	Token string

	// SessionCookie, if set, is sent as the CookieName cookie.
	SessionCookie string

	// CookieName names the session cookie (default: session).
	CookieName string

	// MaxRetries bounds retries of idempotent GETs (default: 3, negative disables).
	MaxRetries int

	// RequestsPerSecond throttles outgoing requests (default: 5, negative disables).
	RequestsPerSecond float64

	// RetryInterval is the first backoff delay (default: 250ms).
	RetryInterval time.Duration

	// Transport overrides the base round tripper.
	Transport http.RoundTripper
}

// Client talks to the knowledge backend over HTTP.
type Client struct {
	client        *http.Client
	baseURL       *url.URL
	prefix        string
	limiter       *rate.Limiter
	maxRetries    int
	retryInterval time.Duration
}

// NewClient creates a new backend client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = DefaultPathPrefix
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https: %w", cfg.BaseURL, domain.ErrInvalidInput)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	if cfg.SessionCookie != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: cfg.CookieName, Value: cfg.SessionCookie, Path: "/"}})
	}

	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	transport = &requestIDTransport{base: transport}
	if cfg.Token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"}),
			Base:   transport,
		}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return &Client{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			Jar:       jar,
			// The backend redirects unauthenticated calls to a login page.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		baseURL:       base,
		prefix:        "/" + strings.Trim(cfg.PathPrefix, "/"),
		limiter:       limiter,
		maxRetries:    maxRetries,
		retryInterval: cfg.RetryInterval,
	}, nil
}

// BaseURL is the server address relative links resolve against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// List returns every source.
func (c *Client) List(ctx context.Context) ([]domain.Source, error) {
	body, err := c.getWithRetry(ctx, "list", nil)
	if err != nil {
		return nil, err
	}
	return parseSourceList(body), nil
}

// Add creates a text or url source.
func (c *Client) Add(ctx context.Context, draft domain.Draft) (*domain.Source, error) {
	body, err := c.postJSON(ctx, "add", draft)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(body); err != nil {
		return nil, err
	}
	src := parseSource(body)
	if src == nil {
		src = &domain.Source{}
	}
	if src.Type == domain.SourceTypeUnknown {
		src.Type = draft.Type
	}
	if src.Title == "" {
		src.Title = draft.Title
	}
	return src, nil
}

// Upload sends a file as multipart form field "file".
func (c *Client) Upload(ctx context.Context, file domain.FileHandle, sourceID string) (*domain.UploadResult, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	header.Set("Content-Type", mediaType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := io.Copy(part, rc); err != nil {
		return nil, fmt.Errorf("read %s: %w", file.Name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close form: %w", err)
	}

	var query url.Values
	if sourceID != "" {
		query = url.Values{"source_id": {sourceID}}
	}
	body, err := c.do(ctx, http.MethodPost, "upload", query, buf.Bytes(), mw.FormDataContentType())
	if err != nil {
		return nil, err
	}
	return parseUploadResult(body)
}

// Update applies a partial update.
func (c *Client) Update(ctx context.Context, id string, patch domain.Patch) (*domain.Source, error) {
	payload := struct {
		SourceID string `json:"source_id"`
		domain.Patch
	}{SourceID: id, Patch: patch}

	body, err := c.postJSON(ctx, "update", payload)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(body); err != nil {
		return nil, err
	}
	return parseEchoedSource(body), nil
}

// Remove deletes a source.
func (c *Client) Remove(ctx context.Context, id string) error {
	body, err := c.postJSON(ctx, "remove", sourceRef{SourceID: id})
	if err != nil {
		return err
	}
	return checkEnvelope(body)
}

// Reindex asks the backend to rebuild a source's index entries.
func (c *Client) Reindex(ctx context.Context, id string) (*domain.Source, error) {
	body, err := c.postJSON(ctx, "reindex", sourceRef{SourceID: id})
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(body); err != nil {
		return nil, err
	}
	return parseEchoedSource(body), nil
}

// View fetches the detail envelope of a source.
func (c *Client) View(ctx context.Context, id string) (*domain.Source, error) {
	body, err := c.getWithRetry(ctx, "view", url.Values{"source_id": {id}})
	if err != nil {
		var se *domain.ServerError
		if errors.As(err, &se) {
			switch {
			case se.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: %w", domain.ErrDetailUnavailable, err)
			case se.Message == "unsupported_type":
				return nil, fmt.Errorf("%w: %w", domain.ErrUnsupportedType, err)
			}
		}
		return nil, err
	}
	return parseDetail(id, body)
}

type sourceRef struct {
	SourceID string `json:"source_id"`
}

// postJSON sends v as a JSON body.
func (c *Client) postJSON(ctx context.Context, endpoint string, v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, nil, payload, "application/json")
}

// getWithRetry retries transport failures, 5xx and 429 with exponential backoff.
func (c *Client) getWithRetry(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	operation := func() ([]byte, error) {
		body, err := c.do(ctx, http.MethodGet, endpoint, query, nil, "")
		if err == nil {
			return body, nil
		}
		var se *domain.ServerError
		if errors.As(err, &se) {
			switch {
			case se.StatusCode == http.StatusTooManyRequests:
				return nil, err
			case se.StatusCode >= 500:
				return nil, err
			default:
				return nil, backoff.Permanent(err)
			}
		}
		if errors.Is(err, domain.ErrTransport) && ctx.Err() == nil {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval
	policy.MaxInterval = 8 * c.retryInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(c.maxRetries)+1),
	)
}

// do performs one request and maps failures to domain errors.
func (c *Client) do(
	ctx context.Context, method, endpoint string, query url.Values, payload []byte, contentType string,
) ([]byte, error) {
	op := method + " " + endpoint
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &domain.TransportError{Op: op, Err: err}
		}
	}

	target := c.endpointURL(endpoint, query)
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.ServerError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(resp.StatusCode, resp.Status, body),
		}
	}
	return body, nil
}

// endpointURL joins the prefix and endpoint onto the base URL.
func (c *Client) endpointURL(endpoint string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + c.prefix + "/" + endpoint
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
