package knowledgeapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/knowctl/internal/logger"
)

// RequestIDHeader correlates client calls with backend logs.
const RequestIDHeader = "X-Request-ID"

// requestIDTransport tags every request with an ID and logs its outcome.
type requestIDTransport struct {
	base http.RoundTripper
}

func (t *requestIDTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get(RequestIDHeader) == "" {
		// RoundTrip must not mutate the caller's request.
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	id := req.Header.Get(RequestIDHeader)

	start := time.Now()
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		logger.Debug("%s %s [%s] failed after %s: %v", req.Method, req.URL.Path, id, time.Since(start), err)
		return nil, err
	}
	logger.Debug("%s %s [%s] -> %d in %s", req.Method, req.URL.Path, id, resp.StatusCode, time.Since(start))
	return resp, nil
}
