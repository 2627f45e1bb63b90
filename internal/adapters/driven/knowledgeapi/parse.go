package knowledgeapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/logger"
)

// maxMessageLength caps, in runes, error text lifted from a raw body.
const maxMessageLength = 200

// parseSourceList accepts either a bare array or an object with a
// "sources" array. Anything else yields an empty list. Elements that do
// not decode are skipped.
func parseSourceList(body []byte) []domain.Source {
	if !gjson.ValidBytes(body) {
		logger.Warn("List response is not JSON; treating as empty")
		return []domain.Source{}
	}
	root := gjson.ParseBytes(body)
	list := root
	if root.IsObject() {
		list = root.Get("sources")
	}
	if !list.IsArray() {
		return []domain.Source{}
	}

	items := list.Array()
	sources := make([]domain.Source, 0, len(items))
	for i, item := range items {
		if !item.IsObject() {
			logger.Warn("Skipping source %d: not an object", i)
			continue
		}
		var src domain.Source
		if err := json.Unmarshal([]byte(item.Raw), &src); err != nil {
			logger.Warn("Skipping source %d: %v", i, err)
			continue
		}
		sources = append(sources, src)
	}
	return sources
}

// checkEnvelope fails a 2xx response whose body carries ok=false.
func checkEnvelope(body []byte) error {
	if !gjson.ValidBytes(body) {
		return nil
	}
	ok := gjson.GetBytes(body, "ok")
	if !ok.Exists() || ok.Bool() {
		return nil
	}
	msg := firstString(body, "error", "message")
	if msg == "" {
		msg = "request failed"
	}
	return &domain.ServerError{StatusCode: http.StatusOK, Message: msg}
}

// parseSource decodes a single source object, or nil when the body holds none.
func parseSource(body []byte) *domain.Source {
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil
	}
	var src domain.Source
	if err := json.Unmarshal(body, &src); err != nil {
		return nil
	}
	return &src
}

// parseEchoedSource returns the source echoed by a mutation, if any.
// Bare {"ok":true} answers carry none.
func parseEchoedSource(body []byte) *domain.Source {
	if !gjson.GetBytes(body, "source_id").Exists() {
		if nested := gjson.GetBytes(body, "source"); nested.IsObject() {
			return parseSource([]byte(nested.Raw))
		}
		return nil
	}
	return parseSource(body)
}

// parseUploadResult maps an upload answer. A 2xx with ok=false is a
// rejection carrying the backend's error code.
func parseUploadResult(body []byte) (*domain.UploadResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, &domain.ServerError{StatusCode: http.StatusOK, Message: "upload response is not JSON"}
	}
	if ok := gjson.GetBytes(body, "ok"); ok.Exists() && !ok.Bool() {
		return nil, &domain.UploadRejectedError{Code: firstString(body, "error", "message")}
	}
	var result domain.UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}

// parseDetail decodes a view envelope. An envelope without ok=true is unusable.
func parseDetail(id string, body []byte) (*domain.Source, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("view %s: response is not JSON: %w", id, domain.ErrDetailUnavailable)
	}
	if !gjson.GetBytes(body, "ok").Bool() {
		msg := firstString(body, "error", "message")
		if msg == "" {
			msg = "no envelope"
		}
		return nil, fmt.Errorf("view %s: %s: %w", id, msg, domain.ErrDetailUnavailable)
	}
	src := parseSource(body)
	if src == nil {
		return nil, fmt.Errorf("view %s: %w", id, domain.ErrDetailUnavailable)
	}
	if src.ID == "" {
		src.ID = id
	}
	return src, nil
}

// errorMessage picks the most useful text from a failed response.
func errorMessage(code int, status string, body []byte) string {
	text := strings.TrimSpace(string(body))
	if gjson.ValidBytes(body) {
		if msg := firstString(body, "detail", "error", "message"); msg != "" {
			return msg
		}
		if root := gjson.ParseBytes(body); root.Type == gjson.String {
			text = strings.TrimSpace(root.String())
		}
	}
	if text != "" {
		return clip(text, maxMessageLength)
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	if status != "" {
		return status
	}
	return fmt.Sprintf("status %d", code)
}

// clip cuts s to at most n runes.
func clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// firstString returns the first non-empty string value among paths.
func firstString(body []byte, paths ...string) string {
	for _, res := range gjson.GetManyBytes(body, paths...) {
		if res.Type == gjson.String && strings.TrimSpace(res.String()) != "" {
			return res.String()
		}
	}
	return ""
}
