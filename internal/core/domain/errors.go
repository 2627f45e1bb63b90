package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested source is not in the current snapshot.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates a source type outside text, file and url.
	ErrUnsupportedType = errors.New("unsupported source type")

	// Backend Errors.

	// ErrTransport indicates a request never completed (DNS, refused, timeout).
	// Always wrapped in a *TransportError.
	ErrTransport = errors.New("network error")

	// ErrServer indicates the backend answered with a non-success status.
	// Always wrapped in a *ServerError.
	ErrServer = errors.New("server error")

	// ErrAuthRequired indicates the backend rejected or redirected an
	// unauthenticated request. Matched by *ServerError with a 3xx, 401 or 403 status.
	ErrAuthRequired = errors.New("authentication required")

	// ErrDetailUnavailable indicates the detail endpoint returned no usable envelope.
	ErrDetailUnavailable = errors.New("source detail unavailable")

	// ErrUploadRejected indicates the backend refused an uploaded file.
	ErrUploadRejected = errors.New("upload rejected")

	// ErrImagesNotAllowed indicates the backend refused an image upload.
	ErrImagesNotAllowed = errors.New("image uploads are not allowed")
)

// UploadCodeImagesNotAllowed is the backend rejection code for image uploads.
const UploadCodeImagesNotAllowed = "images_not_allowed"

// TransportError wraps a failure that prevented a request from completing.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// ServerError is a non-2xx response from the backend.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// Is matches ErrServer, and ErrAuthRequired for redirects and auth failures.
func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrServer:
		return true
	case ErrAuthRequired:
		return e.StatusCode == 401 || e.StatusCode == 403 ||
			(e.StatusCode >= 300 && e.StatusCode < 400)
	}
	return false
}

// UploadRejectedError is a 2xx upload response carrying ok=false.
type UploadRejectedError struct {
	Code string
}

func (e *UploadRejectedError) Error() string {
	if e.Code == "" {
		return ErrUploadRejected.Error()
	}
	return fmt.Sprintf("%s: %s", ErrUploadRejected.Error(), e.Code)
}

// Is matches ErrUploadRejected, and ErrImagesNotAllowed for the image code.
func (e *UploadRejectedError) Is(target error) bool {
	switch target {
	case ErrUploadRejected:
		return true
	case ErrImagesNotAllowed:
		return e.Code == UploadCodeImagesNotAllowed
	}
	return false
}
