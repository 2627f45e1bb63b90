package messages

import (
	"errors"

	"github.com/custodia-labs/knowctl/internal/core/domain"
)

// Describe turns an error into a short user-facing sentence.
func Describe(err error) string {
	var se *domain.ServerError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrImagesNotAllowed):
		return "Image uploads are disabled"
	case errors.Is(err, domain.ErrUploadRejected):
		return "Upload rejected: " + uploadCode(err)
	case errors.Is(err, domain.ErrAuthRequired):
		return "Not signed in: set auth.token or auth.session_cookie"
	case errors.Is(err, domain.ErrTransport):
		return "Cannot reach the server"
	case errors.Is(err, domain.ErrDetailUnavailable):
		return "Unable to load this source"
	case errors.Is(err, domain.ErrNotFound):
		return "Source not found"
	case errors.As(err, &se):
		return "Server error: " + se.Message
	default:
		return err.Error()
	}
}

func uploadCode(err error) string {
	var re *domain.UploadRejectedError
	if errors.As(err, &re) && re.Code != "" {
		return re.Code
	}
	return "unknown reason"
}
