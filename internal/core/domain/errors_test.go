package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrNotImplemented", ErrNotImplemented},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrTransport", ErrTransport},
		{"ErrServer", ErrServer},
		{"ErrAuthRequired", ErrAuthRequired},
		{"ErrDetailUnavailable", ErrDetailUnavailable},
		{"ErrUploadRejected", ErrUploadRejected},
		{"ErrImagesNotAllowed", ErrImagesNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("listing: %w", &TransportError{Op: "GET list", Err: cause})

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrServer)
	assert.Contains(t, err.Error(), "connection refused")

	var te *TransportError
	assert.True(t, errors.As(err, &te))
	assert.Equal(t, "GET list", te.Op)
}

func TestServerError(t *testing.T) {
	err := fmt.Errorf("update: %w", &ServerError{StatusCode: 404, Message: "not_found"})

	assert.ErrorIs(t, err, ErrServer)
	assert.NotErrorIs(t, err, ErrTransport)

	var se *ServerError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, 404, se.StatusCode)
	assert.Equal(t, "server error 404: not_found", se.Error())
	assert.NotErrorIs(t, err, ErrAuthRequired)
}

func TestServerError_AuthRequired(t *testing.T) {
	for _, code := range []int{303, 302, 401, 403} {
		assert.ErrorIs(t, &ServerError{StatusCode: code}, ErrAuthRequired, "status %d", code)
	}
	for _, code := range []int{400, 404, 500} {
		assert.NotErrorIs(t, &ServerError{StatusCode: code}, ErrAuthRequired, "status %d", code)
	}
}

func TestUploadRejectedError(t *testing.T) {
	images := &UploadRejectedError{Code: UploadCodeImagesNotAllowed}
	assert.ErrorIs(t, images, ErrUploadRejected)
	assert.ErrorIs(t, images, ErrImagesNotAllowed)

	other := &UploadRejectedError{Code: "too_large"}
	assert.ErrorIs(t, other, ErrUploadRejected)
	assert.NotErrorIs(t, other, ErrImagesNotAllowed)
	assert.Equal(t, "upload rejected: too_large", other.Error())

	assert.Equal(t, "upload rejected", (&UploadRejectedError{}).Error())
}
