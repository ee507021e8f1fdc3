package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unknown doc type", NewAppError(CodeConfig, "Tipo de documento 'X'", ErrUnknownDocType), http.StatusUnprocessableEntity},
		{"quality reject", fmt.Errorf("page 1: %w", NewAppError(CodeQuality, "too short", ErrQualityReject)), http.StatusUnprocessableEntity},
		{"invalid input", NewAppError(CodeInput, "bad", ErrInvalidInput), http.StatusUnprocessableEntity},
		{"structural validation", NewAppError(CodeValidation, "no fields", ErrValidation), http.StatusUnprocessableEntity},
		{"backend", NewAppError(CodeBackend, "timeout", ErrBackend), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
		{"grpc status", status.Error(codes.InvalidArgument, "bad"), http.StatusUnprocessableEntity},
		{"deadline", NewAppError(CodeBackend, "gemini request failed", fmt.Errorf("%w: %w", ErrBackend, context.DeadlineExceeded)), http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestCodeOf_NotFound(t *testing.T) {
	assert.Equal(t, codes.NotFound, CodeOf(fmt.Errorf("job: %w", ErrNotFound)))
}

func TestUserMessage(t *testing.T) {
	err := fmt.Errorf("route: %w", NewAppError(CodeQuality, "Texto extraido muy corto", ErrQualityReject))
	assert.Equal(t, "Texto extraido muy corto", UserMessage(err))
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
	assert.Equal(t, "", UserMessage(nil))
}

func TestAppError_Unwrap(t *testing.T) {
	err := NewAppError(CodeData, "empty corpus", ErrNoSamples)
	assert.ErrorIs(t, err, ErrNoSamples)
	assert.Contains(t, err.Error(), "DATA_ERROR")
}

func TestCodeOf_Context(t *testing.T) {
	assert.Equal(t, codes.DeadlineExceeded, CodeOf(fmt.Errorf("page 0: %w", context.DeadlineExceeded)))
	assert.Equal(t, codes.Canceled, CodeOf(context.Canceled))
}
