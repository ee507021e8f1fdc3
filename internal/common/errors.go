package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes carried by AppError.
const (
	CodeConfig     = "CONFIG_ERROR"
	CodeQuality    = "QUALITY_REJECT"
	CodeValidation = "VALIDATION_ERROR"
	CodeData       = "DATA_ERROR"
	CodeBackend    = "BACKEND_ERROR"
	CodeInput      = "INVALID_INPUT"
)

// Common application errors
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDatabase       = errors.New("database error")
	ErrValidation     = errors.New("validation failed")
	ErrUnknownDocType = errors.New("unknown document type")
	ErrQualityReject  = errors.New("document quality rejected")
	ErrNoSamples      = errors.New("reference corpus has no samples")
	ErrBackend        = errors.New("extraction backend failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// UserMessage returns the message meant for API callers: the AppError message
// when there is one, otherwise the error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return err.Error()
}

// CodeOf maps an error to a gRPC code. Document problems the caller can fix are
// InvalidArgument or FailedPrecondition; everything else is Internal.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
		return s.Code()
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, ErrUnknownDocType),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrValidation):
		return codes.InvalidArgument
	case errors.Is(err, ErrQualityReject):
		return codes.FailedPrecondition
	case errors.Is(err, ErrNotFound):
		return codes.NotFound
	default:
		return codes.Internal
	}
}

// HTTPStatus maps an error to the HTTP status used by the recognition endpoint.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.FailedPrecondition:
		return http.StatusUnprocessableEntity
	case codes.NotFound:
		return http.StatusNotFound
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
