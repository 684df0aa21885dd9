// Package errors defines the sentinel errors shared across the indexing and
// search services, plus the HTTP status mapping used by the search API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrChunkConsumed reports use of a chunk handle whose backing file
	// was transferred away by a previous merge.
	ErrChunkConsumed = errors.New("chunk already consumed by merge")
	// ErrEmptyCorpus reports index construction over zero documents,
	// which would leave the average document length undefined.
	ErrEmptyCorpus  = errors.New("empty corpus")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrTimeout      = errors.New("operation timed out")
	ErrInternal     = errors.New("internal error")
)

// AppError pairs a sentinel with request-specific context and an HTTP
// status for the API surface.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// HTTPStatusCode maps an error to the status the search API should return.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyCorpus):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
