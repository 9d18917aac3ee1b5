// Package errors declares the sentinel errors shared by the indexing and
// search layers and maps them onto HTTP status codes for the service front
// end.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyCorpus is returned when a statistic or a search needs at least
	// one indexed document.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrCorruptIndex is returned when a snapshot is missing required fields
	// or has an invalid shape.
	ErrCorruptIndex = errors.New("corrupt index")
	// ErrUnknownTerm marks an index/search inconsistency: a matched term has
	// no inverted-index entry.
	ErrUnknownTerm   = errors.New("unknown term")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("not found")
	ErrUnknownScorer = errors.New("unknown scorer")
	ErrInternal      = errors.New("internal error")
	ErrTimeout       = errors.New("operation timed out")
)

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

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownScorer):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrEmptyCorpus):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
