// Package errors defines the sentinel errors shared across launchrank and
// maps them to HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrSourceNotFound   = errors.New("source not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrDisabled         = errors.New("feature disabled")
	ErrInternal         = errors.New("internal error")
	ErrTimeout          = errors.New("operation timed out")
)

// AppError carries the status and client-facing message for a sentinel.
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
	return &AppError{Err: sentinel, Message: message, StatusCode: statusCode}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return New(sentinel, statusCode, fmt.Sprintf(format, args...))
}

// statuses is checked in order; the first sentinel in err's chain wins.
var statuses = []struct {
	sentinel error
	status   int
}{
	{ErrSourceNotFound, http.StatusNotFound},
	{ErrItemNotFound, http.StatusNotFound},
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrStoreUnavailable, http.StatusServiceUnavailable},
	{ErrDisabled, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusServiceUnavailable},
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	for _, s := range statuses {
		if errors.Is(err, s.sentinel) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// PublicMessage returns text safe to show a client: the AppError message,
// else the text of the first known sentinel, else "internal error". Wrapped
// driver and network details never leak.
func PublicMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	for _, s := range statuses {
		if errors.Is(err, s.sentinel) {
			return s.sentinel.Error()
		}
	}
	return ErrInternal.Error()
}
