package apperrors

import (
	"fmt"
	"net/http"
)

// Kind is a machine-readable error category returned to API clients.
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindNotFound        Kind = "not_found"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
	KindConflict        Kind = "conflict"
	KindRateLimited     Kind = "rate_limited"
	KindPersistence     Kind = "persistence_error"
	KindNotification    Kind = "notification_error"
	KindAlreadyRedeemed Kind = "already_redeemed"
	KindExpired         Kind = "expired"
)

// Error is an application error with an HTTP status code and a kind.
type Error struct {
	Code    int    `json:"code"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, kind Kind, message string, err error) *Error {
	return &Error{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, KindValidation, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, KindNotFound, message, nil)
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, KindUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, KindForbidden, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, KindConflict, message, nil)
}

func RateLimited(message string) *Error {
	return New(http.StatusTooManyRequests, KindRateLimited, message, nil)
}

func Persistence(message string, err error) *Error {
	return New(http.StatusInternalServerError, KindPersistence, message, err)
}

func Notification(message string, err error) *Error {
	return New(http.StatusBadGateway, KindNotification, message, err)
}

func AlreadyRedeemed(message string) *Error {
	return New(http.StatusConflict, KindAlreadyRedeemed, message, nil)
}

func Expired(message string) *Error {
	return New(http.StatusGone, KindExpired, message, nil)
}

// From coerces any error into an *Error, defaulting to a persistence error
// so internal detail never leaks to the client.
func From(err error) *Error {
	if appErr, ok := err.(*Error); ok {
		return appErr
	}
	return Persistence("internal error", err)
}
