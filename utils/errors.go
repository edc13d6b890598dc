package utils

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the error taxonomy shared by every handler.
type ErrorKind string

const (
	KindUnauthorized      ErrorKind = "UNAUTHORIZED"
	KindForbidden         ErrorKind = "FORBIDDEN"
	KindInvalidInput      ErrorKind = "INVALID_INPUT"
	KindNotFound          ErrorKind = "NOT_FOUND"
	KindAlreadyCheckedIn  ErrorKind = "ALREADY_CHECKED_IN"
	KindInsufficientFunds ErrorKind = "INSUFFICIENT_FUNDS"
	KindSquadFull         ErrorKind = "SQUAD_FULL"
	KindAlreadyInSquad    ErrorKind = "ALREADY_IN_SQUAD"
	KindConflict          ErrorKind = "CONFLICT"
	KindRateLimited       ErrorKind = "RATE_LIMIT_EXCEEDED"
	KindExternal          ErrorKind = "EXTERNAL_SERVICE_ERROR"
	KindDatabase          ErrorKind = "DATABASE_ERROR"
	KindInternal          ErrorKind = "INTERNAL_ERROR"
)

// Status returns the HTTP status for the kind.
func (k ErrorKind) Status() int {
	switch k {
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidInput, KindInsufficientFunds:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyCheckedIn, KindSquadFull, KindAlreadyInSquad, KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the numeric envelope code for the kind.
func (k ErrorKind) Code() int {
	switch k {
	case KindUnauthorized:
		return 40100
	case KindForbidden:
		return 40300
	case KindInvalidInput:
		return 40000
	case KindInsufficientFunds:
		return 40010
	case KindNotFound:
		return 40400
	case KindAlreadyCheckedIn:
		return 40900
	case KindSquadFull:
		return 40910
	case KindAlreadyInSquad:
		return 40911
	case KindConflict:
		return 40920
	case KindRateLimited:
		return 42900
	case KindExternal:
		return 50010
	case KindDatabase:
		return 50020
	default:
		return 50000
	}
}

// AppError carries a taxonomy kind, a client-safe message and an optional cause.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another AppError of the same kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind
}

// NewError builds an AppError without a cause.
func NewError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

// Invalid reports rejected input.
func Invalid(message string) *AppError { return NewError(KindInvalidInput, message) }

// NotFound reports a missing entity.
func NotFound(message string) *AppError { return NewError(KindNotFound, message) }

// DatabaseError wraps a storage failure.
func DatabaseError(message string, err error) *AppError {
	return &AppError{Kind: KindDatabase, Message: message, Err: err}
}

// External wraps a downstream provider failure.
func External(message string, err error) *AppError {
	return &AppError{Kind: KindExternal, Message: message, Err: err}
}

// Internal wraps an unexpected failure.
func Internal(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
