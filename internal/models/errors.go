package models

import (
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindDuplicateKey       ErrorKind = "DUPLICATE_KEY"
	KindInvalidCredentials ErrorKind = "INVALID_CREDENTIALS"
	KindMissingToken       ErrorKind = "MISSING_TOKEN"
	KindInvalidToken       ErrorKind = "INVALID_TOKEN"
	KindExpiredToken       ErrorKind = "EXPIRED_TOKEN"
	KindUserNotFound       ErrorKind = "USER_NOT_FOUND"
	KindForbidden          ErrorKind = "FORBIDDEN"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindRateLimited        ErrorKind = "RATE_LIMITED"
	KindServer             ErrorKind = "SERVER_ERROR"
)

// Status maps an error kind onto the HTTP status the API answers with.
func (k ErrorKind) Status() int {
	switch k {
	case KindValidation, KindDuplicateKey, KindInvalidCredentials:
		return http.StatusBadRequest
	case KindMissingToken, KindInvalidToken, KindExpiredToken, KindUserNotFound:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// AppError represents a classified application error
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on kind, so errors.Is(err, ErrNotFound) holds for every not-found error.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound     = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrDuplicateKey = &AppError{Kind: KindDuplicateKey, Message: "duplicate key"}
	ErrValidation   = &AppError{Kind: KindValidation, Message: "validation failed"}
)

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: resource + " not found"}
}

func NewDuplicateKeyError(message string) *AppError {
	return &AppError{Kind: KindDuplicateKey, Message: message}
}

func NewAuthError(kind ErrorKind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func NewServerError(message string, err error) *AppError {
	return &AppError{Kind: KindServer, Message: message, Err: err}
}
