// Package errors defines the application error kinds shared by services and
// handlers. Services return *AppError values; callers branch on the kind with
// Is against the sentinels below, and httputil renders Code, Message and
// Details into the response envelope.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrAccessDenied       = errors.New("access denied")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrValidation         = errors.New("validation error")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
)

// AppError carries an error kind (Err), the wire code and HTTP status.
type AppError struct {
	Err        error             `json:"-"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	StatusCode int               `json:"status_code"`
	Details    map[string]string `json:"details,omitempty"`
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

func kind(sentinel error, code string, status int, message string) *AppError {
	return &AppError{Err: sentinel, Code: code, StatusCode: status, Message: message}
}

func NotFound(resource string) *AppError {
	return kind(ErrNotFound, "NOT_FOUND", http.StatusNotFound, resource+" not found")
}

func Unauthorized(message string) *AppError {
	return kind(ErrUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return kind(ErrForbidden, "FORBIDDEN", http.StatusForbidden, message)
}

// AccessDenied reports a pharmacy outside the acting user's access set.
func AccessDenied(pharmacyID string) *AppError {
	e := kind(ErrAccessDenied, "ACCESS_DENIED", http.StatusForbidden, "access denied to pharmacy "+pharmacyID)
	e.Details = map[string]string{"pharmacy": pharmacyID}
	return e
}

// InsufficientStock reports a decrement that would drive stock below zero.
func InsufficientStock(pharmacyName string, requested int) *AppError {
	e := kind(ErrInsufficientStock, "INSUFFICIENT_STOCK", http.StatusBadRequest,
		fmt.Sprintf("insufficient stock at %s (requested %d)", pharmacyName, requested))
	e.Details = map[string]string{
		"pharmacy":  pharmacyName,
		"requested": strconv.Itoa(requested),
	}
	return e
}

func BadRequest(message string) *AppError {
	return kind(ErrBadRequest, "BAD_REQUEST", http.StatusBadRequest, message)
}

func Conflict(message string) *AppError {
	return kind(ErrConflict, "CONFLICT", http.StatusConflict, message)
}

func Internal(message string) *AppError {
	return kind(ErrInternal, "INTERNAL_ERROR", http.StatusInternalServerError, message)
}

// Validation maps field names to messages.
func Validation(details map[string]string) *AppError {
	e := kind(ErrValidation, "VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	e.Details = details
	return e
}

func InvalidCredentials() *AppError {
	return kind(ErrInvalidCredentials, "INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
}

func TokenExpired() *AppError {
	return kind(ErrTokenExpired, "TOKEN_EXPIRED", http.StatusUnauthorized, "token has expired")
}

func TokenInvalid() *AppError {
	return kind(ErrTokenInvalid, "TOKEN_INVALID", http.StatusUnauthorized, "invalid token")
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
