// Package apperr defines the closed set of failure kinds surfaced to API callers.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable, machine-readable failure category.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindRateLimit    Kind = "rate_limit"
	KindConfig       Kind = "config"
	KindAuth         Kind = "auth"
	KindAIRateLimit  Kind = "ai_rate_limit"
	KindCredits      Kind = "credits"
	KindTimeout      Kind = "timeout"
	KindNetwork      Kind = "network"
	KindUnknown      Kind = "unknown"
	KindServer       Kind = "server"
)

type kindInfo struct {
	status  int
	message string
}

var kinds = map[Kind]kindInfo{
	KindValidation:   {http.StatusBadRequest, "Invalid request"},
	KindUnauthorized: {http.StatusUnauthorized, "Unauthorized"},
	KindForbidden:    {http.StatusForbidden, "Forbidden"},
	KindNotFound:     {http.StatusNotFound, "Chat not found"},
	KindConflict:     {http.StatusConflict, "Email already registered"},
	KindRateLimit:    {http.StatusTooManyRequests, "Rate limit exceeded"},
	KindConfig:       {http.StatusServiceUnavailable, "AI service is not configured"},
	KindAuth:         {http.StatusBadGateway, "AI service rejected our credentials"},
	KindAIRateLimit:  {http.StatusServiceUnavailable, "AI service is busy, please try again shortly"},
	KindCredits:      {http.StatusPaymentRequired, "AI service credits depleted"},
	KindTimeout:      {http.StatusGatewayTimeout, "The AI took too long to respond"},
	KindNetwork:      {http.StatusBadGateway, "Cannot reach AI service"},
	KindUnknown:      {http.StatusBadGateway, "Failed to generate reply"},
	KindServer:       {http.StatusInternalServerError, "Internal server error"},
}

// Status returns the HTTP status code for a kind. Unknown kinds map to 500.
func (k Kind) Status() int {
	if info, ok := kinds[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

// Message returns the default caller-facing message for a kind.
func (k Kind) Message() string {
	if info, ok := kinds[k]; ok {
		return info.message
	}
	return kinds[KindServer].message
}

// Error is a classified failure. Message is safe to show to callers;
// Err carries the underlying detail for logs only.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error with the kind's default message.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: kind.Message(), Err: err}
}

// Newf returns an Error with a custom caller-facing message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err. Errors that were never classified are
// reported as KindServer.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindServer
}

// As returns err as a classified *Error, wrapping unclassified errors as KindServer.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return New(KindServer, err)
}
