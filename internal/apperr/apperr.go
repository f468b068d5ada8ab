// Package apperr defines the error taxonomy shared by the gateway, the scoring and
// moderation engines and the transport layer.
package apperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for callers deciding whether to retry, back off or give up.
type Kind string

const (
	KindNotFound           Kind = "NOT_FOUND"
	KindPermissionDenied   Kind = "PERMISSION_DENIED"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindTimeout            Kind = "TIMEOUT"
	KindValidation         Kind = "VALIDATION"
	KindModerationRejected Kind = "MODERATION_REJECTED"
	KindUnavailable        Kind = "UNAVAILABLE"
	KindInternal           Kind = "INTERNAL"
)

// Error carries a Kind plus the operation that failed and optional context for logs.
type Error struct {
	Kind    Kind           `json:"kind"`
	Op      string         `json:"op,omitempty"`
	Message string         `json:"message"`
	Context map[string]any `json:"context,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return "apperr: <nil>"
	}
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *Error by Kind so errors.Is(err, apperr.ErrNotFound) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil {
		return false
	}
	return t.Message == "" && t.Op == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is checks.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrPermissionDenied   = &Error{Kind: KindPermissionDenied}
	ErrRateLimited        = &Error{Kind: KindRateLimited}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrModerationRejected = &Error{Kind: KindModerationRejected}
	ErrUnavailable        = &Error{Kind: KindUnavailable}
	ErrInternal           = &Error{Kind: KindInternal}
)

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WithOp returns a copy of e tagged with the failing operation.
func (e *Error) WithOp(op string) *Error {
	cp := *e
	cp.Op = op
	return &cp
}

// With returns a copy of e with an extra context attribute.
func (e *Error) With(key string, value any) *Error {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	for k, v := range e.Context {
		cp.Context[k] = v
	}
	cp.Context[key] = value
	return &cp
}

func NotFound(msg string) *Error         { return New(KindNotFound, msg) }
func PermissionDenied(msg string) *Error { return New(KindPermissionDenied, msg) }
func Validation(msg string) *Error       { return New(KindValidation, msg) }
func Unavailable(msg string) *Error      { return New(KindUnavailable, msg) }
func Internal(msg string) *Error         { return New(KindInternal, msg) }

func Timeout(msg string, cause error) *Error {
	return Wrap(KindTimeout, msg, cause)
}

// RateLimited reports admission backpressure with enough context for the caller to back off.
func RateLimited(key string, capacity int) *Error {
	return &Error{
		Kind:    KindRateLimited,
		Message: fmt.Sprintf("admission capacity %d exhausted", capacity),
		Context: map[string]any{"key": key, "capacity": capacity},
	}
}

// ModerationRejected is terminal for the current message; reason is a short machine code.
func ModerationRejected(reason string, score float64) *Error {
	return &Error{
		Kind:    KindModerationRejected,
		Message: "message rejected by moderation",
		Context: map[string]any{"reason": reason, "score": score},
	}
}

// KindOf extracts the Kind of err. Context errors map to Timeout, anything unknown to Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Retryable reports whether the caller may retry the same request later.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindUnavailable, KindTimeout, KindRateLimited:
		return true
	default:
		return false
	}
}

// From converts any error into an *Error, keeping existing classification.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Wrap(KindOf(err), "unclassified error", err)
}
