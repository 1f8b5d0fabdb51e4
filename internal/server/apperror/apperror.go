// Package apperror defines the closed set of errors surfaced by the insights perimeter.
// Callers switch on Kind instead of matching concrete types.
package apperror

import (
	"errors"
	"fmt"
	"time"
)

// Kind discriminates error variants
type Kind string

const (
	// KindCredential missing, malformed, mis-signed or expired token
	KindCredential Kind = "credential"
	// KindAdmission IP blocked, rate exceeded or role not permitted
	KindAdmission Kind = "admission"
	// KindValidation unsafe or invalid input
	KindValidation Kind = "validation"
	// KindUpstream failure of the wrapped operation or its backends
	KindUpstream Kind = "upstream"
	// KindNotFound resource does not exist or is not visible to the caller
	KindNotFound Kind = "not_found"
)

// Codes for admission errors
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeIPBlocked       = "IP_BLOCKED"
	CodeForbidden       = "FORBIDDEN"
	CodeRateLimited     = "RATE_LIMITED"
	CodeValidation      = "VALIDATION_FAILED"
	CodeUpstream        = "UPSTREAM_FAILED"
	CodeNotFound        = "NOT_FOUND"
)

// Error is the single error type returned across package boundaries
type Error struct {
	Err             error
	Kind            Kind
	Code            string
	Message         string
	Reason          string
	RetryAfter      time.Duration
	RemainingMinute int
	RemainingHour   int
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Credential reports an authentication failure
func Credential(message string, err error) *Error {
	return &Error{Kind: KindCredential, Code: CodeUnauthenticated, Message: message, Err: err}
}

// IPBlocked reports that the source address is outside the allow-list.
// The address itself is recorded in the audit journal and never echoed to the caller.
func IPBlocked() *Error {
	return &Error{Kind: KindAdmission, Code: CodeIPBlocked, Message: "access denied from this address"}
}

// Forbidden reports that the caller's role does not permit the operation
func Forbidden(message string) *Error {
	return &Error{Kind: KindAdmission, Code: CodeForbidden, Message: message}
}

// RateLimited reports an exhausted quota together with the remaining figures
func RateLimited(remainingMinute, remainingHour int, retryAfter time.Duration) *Error {
	return &Error{
		Kind:            KindAdmission,
		Code:            CodeRateLimited,
		Message:         "rate limit exceeded, please try again later",
		RemainingMinute: remainingMinute,
		RemainingHour:   remainingHour,
		RetryAfter:      retryAfter,
	}
}

// Validation reports user-correctable input problems. reason is a stable machine-readable code.
func Validation(reason, message string, err error) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Reason: reason, Message: message, Err: err}
}

// Upstream wraps a failure of a downstream dependency
func Upstream(message string, err error) *Error {
	return &Error{Kind: KindUpstream, Code: CodeUpstream, Message: message, Err: err}
}

// NotFound reports a missing resource
func NotFound(message string, err error) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: message, Err: err}
}

// As extracts *Error from the chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or an empty Kind for foreign errors
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

// IsAdmission reports whether err is an admission denial with the given code
func IsAdmission(err error, code string) bool {
	e, ok := As(err)
	return ok && e.Kind == KindAdmission && e.Code == code
}
