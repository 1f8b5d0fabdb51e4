package jwt

import "errors"

// Reason classifies a token verification failure
type Reason string

const (
	ReasonBadSignature         Reason = "BadSignature"
	ReasonMalformed            Reason = "Malformed"
	ReasonExpired              Reason = "Expired"
	ReasonUnsupportedAlgorithm Reason = "UnsupportedAlgorithm"
)

// Sentinels for errors.Is matching against a *VerificationError
var (
	ErrBadSignature         = errors.New("token signature is invalid")
	ErrMalformed            = errors.New("token is malformed")
	ErrExpired              = errors.New("token is expired")
	ErrUnsupportedAlgorithm = errors.New("token algorithm is not supported")
)

// Suspicious reports whether the failure points at tampering or forgery and
// should be logged at warn level. Expired and malformed tokens are rejected silently.
func (r Reason) Suspicious() bool {
	return r == ReasonBadSignature || r == ReasonUnsupportedAlgorithm
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonBadSignature:
		return ErrBadSignature
	case ReasonExpired:
		return ErrExpired
	case ReasonUnsupportedAlgorithm:
		return ErrUnsupportedAlgorithm
	default:
		return ErrMalformed
	}
}

// VerificationError is returned by every failed Verify/VerifyRefresh call
type VerificationError struct {
	Err    error
	Reason Reason
}

func newVerificationError(reason Reason, err error) *VerificationError {
	return &VerificationError{Reason: reason, Err: err}
}

func (e *VerificationError) Error() string {
	if e.Err == nil {
		return e.Reason.sentinel().Error()
	}
	return e.Reason.sentinel().Error() + ": " + e.Err.Error()
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel that corresponds to the reason
func (e *VerificationError) Is(target error) bool {
	return target == e.Reason.sentinel()
}

// ReasonOf extracts the classification from err. ok is false when err is not a verification failure.
func ReasonOf(err error) (Reason, bool) {
	var ve *VerificationError
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return "", false
}
