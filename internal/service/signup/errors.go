package signup

import "errors"

// Sentinel errors for the signup service layer.
var (
	// ErrInvalidEmail is returned for submissions that fail syntactic
	// validation. No persistence or dispatch is attempted.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrNotFound is returned by repositories when no record exists for
	// the given email.
	ErrNotFound = errors.New("signup not found")

	// ErrAmbiguousDelivery wraps notification transport errors where the
	// provider may or may not have delivered the message (e.g. a timeout
	// after the request was written). The flag stays false and a retry may
	// double-send; that is the at-least-once trade-off.
	ErrAmbiguousDelivery = errors.New("delivery status ambiguous")
)
