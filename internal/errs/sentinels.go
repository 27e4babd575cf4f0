// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed caller input. No transaction is opened.
	ErrValidation = errors.New("validation failed")

	// ErrUnreleased indicates an attempt to mark media as watched before its release date.
	ErrUnreleased = errors.New("media not yet released")

	// ErrNotListValued indicates a preference item operation on a key whose value is not a list.
	ErrNotListValued = errors.New("preference is not list-valued")
)
