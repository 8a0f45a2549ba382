package store

import "errors"

// Error Handling Guidelines:
// - Stores: wrap driver errors with context, keep the sentinel reachable via errors.Is
// - Services: decide whether a store failure is fatal to the request
// - Handlers: use apperrors.* functions for HTTP-appropriate errors

var (
	// ErrCorruptEntry marks a stored audit record that could not be decoded.
	ErrCorruptEntry = errors.New("corrupt audit entry")

	// ErrInvalidLimit is returned when a listing is requested with a non-positive limit.
	ErrInvalidLimit = errors.New("limit must be positive")
)
