package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	// ErrHoldContended means another request currently holds the room's
	// advisory lock.
	ErrHoldContended = errors.New("room hold already taken")
)
