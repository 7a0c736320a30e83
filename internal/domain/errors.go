package domain

import "errors"

var (
	// ErrMalformedRequest is returned before any slot is touched.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrSlotNotFound means the slot number is not part of the pool.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrSlotUnavailable means the slot exists but is not active.
	ErrSlotUnavailable = errors.New("slot unavailable")
	// ErrNoSlotAvailable means no slot matches a logical selector.
	ErrNoSlotAvailable = errors.New("no slot available")
)
