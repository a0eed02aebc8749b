package counter

import "errors"

var (
	// ErrInvalidDelta rejects webhook deltas that are not usable
	// non-negative integers before any store call happens.
	ErrInvalidDelta = errors.New("ticket delta must be a non-negative integer")

	// ErrInvalidKey rejects admin requests that carry no event name.
	ErrInvalidKey = errors.New("event name must not be empty")

	// ErrInvalidTotal rejects admin set requests with a negative target.
	ErrInvalidTotal = errors.New("ticket total must be a non-negative integer")

	// ErrNegativeTotal is returned by stores when a mutation would drive a
	// counter below zero. The prior value stays untouched.
	ErrNegativeTotal = errors.New("ticket total must not go negative")

	// ErrStoreUnavailable wraps every storage-layer failure, timeouts
	// included. It is never silently turned into a zero total.
	ErrStoreUnavailable = errors.New("counter store unavailable")
)
