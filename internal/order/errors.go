package order

import "errors"

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotFound          = errors.New("order not found")
	ErrForbidden         = errors.New("forbidden")
	ErrConflict          = errors.New("order already paid")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStorage wraps persistence failures so callers can tell a broken
	// store apart from a missing order.
	ErrStorage = errors.New("storage error")

	// ErrUpstream wraps capability calls that failed on their own
	// (outage, timeout), as opposed to the caller's input being bad.
	ErrUpstream = errors.New("upstream capability unavailable")

	// ErrVersionConflict is returned by a store when the order's version
	// moved between read and write.
	ErrVersionConflict = errors.New("order version conflict")
)
