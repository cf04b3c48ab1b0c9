package engine

import (
	"errors"
)

// Expected operation outcomes. All of these are recoverable results reported
// to the caller; none indicates an engine fault.
var (
	ErrNotFound            = errors.New("not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAlreadyRenting      = errors.New("user already has an active rental")
	ErrBikeUnavailable     = errors.New("bike unavailable")
	ErrReservationConflict = errors.New("bike reserved by another user")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrCapacityExceeded    = errors.New("station capacity exceeded")
	ErrConflict            = errors.New("conflict")
	ErrInvalidArgument     = errors.New("invalid argument")
)
