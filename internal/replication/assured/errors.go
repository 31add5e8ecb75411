package assured

import "errors"

var (
	// ErrInvalidSafeDataLevel is returned for a safe-data update with a
	// level below one.
	ErrInvalidSafeDataLevel = errors.New("assured: invalid safe data level")
	// ErrUnknownMode is returned for an assured update with an unknown mode.
	ErrUnknownMode = errors.New("assured: unknown assured mode")
	// ErrAlreadyWaiting is returned when acks for a CSN are already awaited.
	ErrAlreadyWaiting = errors.New("assured: acks already awaited for CSN")
)
