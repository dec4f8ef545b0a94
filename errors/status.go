package errors

import "errors"

// Status is a flat integer status code for callers that cannot consume
// Go errors across the bridge boundary. The values are stable.
type Status int32

const (
	StatusOK               Status = 0
	StatusGenericError     Status = -1
	StatusOutOfMemory      Status = -2
	StatusInvalidParameter Status = -3
	StatusNotInitialized   Status = -4
)

// StatusOf maps an error to its stable status code. nil maps to
// StatusOK. Unknown handles, bad indices, and out-of-bounds accesses all
// map to StatusInvalidParameter, matching the engine's C surface.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}

	var e *Error
	if !errors.As(err, &e) {
		return StatusGenericError
	}

	switch e.Kind {
	case KindInvalidHandle, KindInvalidParameter, KindOutOfBounds, KindNoDevice, KindRangeOverlap:
		return StatusInvalidParameter
	case KindOutOfMemory:
		return StatusOutOfMemory
	case KindNotInitialized:
		return StatusNotInitialized
	default:
		return StatusGenericError
	}
}
