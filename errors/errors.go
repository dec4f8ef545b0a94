package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which bridge layer produced the error
type Phase string

const (
	PhaseRegistry Phase = "registry" // handle table operations
	PhaseRun      Phase = "run"      // run/step dispatch
	PhaseMemory   Phase = "memory"   // guest-memory access
	PhaseRegister Phase = "register" // register/counter access
	PhaseDevice   Phase = "device"   // MMIO dispatch
	PhaseEngine   Phase = "engine"   // calls into the engine
	PhaseConfig   Phase = "config"   // machine configuration
	PhaseAsm      Phase = "asm"      // assembly parsing
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidHandle    Kind = "invalid_handle"
	KindInvalidParameter Kind = "invalid_parameter"
	KindOutOfBounds      Kind = "out_of_bounds"
	KindOutOfMemory      Kind = "out_of_memory"
	KindEngineFailure    Kind = "engine_failure"
	KindNotInitialized   Kind = "not_initialized"
	KindNoDevice         Kind = "no_device"
	KindRangeOverlap     Kind = "range_overlap"
	KindInvalidData      Kind = "invalid_data"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. Two bridge errors match
// when their Kind matches; Phase is ignored so callers can test the
// category without knowing which layer raised it.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		if t.Phase != "" && e.Phase != t.Phase {
			return false
		}
		return e.Kind == t.Kind
	}
	return false
}

// Sentinels for errors.Is checks against error categories.
var (
	ErrInvalidHandle    = &Error{Kind: KindInvalidHandle}
	ErrInvalidParameter = &Error{Kind: KindInvalidParameter}
	ErrOutOfBounds      = &Error{Kind: KindOutOfBounds}
	ErrOutOfMemory      = &Error{Kind: KindOutOfMemory}
	ErrEngineFailure    = &Error{Kind: KindEngineFailure}
	ErrNotInitialized   = &Error{Kind: KindNotInitialized}
	ErrNoDevice         = &Error{Kind: KindNoDevice}
)

// Convenience constructors for common error patterns

// InvalidHandle creates an unknown/destroyed/out-of-range handle error
func InvalidHandle(handle int32) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindInvalidHandle,
		Detail: fmt.Sprintf("handle %d", handle),
	}
}

// InvalidParameter creates a bad-argument error
func InvalidParameter(phase Phase, detail string, args ...any) *Error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidParameter,
		Detail: detail,
	}
}

// OutOfBounds creates an out-of-range guest-memory access error
func OutOfBounds(phase Phase, addr, size, limit uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("access [0x%x, 0x%x) exceeds memory size 0x%x", addr, addr+size, limit),
	}
}

// IndexOutOfRange creates a bad register or counter index error
func IndexOutOfRange(phase Phase, what string, index, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidParameter,
		Detail: fmt.Sprintf("%s index %d out of range [0, %d)", what, index, limit),
	}
}

// OutOfMemory creates a guest-memory allocation failure error
func OutOfMemory(size uint64) *Error {
	return &Error{
		Phase:  PhaseRegistry,
		Kind:   KindOutOfMemory,
		Detail: fmt.Sprintf("cannot allocate %d bytes of guest memory", size),
	}
}

// EngineFailure wraps a non-zero status from an engine call
func EngineFailure(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindEngineFailure,
		Detail: detail,
		Cause:  cause,
	}
}

// NotInitialized creates a not-initialized error for a missing component
func NotInitialized(component string) *Error {
	return &Error{
		Phase:  PhaseEngine,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NoDevice creates an unmapped MMIO address error. Silently ignoring
// MMIO is a correctness hazard, so this is caller-visible.
func NoDevice(addr uint64) *Error {
	return &Error{
		Phase:  PhaseDevice,
		Kind:   KindNoDevice,
		Detail: fmt.Sprintf("no device mapped at 0x%x", addr),
	}
}

// RangeOverlap creates a device registration conflict error
func RangeOverlap(start, end uint64) *Error {
	return &Error{
		Phase:  PhaseDevice,
		Kind:   KindRangeOverlap,
		Detail: fmt.Sprintf("range [0x%x, 0x%x) overlaps an existing device", start, end),
	}
}

// InvalidData creates a malformed-input error
func InvalidData(phase Phase, detail string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Wrap wraps an existing error with phase and kind context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
