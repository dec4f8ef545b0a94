package nanocorehost

import "github.com/wippyai/nanocore-host/state"

// ExitCode is the engine-defined outcome of a run or step call. It is a
// result value, not an error: halting with a fault or stopping on a
// breakpoint are expected outcomes.
type ExitCode int32

const (
	// ExitOK means the engine stopped cleanly: it halted, or the
	// instruction budget ran out.
	ExitOK ExitCode = 0

	// ExitFault means the engine halted with an error, for example an
	// illegal instruction or an out-of-range memory access.
	ExitFault ExitCode = 1

	// ExitBreakpoint means execution reached a registered breakpoint
	// before the instruction at that address was executed.
	ExitBreakpoint ExitCode = 2
)

func (c ExitCode) String() string {
	switch c {
	case ExitOK:
		return "ok"
	case ExitFault:
		return "fault"
	case ExitBreakpoint:
		return "breakpoint"
	default:
		return "unknown"
	}
}

// MMIOBus dispatches memory-mapped loads and stores that fall inside a
// device range. The engine consults Covers before every guest memory
// access; addresses outside every range go to plain memory.
type MMIOBus interface {
	Covers(addr uint64) bool
	Load(addr uint64) (uint64, error)
	Store(addr uint64, value uint64) error
}

// Engine is the execution engine the bridge drives. Implementations carry
// one implicit global execution context; callers must serialize every
// method behind a single process-wide lock (see engine.Session) and must
// re-bind the context with Init and PushState before each run when more
// than one instance shares the engine.
//
// Register writes become visible to execution only through PushState: the
// engine consumes the most recently pushed snapshot at the next Run or
// Step boundary.
type Engine interface {
	// Init binds guest memory and an MMIO bus to the engine context and
	// resets it. bus may be nil.
	Init(mem []byte, bus MMIOBus) error

	// Reset restores the context's initial register state. Memory and
	// bus bindings are kept.
	Reset()

	// Run executes at most maxInstructions instructions. Zero means run
	// until halt or breakpoint, bounded by an engine-defined budget.
	Run(maxInstructions uint64) ExitCode

	// Step executes a single instruction.
	Step() ExitCode

	// State returns a copy of the current context.
	State() state.Snapshot

	// PushState replaces the context's registers with snap. The engine
	// may re-assert invariants it owns (the hard-wired zero register).
	PushState(snap state.Snapshot)

	// SetBreakpoint arms a breakpoint at addr.
	SetBreakpoint(addr uint64)

	// ClearBreakpoints disarms every breakpoint in the context.
	ClearBreakpoints()
}
