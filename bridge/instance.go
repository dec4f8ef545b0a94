package bridge

import (
	"sync"

	"go.uber.org/zap"

	nanocorehost "github.com/wippyai/nanocore-host"
	"github.com/wippyai/nanocore-host/device"
	"github.com/wippyai/nanocore-host/engine"
	"github.com/wippyai/nanocore-host/errors"
	"github.com/wippyai/nanocore-host/event"
	"github.com/wippyai/nanocore-host/state"
)

// Instance is one NanoCore execution context as seen by the host. The
// engine holds a single global context, so the register state lives
// here as a cache: each run re-binds memory and pushes the cache into
// the engine, and pulls the resulting state back out before releasing
// the engine.
//
// The instance mutex covers the cache, guest memory, breakpoints, and
// device manager. Every exported method takes it, so concurrent calls
// against one instance serialize and never observe a torn snapshot.
type Instance struct {
	mu      sync.Mutex
	handle  Handle
	session *engine.Session
	cache   state.Snapshot
	mem     []byte
	bps     map[uint64]struct{}
	devices *device.Manager
	queue   *event.Queue
	log     *zap.Logger
}

// Handle returns the instance's registry handle.
func (i *Instance) Handle() Handle { return i.handle }

// MemorySize returns the guest memory size in bytes.
func (i *Instance) MemorySize() uint64 { return uint64(len(i.mem)) }

// Run executes up to maxInstructions instructions. Zero runs until the
// context halts, faults, or hits a breakpoint. The exit code is the
// engine's verbatim: 0 for a clean stop, 1 for a fault, 2 for a
// breakpoint.
func (i *Instance) Run(maxInstructions uint64) (nanocorehost.ExitCode, error) {
	return i.execute(func(eng nanocorehost.Engine) nanocorehost.ExitCode {
		return eng.Run(maxInstructions)
	})
}

// Step executes exactly one instruction.
func (i *Instance) Step() (nanocorehost.ExitCode, error) {
	return i.execute(func(eng nanocorehost.Engine) nanocorehost.ExitCode {
		return eng.Step()
	})
}

// execute borrows the engine, binds this instance's context, runs fn,
// and reabsorbs the engine state into the cache. The binding sequence
// is atomic under the session lock, so no other instance's run can
// interleave with it.
func (i *Instance) execute(fn func(eng nanocorehost.Engine) nanocorehost.ExitCode) (nanocorehost.ExitCode, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	haltedBefore := i.cache.Halted()
	cyclesBefore := i.cache.Perf[state.PerfCycles]

	var code nanocorehost.ExitCode
	var initErr error
	i.session.Do(func(eng nanocorehost.Engine) {
		if initErr = eng.Init(i.mem, i.devices); initErr != nil {
			return
		}
		eng.PushState(i.cache)
		eng.ClearBreakpoints()
		for addr := range i.bps {
			eng.SetBreakpoint(addr)
		}
		code = fn(eng)
		i.cache = eng.State()
	})
	if initErr != nil {
		return nanocorehost.ExitFault, errors.EngineFailure("context binding", initErr)
	}

	switch code {
	case nanocorehost.ExitBreakpoint:
		i.queue.TrySend(event.Breakpoint(i.cache.PC))
	case nanocorehost.ExitFault:
		i.queue.TrySend(event.Exception(uint32(code)))
	case nanocorehost.ExitOK:
		if !haltedBefore && i.cache.Halted() {
			i.queue.TrySend(event.Halted())
		}
	}

	i.devices.Tick(i.cache.Perf[state.PerfCycles] - cyclesBefore)
	i.devices.DrainInterrupts(func(id uint32) {
		i.queue.TrySend(event.DeviceInterrupt(id))
	})

	return code, nil
}

// Reset restores the initial register state and resets all devices.
// Guest memory and breakpoints are kept. The register cache is
// refreshed in the same critical section, so State reflects the reset
// immediately; a stale cache would be pushed back into the engine at
// the next run and silently undo the reset.
func (i *Instance) Reset() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	var initErr error
	i.session.Do(func(eng nanocorehost.Engine) {
		if initErr = eng.Init(i.mem, i.devices); initErr == nil {
			i.cache = eng.State()
		}
	})
	if initErr != nil {
		return errors.EngineFailure("context reset", initErr)
	}
	i.devices.ResetAll()
	return nil
}

// State returns a copy of the cached register state. The cache is
// current as of the last completed run, step, or reset.
func (i *Instance) State() state.Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cache
}

// RestoreState replaces the cached register state. The next run pushes
// it into the engine.
func (i *Instance) RestoreState(snap state.Snapshot) {
	i.mu.Lock()
	defer i.mu.Unlock()
	snap.GPRs[0] = 0
	i.cache = snap
}

// Register reads general register idx from the cache.
func (i *Instance) Register(idx int) (uint64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if idx < 0 || idx >= state.NumGPRs {
		return 0, errors.IndexOutOfRange(errors.PhaseRegister, "register", idx, state.NumGPRs)
	}
	return i.cache.GPRs[idx], nil
}

// SetRegister writes general register idx in the cache. The value
// becomes durable in the engine at the next run boundary. Writes to R0
// are accepted here and discarded by the engine.
func (i *Instance) SetRegister(idx int, value uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if idx < 0 || idx >= state.NumGPRs {
		return errors.IndexOutOfRange(errors.PhaseRegister, "register", idx, state.NumGPRs)
	}
	i.cache.GPRs[idx] = value
	return nil
}

// PC reads the cached program counter.
func (i *Instance) PC() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cache.PC
}

// SetPC sets the cached program counter.
func (i *Instance) SetPC(addr uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cache.PC = addr
}

// PerfCounter reads performance counter idx from the cache.
func (i *Instance) PerfCounter(idx int) (uint64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if idx < 0 || idx >= state.NumPerfCounters {
		return 0, errors.IndexOutOfRange(errors.PhaseRegister, "perf counter", idx, state.NumPerfCounters)
	}
	return i.cache.Perf[idx], nil
}

// ReadMemory copies size bytes of guest memory starting at addr. An
// out-of-range span fails whole; no partial copy is made.
func (i *Instance) ReadMemory(addr, size uint64) ([]byte, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.checkSpan(addr, size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	copy(out, i.mem[addr:addr+size])
	return out, nil
}

// WriteMemory copies data into guest memory at addr. An out-of-range
// span fails whole; no partial copy is made.
func (i *Instance) WriteMemory(addr uint64, data []byte) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.checkSpan(addr, uint64(len(data))); err != nil {
		return err
	}
	copy(i.mem[addr:], data)
	return nil
}

// LoadProgram writes a program image into guest memory at addr.
func (i *Instance) LoadProgram(addr uint64, image []byte) error {
	if len(image) == 0 {
		return errors.InvalidParameter(errors.PhaseMemory, "empty program image")
	}
	return i.WriteMemory(addr, image)
}

// checkSpan validates [addr, addr+size) against guest memory. Callers
// hold the instance lock.
func (i *Instance) checkSpan(addr, size uint64) error {
	end := addr + size
	if end < addr || end > uint64(len(i.mem)) {
		return errors.OutOfBounds(errors.PhaseMemory, addr, size, uint64(len(i.mem)))
	}
	return nil
}

// SetBreakpoint arms a breakpoint. It takes effect at the next run.
func (i *Instance) SetBreakpoint(addr uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.bps[addr] = struct{}{}
}

// ClearBreakpoint disarms one breakpoint. Clearing an address that was
// never armed is a no-op.
func (i *Instance) ClearBreakpoint(addr uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.bps, addr)
}

// ClearBreakpoints disarms every breakpoint.
func (i *Instance) ClearBreakpoints() {
	i.mu.Lock()
	defer i.mu.Unlock()
	clear(i.bps)
}

// Breakpoints returns the armed addresses in no particular order.
func (i *Instance) Breakpoints() []uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	out := make([]uint64, 0, len(i.bps))
	for addr := range i.bps {
		out = append(out, addr)
	}
	return out
}

// RegisterDevice maps dev at [start, end) on the instance's MMIO bus.
func (i *Instance) RegisterDevice(start, end uint64, dev device.Device) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.devices.Register(start, end, dev)
}

// PollEvent removes and returns the oldest pending event. ok is false
// when the queue is empty.
func (i *Instance) PollEvent() (event.Event, bool) {
	return i.queue.Poll()
}

// PendingEvents reports the number of queued events.
func (i *Instance) PendingEvents() int {
	return i.queue.Len()
}
