// Package nanocorehost provides a thread-safe, handle-based host bridge
// for the NanoCore register/memory execution engine.
//
// The engine itself is an opaque collaborator reached through a small
// synchronous surface (init, reset, run, step, get-state, breakpoints).
// This library owns everything around it: instance lifecycle, cross-call
// state caching, bounds-checked guest-memory access, breakpoint
// bookkeeping, and asynchronous event delivery.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	nanocorehost/    Root package with the Engine and MMIOBus contracts
//	├── bridge/      Instance registry and per-instance operation layer
//	├── engine/      Engine session lock and the reference interpreter
//	├── state/       Snapshot value type and CBOR persistence
//	├── event/       Bounded per-instance notification queue
//	├── device/      MMIO address-range dispatch and skeletal devices
//	├── asm/         NanoCore assembler (text to machine code)
//	├── config/      TOML machine descriptions
//	└── errors/      Structured error types and flat status codes
//
// # Quick Start
//
// Create an instance, load a program, run it:
//
//	sess := engine.NewSession(engine.NewInterp())
//	reg := bridge.NewRegistry(sess)
//
//	h, err := reg.Create(1 << 20)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Destroy(h)
//
//	inst, _ := reg.Lookup(h)
//	inst.LoadProgram(program, 0x10000)
//	code := inst.Run(1000)
//	fmt.Println(code, inst.State().GPRs[1])
//
// # Thread Safety
//
// Registry and Instance are safe for concurrent use. Two locks are
// involved: a registry-level RWMutex guarding only the handle table, and
// one exclusive section per instance covering its cached snapshot, guest
// memory, breakpoints, devices, and event queue. Because the underlying
// engine executes in a single implicit global context, every
// engine-touching call additionally serializes through one process-wide
// engine.Session, regardless of which instance issues it.
//
// # Handles
//
// Handles are small non-negative integers. A destroyed handle is
// tombstoned, never reused, so a stale handle held by a caller stays
// permanently invalid instead of silently aliasing a new instance.
package nanocorehost
