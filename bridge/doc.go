// Package bridge is the host-side control surface for NanoCore
// execution contexts. A Registry hands out integer handles to
// instances; each Instance owns its guest memory, register cache,
// breakpoints, device manager, and event queue, and serializes its own
// operations behind a per-instance mutex.
//
// Locking is two-level. The registry lock covers only the handle table
// and is never held across an instance operation. The instance lock
// covers everything the instance owns and is held for the full
// duration of each operation, including engine runs. Engine access
// itself goes through an engine.Session, which serializes the single
// global engine context across all instances.
package bridge
