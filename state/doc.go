// Package state defines the engine's register-file snapshot: program
// counter, stack pointer, flag bits, general and vector registers,
// performance counters, cache control word, and virtual base address.
//
// Snapshots are immutable value types copied in and out of the engine;
// the bridge caches one per instance and refreshes it after every run.
// Snapshots can be persisted and restored as CBOR.
package state
