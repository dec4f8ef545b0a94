// Package engine provides the process-wide engine session lock and a
// reference interpreter for the NanoCore instruction set.
//
// The engine's primitive operations are not parameterized by instance:
// they act on one implicit global execution context. Session makes that
// constraint an explicit, visible component — every engine-touching call
// from every instance must go through one Session, which serializes them
// behind a single mutex. The per-instance locks in package bridge order
// operations on the same handle; the Session orders engine access across
// handles.
package engine
