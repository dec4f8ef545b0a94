// Package event provides the per-instance notification queue and the
// event union carried through it: Halted, Breakpoint(address),
// Exception(code), and DeviceInterrupt(id).
package event
