// Package device implements MMIO dispatch: an ordered table of
// address-range-to-device bindings, a reset-all operation, and two
// skeletal devices (a countdown timer and a byte console). Real devices
// live outside the bridge; the manager only routes accesses.
package device
