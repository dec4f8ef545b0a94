package device

// Device is the capability an MMIO device exposes to the bus. Offsets
// are relative to the start of the device's mapped range.
type Device interface {
	Read(offset uint64) uint64
	Write(offset uint64, value uint64)
	Reset()
}

// Ticker is optionally implemented by devices that advance with guest
// execution. The bridge ticks the manager with the cycle delta after
// every run.
type Ticker interface {
	Tick(cycles uint64)
}

// InterruptSource is optionally implemented by devices that raise
// interrupts. TakeInterrupt pops one pending interrupt id, if any.
type InterruptSource interface {
	TakeInterrupt() (id uint32, ok bool)
}
