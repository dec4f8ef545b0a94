package device

import (
	"go.uber.org/zap"

	"github.com/wippyai/nanocore-host/errors"
)

type mapping struct {
	start uint64 // inclusive
	end   uint64 // exclusive
	dev   Device
}

// Manager holds an ordered list of address-range-to-device bindings and
// dispatches MMIO loads and stores to the owning device. It is not
// internally synchronized: the owning instance's exclusive section
// covers it, and a second lock here would only invite ordering mistakes.
type Manager struct {
	ranges []mapping
	log    *zap.Logger
}

// NewManager creates an empty manager. logger may be nil.
func NewManager(logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{log: logger}
}

// Register binds dev to the half-open range [start, end). Overlapping
// ranges are rejected; dispatch would otherwise be order-dependent.
func (m *Manager) Register(start, end uint64, dev Device) error {
	if dev == nil || end <= start {
		return errors.InvalidParameter(errors.PhaseDevice, "empty range or nil device")
	}
	for _, r := range m.ranges {
		if start < r.end && r.start < end {
			return errors.RangeOverlap(start, end)
		}
	}
	m.ranges = append(m.ranges, mapping{start: start, end: end, dev: dev})
	m.log.Debug("device registered",
		zap.Uint64("start", start),
		zap.Uint64("end", end))
	return nil
}

// Covers reports whether addr falls inside any registered range.
func (m *Manager) Covers(addr uint64) bool {
	return m.find(addr) != nil
}

// Load dispatches an MMIO read. An unmapped address is a caller-visible
// error, not a silent zero.
func (m *Manager) Load(addr uint64) (uint64, error) {
	r := m.find(addr)
	if r == nil {
		return 0, errors.NoDevice(addr)
	}
	return r.dev.Read(addr - r.start), nil
}

// Store dispatches an MMIO write. An unmapped address is a caller-visible
// error, not a silent no-op.
func (m *Manager) Store(addr uint64, value uint64) error {
	r := m.find(addr)
	if r == nil {
		return errors.NoDevice(addr)
	}
	r.dev.Write(addr-r.start, value)
	return nil
}

// ResetAll resets every registered device.
func (m *Manager) ResetAll() {
	for _, r := range m.ranges {
		r.dev.Reset()
	}
}

// Tick advances every device that tracks guest time.
func (m *Manager) Tick(cycles uint64) {
	for _, r := range m.ranges {
		if t, ok := r.dev.(Ticker); ok {
			t.Tick(cycles)
		}
	}
}

// DrainInterrupts pops every pending interrupt across all devices and
// hands the ids to fn in registration order.
func (m *Manager) DrainInterrupts(fn func(id uint32)) {
	for _, r := range m.ranges {
		src, ok := r.dev.(InterruptSource)
		if !ok {
			continue
		}
		for {
			id, pending := src.TakeInterrupt()
			if !pending {
				break
			}
			fn(id)
		}
	}
}

// Len returns the number of registered ranges.
func (m *Manager) Len() int {
	return len(m.ranges)
}

// Range lookup is a plain ordered scan; device counts stay small enough
// that an interval index would be overhead.
func (m *Manager) find(addr uint64) *mapping {
	for i := range m.ranges {
		if addr >= m.ranges[i].start && addr < m.ranges[i].end {
			return &m.ranges[i]
		}
	}
	return nil
}
