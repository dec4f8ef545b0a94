package device

// Timer register offsets.
const (
	TimerRegCtrl      = 0x00 // bit 0 enables the countdown
	TimerRegPeriod    = 0x08
	TimerRegRemaining = 0x10
)

// Timer is a countdown timer that raises one interrupt per expired
// period. It implements Device, Ticker, and InterruptSource.
type Timer struct {
	id        uint32
	period    uint64
	remaining uint64
	enabled   bool
	pending   uint32
}

// NewTimer creates a disabled timer that raises interrupts with id.
func NewTimer(id uint32) *Timer {
	return &Timer{id: id}
}

func (t *Timer) Read(offset uint64) uint64 {
	switch offset {
	case TimerRegCtrl:
		if t.enabled {
			return 1
		}
		return 0
	case TimerRegPeriod:
		return t.period
	case TimerRegRemaining:
		return t.remaining
	default:
		return 0
	}
}

func (t *Timer) Write(offset uint64, value uint64) {
	switch offset {
	case TimerRegCtrl:
		t.enabled = value&1 != 0
		if t.enabled && t.remaining == 0 {
			t.remaining = t.period
		}
	case TimerRegPeriod:
		t.period = value
		t.remaining = value
	}
}

func (t *Timer) Reset() {
	t.enabled = false
	t.period = 0
	t.remaining = 0
	t.pending = 0
}

// Tick consumes cycles, raising one interrupt per elapsed period.
func (t *Timer) Tick(cycles uint64) {
	if !t.enabled || t.period == 0 {
		return
	}
	for cycles >= t.remaining {
		cycles -= t.remaining
		t.remaining = t.period
		t.pending++
	}
	t.remaining -= cycles
}

func (t *Timer) TakeInterrupt() (uint32, bool) {
	if t.pending == 0 {
		return 0, false
	}
	t.pending--
	return t.id, true
}
