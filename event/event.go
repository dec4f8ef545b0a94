package event

import "fmt"

// Kind discriminates the event union.
type Kind uint8

const (
	KindHalted Kind = iota
	KindBreakpoint
	KindException
	KindDeviceInterrupt
)

func (k Kind) String() string {
	switch k {
	case KindHalted:
		return "halted"
	case KindBreakpoint:
		return "breakpoint"
	case KindException:
		return "exception"
	case KindDeviceInterrupt:
		return "device_interrupt"
	default:
		return "unknown"
	}
}

// Event is one notification produced by an instance's run/step path.
// Data holds the breakpoint address, exception code, or interrupt id;
// it is zero for Halted.
type Event struct {
	Kind Kind
	Data uint64
}

func (e Event) String() string {
	switch e.Kind {
	case KindHalted:
		return "halted"
	case KindBreakpoint:
		return fmt.Sprintf("breakpoint@0x%x", e.Data)
	case KindException:
		return fmt.Sprintf("exception(%d)", e.Data)
	case KindDeviceInterrupt:
		return fmt.Sprintf("device_interrupt(%d)", e.Data)
	default:
		return fmt.Sprintf("event(%d, %d)", e.Kind, e.Data)
	}
}

// Halted builds a clean-halt event.
func Halted() Event { return Event{Kind: KindHalted} }

// Breakpoint builds a breakpoint-hit event for addr.
func Breakpoint(addr uint64) Event { return Event{Kind: KindBreakpoint, Data: addr} }

// Exception builds an exception event for code.
func Exception(code uint32) Event { return Event{Kind: KindException, Data: uint64(code)} }

// DeviceInterrupt builds an interrupt event for the device id.
func DeviceInterrupt(id uint32) Event { return Event{Kind: KindDeviceInterrupt, Data: uint64(id)} }
