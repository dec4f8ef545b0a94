package device

// Console register offsets.
const (
	ConsoleRegData   = 0x00 // write: emit byte; read: next input byte
	ConsoleRegStatus = 0x08 // read: 1 when input is available
)

// Console is a byte-oriented UART-style device: guest writes append to
// an output buffer, guest reads consume host-supplied input.
type Console struct {
	out []byte
	in  []byte
}

// NewConsole creates a console with empty buffers.
func NewConsole() *Console {
	return &Console{}
}

func (c *Console) Read(offset uint64) uint64 {
	switch offset {
	case ConsoleRegData:
		if len(c.in) == 0 {
			return 0
		}
		b := c.in[0]
		c.in = c.in[1:]
		return uint64(b)
	case ConsoleRegStatus:
		if len(c.in) > 0 {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func (c *Console) Write(offset uint64, value uint64) {
	if offset == ConsoleRegData {
		c.out = append(c.out, byte(value))
	}
}

func (c *Console) Reset() {
	c.out = nil
	c.in = nil
}

// Feed appends host input for the guest to consume.
func (c *Console) Feed(data []byte) {
	c.in = append(c.in, data...)
}

// Output returns everything the guest has written so far.
func (c *Console) Output() []byte {
	return c.out
}
