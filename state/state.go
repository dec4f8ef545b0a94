package state

// Register file dimensions. These match the engine's C-compatible state
// layout and never change at runtime.
const (
	NumGPRs         = 32
	NumVRegs        = 16
	VectorLanes     = 4
	NumPerfCounters = 8
)

// Flag bits. Bit 6 and bits 8 and up are reserved.
const (
	FlagZero            uint64 = 1 << 0
	FlagCarry           uint64 = 1 << 1
	FlagOverflow        uint64 = 1 << 2
	FlagNegative        uint64 = 1 << 3
	FlagInterruptEnable uint64 = 1 << 4
	FlagUserMode        uint64 = 1 << 5
	FlagHalted          uint64 = 1 << 7
)

// Performance counter indices.
const (
	PerfInstructions  = 0
	PerfCycles        = 1
	PerfL1Miss        = 2
	PerfL2Miss        = 3
	PerfBranchMiss    = 4
	PerfPipelineStall = 5
	PerfMemOps        = 6
	PerfSIMDOps       = 7
)

// Snapshot is a point-in-time copy of the engine's execution context.
// It is a plain value type: assignment copies the whole register file,
// so a caller's copy is never aliased to the engine's live context.
type Snapshot struct {
	PC        uint64                        `cbor:"pc"`
	SP        uint64                        `cbor:"sp"`
	Flags     uint64                        `cbor:"flags"`
	GPRs      [NumGPRs]uint64               `cbor:"gprs"`
	VRegs     [NumVRegs][VectorLanes]uint64 `cbor:"vregs"`
	Perf      [NumPerfCounters]uint64       `cbor:"perf"`
	CacheCtrl uint64                        `cbor:"cache_ctrl"`
	VBase     uint64                        `cbor:"vbase"`
}

// Flag reports whether every bit in mask is set.
func (s Snapshot) Flag(mask uint64) bool {
	return s.Flags&mask == mask
}

// Halted reports whether the context has halted.
func (s Snapshot) Halted() bool {
	return s.Flag(FlagHalted)
}
