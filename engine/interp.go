package engine

import (
	"encoding/binary"
	"math"
	"math/bits"

	"go.uber.org/zap"

	nanocorehost "github.com/wippyai/nanocore-host"
	"github.com/wippyai/nanocore-host/errors"
	"github.com/wippyai/nanocore-host/state"
)

const (
	// ResetVector is the program counter after Init and Reset.
	ResetVector = 0x10000

	// DefaultRunBudget bounds a Run(0) so "run until halted" cannot spin
	// forever on a program that never halts.
	DefaultRunBudget = 1 << 30
)

// Interp is the reference NanoCore engine: a plain interpreter over one
// execution context. It implements nanocorehost.Engine. It is not safe
// for concurrent use; callers go through a Session.
type Interp struct {
	st  state.Snapshot
	mem []byte
	bus nanocorehost.MMIOBus
	bps map[uint64]struct{}
	log *zap.Logger

	// lastBP is the address of the most recently reported breakpoint
	// stop; meaningful only while lastBPOK. resume exempts the first
	// instruction of an exec starting at lastBP so a reported hit can
	// make progress. Any stop other than a breakpoint invalidates both.
	lastBP   uint64
	lastBPOK bool
	resume   bool
}

// NewInterp creates an engine with no bound context. Init must be
// called before Run or Step.
func NewInterp() *Interp {
	return &Interp{
		bps: make(map[uint64]struct{}),
		log: Logger(),
	}
}

// Init binds guest memory and an MMIO bus, then resets the context.
func (i *Interp) Init(mem []byte, bus nanocorehost.MMIOBus) error {
	if mem == nil {
		return errors.InvalidParameter(errors.PhaseEngine, "nil guest memory")
	}
	i.mem = mem
	i.bus = bus
	i.Reset()
	return nil
}

// Reset restores the initial register state: PC at the reset vector,
// SP at the top of memory, everything else zero. Memory contents,
// breakpoints, and the bus binding are kept.
func (i *Interp) Reset() {
	i.st = state.Snapshot{
		PC: ResetVector,
		SP: uint64(len(i.mem)),
	}
	i.resume = false
}

// State returns a copy of the context.
func (i *Interp) State() state.Snapshot {
	return i.st
}

// PushState replaces the context registers with snap. R0 is hard-wired
// to zero; a pushed value for it is discarded.
func (i *Interp) PushState(snap state.Snapshot) {
	snap.GPRs[0] = 0
	i.st = snap
	// Re-binding a context that stopped at a reported breakpoint keeps
	// its resume exemption; any other pushed PC cancels it.
	i.resume = i.lastBPOK && snap.PC == i.lastBP
}

// SetBreakpoint arms a breakpoint at addr. Arming the same address
// twice is a no-op.
func (i *Interp) SetBreakpoint(addr uint64) {
	i.bps[addr] = struct{}{}
}

// ClearBreakpoints disarms every breakpoint.
func (i *Interp) ClearBreakpoints() {
	clear(i.bps)
}

// Step executes a single instruction.
func (i *Interp) Step() nanocorehost.ExitCode {
	return i.exec(1)
}

// Run executes at most maxInstructions instructions, stopping early on
// halt, fault, or breakpoint. Zero means DefaultRunBudget.
func (i *Interp) Run(maxInstructions uint64) nanocorehost.ExitCode {
	if maxInstructions == 0 {
		maxInstructions = DefaultRunBudget
	}
	return i.exec(maxInstructions)
}

func (i *Interp) exec(budget uint64) nanocorehost.ExitCode {
	if i.mem == nil {
		return nanocorehost.ExitFault
	}
	if i.st.Halted() {
		return nanocorehost.ExitOK
	}

	for n := uint64(0); n < budget; n++ {
		// A breakpoint stops execution before its instruction runs. Only
		// a hit that was reported by a previous exec is exempt on the
		// first instruction; a budget stop that merely landed on the
		// address does not earn the exemption.
		if _, hit := i.bps[i.st.PC]; hit && !(n == 0 && i.resume && i.st.PC == i.lastBP) {
			i.lastBP, i.lastBPOK, i.resume = i.st.PC, true, true
			return nanocorehost.ExitBreakpoint
		}
		code, done := i.step1()
		if done {
			i.lastBPOK, i.resume = false, false
			return code
		}
	}
	i.lastBPOK, i.resume = false, false
	return nanocorehost.ExitOK
}

// step1 executes one instruction. done is true when execution must stop
// (halt or fault).
func (i *Interp) step1() (nanocorehost.ExitCode, bool) {
	pc := i.st.PC
	if pc%4 != 0 || pc+4 > uint64(len(i.mem)) || pc+4 < pc {
		return i.fault("instruction fetch", pc)
	}
	word := binary.BigEndian.Uint32(i.mem[pc:])

	op := word >> 26
	rd := int(word >> 21 & 0x1F)
	rs1 := int(word >> 16 & 0x1F)
	rs2 := int(word >> 11 & 0x1F)
	imm16 := uint64(int64(int16(word)))
	imm26 := uint64(int64(int32(word<<6)) >> 6)

	next := pc + 4
	cycles := uint64(1)

	switch op {
	case opADD:
		a, b := i.st.GPRs[rs1], i.st.GPRs[rs2]
		sum := a + b
		i.setGPR(rd, sum)
		overflow := sameSign(a, b) && !sameSign(sum, a)
		i.setArithFlags(sum, sum < a, overflow)
	case opSUB:
		a, b := i.st.GPRs[rs1], i.st.GPRs[rs2]
		diff := a - b
		i.setGPR(rd, diff)
		overflow := !sameSign(a, b) && !sameSign(diff, a)
		i.setArithFlags(diff, a < b, overflow)
	case opMUL:
		v := i.st.GPRs[rs1] * i.st.GPRs[rs2]
		i.setGPR(rd, v)
		i.setLogicFlags(v)
		cycles = 3
	case opMULH:
		hi, _ := bits.Mul64(i.st.GPRs[rs1], i.st.GPRs[rs2])
		i.setGPR(rd, hi)
		i.setLogicFlags(hi)
		cycles = 3
	case opDIV:
		if i.st.GPRs[rs2] == 0 {
			return i.fault("divide by zero", pc)
		}
		v := i.st.GPRs[rs1] / i.st.GPRs[rs2]
		i.setGPR(rd, v)
		i.setLogicFlags(v)
		cycles = 10
	case opMOD:
		if i.st.GPRs[rs2] == 0 {
			return i.fault("divide by zero", pc)
		}
		v := i.st.GPRs[rs1] % i.st.GPRs[rs2]
		i.setGPR(rd, v)
		i.setLogicFlags(v)
		cycles = 10
	case opAND:
		v := i.st.GPRs[rs1] & i.st.GPRs[rs2]
		i.setGPR(rd, v)
		i.setLogicFlags(v)
	case opOR:
		v := i.st.GPRs[rs1] | i.st.GPRs[rs2]
		i.setGPR(rd, v)
		i.setLogicFlags(v)
	case opXOR:
		v := i.st.GPRs[rs1] ^ i.st.GPRs[rs2]
		i.setGPR(rd, v)
		i.setLogicFlags(v)
	case opNOT:
		v := ^i.st.GPRs[rs1]
		i.setGPR(rd, v)
		i.setLogicFlags(v)
	case opSHL:
		v := i.st.GPRs[rs1] << (i.st.GPRs[rs2] & 63)
		i.setGPR(rd, v)
		i.setLogicFlags(v)
	case opSHR:
		v := i.st.GPRs[rs1] >> (i.st.GPRs[rs2] & 63)
		i.setGPR(rd, v)
		i.setLogicFlags(v)
	case opSAR:
		v := uint64(int64(i.st.GPRs[rs1]) >> (i.st.GPRs[rs2] & 63))
		i.setGPR(rd, v)
		i.setLogicFlags(v)
	case opROL:
		v := bits.RotateLeft64(i.st.GPRs[rs1], int(i.st.GPRs[rs2]&63))
		i.setGPR(rd, v)
		i.setLogicFlags(v)
	case opROR:
		v := bits.RotateLeft64(i.st.GPRs[rs1], -int(i.st.GPRs[rs2]&63))
		i.setGPR(rd, v)
		i.setLogicFlags(v)

	case opLD:
		// LD materializes the effective address; it is the assembler's
		// LI expansion (LD rd, imm(R0)), not a dereference.
		i.setGPR(rd, i.st.GPRs[rs1]+imm16)
	case opLW:
		v, ok := i.load(i.st.GPRs[rs1]+imm16, 4)
		if !ok {
			return i.fault("load", pc)
		}
		i.setGPR(rd, v)
		i.st.Perf[state.PerfMemOps]++
		cycles = 2
	case opLH:
		v, ok := i.load(i.st.GPRs[rs1]+imm16, 2)
		if !ok {
			return i.fault("load", pc)
		}
		i.setGPR(rd, v)
		i.st.Perf[state.PerfMemOps]++
		cycles = 2
	case opLB:
		v, ok := i.load(i.st.GPRs[rs1]+imm16, 1)
		if !ok {
			return i.fault("load", pc)
		}
		i.setGPR(rd, v)
		i.st.Perf[state.PerfMemOps]++
		cycles = 2
	case opST:
		if !i.store(i.st.GPRs[rs1]+imm16, i.st.GPRs[rd], 8) {
			return i.fault("store", pc)
		}
		i.st.Perf[state.PerfMemOps]++
		cycles = 2
	case opSW:
		if !i.store(i.st.GPRs[rs1]+imm16, i.st.GPRs[rd], 4) {
			return i.fault("store", pc)
		}
		i.st.Perf[state.PerfMemOps]++
		cycles = 2
	case opSH:
		if !i.store(i.st.GPRs[rs1]+imm16, i.st.GPRs[rd], 2) {
			return i.fault("store", pc)
		}
		i.st.Perf[state.PerfMemOps]++
		cycles = 2
	case opSB:
		if !i.store(i.st.GPRs[rs1]+imm16, i.st.GPRs[rd], 1) {
			return i.fault("store", pc)
		}
		i.st.Perf[state.PerfMemOps]++
		cycles = 2

	case opBEQ, opBNE, opBLT, opBGE, opBLTU, opBGEU:
		// Branch operands ride in the rd/rs1 fields.
		a, b := i.st.GPRs[rd], i.st.GPRs[rs1]
		var taken bool
		switch op {
		case opBEQ:
			taken = a == b
		case opBNE:
			taken = a != b
		case opBLT:
			taken = int64(a) < int64(b)
		case opBGE:
			taken = int64(a) >= int64(b)
		case opBLTU:
			taken = a < b
		case opBGEU:
			taken = a >= b
		}
		if taken {
			next = pc + imm16*4
		} else {
			i.st.Perf[state.PerfBranchMiss]++
		}

	case opJMP:
		next = pc + imm26*4
	case opCALL:
		i.setGPR(LinkRegister, pc+4)
		next = pc + imm26*4
	case opRET:
		next = i.st.GPRs[LinkRegister]

	case opSYSCALL:
		// No supervisor at this layer; the bridge owns host services.
	case opHALT:
		i.st.Flags |= state.FlagHalted
		i.st.PC = next
		i.st.Perf[state.PerfInstructions]++
		i.st.Perf[state.PerfCycles] += cycles
		return nanocorehost.ExitOK, true
	case opNOP:

	case opCPUID:
		i.setGPR(rd, 1)
	case opRDCYCLE:
		i.setGPR(rd, i.st.Perf[state.PerfCycles])
	case opRDPERF:
		i.setGPR(rd, i.st.Perf[imm16&(state.NumPerfCounters-1)])
	case opPREFETCH, opCLFLUSH, opFENCE:
		cycles = 2

	case opLR:
		v, ok := i.load(i.st.GPRs[rs1]+imm16, 8)
		if !ok {
			return i.fault("load reserved", pc)
		}
		i.setGPR(rd, v)
		i.st.Perf[state.PerfMemOps]++
		cycles = 2
	case opSC:
		if !i.store(i.st.GPRs[rs1]+imm16, i.st.GPRs[rd], 8) {
			return i.fault("store conditional", pc)
		}
		i.setGPR(rd, 0) // single context: the reservation always holds
		i.st.Perf[state.PerfMemOps]++
		cycles = 2
	case opAMOSWAP, opAMOADD, opAMOAND, opAMOOR, opAMOXOR:
		addr := i.st.GPRs[rs1]
		old, ok := i.load(addr, 8)
		if !ok {
			return i.fault("atomic load", pc)
		}
		operand := i.st.GPRs[rs2]
		var v uint64
		switch op {
		case opAMOSWAP:
			v = operand
		case opAMOADD:
			v = old + operand
		case opAMOAND:
			v = old & operand
		case opAMOOR:
			v = old | operand
		case opAMOXOR:
			v = old ^ operand
		}
		if !i.store(addr, v, 8) {
			return i.fault("atomic store", pc)
		}
		i.setGPR(rd, old)
		i.st.Perf[state.PerfMemOps] += 2
		cycles = 4

	case opVADDF64, opVSUBF64, opVMULF64, opVFMAF64:
		vd, vs1, vs2 := rd&0xF, rs1&0xF, rs2&0xF
		for lane := 0; lane < state.VectorLanes; lane++ {
			a := math.Float64frombits(i.st.VRegs[vs1][lane])
			b := math.Float64frombits(i.st.VRegs[vs2][lane])
			var r float64
			switch op {
			case opVADDF64:
				r = a + b
			case opVSUBF64:
				r = a - b
			case opVMULF64:
				r = a * b
			case opVFMAF64:
				r = math.Float64frombits(i.st.VRegs[vd][lane]) + a*b
			}
			i.st.VRegs[vd][lane] = math.Float64bits(r)
		}
		i.st.Perf[state.PerfSIMDOps]++
		cycles = 2
	case opVLOAD:
		vd := rd & 0xF
		addr := i.st.GPRs[rs1]
		for lane := 0; lane < state.VectorLanes; lane++ {
			v, ok := i.load(addr+uint64(lane*8), 8)
			if !ok {
				return i.fault("vector load", pc)
			}
			i.st.VRegs[vd][lane] = v
		}
		i.st.Perf[state.PerfSIMDOps]++
		i.st.Perf[state.PerfMemOps]++
		cycles = 4
	case opVSTORE:
		vd := rd & 0xF
		addr := i.st.GPRs[rs1]
		for lane := 0; lane < state.VectorLanes; lane++ {
			if !i.store(addr+uint64(lane*8), i.st.VRegs[vd][lane], 8) {
				return i.fault("vector store", pc)
			}
		}
		i.st.Perf[state.PerfSIMDOps]++
		i.st.Perf[state.PerfMemOps]++
		cycles = 4
	case opVBROADCAST:
		vd := rd & 0xF
		for lane := 0; lane < state.VectorLanes; lane++ {
			i.st.VRegs[vd][lane] = i.st.GPRs[rs1]
		}
		i.st.Perf[state.PerfSIMDOps]++

	default:
		return i.fault("illegal instruction", pc)
	}

	i.st.PC = next
	i.st.Perf[state.PerfInstructions]++
	i.st.Perf[state.PerfCycles] += cycles
	return nanocorehost.ExitOK, false
}

func sameSign(a, b uint64) bool {
	return int64(a) < 0 == (int64(b) < 0)
}

// setGPR writes a general register. R0 is hard-wired to zero.
func (i *Interp) setGPR(idx int, v uint64) {
	if idx != 0 {
		i.st.GPRs[idx] = v
	}
}

func (i *Interp) setLogicFlags(v uint64) {
	i.st.Flags &^= state.FlagZero | state.FlagNegative | state.FlagCarry | state.FlagOverflow
	if v == 0 {
		i.st.Flags |= state.FlagZero
	}
	if int64(v) < 0 {
		i.st.Flags |= state.FlagNegative
	}
}

func (i *Interp) setArithFlags(v uint64, carry, overflow bool) {
	i.setLogicFlags(v)
	if carry {
		i.st.Flags |= state.FlagCarry
	}
	if overflow {
		i.st.Flags |= state.FlagOverflow
	}
}

// load reads size bytes big-endian at addr, routing MMIO ranges to the
// bus. ok is false on an out-of-range address or a bus fault.
func (i *Interp) load(addr uint64, size int) (uint64, bool) {
	if i.bus != nil && i.bus.Covers(addr) {
		v, err := i.bus.Load(addr)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	end := addr + uint64(size)
	if end < addr || end > uint64(len(i.mem)) {
		return 0, false
	}
	var v uint64
	for _, b := range i.mem[addr:end] {
		v = v<<8 | uint64(b)
	}
	return v, true
}

// store writes the low size bytes of v big-endian at addr, routing MMIO
// ranges to the bus.
func (i *Interp) store(addr uint64, v uint64, size int) bool {
	if i.bus != nil && i.bus.Covers(addr) {
		return i.bus.Store(addr, v) == nil
	}
	end := addr + uint64(size)
	if end < addr || end > uint64(len(i.mem)) {
		return false
	}
	for o := int(end - addr - 1); o >= 0; o-- {
		i.mem[addr+uint64(o)] = byte(v)
		v >>= 8
	}
	return true
}

// fault halts the context with an error.
func (i *Interp) fault(what string, pc uint64) (nanocorehost.ExitCode, bool) {
	i.log.Debug("engine fault",
		zap.String("cause", what),
		zap.Uint64("pc", pc))
	i.st.Flags |= state.FlagHalted
	return nanocorehost.ExitFault, true
}
