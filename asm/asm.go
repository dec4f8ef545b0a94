package asm

import (
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wippyai/nanocore-host/errors"
)

// DefaultOrigin is the load address used when the source has no .org
// directive. It matches the engine's reset vector.
const DefaultOrigin = 0x10000

// Program is an assembled image and the address it was assembled for.
type Program struct {
	Origin uint64
	Code   []byte
}

// instruction formats
type format int

const (
	fmtR3     format = iota // rd, rs1, rs2
	fmtR2                   // rd, rs1
	fmtRD                   // rd
	fmtMem                  // rd, imm(rs1) or rd, imm
	fmtBranch               // ra, rb, target
	fmtJump                 // target
	fmtNone                 //
	fmtPerf                 // rd, counter
	fmtV3                   // vd, vs1, vs2
	fmtVR                   // vd, rs1
)

type opdef struct {
	opcode uint32
	fmt    format
}

var mnemonics = map[string]opdef{
	"ADD":  {0x00, fmtR3},
	"SUB":  {0x01, fmtR3},
	"MUL":  {0x02, fmtR3},
	"MULH": {0x03, fmtR3},
	"DIV":  {0x04, fmtR3},
	"MOD":  {0x05, fmtR3},
	"AND":  {0x06, fmtR3},
	"OR":   {0x07, fmtR3},
	"XOR":  {0x08, fmtR3},
	"NOT":  {0x09, fmtR2},
	"SHL":  {0x0A, fmtR3},
	"SHR":  {0x0B, fmtR3},
	"SAR":  {0x0C, fmtR3},
	"ROL":  {0x0D, fmtR3},
	"ROR":  {0x0E, fmtR3},

	"LD": {0x0F, fmtMem},
	"LW": {0x10, fmtMem},
	"LH": {0x11, fmtMem},
	"LB": {0x12, fmtMem},
	"ST": {0x13, fmtMem},
	"SW": {0x14, fmtMem},
	"SH": {0x15, fmtMem},
	"SB": {0x16, fmtMem},

	"BEQ":  {0x17, fmtBranch},
	"BNE":  {0x18, fmtBranch},
	"BLT":  {0x19, fmtBranch},
	"BGE":  {0x1A, fmtBranch},
	"BLTU": {0x1B, fmtBranch},
	"BGEU": {0x1C, fmtBranch},

	"JMP":  {0x1D, fmtJump},
	"CALL": {0x1E, fmtJump},
	"RET":  {0x1F, fmtNone},

	"SYSCALL": {0x20, fmtNone},
	"HALT":    {0x21, fmtNone},
	"NOP":     {0x22, fmtNone},

	"CPUID":    {0x23, fmtRD},
	"RDCYCLE":  {0x24, fmtRD},
	"RDPERF":   {0x25, fmtPerf},
	"PREFETCH": {0x26, fmtNone},
	"CLFLUSH":  {0x27, fmtNone},
	"FENCE":    {0x28, fmtNone},

	"LR":      {0x29, fmtMem},
	"SC":      {0x2A, fmtMem},
	"AMOSWAP": {0x2B, fmtR3},
	"AMOADD":  {0x2C, fmtR3},
	"AMOAND":  {0x2D, fmtR3},
	"AMOOR":   {0x2E, fmtR3},
	"AMOXOR":  {0x2F, fmtR3},

	"VADD_F64":   {0x30, fmtV3},
	"VSUB_F64":   {0x31, fmtV3},
	"VMUL_F64":   {0x32, fmtV3},
	"VFMA_F64":   {0x33, fmtV3},
	"VLOAD":      {0x34, fmtVR},
	"VSTORE":     {0x35, fmtVR},
	"VBROADCAST": {0x36, fmtVR},
}

// line is one statement after lexing: a directive, an instruction, or
// a bare label. Labels attached to a statement are recorded separately.
type line struct {
	num      int    // 1-based source line
	mnemonic string // upper-cased, or ".org"/".word"
	operands []string
	addr     uint64 // assigned in pass one
}

// AssembleFile reads and assembles path.
func AssembleFile(path string) (*Program, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.InvalidData(errors.PhaseAsm, "read source", err)
	}
	return Assemble(string(src))
}

// Assemble translates src into a program image.
func Assemble(src string) (*Program, error) {
	lines, labels, origin, err := passOne(src)
	if err != nil {
		return nil, err
	}
	return passTwo(lines, labels, origin)
}

// passOne lexes the source, assigns an address to every statement, and
// records label definitions.
func passOne(src string) ([]line, map[string]uint64, uint64, error) {
	var (
		lines  []line
		labels = make(map[string]uint64)
		pc     uint64
		origin uint64
		seen   bool // any code or data emitted yet
	)
	origin = DefaultOrigin
	pc = DefaultOrigin

	for num, raw := range strings.Split(src, "\n") {
		text := raw
		if idx := strings.IndexAny(text, ";#"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		// Peel leading labels; more than one may share an address.
		for {
			idx := strings.Index(text, ":")
			if idx < 0 || strings.ContainsAny(text[:idx], " \t,()") {
				break
			}
			name := text[:idx]
			if _, dup := labels[name]; dup {
				return nil, nil, 0, asmErr(num+1, "duplicate label %q", name)
			}
			labels[name] = pc
			text = strings.TrimSpace(text[idx+1:])
			if text == "" {
				break
			}
		}
		if text == "" {
			continue
		}

		mnemonic, rest, _ := strings.Cut(text, " ")
		mnemonic = strings.ToUpper(mnemonic)
		ln := line{
			num:      num + 1,
			mnemonic: mnemonic,
			operands: splitOperands(rest),
			addr:     pc,
		}

		switch mnemonic {
		case ".ORG":
			if len(ln.operands) != 1 {
				return nil, nil, 0, asmErr(ln.num, ".org takes one address")
			}
			v, err := parseNumber(ln.operands[0])
			if err != nil {
				return nil, nil, 0, asmErr(ln.num, "bad .org address %q", ln.operands[0])
			}
			addr := uint64(v)
			if !seen {
				origin = addr
			} else if addr < pc {
				return nil, nil, 0, asmErr(ln.num, ".org 0x%x moves backwards", addr)
			}
			pc = addr
		case ".WORD":
			if len(ln.operands) == 0 {
				return nil, nil, 0, asmErr(ln.num, ".word takes at least one value")
			}
			seen = true
			pc += uint64(len(ln.operands)) * 4
		default:
			if _, ok := mnemonics[normalize(mnemonic)]; !ok {
				return nil, nil, 0, asmErr(ln.num, "unknown mnemonic %q", mnemonic)
			}
			seen = true
			pc += 4
		}
		lines = append(lines, ln)
	}
	return lines, labels, origin, nil
}

// normalize maps pseudo-ops to their base mnemonic.
func normalize(mnemonic string) string {
	if mnemonic == "LI" {
		return "LD"
	}
	return mnemonic
}

func passTwo(lines []line, labels map[string]uint64, origin uint64) (*Program, error) {
	var code []byte

	emit := func(addr uint64, word uint32) {
		off := addr - origin
		for uint64(len(code)) < off+4 {
			code = append(code, 0)
		}
		binary.BigEndian.PutUint32(code[off:], word)
	}

	for _, ln := range lines {
		switch ln.mnemonic {
		case ".ORG":
			continue
		case ".WORD":
			for n, op := range ln.operands {
				v, err := resolveValue(op, labels)
				if err != nil {
					return nil, asmErr(ln.num, "bad .word value %q", op)
				}
				emit(ln.addr+uint64(n)*4, uint32(v))
			}
			continue
		}

		word, err := encode(ln, labels)
		if err != nil {
			return nil, err
		}
		emit(ln.addr, word)
	}

	if len(code) == 0 {
		return nil, errors.InvalidData(errors.PhaseAsm, "empty program", nil)
	}
	return &Program{Origin: origin, Code: code}, nil
}

func encode(ln line, labels map[string]uint64) (uint32, error) {
	def := mnemonics[normalize(ln.mnemonic)]
	ops := ln.operands

	want := map[format]int{
		fmtR3: 3, fmtR2: 2, fmtRD: 1, fmtMem: 2,
		fmtBranch: 3, fmtJump: 1, fmtNone: 0, fmtPerf: 2,
		fmtV3: 3, fmtVR: 2,
	}[def.fmt]
	if len(ops) != want {
		return 0, asmErr(ln.num, "%s takes %d operands, got %d", ln.mnemonic, want, len(ops))
	}

	word := def.opcode << 26
	switch def.fmt {
	case fmtR3:
		rd, err1 := parseReg(ops[0])
		rs1, err2 := parseReg(ops[1])
		rs2, err3 := parseReg(ops[2])
		if err := first(err1, err2, err3); err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		word |= rd<<21 | rs1<<16 | rs2<<11

	case fmtR2:
		rd, err1 := parseReg(ops[0])
		rs1, err2 := parseReg(ops[1])
		if err := first(err1, err2); err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		word |= rd<<21 | rs1<<16

	case fmtRD:
		rd, err := parseReg(ops[0])
		if err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		word |= rd << 21

	case fmtMem:
		rd, err := parseReg(ops[0])
		if err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		imm, rs1, err := parseMemOperand(ops[1], labels)
		if err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		word |= rd<<21 | rs1<<16 | imm

	case fmtBranch:
		ra, err1 := parseReg(ops[0])
		rb, err2 := parseReg(ops[1])
		if err := first(err1, err2); err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		off, err := wordOffset(ops[2], ln.addr, labels)
		if err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		if off < -32768 || off > 32767 {
			return 0, asmErr(ln.num, "branch target out of range: %d words", off)
		}
		// Branch operands ride in the rd and rs1 fields.
		word |= ra<<21 | rb<<16 | uint32(uint16(off))

	case fmtJump:
		off, err := wordOffset(ops[0], ln.addr, labels)
		if err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		if off < -(1<<25) || off >= 1<<25 {
			return 0, asmErr(ln.num, "jump target out of range: %d words", off)
		}
		word |= uint32(off) & 0x3FFFFFF

	case fmtNone:

	case fmtPerf:
		rd, err := parseReg(ops[0])
		if err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		idx, err := parseNumber(ops[1])
		if err != nil || idx < 0 || idx > 7 {
			return 0, asmErr(ln.num, "bad counter index %q", ops[1])
		}
		word |= rd<<21 | uint32(idx)

	case fmtV3:
		vd, err1 := parseVReg(ops[0])
		vs1, err2 := parseVReg(ops[1])
		vs2, err3 := parseVReg(ops[2])
		if err := first(err1, err2, err3); err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		word |= vd<<21 | vs1<<16 | vs2<<11

	case fmtVR:
		vd, err1 := parseVReg(ops[0])
		rs1, err2 := parseReg(ops[1])
		if err := first(err1, err2); err != nil {
			return 0, asmErr(ln.num, "%s: %v", ln.mnemonic, err)
		}
		word |= vd<<21 | rs1<<16
	}
	return word, nil
}

// parseMemOperand handles "imm(Rn)", a bare immediate, or a bare label
// whose address becomes the immediate.
func parseMemOperand(s string, labels map[string]uint64) (imm uint32, rs1 uint32, err error) {
	base := uint32(0)
	if open := strings.Index(s, "("); open >= 0 {
		if !strings.HasSuffix(s, ")") {
			return 0, 0, fmt.Errorf("malformed operand %q", s)
		}
		base, err = parseReg(s[open+1 : len(s)-1])
		if err != nil {
			return 0, 0, err
		}
		s = strings.TrimSpace(s[:open])
		if s == "" {
			s = "0"
		}
	}
	v, err := resolveValue(s, labels)
	if err != nil {
		return 0, 0, fmt.Errorf("bad immediate %q", s)
	}
	if v < -32768 || v > 65535 {
		return 0, 0, fmt.Errorf("immediate %d does not fit 16 bits", v)
	}
	return uint32(uint16(v)), base, nil
}

// wordOffset resolves a branch or jump target to a pc-relative word
// count. A numeric operand is already a word offset; a label is an
// absolute address.
func wordOffset(s string, pc uint64, labels map[string]uint64) (int64, error) {
	if addr, ok := labels[s]; ok {
		diff := int64(addr) - int64(pc)
		if diff%4 != 0 {
			return 0, fmt.Errorf("target %q not word-aligned", s)
		}
		return diff / 4, nil
	}
	v, err := parseNumber(s)
	if err != nil {
		return 0, fmt.Errorf("unknown target %q", s)
	}
	return v, nil
}

// resolveValue parses a number or substitutes a label address.
func resolveValue(s string, labels map[string]uint64) (int64, error) {
	if addr, ok := labels[s]; ok {
		return int64(addr), nil
	}
	return parseNumber(s)
}

func parseNumber(s string) (int64, error) {
	if len(s) == 3 && s[0] == '\'' && s[2] == '\'' {
		return int64(s[1]), nil
	}
	return strconv.ParseInt(s, 0, 64)
}

func parseReg(s string) (uint32, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "R") {
		return 0, fmt.Errorf("bad register %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 || n > 31 {
		return 0, fmt.Errorf("bad register %q", s)
	}
	return uint32(n), nil
}

func parseVReg(s string) (uint32, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "V") {
		return 0, fmt.Errorf("bad vector register %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 || n > 15 {
		return 0, fmt.Errorf("bad vector register %q", s)
	}
	return uint32(n), nil
}

func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func first(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func asmErr(lineNum int, format string, args ...any) error {
	return errors.InvalidData(errors.PhaseAsm,
		fmt.Sprintf("line %d: %s", lineNum, fmt.Sprintf(format, args...)), nil)
}
