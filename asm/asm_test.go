package asm

import (
	"encoding/binary"
	goerrors "errors"
	"testing"

	"github.com/wippyai/nanocore-host/errors"
)

func words(t *testing.T, p *Program) []uint32 {
	t.Helper()
	if len(p.Code)%4 != 0 {
		t.Fatalf("code length %d not word-aligned", len(p.Code))
	}
	out := make([]uint32, len(p.Code)/4)
	for n := range out {
		out[n] = binary.BigEndian.Uint32(p.Code[n*4:])
	}
	return out
}

func TestEncodeBasicInstructions(t *testing.T) {
	p, err := Assemble(`
		LD R1, 42
		HALT
	`)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if p.Origin != DefaultOrigin {
		t.Fatalf("origin = 0x%x", p.Origin)
	}
	got := words(t, p)
	want := []uint32{0x3C20002A, 0x84000000}
	for n := range want {
		if got[n] != want[n] {
			t.Fatalf("word %d = 0x%08X, want 0x%08X", n, got[n], want[n])
		}
	}
}

func TestEncodeRType(t *testing.T) {
	p, err := Assemble("ADD R3, R1, R2")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := words(t, p)[0]; got != 0x00611000 {
		t.Fatalf("ADD = 0x%08X, want 0x00611000", got)
	}
}

func TestLIPseudoOp(t *testing.T) {
	direct, err := Assemble("LD R1, 42")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	pseudo, err := Assemble("LI R1, 42")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if words(t, direct)[0] != words(t, pseudo)[0] {
		t.Fatal("LI must expand to LD rd, imm(R0)")
	}
}

func TestMemOperandWithBase(t *testing.T) {
	p, err := Assemble("LW R3, 0x100(R2)")
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	// opcode 0x10, rd=3, rs1=2, imm=0x100
	if got := words(t, p)[0]; got != 0x40620100 {
		t.Fatalf("LW = 0x%08X", got)
	}
}

func TestLabelsAndBranches(t *testing.T) {
	p, err := Assemble(`
	start:
		SUB R1, R1, R2
		BNE R1, R0, start
		HALT
	`)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	got := words(t, p)
	// BNE at word 1 targets word 0: offset -1.
	if got[1] != 0x18<<26|1<<21|0xFFFF {
		t.Fatalf("BNE = 0x%08X", got[1])
	}
}

func TestForwardJump(t *testing.T) {
	p, err := Assemble(`
		JMP done
		NOP
	done:
		HALT
	`)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	got := words(t, p)
	// JMP at word 0 targets word 2: offset +2.
	if got[0] != 0x1D<<26|2 {
		t.Fatalf("JMP = 0x%08X", got[0])
	}
}

func TestOrgAndWordDirectives(t *testing.T) {
	p, err := Assemble(`
		.org 0x20000
		.word 0xDEADBEEF, 7
		HALT
	`)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if p.Origin != 0x20000 {
		t.Fatalf("origin = 0x%x, want 0x20000", p.Origin)
	}
	got := words(t, p)
	if got[0] != 0xDEADBEEF || got[1] != 7 {
		t.Fatalf("data words = 0x%X 0x%X", got[0], got[1])
	}
	if got[2] != 0x84000000 {
		t.Fatalf("code after data = 0x%08X", got[2])
	}
}

func TestOrgPadsForwardGap(t *testing.T) {
	p, err := Assemble(`
		.org 0x1000
		NOP
		.org 0x1010
		HALT
	`)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	got := words(t, p)
	if len(got) != 5 {
		t.Fatalf("image is %d words, want 5", len(got))
	}
	if got[1] != 0 || got[2] != 0 || got[3] != 0 {
		t.Fatal("gap not zero-padded")
	}
	if got[4] != 0x84000000 {
		t.Fatalf("word at 0x1010 = 0x%08X", got[4])
	}
}

func TestCommentsAndCharLiterals(t *testing.T) {
	p, err := Assemble(`
		; full line comment
		LD R1, 'A'  # trailing comment
		HALT
	`)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if got := words(t, p)[0]; got != 0x3C200041 {
		t.Fatalf("LD = 0x%08X", got)
	}
}

func TestVectorEncoding(t *testing.T) {
	p, err := Assemble(`
		VBROADCAST V1, R2
		VADD_F64 V3, V1, V2
	`)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	got := words(t, p)
	if got[0] != 0x36<<26|1<<21|2<<16 {
		t.Fatalf("VBROADCAST = 0x%08X", got[0])
	}
	if got[1] != 0x30<<26|3<<21|1<<16|2<<11 {
		t.Fatalf("VADD_F64 = 0x%08X", got[1])
	}
}

func TestErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"unknown mnemonic", "FROB R1, R2"},
		{"bad register", "ADD R3, R99, R2"},
		{"missing operand", "ADD R3, R1"},
		{"unknown label", "JMP nowhere"},
		{"duplicate label", "x:\nNOP\nx:\nNOP"},
		{"immediate overflow", "LD R1, 0x12345"},
		{"backward org", ".org 0x100\nNOP\n.org 0x0\nNOP"},
		{"empty source", "; nothing"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(tc.src)
			if !goerrors.Is(err, &errors.Error{Kind: errors.KindInvalidData}) {
				t.Fatalf("err = %v, want invalid data", err)
			}
		})
	}
}
