package state

import (
	"path/filepath"
	"testing"
)

func TestFlagHelpers(t *testing.T) {
	s := Snapshot{Flags: FlagZero | FlagCarry}

	if !s.Flag(FlagZero) {
		t.Fatal("FlagZero should be set")
	}
	if !s.Flag(FlagZero | FlagCarry) {
		t.Fatal("combined mask should be set")
	}
	if s.Flag(FlagZero | FlagNegative) {
		t.Fatal("mask with an unset bit should not match")
	}
	if s.Halted() {
		t.Fatal("not halted")
	}

	s.Flags |= FlagHalted
	if !s.Halted() {
		t.Fatal("Halted() should report flag bit 7")
	}
}

func TestSnapshotIsValueType(t *testing.T) {
	var a Snapshot
	a.GPRs[5] = 42

	b := a
	b.GPRs[5] = 7

	if a.GPRs[5] != 42 {
		t.Fatalf("copy aliased original: got %d", a.GPRs[5])
	}
}

func TestCodecRoundTrip(t *testing.T) {
	s := Snapshot{
		PC:        0x10000,
		SP:        0xFFF00,
		Flags:     FlagHalted | FlagZero,
		CacheCtrl: 3,
		VBase:     0x1000,
	}
	for i := range s.GPRs {
		s.GPRs[i] = uint64(i * 17)
	}
	s.VRegs[3][2] = 0xDEADBEEF
	s.Perf[PerfInstructions] = 1234

	data, err := Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got != s {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.cbor")

	s := Snapshot{PC: 0x2000}
	s.GPRs[1] = 99

	if err := Save(path, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != s {
		t.Fatalf("expected %+v, got %+v", s, got)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := Unmarshal([]byte{0xFF, 0x00, 0x01}); err == nil {
		t.Fatal("expected error for malformed CBOR")
	}
}
