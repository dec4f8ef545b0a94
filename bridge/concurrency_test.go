package bridge

import (
	goerrors "errors"
	"sync"
	"testing"

	nanocorehost "github.com/wippyai/nanocore-host"
	"github.com/wippyai/nanocore-host/errors"
)

// TestNoTornSnapshots runs a loop that increments R1 and R3 in lockstep
// while another goroutine samples the state. Every snapshot must show
// R1 == R3: register state only changes at run boundaries, inside the
// instance's exclusive section.
func TestNoTornSnapshots(t *testing.T) {
	inst := newInstance(t, program(
		encR(opADD, 1, 1, 2),
		encR(opADD, 3, 3, 2),
		encJ(opJMP, -2),
	))
	if err := inst.SetRegister(2, 1); err != nil {
		t.Fatalf("SetRegister failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		// 99 instructions per run is a whole number of loop bodies, so
		// every boundary lands between pairs.
		for n := 0; n < 50; n++ {
			if _, err := inst.Run(99); err != nil {
				t.Errorf("Run failed: %v", err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		st := inst.State()
		if st.GPRs[1] != st.GPRs[3] {
			t.Fatalf("torn snapshot: R1=%d R3=%d", st.GPRs[1], st.GPRs[3])
		}
	}
}

// TestInstancesIsolated runs two instances over the shared engine from
// concurrent goroutines. The session serializes engine access and each
// run re-binds its own context, so neither result leaks into the other.
func TestInstancesIsolated(t *testing.T) {
	r := newRegistry()

	mkInst := func(imm int16) *Instance {
		h, err := r.Create(1 << 20)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		inst, _ := r.Get(h)
		img := program(
			encI(opLD, 1, 0, imm),
			encR(opADD, 2, 2, 1),
			encJ(opHALT, 0),
		)
		if err := inst.LoadProgram(0x10000, img); err != nil {
			t.Fatalf("LoadProgram failed: %v", err)
		}
		return inst
	}
	a := mkInst(11)
	b := mkInst(22)

	var wg sync.WaitGroup
	for _, inst := range []*Instance{a, b} {
		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				if err := inst.Reset(); err != nil {
					t.Errorf("Reset failed: %v", err)
					return
				}
				if code, err := inst.Run(0); err != nil || code != nanocorehost.ExitOK {
					t.Errorf("Run = %v, %v", code, err)
					return
				}
			}
		}(inst)
	}
	wg.Wait()

	ra, _ := a.Register(1)
	rb, _ := b.Register(1)
	if ra != 11 || rb != 22 {
		t.Fatalf("cross-instance leak: a.R1=%d b.R1=%d", ra, rb)
	}
}

// TestDestroyDuringUse destroys a handle while other goroutines use it.
// Lookups after the tombstone fail cleanly; an operation that already
// resolved the instance completes against the orphan.
func TestDestroyDuringUse(t *testing.T) {
	r := newRegistry()
	h, err := r.Create(1 << 16)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 100; n++ {
				inst, err := r.Get(h)
				if err != nil {
					if !goerrors.Is(err, errors.ErrInvalidHandle) {
						t.Errorf("unexpected error: %v", err)
					}
					return
				}
				inst.State()
				if _, err := inst.Step(); err != nil {
					t.Errorf("Step failed: %v", err)
					return
				}
			}
		}()
	}

	if err := r.Destroy(h); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	wg.Wait()

	if _, err := r.Get(h); !goerrors.Is(err, errors.ErrInvalidHandle) {
		t.Fatalf("tombstoned handle resolved: %v", err)
	}
}

func TestConcurrentCreateDestroy(t *testing.T) {
	r := newRegistry()

	var wg sync.WaitGroup
	handles := make(chan Handle, 64)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 8; n++ {
				h, err := r.Create(1 << 12)
				if err != nil {
					t.Errorf("Create failed: %v", err)
					return
				}
				handles <- h
			}
		}()
	}
	wg.Wait()
	close(handles)

	seen := make(map[Handle]bool)
	for h := range handles {
		if seen[h] {
			t.Fatalf("handle %d issued twice", h)
		}
		seen[h] = true
		if err := r.Destroy(h); err != nil {
			t.Fatalf("Destroy(%d) failed: %v", h, err)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d after destroying everything", r.Len())
	}
}
