package event

import (
	"sync"
	"testing"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()

	q.TrySend(Breakpoint(0x100))
	q.TrySend(Exception(7))
	q.TrySend(Halted())

	e, ok := q.Poll()
	if !ok || e.Kind != KindBreakpoint || e.Data != 0x100 {
		t.Fatalf("expected breakpoint@0x100, got %v ok=%v", e, ok)
	}
	e, ok = q.Poll()
	if !ok || e.Kind != KindException || e.Data != 7 {
		t.Fatalf("expected exception(7), got %v", e)
	}
	e, ok = q.Poll()
	if !ok || e.Kind != KindHalted {
		t.Fatalf("expected halted, got %v", e)
	}
}

func TestQueueEmptyPoll(t *testing.T) {
	q := NewQueue()

	if _, ok := q.Poll(); ok {
		t.Fatal("empty queue should report no event")
	}
	// Still empty after a send/poll cycle.
	q.TrySend(Halted())
	q.Poll()
	if _, ok := q.Poll(); ok {
		t.Fatal("drained queue should report no event")
	}
}

func TestQueueOverflowDropsNewest(t *testing.T) {
	q := NewQueue()

	for i := 0; i < Capacity; i++ {
		if !q.TrySend(Breakpoint(uint64(i))) {
			t.Fatalf("send %d should fit", i)
		}
	}
	if q.TrySend(Breakpoint(0xFFFF)) {
		t.Fatal("send into a full queue should be dropped")
	}
	if q.Len() != Capacity {
		t.Fatalf("expected %d queued, got %d", Capacity, q.Len())
	}

	// The oldest event survives; the dropped one never appears.
	e, ok := q.Poll()
	if !ok || e.Data != 0 {
		t.Fatalf("expected oldest event first, got %v", e)
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()

	const producers = 8
	const perProducer = 64

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.TrySend(DeviceInterrupt(uint32(id)))
			}
		}(p)
	}
	wg.Wait()

	seen := 0
	for {
		if _, ok := q.Poll(); !ok {
			break
		}
		seen++
	}
	if seen != producers*perProducer {
		t.Fatalf("expected %d events, got %d", producers*perProducer, seen)
	}
}

func TestEventString(t *testing.T) {
	if Breakpoint(0x10).String() != "breakpoint@0x10" {
		t.Fatalf("got %q", Breakpoint(0x10).String())
	}
	if Halted().String() != "halted" {
		t.Fatalf("got %q", Halted().String())
	}
}
