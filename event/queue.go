package event

// Capacity is the fixed depth of every instance queue.
const Capacity = 1024

// Queue is a bounded, non-blocking notification channel: many writers on
// the run/step path, one reader on the poll path. FIFO within one queue;
// no cross-queue ordering. When full, TrySend drops the newest event
// instead of blocking, so a slow or absent consumer never gates
// instruction execution.
type Queue struct {
	ch chan Event
}

// NewQueue creates an empty queue with the fixed capacity.
func NewQueue() *Queue {
	return &Queue{ch: make(chan Event, Capacity)}
}

// TrySend enqueues e if there is room and reports whether it was kept.
// Never blocks.
func (q *Queue) TrySend(e Event) bool {
	select {
	case q.ch <- e:
		return true
	default:
		return false
	}
}

// Poll dequeues the oldest event if one is present. Never blocks; an
// empty queue is not an error.
func (q *Queue) Poll() (Event, bool) {
	select {
	case e := <-q.ch:
		return e, true
	default:
		return Event{}, false
	}
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.ch)
}
