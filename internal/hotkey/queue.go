package hotkey

// releaseReserve is the number of out slots only releases may fill.
const releaseReserve = 32

// hookQueue hands events from a hook callback to the listener without
// blocking. When the listener falls behind, presses are dropped first and
// releases are held back until there is room, so a key is never left down.
// It is used from a single goroutine.
type hookQueue struct {
	out     chan<- Event
	pending []Event
}

func newHookQueue(out chan<- Event) *hookQueue {
	return &hookQueue{out: out}
}

// offer queues ev and reports whether it was kept. Only presses are dropped.
func (q *hookQueue) offer(ev Event) bool {
	q.flush()
	if ev.Kind == Release {
		if len(q.pending) == 0 && q.trySend(ev) {
			return true
		}
		q.hold(ev)
		return true
	}
	if len(q.pending) > 0 || len(q.out) >= cap(q.out)-releaseReserve {
		return false
	}
	return q.trySend(ev)
}

// flush sends held releases in order until out is full.
func (q *hookQueue) flush() {
	n := 0
	for n < len(q.pending) && q.trySend(q.pending[n]) {
		n++
	}
	q.pending = q.pending[n:]
}

func (q *hookQueue) hold(ev Event) {
	for _, p := range q.pending {
		if p.Device == ev.Device && p.Key == ev.Key {
			return
		}
	}
	q.pending = append(q.pending, ev)
}

func (q *hookQueue) trySend(ev Event) bool {
	select {
	case q.out <- ev:
		return true
	default:
		return false
	}
}
