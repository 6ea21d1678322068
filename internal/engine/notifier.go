package engine

import (
	"sync"

	"github.com/rs/zerolog"
)

const notifyBuffer = 64

// notifier delivers observer calls in order on its own goroutine, so the
// hook thread never runs observer code.
type notifier struct {
	log   zerolog.Logger
	queue chan func()
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func newNotifier(log zerolog.Logger) *notifier {
	n := &notifier{
		log:   log,
		queue: make(chan func(), notifyBuffer),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go n.run()
	return n
}

func (n *notifier) run() {
	defer close(n.done)
	for {
		select {
		case fn := <-n.queue:
			n.call(fn)
		case <-n.quit:
			for {
				select {
				case fn := <-n.queue:
					n.call(fn)
				default:
					return
				}
			}
		}
	}
}

func (n *notifier) call(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error().Interface("panic", r).Msg("Observer panicked")
		}
	}()
	fn()
}

// post queues fn without blocking. A full queue drops it.
func (n *notifier) post(fn func()) {
	select {
	case <-n.quit:
		return
	default:
	}
	select {
	case n.queue <- fn:
	default:
		n.log.Warn().Msg("Observer queue full, notification dropped")
	}
}

// send queues fn behind any pending notifications and waits for it to run.
func (n *notifier) send(fn func()) {
	ran := make(chan struct{})
	select {
	case n.queue <- func() { defer close(ran); fn() }:
	case <-n.quit:
		return
	}
	select {
	case <-ran:
	case <-n.done:
	}
}

// flush waits until every notification queued so far has been delivered.
func (n *notifier) flush() {
	n.send(func() {})
}

func (n *notifier) close() {
	n.once.Do(func() { close(n.quit) })
	<-n.done
}
