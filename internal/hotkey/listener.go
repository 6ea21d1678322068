package hotkey

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultRestartPause gives the OS time to release a hook before reinstalling.
const DefaultRestartPause = 100 * time.Millisecond

type ListenerConfig struct {
	Source       Source
	Filter       Filter
	Handler      func(Event)
	Logger       zerolog.Logger
	RestartPause time.Duration
}

// Listener owns one Source. At most one hook is installed at a time.
type Listener struct {
	src     Source
	filter  Filter
	handler func(Event)
	log     zerolog.Logger
	pause   time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewListener(cfg ListenerConfig) *Listener {
	pause := cfg.RestartPause
	if pause <= 0 {
		pause = DefaultRestartPause
	}
	return &Listener{
		src:     cfg.Source,
		filter:  cfg.Filter,
		handler: cfg.Handler,
		log:     cfg.Logger,
		pause:   pause,
	}
}

// Start installs the hook. Starting a running listener is a no-op. On
// failure the listener stays stopped and may be started again later.
func (l *Listener) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startLocked()
}

func (l *Listener) startLocked() error {
	if l.running {
		return nil
	}

	events, err := l.src.Start(l.filter)
	if err != nil {
		l.log.Error().Err(err).Msg("Failed to install input hook")
		return fmt.Errorf("%w: %v", ErrHookFailed, err)
	}

	l.running = true
	l.done = make(chan struct{})
	go l.pump(events, l.done)

	l.log.Info().Bool("suppresses", l.src.Suppresses()).Msg("Input listener started")
	return nil
}

func (l *Listener) pump(events <-chan Event, done chan struct{}) {
	defer close(done)
	for ev := range events {
		l.handler(ev)
	}
}

// Stop removes the hook and waits for pending events to drain. Stopping a
// stopped listener is a no-op.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stopLocked()
}

func (l *Listener) stopLocked() error {
	if !l.running {
		return nil
	}
	l.running = false

	err := l.src.Stop()
	if err != nil {
		l.log.Warn().Err(err).Msg("Input hook did not stop cleanly")
	}
	<-l.done

	l.log.Info().Msg("Input listener stopped")
	return err
}

// Restart stops the hook, pauses briefly so the OS releases it, then
// installs it again.
func (l *Listener) Restart() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log.Debug().Msg("Restarting input listener")
	_ = l.stopLocked()
	time.Sleep(l.pause)
	return l.startLocked()
}

func (l *Listener) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Suppresses reports whether consumed presses are withheld from the OS.
func (l *Listener) Suppresses() bool {
	return l.src.Suppresses()
}
