//go:build !windows

package hotkey

import (
	"errors"
	"sync"

	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog"
)

// gohookSource observes keyboard and mouse through gohook. gohook cannot
// withhold events, so consumed presses still reach other applications.
type gohookSource struct {
	log zerolog.Logger

	mu   sync.Mutex
	done chan struct{}
}

// NewSource returns the native input source for this platform.
func NewSource(log zerolog.Logger) Source {
	return &gohookSource{log: log}
}

func (s *gohookSource) Start(filter Filter) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return nil, errors.New("gohook source already started")
	}

	raw := hook.Start()
	if err := awaitHookEnabled(raw, hookStartTimeout); err != nil {
		hook.End()
		return nil, err
	}

	out := make(chan Event, eventBuffer)
	done := make(chan struct{})
	s.done = done
	s.log.Debug().Msg("gohook event hook installed")
	go func() {
		defer close(done)
		defer close(out)
		pumpGohook(raw, out, func(Event) bool { return true }, filter)
	}()
	return out, nil
}

func (s *gohookSource) Stop() error {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	hook.End()
	<-done
	return nil
}

func (s *gohookSource) Suppresses() bool { return false }
