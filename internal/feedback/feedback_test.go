package feedback

import (
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/config"
)

type recorder struct {
	mu      sync.Mutex
	beeps   []float64
	notices []string
}

func (r *recorder) beep(freq float64, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beeps = append(r.beeps, freq)
	return nil
}

func (r *recorder) notify(_, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, message)
	return nil
}

func newTestFeedback(cfg config.FeedbackConfig) (*Feedback, *recorder) {
	r := &recorder{}
	f := New(cfg, zerolog.Nop())
	f.beep = r.beep
	f.notify = r.notify
	return f, r
}

func TestStatusBeeps(t *testing.T) {
	f, r := newTestFeedback(config.FeedbackConfig{Beep: true})

	f.StatusChanged(true)
	f.Wait()
	f.StatusChanged(false)
	f.Wait()

	if len(r.beeps) != 2 {
		t.Fatalf("expected 2 beeps, got %d", len(r.beeps))
	}
	if r.beeps[0] <= r.beeps[1] {
		t.Errorf("start cue should be higher than stop cue: %v", r.beeps)
	}
}

func TestBeepDisabled(t *testing.T) {
	f, r := newTestFeedback(config.FeedbackConfig{Beep: false})

	f.StatusChanged(true)
	f.Wait()

	if len(r.beeps) != 0 {
		t.Errorf("expected no beeps, got %v", r.beeps)
	}
}

func TestDegradedNotifiesOncePerFailure(t *testing.T) {
	f, r := newTestFeedback(config.FeedbackConfig{NotifyErrors: true})

	f.ListenerDegraded(errors.New("denied"))
	f.ListenerDegraded(errors.New("denied again"))
	f.Wait()
	if len(r.notices) != 1 {
		t.Fatalf("expected one notice while degraded, got %v", r.notices)
	}

	f.ListenerDegraded(nil)
	f.ListenerDegraded(errors.New("denied"))
	f.Wait()
	if len(r.notices) != 2 {
		t.Errorf("recovery should re-arm the notice, got %v", r.notices)
	}
}

func TestNotifyDisabled(t *testing.T) {
	f, r := newTestFeedback(config.FeedbackConfig{NotifyErrors: false})

	f.ListenerDegraded(errors.New("denied"))
	f.Wait()

	if len(r.notices) != 0 {
		t.Errorf("expected no notices, got %v", r.notices)
	}
}
