// Package feedback plays audible cues on activation changes and raises
// desktop notifications when the input hook fails.
package feedback

import (
	"os/exec"
	"runtime"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/binding"
	"github.com/petems/macro-tray/internal/config"
)

const title = "Macro Tray"

type Feedback struct {
	cfg config.FeedbackConfig
	log zerolog.Logger

	beep   func(freq float64, durationMS int) error
	notify func(title, message string) error

	mu       sync.Mutex
	degraded bool
	wg       sync.WaitGroup
}

func New(cfg config.FeedbackConfig, log zerolog.Logger) *Feedback {
	return &Feedback{
		cfg:  cfg,
		log:  log,
		beep: beeep.Beep,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// StatusChanged plays a rising cue on start and a falling one on stop.
func (f *Feedback) StatusChanged(active bool) {
	if !f.cfg.Beep {
		return
	}
	freq, duration := beeep.DefaultFreq, beeep.DefaultDuration/2
	if !active {
		freq, duration = beeep.DefaultFreq/2, beeep.DefaultDuration/3
	}
	f.async(func() {
		if err := f.beep(freq, duration); err != nil {
			f.log.Debug().Err(err).Msg("Beep failed, using fallback")
			fallbackBeep()
		}
	})
}

func (f *Feedback) BindingTriggered(binding.Binding) {}

func (f *Feedback) BindingsChanged(int) {}

// ListenerDegraded notifies once per failure; recovery re-arms it.
func (f *Feedback) ListenerDegraded(err error) {
	f.mu.Lock()
	first := err != nil && !f.degraded
	f.degraded = err != nil
	f.mu.Unlock()

	if !first || !f.cfg.NotifyErrors {
		return
	}
	msg := "Hotkeys are unavailable: " + err.Error()
	f.async(func() {
		if err := f.notify(title, msg); err != nil {
			f.log.Warn().Err(err).Msg("Failed to show notification")
		}
	})
}

// Wait blocks until pending cues and notifications finish.
func (f *Feedback) Wait() {
	f.wg.Wait()
}

func (f *Feedback) async(fn func()) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		fn()
	}()
}

func fallbackBeep() {
	if runtime.GOOS == "darwin" {
		_ = exec.Command("osascript", "-e", "beep 1").Run()
	}
}
