package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/binding"
	"github.com/petems/macro-tray/internal/combo"
	"github.com/petems/macro-tray/internal/inject"
)

type ExecutorConfig struct {
	Sender  inject.Sender
	Tracker *combo.Tracker
	Logger  zerolog.Logger
}

type repeatLoop struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Executor runs binding actions on their own goroutines. Repeating
// bindings get one loop per binding id that runs while a trigger is held.
type Executor struct {
	sender  inject.Sender
	tracker *combo.Tracker
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	loops map[string]*repeatLoop
}

func NewExecutor(cfg ExecutorConfig) *Executor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		sender:  cfg.Sender,
		tracker: cfg.Tracker,
		log:     cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
		loops:   make(map[string]*repeatLoop),
	}
}

// Execute starts b and returns immediately. A repeating binding whose loop
// is already running is left alone.
func (x *Executor) Execute(b binding.Binding) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.ctx.Err() != nil {
		return
	}
	if !b.Repeat {
		x.spawn(b.ID, func() { x.runActions(x.ctx, b) })
		return
	}
	if _, running := x.loops[b.ID]; running {
		return
	}

	ctx, cancel := context.WithCancel(x.ctx)
	loop := &repeatLoop{cancel: cancel, done: make(chan struct{})}
	x.loops[b.ID] = loop

	x.spawn(b.ID, func() {
		defer func() {
			x.mu.Lock()
			if x.loops[b.ID] == loop {
				delete(x.loops, b.ID)
			}
			x.mu.Unlock()
			cancel()
			close(loop.done)
		}()
		x.repeat(ctx, b)
	})
}

func (x *Executor) spawn(id string, fn func()) {
	x.wg.Add(1)
	go func() {
		defer x.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				x.log.Error().Str("binding", id).Interface("panic", r).Msg("Action task panicked")
			}
		}()
		fn()
	}()
}

func (x *Executor) repeat(ctx context.Context, b binding.Binding) {
	delay := time.Duration(max(b.RepeatDelayMS, 1)) * time.Millisecond
	x.log.Debug().Str("binding", b.ID).Dur("delay", delay).Msg("Repeat loop started")

	for {
		x.runActions(ctx, b)
		if !sleep(ctx, delay) {
			x.log.Debug().Str("binding", b.ID).Msg("Repeat loop stopped")
			return
		}
		if !x.triggerHeld(b) {
			x.log.Debug().Str("binding", b.ID).Msg("Repeat loop ended, trigger released")
			return
		}
	}
}

func (x *Executor) triggerHeld(b binding.Binding) bool {
	for _, t := range b.TriggerKeys {
		if x.tracker.TriggerHeld(t) {
			return true
		}
	}
	return false
}

func (x *Executor) runActions(ctx context.Context, b binding.Binding) {
	for _, a := range b.Actions {
		if ctx.Err() != nil {
			return
		}
		x.run(ctx, b.ID, a)
	}
}

func (x *Executor) run(ctx context.Context, id string, a binding.Action) {
	switch a.Kind {
	case binding.KindKeyPress:
		for _, key := range a.Keys {
			var err error
			if combo.IsMouse(key) {
				err = x.sender.MouseClick(key)
			} else {
				err = x.sender.Press(key, 0)
			}
			if err != nil {
				x.log.Warn().Err(err).Str("binding", id).Str("key", key).Msg("Failed to send input")
			}
		}
	case binding.KindDelay:
		sleep(ctx, time.Duration(a.DurationMS)*time.Millisecond)
	case binding.KindKeyDown, binding.KindKeyUp, binding.KindKeyHold, binding.KindKeySequence:
		// Declared in the document format but reserved; nothing is sent.
		x.log.Debug().Str("binding", id).Stringer("action", a.Kind).Msg("Skipping reserved action")
	default:
		x.log.Warn().Str("binding", id).Int("action", int(a.Kind)).Msg("Unknown action kind")
	}
}

// Stop cancels the repeat loop for id, if any, and waits for it to exit.
func (x *Executor) Stop(id string) {
	x.mu.Lock()
	loop, ok := x.loops[id]
	delete(x.loops, id)
	x.mu.Unlock()

	if !ok {
		return
	}
	loop.cancel()
	<-loop.done
}

// StopAll cancels every repeat loop and waits for them to exit.
func (x *Executor) StopAll() {
	x.mu.Lock()
	loops := x.loops
	x.loops = make(map[string]*repeatLoop)
	x.mu.Unlock()

	for _, loop := range loops {
		loop.cancel()
	}
	for _, loop := range loops {
		<-loop.done
	}
}

// Repeating reports whether a repeat loop is running for id.
func (x *Executor) Repeating(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.loops[id]
	return ok
}

// Wait blocks until every task started so far has finished.
func (x *Executor) Wait() {
	x.wg.Wait()
}

// Close cancels all tasks, including pending delays, and waits for them.
func (x *Executor) Close() {
	x.mu.Lock()
	x.cancel()
	x.mu.Unlock()
	x.wg.Wait()
}

// sleep waits for d or until ctx is done, reporting whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
