// Package engine matches observed input against the binding registry and
// master triggers, and hands matched bindings to an executor.
//
// Matching runs on two paths. The blocking path sees keyboard presses
// synchronously on the hook thread and decides whether to suppress them.
// The informational path sees everything else after the fact: releases,
// mouse buttons and keyboard presses the blocking path let through.
package engine

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/binding"
	"github.com/petems/macro-tray/internal/combo"
	"github.com/petems/macro-tray/internal/hotkey"
)

// Verdict is the blocking path's decision for a key press.
type Verdict int

const (
	Allow Verdict = iota
	Suppress
)

func (v Verdict) String() string {
	if v == Suppress {
		return "suppress"
	}
	return "allow"
}

// Observer receives engine notifications. Calls arrive in order on the
// engine's notification goroutine, never on the hook thread.
type Observer interface {
	StatusChanged(active bool)
	BindingTriggered(b binding.Binding)
}

// Runner executes matched bindings without blocking the caller.
type Runner interface {
	Execute(b binding.Binding)
}

// Tap intercepts presses instead of dispatching them. Feed returns true
// once it has what it needs, which removes the tap.
type Tap interface {
	Feed(ev hotkey.Event, combo string) bool
}

type Config struct {
	Registry *binding.Registry
	Tracker  *combo.Tracker
	Runner   Runner
	Observer Observer
	Logger   zerolog.Logger
}

type masterSet struct {
	keys []string
	set  map[string]struct{}
}

type tapBox struct{ tap Tap }

// Engine is the dispatcher state machine. It is safe for concurrent use.
type Engine struct {
	registry *binding.Registry
	tracker  *combo.Tracker
	runner   Runner
	observer Observer
	log      zerolog.Logger
	notes    *notifier

	active  atomic.Bool
	masters atomic.Pointer[masterSet]
	tap     atomic.Pointer[tapBox]
}

func New(cfg Config) *Engine {
	e := &Engine{
		registry: cfg.Registry,
		tracker:  cfg.Tracker,
		runner:   cfg.Runner,
		observer: cfg.Observer,
		log:      cfg.Logger,
		notes:    newNotifier(cfg.Logger),
	}
	e.masters.Store(&masterSet{set: map[string]struct{}{}})
	return e
}

// SetMasterTriggers replaces the master trigger set.
func (e *Engine) SetMasterTriggers(keys []string) {
	ms := &masterSet{
		keys: make([]string, 0, len(keys)),
		set:  make(map[string]struct{}, len(keys)),
	}
	for _, k := range keys {
		if _, dup := ms.set[k]; dup || k == "" {
			continue
		}
		ms.set[k] = struct{}{}
		ms.keys = append(ms.keys, k)
	}
	e.masters.Store(ms)
}

// MasterTriggers returns a copy of the master trigger set in insertion order.
func (e *Engine) MasterTriggers() []string {
	return append([]string{}, e.masters.Load().keys...)
}

func (e *Engine) isMaster(c string) bool {
	_, ok := e.masters.Load().set[c]
	return ok
}

func (e *Engine) Active() bool {
	return e.active.Load()
}

// SetActive sets the active flag and notifies observers if it changed. It
// returns once observers have seen the change.
func (e *Engine) SetActive(active bool) bool {
	if !e.active.CompareAndSwap(!active, active) {
		return false
	}
	if e.observer != nil {
		e.notes.send(func() { e.observer.StatusChanged(active) })
	}
	return true
}

func (e *Engine) toggle() {
	for {
		old := e.active.Load()
		if e.active.CompareAndSwap(old, !old) {
			e.log.Info().Bool("active", !old).Msg("Master trigger toggled hotkeys")
			if e.observer != nil {
				e.notes.post(func() { e.observer.StatusChanged(!old) })
			}
			return
		}
	}
}

// Close stops notification delivery after draining what is queued.
func (e *Engine) Close() {
	e.notes.close()
}

// SetTap routes presses to t until it completes or the returned function
// is called. Presses seen by a tap are never dispatched or suppressed.
func (e *Engine) SetTap(t Tap) (remove func()) {
	box := &tapBox{tap: t}
	e.tap.Store(box)
	return func() { e.tap.CompareAndSwap(box, nil) }
}

// Filter is the blocking path for a keyboard press, in the shape the
// listener expects. It reports whether the press should be withheld.
func (e *Engine) Filter(ev hotkey.Event) bool {
	if ev.Device != hotkey.Keyboard || ev.Kind != hotkey.Press {
		return false
	}
	if e.tap.Load() != nil {
		return false
	}
	return e.HandleBlocking(combo.Build(ev.Mods, ev.Key)) == Suppress
}

// HandleBlocking evaluates a keyboard combo on the blocking path. Only
// enabled bindings with block_input set are considered.
func (e *Engine) HandleBlocking(c string) Verdict {
	if e.isMaster(c) {
		e.toggle()
		return Suppress
	}
	if !e.active.Load() {
		return Allow
	}

	for _, b := range e.registry.Snapshot() {
		if b.Enabled && b.BlockInput && b.Triggers(c) {
			e.trigger(b, c)
			return Suppress
		}
	}
	return Allow
}

// HandleEvent is the informational path. It keeps the tracker current and
// dispatches presses the blocking path did not consume.
func (e *Engine) HandleEvent(ev hotkey.Event) {
	if ev.Kind == hotkey.Release {
		e.tracker.Release(ev.Key)
		return
	}

	c := e.tracker.Press(ev.Key)

	if box := e.tap.Load(); box != nil {
		if box.tap.Feed(ev, c) {
			e.tap.CompareAndSwap(box, nil)
		}
		return
	}
	if ev.Consumed {
		return
	}
	e.dispatch(c, ev.Device == hotkey.Mouse)
}

func (e *Engine) dispatch(c string, mouse bool) {
	if e.isMaster(c) {
		e.toggle()
		return
	}
	if !e.active.Load() {
		return
	}

	snapshot := e.registry.Snapshot()
	if b, ok := firstInformational(snapshot, c); ok {
		e.trigger(b, c)
		return
	}

	// Mouse combos fall back to the bare button; keyboard combos do not.
	if !mouse {
		return
	}
	if bare := combo.Bare(c); bare != c {
		if b, ok := firstInformational(snapshot, bare); ok {
			e.trigger(b, c)
		}
	}
}

func firstInformational(bindings []binding.Binding, c string) (binding.Binding, bool) {
	for _, b := range bindings {
		if b.Enabled && !b.BlockInput && b.Triggers(c) {
			return b, true
		}
	}
	return binding.Binding{}, false
}

func (e *Engine) trigger(b binding.Binding, c string) {
	e.log.Debug().Str("binding", b.ID).Str("combo", c).Msg("Binding matched")
	if e.observer != nil {
		e.notes.post(func() { e.observer.BindingTriggered(b) })
	}
	e.runner.Execute(b)
}
