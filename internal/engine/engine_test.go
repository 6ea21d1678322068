package engine

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/binding"
	"github.com/petems/macro-tray/internal/combo"
	"github.com/petems/macro-tray/internal/hotkey"
)

type recordingRunner struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingRunner) Execute(b binding.Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, b.ID)
}

func (r *recordingRunner) executed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ids...)
}

type recordingObserver struct {
	mu        sync.Mutex
	statuses  []bool
	triggered []string
}

func (o *recordingObserver) StatusChanged(active bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, active)
}

func (o *recordingObserver) BindingTriggered(b binding.Binding) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.triggered = append(o.triggered, b.ID)
}

func (o *recordingObserver) statusLog() []bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]bool(nil), o.statuses...)
}

type fixture struct {
	engine   *Engine
	registry *binding.Registry
	tracker  *combo.Tracker
	runner   *recordingRunner
	observer *recordingObserver
}

func newFixture(bindings ...binding.Binding) *fixture {
	f := &fixture{
		registry: binding.NewRegistry(),
		tracker:  combo.NewTracker(),
		runner:   &recordingRunner{},
		observer: &recordingObserver{},
	}
	for _, b := range bindings {
		f.registry.Upsert(b)
	}
	f.engine = New(Config{
		Registry: f.registry,
		Tracker:  f.tracker,
		Runner:   f.runner,
		Observer: f.observer,
		Logger:   zerolog.Nop(),
	})
	return f
}

func (f *fixture) activate() *fixture {
	f.engine.SetActive(true)
	return f
}

// key simulates the listener delivering a keyboard press: the blocking
// path first, then the informational path with the verdict attached.
func (f *fixture) key(key string, mods combo.Modifiers) {
	ev := hotkey.Event{Device: hotkey.Keyboard, Kind: hotkey.Press, Key: key, Mods: mods}
	ev.Consumed = f.engine.Filter(ev)
	f.engine.HandleEvent(ev)
}

func (f *fixture) keyUp(key string) {
	f.engine.HandleEvent(hotkey.Event{Device: hotkey.Keyboard, Kind: hotkey.Release, Key: key})
}

func (f *fixture) click(button string) {
	f.engine.HandleEvent(hotkey.Event{Device: hotkey.Mouse, Kind: hotkey.Press, Key: button})
}

func bind(id string, triggers ...string) binding.Binding {
	return binding.Binding{
		ID:            id,
		Name:          id,
		TriggerKeys:   triggers,
		Actions:       []binding.Action{binding.KeyPress("x")},
		Enabled:       true,
		RepeatDelayMS: binding.DefaultRepeatDelayMS,
	}
}

func blocking(b binding.Binding) binding.Binding {
	b.BlockInput = true
	return b
}

func TestBlockingBindingSuppressesAndRunsOnce(t *testing.T) {
	f := newFixture(
		bind("plain", "f1"),
		blocking(bind("blocker", "f1")),
	).activate()

	if v := f.engine.HandleBlocking("f1"); v != Suppress {
		t.Fatalf("expected suppress, got %v", v)
	}
	if got := f.runner.executed(); !slices.Equal(got, []string{"blocker"}) {
		t.Fatalf("expected only the blocking binding, got %v", got)
	}

	f.runner.ids = nil
	f.key("f1", 0)
	if got := f.runner.executed(); !slices.Equal(got, []string{"blocker"}) {
		t.Errorf("one physical press must run exactly one binding, got %v", got)
	}
}

func TestInformationalPathSkipsBlockingBindings(t *testing.T) {
	f := newFixture(blocking(bind("blocker", "mouse_left"))).activate()

	f.click("mouse_left")
	if got := f.runner.executed(); len(got) != 0 {
		t.Errorf("block_input bindings must not run on the informational path, got %v", got)
	}
}

func TestNonBlockingBindingAllowsAndRunsOnInformationalPath(t *testing.T) {
	f := newFixture(bind("plain", "ctrl+a")).activate()

	if v := f.engine.HandleBlocking("ctrl+a"); v != Allow {
		t.Fatalf("non-blocking binding should not suppress, got %v", v)
	}
	if got := f.runner.executed(); len(got) != 0 {
		t.Fatalf("blocking path must not run non-blocking bindings, got %v", got)
	}

	f.key("ctrl", combo.Ctrl)
	f.key("a", combo.Ctrl)
	if got := f.runner.executed(); !slices.Equal(got, []string{"plain"}) {
		t.Errorf("expected plain to run once, got %v", got)
	}
}

func TestMasterTriggerWinsOverBinding(t *testing.T) {
	f := newFixture(
		bind("plain", "f9"),
		blocking(bind("blocker", "f9")),
	)
	f.engine.SetMasterTriggers([]string{"f9"})

	if v := f.engine.HandleBlocking("f9"); v != Suppress {
		t.Fatalf("master trigger should suppress, got %v", v)
	}
	if !f.engine.Active() {
		t.Fatal("master trigger should activate")
	}

	f.key("f9", 0)
	if f.engine.Active() {
		t.Fatal("second master press should deactivate")
	}

	// Mouse masters toggle on the informational path.
	f.engine.SetMasterTriggers([]string{"mouse_middle"})
	f.click("mouse_middle")
	if !f.engine.Active() {
		t.Fatal("mouse master trigger should toggle")
	}

	if got := f.runner.executed(); len(got) != 0 {
		t.Errorf("bindings sharing a master trigger must never run, got %v", got)
	}
}

func TestMasterToggleScenario(t *testing.T) {
	f := newFixture()
	f.engine.SetMasterTriggers([]string{"f9"})

	f.key("f9", 0)
	f.keyUp("f9")
	if !f.engine.Active() {
		t.Fatal("expected active after first press")
	}
	f.engine.notes.flush()
	if got := f.observer.statusLog(); len(got) != 1 || !got[0] {
		t.Fatalf("expected one status-changed(true), got %v", got)
	}

	f.key("f9", 0)
	if f.engine.Active() {
		t.Fatal("expected inactive after second press")
	}
	f.engine.notes.flush()
	if got := f.observer.statusLog(); len(got) != 2 || got[1] {
		t.Errorf("expected status-changed(false) second, got %v", got)
	}
}

func TestInactiveEngineIgnoresBindings(t *testing.T) {
	f := newFixture(bind("plain", "f1"), blocking(bind("blocker", "f2")))

	if v := f.engine.HandleBlocking("f2"); v != Allow {
		t.Errorf("inactive engine should allow, got %v", v)
	}
	f.key("f1", 0)
	f.click("mouse_left")
	if got := f.runner.executed(); len(got) != 0 {
		t.Errorf("inactive engine ran bindings: %v", got)
	}
}

func TestDisabledBindingsAreSkipped(t *testing.T) {
	off := bind("off", "f1")
	off.Enabled = false
	f := newFixture(off, bind("on", "f1")).activate()

	f.key("f1", 0)
	if got := f.runner.executed(); !slices.Equal(got, []string{"on"}) {
		t.Errorf("expected the enabled binding, got %v", got)
	}
}

func TestFirstMatchInRegistryOrder(t *testing.T) {
	f := newFixture(bind("first", "f1"), bind("second", "f1")).activate()

	f.key("f1", 0)
	if got := f.runner.executed(); !slices.Equal(got, []string{"first"}) {
		t.Errorf("expected first registered binding, got %v", got)
	}
}

func TestCanonicalComboThroughTracker(t *testing.T) {
	f := newFixture(bind("chord", "ctrl+shift+a")).activate()

	f.key("shift", combo.Shift)
	f.key("ctrl", combo.Ctrl|combo.Shift)
	f.key("a", combo.Ctrl|combo.Shift)
	f.keyUp("a")
	f.keyUp("ctrl")
	f.keyUp("shift")

	f.key("ctrl", combo.Ctrl)
	f.key("shift", combo.Ctrl|combo.Shift)
	f.key("a", combo.Ctrl|combo.Shift)

	if got := f.runner.executed(); !slices.Equal(got, []string{"chord", "chord"}) {
		t.Errorf("press order should not matter, got %v", got)
	}
}

func TestLooseMouseFallback(t *testing.T) {
	f := newFixture(bind("left", "mouse_left")).activate()

	f.key("ctrl", combo.Ctrl)
	f.click("mouse_left")
	if got := f.runner.executed(); !slices.Equal(got, []string{"left"}) {
		t.Errorf("ctrl+mouse_left should fall back to mouse_left, got %v", got)
	}
}

func TestLooseMouseFallbackPrefersExactMatch(t *testing.T) {
	f := newFixture(bind("bare", "mouse_left"), bind("exact", "ctrl+mouse_left")).activate()

	f.key("ctrl", combo.Ctrl)
	f.click("mouse_left")
	if got := f.runner.executed(); !slices.Equal(got, []string{"exact"}) {
		t.Errorf("exact match should win, got %v", got)
	}
}

func TestNoLooseFallbackForKeyboard(t *testing.T) {
	f := newFixture(bind("bare", "a")).activate()

	f.key("ctrl", combo.Ctrl)
	f.key("a", combo.Ctrl)
	if got := f.runner.executed(); len(got) != 0 {
		t.Errorf("keyboard combos must match exactly, got %v", got)
	}
}

func TestReleasesNeverDispatch(t *testing.T) {
	f := newFixture(bind("plain", "f1")).activate()

	f.keyUp("f1")
	f.engine.HandleEvent(hotkey.Event{Device: hotkey.Mouse, Kind: hotkey.Release, Key: "mouse_left"})
	if got := f.runner.executed(); len(got) != 0 {
		t.Errorf("releases should not dispatch, got %v", got)
	}
}

func TestConsumedPressUpdatesTracker(t *testing.T) {
	f := newFixture(blocking(bind("blocker", "f1"))).activate()

	f.key("f1", 0)
	if !f.tracker.KeyHeld("f1") {
		t.Error("consumed press should still be tracked as held")
	}
	f.keyUp("f1")
	if f.tracker.KeyHeld("f1") {
		t.Error("release should clear the held key")
	}
}

func TestSetActiveNotifiesOnChangeOnly(t *testing.T) {
	f := newFixture()

	if !f.engine.SetActive(true) {
		t.Error("first activation should report a change")
	}
	if f.engine.SetActive(true) {
		t.Error("second activation should be a no-op")
	}
	if got := f.observer.statusLog(); len(got) != 1 {
		t.Errorf("expected a single notification, got %v", got)
	}
}

func TestMasterTriggersCopy(t *testing.T) {
	f := newFixture()
	f.engine.SetMasterTriggers([]string{"f9", "", "f9", "ctrl+f10"})

	got := f.engine.MasterTriggers()
	if !slices.Equal(got, []string{"f9", "ctrl+f10"}) {
		t.Fatalf("unexpected master triggers %v", got)
	}
	got[0] = "mutated"
	if f.engine.MasterTriggers()[0] != "f9" {
		t.Error("MasterTriggers should return a copy")
	}
}

func TestBindingTriggeredNotification(t *testing.T) {
	f := newFixture(bind("plain", "f1")).activate()

	f.key("f1", 0)
	f.engine.notes.flush()
	f.observer.mu.Lock()
	defer f.observer.mu.Unlock()
	if !slices.Equal(f.observer.triggered, []string{"plain"}) {
		t.Errorf("expected a triggered notification, got %v", f.observer.triggered)
	}
}

type captureTap struct {
	combos []string
	done   bool
}

func (c *captureTap) Feed(ev hotkey.Event, combo string) bool {
	c.combos = append(c.combos, combo)
	c.done = ev.Key != "ctrl"
	return c.done
}

func TestTapInterceptsPresses(t *testing.T) {
	f := newFixture(blocking(bind("blocker", "ctrl+a"))).activate()
	tap := &captureTap{}
	f.engine.SetTap(tap)

	f.key("ctrl", combo.Ctrl)
	f.key("a", combo.Ctrl)

	if !tap.done || !slices.Equal(tap.combos, []string{"ctrl", "ctrl+a"}) {
		t.Fatalf("tap did not see the presses: %+v", tap)
	}
	if got := f.runner.executed(); len(got) != 0 {
		t.Fatalf("tapped presses must not dispatch, got %v", got)
	}

	// The completed tap removed itself.
	f.key("a", combo.Ctrl)
	if got := f.runner.executed(); !slices.Equal(got, []string{"blocker"}) {
		t.Errorf("dispatch should resume after the tap completes, got %v", got)
	}
}

func TestTapRemove(t *testing.T) {
	f := newFixture(bind("plain", "f1")).activate()
	remove := f.engine.SetTap(&captureTap{})
	remove()

	f.key("f1", 0)
	if got := f.runner.executed(); !slices.Equal(got, []string{"plain"}) {
		t.Errorf("removed tap still intercepting, got %v", got)
	}
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

type blockingObserver struct {
	release chan struct{}
	seen    chan string
}

func (o *blockingObserver) StatusChanged(bool) {
	<-o.release
}

func (o *blockingObserver) BindingTriggered(b binding.Binding) {
	<-o.release
	o.seen <- b.ID
}

func TestObserversDoNotRunOnTheBlockingPath(t *testing.T) {
	registry := binding.NewRegistry()
	registry.Upsert(blocking(bind("blocker", "f2")))
	observer := &blockingObserver{release: make(chan struct{}), seen: make(chan string, 1)}
	runner := &recordingRunner{}
	e := New(Config{
		Registry: registry,
		Tracker:  combo.NewTracker(),
		Runner:   runner,
		Observer: observer,
		Logger:   zerolog.Nop(),
	})
	unblock := sync.OnceFunc(func() { close(observer.release) })
	defer e.Close()
	defer unblock()
	e.active.Store(true)
	e.SetMasterTriggers([]string{"f9"})

	verdicts := make(chan bool, 2)
	go func() {
		verdicts <- e.Filter(hotkey.Event{Device: hotkey.Keyboard, Kind: hotkey.Press, Key: "f2"})
		verdicts <- e.Filter(hotkey.Event{Device: hotkey.Keyboard, Kind: hotkey.Press, Key: "f9"})
	}()

	for i := 0; i < 2; i++ {
		select {
		case v := <-verdicts:
			if !v {
				t.Errorf("press %d should be suppressed", i)
			}
		case <-time.After(time.Second):
			t.Fatal("blocking path waited on a slow observer")
		}
	}
	if got := runner.executed(); !slices.Equal(got, []string{"blocker"}) {
		t.Errorf("expected the blocker to run, got %v", got)
	}

	unblock()
	select {
	case id := <-observer.seen:
		if id != "blocker" {
			t.Errorf("unexpected triggered notification %q", id)
		}
	case <-time.After(time.Second):
		t.Fatal("queued notification was never delivered")
	}
}

func TestCloseDrainsNotifications(t *testing.T) {
	f := newFixture()
	f.engine.SetMasterTriggers([]string{"f9"})

	f.key("f9", 0)
	f.key("f9", 0)
	f.engine.Close()

	if got := f.observer.statusLog(); !slices.Equal(got, []bool{true, false}) {
		t.Errorf("expected ordered notifications before Close returns, got %v", got)
	}
	// Notifications after Close are dropped rather than blocking.
	f.key("f9", 0)
	f.engine.SetActive(false)
}
