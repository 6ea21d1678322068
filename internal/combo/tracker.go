package combo

import (
	"strings"
	"sync"
)

// Tracker keeps the live set of held keys and mouse buttons.
// It is fed from the listener goroutine and read by repeat loops.
type Tracker struct {
	mu    sync.RWMutex
	keys  map[string]struct{}
	mouse map[string]struct{}
}

func NewTracker() *Tracker {
	return &Tracker{
		keys:  make(map[string]struct{}),
		mouse: make(map[string]struct{}),
	}
}

// Press records key as held and returns the combo it produces.
func (t *Tracker) Press(key string) string {
	key = strings.ToLower(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	if strings.HasPrefix(key, MousePrefix) {
		t.mouse[key] = struct{}{}
	} else {
		t.keys[key] = struct{}{}
	}
	return Build(t.modifiersLocked(), key)
}

// Release forgets key. Releasing any spelling of a modifier clears every
// spelling of it, so a right-hand release cannot leave a left-hand press stuck.
func (t *Tracker) Release(key string) {
	key = strings.ToLower(key)

	t.mu.Lock()
	defer t.mu.Unlock()

	if strings.HasPrefix(key, MousePrefix) {
		delete(t.mouse, key)
		return
	}
	delete(t.keys, key)

	if mod, ok := aliases[key]; ok {
		for alias, m := range aliases {
			if m == mod {
				delete(t.keys, alias)
			}
		}
	}
}

// Combo returns the combo key would produce with the currently held modifiers.
func (t *Tracker) Combo(key string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Build(t.modifiersLocked(), key)
}

// Modifiers returns the currently held modifiers.
func (t *Tracker) Modifiers() Modifiers {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.modifiersLocked()
}

func (t *Tracker) modifiersLocked() Modifiers {
	var mods Modifiers
	for k := range t.keys {
		if m, ok := aliases[k]; ok {
			mods |= m
		}
	}
	return mods
}

// KeyHeld reports whether key is in the held keyboard set.
func (t *Tracker) KeyHeld(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.keys[strings.ToLower(key)]
	return ok
}

// ButtonHeld reports whether a mouse button is in the held mouse set.
func (t *Tracker) ButtonHeld(button string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.mouse[strings.ToLower(button)]
	return ok
}

// TriggerHeld reports whether a trigger is still physically held. Mouse
// triggers are checked by their bare button name, ignoring modifiers;
// keyboard triggers must be present in the held set as written.
func (t *Tracker) TriggerHeld(trigger string) bool {
	if IsMouse(trigger) {
		return t.ButtonHeld(Bare(trigger))
	}
	return t.KeyHeld(trigger)
}

// Reset clears both held sets.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.keys)
	clear(t.mouse)
}
