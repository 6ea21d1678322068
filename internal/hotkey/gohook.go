package hotkey

import (
	"errors"
	"time"

	hook "github.com/robotn/gohook"
)

const eventBuffer = 256

// libuiohook event ids as carried in hook.Event.Kind. gohook's names do not
// follow the ids: MouseHold (8) is the button release, and KeyHold (3) is the
// typed-character event, which duplicates a press without a keycode and is
// ignored.
const (
	uioHookEnabled   = hook.HookEnabled // 1
	uioKeyPressed    = hook.KeyDown     // 4
	uioKeyReleased   = hook.KeyUp       // 5
	uioMousePressed  = hook.MouseDown   // 7
	uioMouseReleased = hook.MouseHold   // 8
)

// hookStartTimeout bounds the wait for libuiohook to report the hook enabled.
var hookStartTimeout = 2 * time.Second

var errHookNotEnabled = errors.New("gohook did not report the hook as enabled")

// translate converts a gohook event into an Event.
func translate(ev hook.Event) (Event, bool) {
	switch ev.Kind {
	case uioKeyPressed, uioKeyReleased:
		name, ok := ResolveKeycode(ev.Keycode)
		if !ok {
			return Event{}, false
		}
		out := Event{Device: Keyboard, Kind: Release, Key: name}
		if ev.Kind == uioKeyPressed {
			out.Kind = Press
			out.Mods = modifiersFromMask(ev.Mask)
		}
		return out, true

	case uioMousePressed, uioMouseReleased:
		name, ok := ResolveButton(ev.Button)
		if !ok {
			return Event{}, false
		}
		out := Event{Device: Mouse, Kind: Release, Key: name}
		if ev.Kind == uioMousePressed {
			out.Kind = Press
		}
		return out, true
	}
	return Event{}, false
}

// awaitHookEnabled waits for libuiohook's hook-enabled event on raw. A hook
// that cannot be installed (no display, missing permission) never sends it.
func awaitHookEnabled(raw <-chan hook.Event, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-raw:
			if !ok {
				return errors.New("gohook event channel closed during start")
			}
			if ev.Kind == uioHookEnabled {
				return nil
			}
		case <-timer.C:
			return errHookNotEnabled
		}
	}
}

// pumpGohook forwards translated gohook events accepted by keep to out,
// running filter on keyboard presses. It returns when raw is closed.
func pumpGohook(raw <-chan hook.Event, out chan<- Event, keep func(Event) bool, filter Filter) {
	for ev := range raw {
		e, ok := translate(ev)
		if !ok || !keep(e) {
			continue
		}
		if e.Device == Keyboard && e.Kind == Press && filter != nil {
			e.Consumed = filter(e)
		}
		out <- e
	}
}
