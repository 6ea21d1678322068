// Package hotkey observes system-wide keyboard and mouse input.
//
// A Source installs the native hooks and emits Events; a Listener owns the
// Source lifecycle and pumps its events to a handler. Keyboard presses pass
// through a synchronous Filter on the hook thread first, which decides whether
// the event is consumed before the rest of the system sees it.
package hotkey

import (
	"errors"

	"github.com/petems/macro-tray/internal/combo"
)

// ErrHookFailed is returned when the native hook cannot be installed.
var ErrHookFailed = errors.New("input hook registration failed")

type Device uint8

const (
	Keyboard Device = iota
	Mouse
)

func (d Device) String() string {
	if d == Mouse {
		return "mouse"
	}
	return "keyboard"
}

func (d Device) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

type Kind uint8

const (
	Press Kind = iota
	Release
)

func (k Kind) String() string {
	if k == Release {
		return "release"
	}
	return "press"
}

// Event is one physical input, already resolved to a canonical key name
// ("a", "f1", "ctrl", "mouse_left").
type Event struct {
	Device Device
	Kind   Kind
	Key    string
	// Mods is the modifier state sampled from the OS when the event was
	// observed. Only keyboard presses carry it.
	Mods combo.Modifiers
	// Consumed is set when the Filter claimed a keyboard press.
	Consumed bool
}

// Filter runs synchronously on the hook thread for every keyboard press.
// Returning true consumes the event; where the platform allows it the event
// is also suppressed from further OS delivery. It must be fast and must not
// block.
type Filter func(ev Event) bool

// Source is a native input hook. Start installs it and returns a channel of
// events that is closed after Stop.
type Source interface {
	Start(filter Filter) (<-chan Event, error)
	Stop() error
	// Suppresses reports whether consumed keyboard presses are withheld from
	// the OS on this platform.
	Suppresses() bool
}
