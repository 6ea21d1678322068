// Package combo turns raw key and button names plus held-modifier state into
// canonical combo strings such as "ctrl+shift+a" or "alt+mouse_left".
package combo

import "strings"

// Modifiers is a bitmask of the held modifiers that take part in a combo.
type Modifiers uint8

const (
	Ctrl Modifiers = 1 << iota
	Shift
	Alt
)

// MousePrefix marks identifiers that refer to mouse buttons.
const MousePrefix = "mouse_"

// modifierOrder is the fixed order modifiers appear in a combo.
var modifierOrder = []struct {
	mod  Modifiers
	name string
}{
	{Ctrl, "ctrl"},
	{Shift, "shift"},
	{Alt, "alt"},
}

// aliases maps every known spelling of a modifier key to its modifier.
var aliases = map[string]Modifiers{
	"ctrl":    Ctrl,
	"ctrl_l":  Ctrl,
	"ctrl_r":  Ctrl,
	"lctrl":   Ctrl,
	"rctrl":   Ctrl,
	"control": Ctrl,
	"shift":   Shift,
	"shift_l": Shift,
	"shift_r": Shift,
	"lshift":  Shift,
	"rshift":  Shift,
	"alt":     Alt,
	"alt_l":   Alt,
	"alt_r":   Alt,
	"lalt":    Alt,
	"ralt":    Alt,
	"alt_gr":  Alt,
}

// ModifierOf reports which modifier key names. ok is false for ordinary keys.
func ModifierOf(key string) (Modifiers, bool) {
	m, ok := aliases[strings.ToLower(key)]
	return m, ok
}

// Name returns the canonical name of a single modifier bit.
func (m Modifiers) Name() string {
	for _, o := range modifierOrder {
		if m == o.mod {
			return o.name
		}
	}
	return ""
}

// Has reports whether all bits of o are set in m.
func (m Modifiers) Has(o Modifiers) bool { return m&o == o }

// Build returns the canonical combo for key pressed while mods are held.
// A modifier key yields its own canonical name alone.
func Build(mods Modifiers, key string) string {
	key = strings.ToLower(key)
	if m, ok := aliases[key]; ok {
		return m.Name()
	}

	var b strings.Builder
	for _, o := range modifierOrder {
		if mods.Has(o.mod) {
			b.WriteString(o.name)
			b.WriteByte('+')
		}
	}
	b.WriteString(key)
	return b.String()
}

// Bare strips any modifier prefix from a combo, "ctrl+mouse_left" -> "mouse_left".
func Bare(c string) string {
	if i := strings.LastIndexByte(c, '+'); i >= 0 {
		return c[i+1:]
	}
	return c
}

// IsMouse reports whether an identifier or combo ends in a mouse button.
func IsMouse(c string) bool {
	return strings.HasPrefix(Bare(c), MousePrefix)
}
