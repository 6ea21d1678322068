package inject

import (
	"fmt"
	"strings"

	"github.com/micmonay/keybd_event"

	"github.com/petems/macro-tray/internal/combo"
)

// keyCodes holds the keys every platform names the same way. Platform files
// add navigation and editing keys through platformKeys.
var keyCodes = map[string]int{
	"a": keybd_event.VK_A, "b": keybd_event.VK_B, "c": keybd_event.VK_C, "d": keybd_event.VK_D,
	"e": keybd_event.VK_E, "f": keybd_event.VK_F, "g": keybd_event.VK_G, "h": keybd_event.VK_H,
	"i": keybd_event.VK_I, "j": keybd_event.VK_J, "k": keybd_event.VK_K, "l": keybd_event.VK_L,
	"m": keybd_event.VK_M, "n": keybd_event.VK_N, "o": keybd_event.VK_O, "p": keybd_event.VK_P,
	"q": keybd_event.VK_Q, "r": keybd_event.VK_R, "s": keybd_event.VK_S, "t": keybd_event.VK_T,
	"u": keybd_event.VK_U, "v": keybd_event.VK_V, "w": keybd_event.VK_W, "x": keybd_event.VK_X,
	"y": keybd_event.VK_Y, "z": keybd_event.VK_Z,

	"0": keybd_event.VK_0, "1": keybd_event.VK_1, "2": keybd_event.VK_2, "3": keybd_event.VK_3,
	"4": keybd_event.VK_4, "5": keybd_event.VK_5, "6": keybd_event.VK_6, "7": keybd_event.VK_7,
	"8": keybd_event.VK_8, "9": keybd_event.VK_9,

	"f1": keybd_event.VK_F1, "f2": keybd_event.VK_F2, "f3": keybd_event.VK_F3, "f4": keybd_event.VK_F4,
	"f5": keybd_event.VK_F5, "f6": keybd_event.VK_F6, "f7": keybd_event.VK_F7, "f8": keybd_event.VK_F8,
	"f9": keybd_event.VK_F9, "f10": keybd_event.VK_F10, "f11": keybd_event.VK_F11, "f12": keybd_event.VK_F12,
}

var keyAliases = map[string]string{
	"return": "enter",
	"escape": "esc",
	"del":    "delete",
	"pgup":   "pageup",
	"pgdn":   "pagedown",
}

func init() {
	for name, code := range platformKeys {
		keyCodes[name] = code
	}
}

// stroke is one keyboard chord: optional modifiers plus at most one key.
type stroke struct {
	mods combo.Modifiers
	code int
	bare bool // modifiers only
}

// parseStroke resolves names like "a", "f5" or "ctrl+shift+s".
func parseStroke(name string) (stroke, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(name)), "+")
	var st stroke
	var key string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if m, ok := combo.ModifierOf(p); ok {
			st.mods |= m
			continue
		}
		if key != "" || p == "" {
			return stroke{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
		}
		key = p
	}

	if key == "" {
		if st.mods == 0 {
			return stroke{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
		}
		st.bare = true
		return st, nil
	}

	if alias, ok := keyAliases[key]; ok {
		key = alias
	}
	code, ok := keyCodes[key]
	if !ok {
		return stroke{}, fmt.Errorf("%w: %q", ErrUnknownKey, name)
	}
	st.code = code
	return st, nil
}

// mouseButton identifies a button for the platform click functions.
type mouseButton int

const (
	buttonLeft mouseButton = iota
	buttonRight
	buttonMiddle
	buttonX1
	buttonX2
)

var mouseButtons = map[string]mouseButton{
	"mouse_left":   buttonLeft,
	"mouse_right":  buttonRight,
	"mouse_middle": buttonMiddle,
	"mouse_x1":     buttonX1,
	"mouse_x2":     buttonX2,
}

func parseButton(name string) (mouseButton, error) {
	b, ok := mouseButtons[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMouseUnsupported, name)
	}
	return b, nil
}
