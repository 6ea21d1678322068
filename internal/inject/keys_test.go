package inject

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/combo"
	"github.com/petems/macro-tray/internal/config"
)

func TestParseStroke(t *testing.T) {
	tests := []struct {
		name string
		mods combo.Modifiers
		code int
		bare bool
	}{
		{"a", 0, keyCodes["a"], false},
		{"A", 0, keyCodes["a"], false},
		{"f5", 0, keyCodes["f5"], false},
		{"ctrl+shift+s", combo.Ctrl | combo.Shift, keyCodes["s"], false},
		{"alt + tab", combo.Alt, keyCodes["tab"], false},
		{"return", 0, keyCodes["enter"], false},
		{"escape", 0, keyCodes["esc"], false},
		{"ctrl", combo.Ctrl, 0, true},
		{"lshift", combo.Shift, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := parseStroke(tt.name)
			if err != nil {
				t.Fatalf("parseStroke(%q) failed: %v", tt.name, err)
			}
			if st.mods != tt.mods || st.bare != tt.bare {
				t.Errorf("got mods %v bare %v, want %v %v", st.mods, st.bare, tt.mods, tt.bare)
			}
			if !tt.bare && st.code != tt.code {
				t.Errorf("got code %d, want %d", st.code, tt.code)
			}
		})
	}
}

func TestParseStrokeUnknown(t *testing.T) {
	for _, name := range []string{"", "nosuchkey", "a+b", "ctrl+", "printscreen"} {
		if _, err := parseStroke(name); !errors.Is(err, ErrUnknownKey) {
			t.Errorf("parseStroke(%q) = %v, want ErrUnknownKey", name, err)
		}
	}
}

func TestPlatformKeysRegistered(t *testing.T) {
	for _, name := range []string{"space", "tab", "enter", "esc", "backspace", "delete", "home", "end", "pageup", "pagedown", "up", "down", "left", "right"} {
		if _, ok := keyCodes[name]; !ok {
			t.Errorf("key %q missing from table", name)
		}
	}
}

func TestParseButton(t *testing.T) {
	for name, want := range map[string]mouseButton{
		"mouse_left":   buttonLeft,
		"Mouse_Right":  buttonRight,
		"mouse_middle": buttonMiddle,
		"mouse_x1":     buttonX1,
		"mouse_x2":     buttonX2,
	} {
		got, err := parseButton(name)
		if err != nil || got != want {
			t.Errorf("parseButton(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := parseButton("mouse_x9"); !errors.Is(err, ErrMouseUnsupported) {
		t.Errorf("expected ErrMouseUnsupported, got %v", err)
	}
}

func TestSenderRejectsBeforeTouchingDevices(t *testing.T) {
	s := New(config.InjectConfig{PressMS: 1, ClickMS: 1}, zerolog.Nop())

	if err := s.Press("nosuchkey", 0); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Press: expected ErrUnknownKey, got %v", err)
	}
	if err := s.KeyDown("nosuchkey"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("KeyDown: expected ErrUnknownKey, got %v", err)
	}
	if err := s.KeyUp(""); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("KeyUp: expected ErrUnknownKey, got %v", err)
	}
	// Press routes mouse identifiers to MouseClick.
	if err := s.Press("mouse_wheel", 0); !errors.Is(err, ErrMouseUnsupported) {
		t.Errorf("Press(mouse_wheel): expected ErrMouseUnsupported, got %v", err)
	}
}

func TestIsMouse(t *testing.T) {
	if !isMouse("mouse_left") || !isMouse(" MOUSE_X1") {
		t.Error("mouse identifiers not detected")
	}
	if isMouse("m") || isMouse("ctrl+mouse_left") {
		t.Error("non-mouse identifiers detected as mouse")
	}
}
