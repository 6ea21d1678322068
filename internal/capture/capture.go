// Package capture records the next physical key or mouse button so a
// configuration surface can offer it as a trigger.
package capture

import (
	"context"
	"strings"
	"sync"

	"github.com/petems/macro-tray/internal/combo"
	"github.com/petems/macro-tray/internal/hotkey"
)

// Result is one captured trigger.
type Result struct {
	Device  hotkey.Device `json:"device"`
	Combo   string        `json:"combo"`
	Display string        `json:"display"`
}

// Session waits for one non-modifier press. Modifier presses on their own
// are remembered through the combo and otherwise ignored.
type Session struct {
	once   sync.Once
	result chan Result
}

func NewSession() *Session {
	return &Session{result: make(chan Result, 1)}
}

// Feed offers a press and its canonical combo. It returns true once the
// session has its result.
func (s *Session) Feed(ev hotkey.Event, c string) bool {
	if ev.Kind != hotkey.Press {
		return false
	}
	if _, isMod := combo.ModifierOf(ev.Key); isMod {
		return false
	}

	done := false
	s.once.Do(func() {
		s.result <- Result{Device: ev.Device, Combo: c, Display: Label(c)}
		done = true
	})
	return done
}

// Wait blocks until a press is captured or ctx ends.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-s.result:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

var buttonLabels = map[string]string{
	"mouse_left":   "Left Click",
	"mouse_right":  "Right Click",
	"mouse_middle": "Middle Click",
	"mouse_x1":     "Back",
	"mouse_x2":     "Forward",
}

// Label renders a combo for display: "⌨️ CTRL + A" for keys and
// "CTRL + 🖱️ Left Click" for mouse buttons.
func Label(c string) string {
	parts := strings.Split(c, "+")
	last := parts[len(parts)-1]

	if !strings.HasPrefix(last, combo.MousePrefix) {
		for i, p := range parts {
			parts[i] = strings.ToUpper(p)
		}
		return "⌨️ " + strings.Join(parts, " + ")
	}

	button, ok := buttonLabels[last]
	if !ok {
		button = strings.ToUpper(strings.TrimPrefix(last, combo.MousePrefix))
	}
	label := "🖱️ " + button
	if len(parts) == 1 {
		return label
	}
	mods := make([]string, len(parts)-1)
	for i, p := range parts[:len(parts)-1] {
		mods[i] = strings.ToUpper(p)
	}
	return strings.Join(mods, " + ") + " + " + label
}
