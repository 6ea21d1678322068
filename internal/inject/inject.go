package inject

import (
	"errors"
	"time"
)

var (
	// ErrUnknownKey is returned for a key name with no keyboard mapping.
	ErrUnknownKey = errors.New("unknown key")
	// ErrMouseUnsupported is returned for a mouse button this platform cannot click.
	ErrMouseUnsupported = errors.New("mouse button not supported")
)

// Sender synthesizes keyboard and mouse input. Each call may fail on its
// own; callers decide whether to continue.
type Sender interface {
	// Press taps key, holding it for hold. Mouse identifiers click instead.
	Press(key string, hold time.Duration) error
	KeyDown(key string) error
	KeyUp(key string) error
	MouseClick(button string) error
}
