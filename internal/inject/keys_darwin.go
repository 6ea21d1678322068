//go:build darwin

package inject

// macOS virtual key codes (HIToolbox Events.h).
var platformKeys = map[string]int{
	"space":     0x31,
	"tab":       0x30,
	"enter":     0x24,
	"esc":       0x35,
	"backspace": 0x33,
	"delete":    0x75,
	"insert":    0x72, // help key on Apple keyboards
	"home":      0x73,
	"end":       0x77,
	"pageup":    0x74,
	"pagedown":  0x79,
	"left":      0x7B,
	"right":     0x7C,
	"down":      0x7D,
	"up":        0x7E,
}
