//go:build !darwin

package inject

import "github.com/micmonay/keybd_event"

var platformKeys = map[string]int{
	"space":     keybd_event.VK_SPACE,
	"tab":       keybd_event.VK_TAB,
	"enter":     keybd_event.VK_ENTER,
	"esc":       keybd_event.VK_ESC,
	"backspace": keybd_event.VK_BACKSPACE,
	"delete":    keybd_event.VK_DELETE,
	"insert":    keybd_event.VK_INSERT,
	"home":      keybd_event.VK_HOME,
	"end":       keybd_event.VK_END,
	"pageup":    keybd_event.VK_PAGEUP,
	"pagedown":  keybd_event.VK_PAGEDOWN,
	"left":      keybd_event.VK_LEFT,
	"right":     keybd_event.VK_RIGHT,
	"down":      keybd_event.VK_DOWN,
	"up":        keybd_event.VK_UP,
}
