//go:build windows

package inject

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows"
)

var (
	user32         = windows.NewLazySystemDLL("user32.dll")
	procMouseEvent = user32.NewProc("mouse_event")
)

const (
	mouseeventfLeftDown   = 0x0002
	mouseeventfLeftUp     = 0x0004
	mouseeventfRightDown  = 0x0008
	mouseeventfRightUp    = 0x0010
	mouseeventfMiddleDown = 0x0020
	mouseeventfMiddleUp   = 0x0040
	mouseeventfXDown      = 0x0080
	mouseeventfXUp        = 0x0100

	xbutton1 = 0x0001
	xbutton2 = 0x0002
)

func platformClick(b mouseButton, hold time.Duration) error {
	var down, up, data uintptr
	switch b {
	case buttonLeft:
		down, up = mouseeventfLeftDown, mouseeventfLeftUp
	case buttonRight:
		down, up = mouseeventfRightDown, mouseeventfRightUp
	case buttonMiddle:
		down, up = mouseeventfMiddleDown, mouseeventfMiddleUp
	case buttonX1:
		down, up, data = mouseeventfXDown, mouseeventfXUp, xbutton1
	case buttonX2:
		down, up, data = mouseeventfXDown, mouseeventfXUp, xbutton2
	default:
		return fmt.Errorf("%w: %d", ErrMouseUnsupported, b)
	}

	if err := procMouseEvent.Find(); err != nil {
		return fmt.Errorf("mouse_event unavailable: %w", err)
	}
	procMouseEvent.Call(down, 0, 0, data, 0)
	time.Sleep(hold)
	procMouseEvent.Call(up, 0, 0, data, 0)
	return nil
}
