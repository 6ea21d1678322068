//go:build linux

package inject

/*
#cgo pkg-config: x11 xtst
#include <X11/Xlib.h>
#include <X11/extensions/XTest.h>

static Display *clickDisplay = NULL;

static int fakeButton(unsigned int button, int press) {
    if (clickDisplay == NULL) {
        clickDisplay = XOpenDisplay(NULL);
        if (clickDisplay == NULL) {
            return -1;
        }
    }
    XTestFakeButtonEvent(clickDisplay, button, press ? True : False, CurrentTime);
    XFlush(clickDisplay);
    return 0;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"time"
)

// X11 pointer button numbers.
var x11Buttons = map[mouseButton]C.uint{
	buttonLeft:   1,
	buttonMiddle: 2,
	buttonRight:  3,
	buttonX1:     8,
	buttonX2:     9,
}

func platformClick(b mouseButton, hold time.Duration) error {
	button, ok := x11Buttons[b]
	if !ok {
		return fmt.Errorf("%w: %d", ErrMouseUnsupported, b)
	}

	if C.fakeButton(button, 1) != 0 {
		return errors.New("failed to open X display")
	}
	time.Sleep(hold)
	C.fakeButton(button, 0)
	return nil
}
