//go:build darwin

package inject

/*
#cgo LDFLAGS: -framework ApplicationServices
#include <ApplicationServices/ApplicationServices.h>

// Post a mouse button event at the current cursor location.
static int postMouse(CGEventType type, CGMouseButton button, int64_t number) {
    CGEventRef probe = CGEventCreate(NULL);
    if (probe == NULL) {
        return -1;
    }
    CGPoint loc = CGEventGetLocation(probe);
    CFRelease(probe);

    CGEventRef ev = CGEventCreateMouseEvent(NULL, type, loc, button);
    if (ev == NULL) {
        return -1;
    }
    CGEventSetIntegerValueField(ev, kCGMouseEventButtonNumber, number);
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
    return 0;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"time"
)

func platformClick(b mouseButton, hold time.Duration) error {
	var down, up C.CGEventType
	var button C.CGMouseButton
	var number C.int64_t

	switch b {
	case buttonLeft:
		down, up, button, number = C.kCGEventLeftMouseDown, C.kCGEventLeftMouseUp, C.kCGMouseButtonLeft, 0
	case buttonRight:
		down, up, button, number = C.kCGEventRightMouseDown, C.kCGEventRightMouseUp, C.kCGMouseButtonRight, 1
	case buttonMiddle:
		down, up, button, number = C.kCGEventOtherMouseDown, C.kCGEventOtherMouseUp, C.kCGMouseButtonCenter, 2
	case buttonX1:
		down, up, button, number = C.kCGEventOtherMouseDown, C.kCGEventOtherMouseUp, C.kCGMouseButtonCenter, 3
	case buttonX2:
		down, up, button, number = C.kCGEventOtherMouseDown, C.kCGEventOtherMouseUp, C.kCGMouseButtonCenter, 4
	default:
		return fmt.Errorf("%w: %d", ErrMouseUnsupported, b)
	}

	if C.postMouse(down, button, number) != 0 {
		return errors.New("failed to create mouse down event")
	}
	time.Sleep(hold)
	if C.postMouse(up, button, number) != 0 {
		return errors.New("failed to create mouse up event")
	}
	return nil
}
