//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework ApplicationServices -framework Cocoa
#import <ApplicationServices/ApplicationServices.h>
#import <Cocoa/Cocoa.h>

int checkAccessibilityPermission(int prompt) {
    NSDictionary *options = @{(__bridge id)kAXTrustedCheckOptionPrompt: prompt ? @YES : @NO};
    return AXIsProcessTrustedWithOptions((__bridge CFDictionaryRef)options) ? 1 : 0;
}

int checkInputMonitoringPermission() {
    if (@available(macOS 10.15, *)) {
        return CGPreflightListenEventAccess() ? 1 : 0;
    }
    return 1;
}

void requestInputMonitoringPermission() {
    if (@available(macOS 10.15, *)) {
        CGRequestListenEventAccess();
    }
}
*/
import "C"

import "fmt"

// CheckAccessibility reports whether the app may post synthetic input.
func CheckAccessibility() bool {
	return C.checkAccessibilityPermission(0) == 1
}

// PromptAccessibility opens the system accessibility prompt.
func PromptAccessibility() {
	C.checkAccessibilityPermission(1)
}

// CheckInputMonitoring reports whether the app may observe global input.
func CheckInputMonitoring() bool {
	return C.checkInputMonitoringPermission() == 1
}

// EnsurePermissions checks the permissions the input hook and key synthesis
// need, prompting for any that are missing.
func EnsurePermissions() error {
	if !CheckInputMonitoring() {
		C.requestInputMonitoringPermission()
		return fmt.Errorf("input monitoring permission not granted (System Settings → Privacy & Security → Input Monitoring)")
	}
	if !CheckAccessibility() {
		PromptAccessibility()
		return fmt.Errorf("accessibility permission not granted (System Settings → Privacy & Security → Accessibility)")
	}
	return nil
}
