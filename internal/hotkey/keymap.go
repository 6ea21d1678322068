package hotkey

import "github.com/petems/macro-tray/internal/combo"

// vkNames resolves Windows virtual-key codes. Left and right modifier codes
// collapse onto one canonical name.
var vkNames = map[uint32]string{
	0x08: "backspace", 0x09: "tab", 0x0D: "enter", 0x1B: "esc", 0x20: "space",
	0x21: "pageup", 0x22: "pagedown", 0x23: "end", 0x24: "home",
	0x25: "left", 0x26: "up", 0x27: "right", 0x28: "down",
	0x2C: "printscreen", 0x2D: "insert", 0x2E: "delete",
	0x70: "f1", 0x71: "f2", 0x72: "f3", 0x73: "f4", 0x74: "f5", 0x75: "f6",
	0x76: "f7", 0x77: "f8", 0x78: "f9", 0x79: "f10", 0x7A: "f11", 0x7B: "f12",
	0x10: "shift", 0x11: "ctrl", 0x12: "alt",
	0xA0: "shift", 0xA1: "shift", 0xA2: "ctrl", 0xA3: "ctrl",
	0xA4: "alt", 0xA5: "alt",
}

// ResolveVK maps a Windows virtual-key code to a canonical key name.
func ResolveVK(vk uint32) (string, bool) {
	if name, ok := vkNames[vk]; ok {
		return name, true
	}
	switch {
	case vk >= '0' && vk <= '9':
		return string(rune(vk)), true
	case vk >= 'A' && vk <= 'Z':
		return string(rune(vk - 'A' + 'a')), true
	}
	return "", false
}

// uiohookNames resolves the virtual key codes gohook reports in Event.Keycode.
var uiohookNames = map[uint16]string{
	0x0001: "esc", 0x000E: "backspace", 0x000F: "tab", 0x001C: "enter", 0x0039: "space",
	0x0E37: "printscreen", 0x0E52: "insert", 0x0E53: "delete",
	0x0E47: "home", 0x0E4F: "end", 0x0E49: "pageup", 0x0E51: "pagedown",
	0xE048: "up", 0xE04B: "left", 0xE04D: "right", 0xE050: "down",
	0x003B: "f1", 0x003C: "f2", 0x003D: "f3", 0x003E: "f4", 0x003F: "f5", 0x0040: "f6",
	0x0041: "f7", 0x0042: "f8", 0x0043: "f9", 0x0044: "f10", 0x0057: "f11", 0x0058: "f12",
	0x002A: "shift", 0x0036: "shift", 0x001D: "ctrl", 0x0E1D: "ctrl", 0x0038: "alt", 0x0E38: "alt",
	0x0002: "1", 0x0003: "2", 0x0004: "3", 0x0005: "4", 0x0006: "5",
	0x0007: "6", 0x0008: "7", 0x0009: "8", 0x000A: "9", 0x000B: "0",
	0x0010: "q", 0x0011: "w", 0x0012: "e", 0x0013: "r", 0x0014: "t",
	0x0015: "y", 0x0016: "u", 0x0017: "i", 0x0018: "o", 0x0019: "p",
	0x001E: "a", 0x001F: "s", 0x0020: "d", 0x0021: "f", 0x0022: "g",
	0x0023: "h", 0x0024: "j", 0x0025: "k", 0x0026: "l",
	0x002C: "z", 0x002D: "x", 0x002E: "c", 0x002F: "v", 0x0030: "b",
	0x0031: "n", 0x0032: "m",
}

// ResolveKeycode maps a gohook virtual key code to a canonical key name.
func ResolveKeycode(code uint16) (string, bool) {
	name, ok := uiohookNames[code]
	return name, ok
}

var buttonNames = map[uint16]string{
	1: "mouse_left",
	2: "mouse_right",
	3: "mouse_middle",
	4: "mouse_x1",
	5: "mouse_x2",
}

// ResolveButton maps a gohook mouse button number to its identifier.
func ResolveButton(button uint16) (string, bool) {
	name, ok := buttonNames[button]
	return name, ok
}

// gohook modifier mask bits.
const (
	maskShiftL uint16 = 1 << 0
	maskCtrlL  uint16 = 1 << 1
	maskAltL   uint16 = 1 << 3
	maskShiftR uint16 = 1 << 4
	maskCtrlR  uint16 = 1 << 5
	maskAltR   uint16 = 1 << 7
)

// modifiersFromMask converts the modifier mask gohook attaches to each event.
func modifiersFromMask(mask uint16) combo.Modifiers {
	var mods combo.Modifiers
	if mask&(maskCtrlL|maskCtrlR) != 0 {
		mods |= combo.Ctrl
	}
	if mask&(maskShiftL|maskShiftR) != 0 {
		mods |= combo.Shift
	}
	if mask&(maskAltL|maskAltR) != 0 {
		mods |= combo.Alt
	}
	return mods
}
