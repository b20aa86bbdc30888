package input

// vkCodes maps key names to Windows virtual-key codes. Other platforms
// translate from these codes.
var vkCodes = func() map[string]uint16 {
	m := map[string]uint16{
		"backspace": 0x08,
		"tab":       0x09,
		"enter":     0x0D,
		"shift":     0x10,
		"ctrl":      0x11,
		"alt":       0x12,
		"pause":     0x13,
		"capslock":  0x14,
		"esc":       0x1B,
		"space":     0x20,
		"pageup":    0x21,
		"pagedown":  0x22,
		"end":       0x23,
		"home":      0x24,
		"left":      0x25,
		"up":        0x26,
		"right":     0x27,
		"down":      0x28,
		"insert":    0x2D,
		"delete":    0x2E,
	}
	for c := '0'; c <= '9'; c++ {
		m[string(c)] = uint16(c)
	}
	for c := 'a'; c <= 'z'; c++ {
		m[string(c)] = uint16(c - 'a' + 'A')
	}
	return m
}()

// extendedKeys need KEYEVENTF_EXTENDEDKEY so they are not read as numpad keys.
var extendedKeys = map[string]bool{
	"up": true, "down": true, "left": true, "right": true,
	"insert": true, "delete": true, "home": true, "end": true,
	"pageup": true, "pagedown": true,
}

// VKCode returns the virtual-key code for a key name
func VKCode(name string) (uint16, bool) {
	vk, ok := vkCodes[name]
	return vk, ok
}
