package dispatch

import "maamcp/internal/engine/desktop"

// Strategy names arrive as strings from the tool surface and are passed
// through to the window controller as parsed enums. Unrecognized names fall
// back to the provider defaults rather than failing.

func parseScreencap(name string) uint64 {
	return uint64(desktop.ParseScreencapMethod(name))
}

func parseMouse(name string) uint64 {
	return uint64(desktop.ParseMouseMethod(name))
}

func parseKeyboard(name string) uint64 {
	return uint64(desktop.ParseKeyboardMethod(name))
}
