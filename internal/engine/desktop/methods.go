// Package desktop implements window discovery and controllers for desktop
// targets. The Win32 implementation is only built on Windows; on other
// platforms discovery returns no windows.
package desktop

// ScreencapMethod selects how a window controller captures frames.
type ScreencapMethod uint64

const (
	ScreencapGDI                  ScreencapMethod = 1 << 0
	ScreencapFramePool            ScreencapMethod = 1 << 1
	ScreencapDXGIDesktopDup       ScreencapMethod = 1 << 2
	ScreencapPrintWindow          ScreencapMethod = 1 << 3
	ScreencapScreenDC             ScreencapMethod = 1 << 4
	ScreencapDXGIDesktopDupWindow ScreencapMethod = 1 << 5
)

// MouseMethod selects how mouse input is delivered.
type MouseMethod uint64

const (
	MousePostMessage              MouseMethod = 1 << 0
	MousePostMessageWithCursorPos MouseMethod = 1 << 1
	MouseSeize                    MouseMethod = 1 << 2
)

// KeyboardMethod selects how keyboard input is delivered.
type KeyboardMethod uint64

const (
	KeyboardPostMessage KeyboardMethod = 1 << 0
	KeyboardSeize       KeyboardMethod = 1 << 1
)

var screencapMethods = map[string]ScreencapMethod{
	"FramePool":              ScreencapFramePool,
	"PrintWindow":            ScreencapPrintWindow,
	"GDI":                    ScreencapGDI,
	"DXGI_DesktopDup_Window": ScreencapDXGIDesktopDupWindow,
	"ScreenDC":               ScreencapScreenDC,
	"DXGI_DesktopDup":        ScreencapDXGIDesktopDup,
}

var mouseMethods = map[string]MouseMethod{
	"PostMessage":              MousePostMessage,
	"PostMessageWithCursorPos": MousePostMessageWithCursorPos,
	"Seize":                    MouseSeize,
}

var keyboardMethods = map[string]KeyboardMethod{
	"PostMessage": KeyboardPostMessage,
	"Seize":       KeyboardSeize,
}

// ParseScreencapMethod maps a strategy name to its enum. Unrecognized names
// fall back to FramePool rather than failing.
func ParseScreencapMethod(name string) ScreencapMethod {
	if m, ok := screencapMethods[name]; ok {
		return m
	}
	return ScreencapFramePool
}

// ParseMouseMethod maps a strategy name to its enum, defaulting to
// PostMessage.
func ParseMouseMethod(name string) MouseMethod {
	if m, ok := mouseMethods[name]; ok {
		return m
	}
	return MousePostMessage
}

// ParseKeyboardMethod maps a strategy name to its enum, defaulting to
// PostMessage.
func ParseKeyboardMethod(name string) KeyboardMethod {
	if m, ok := keyboardMethods[name]; ok {
		return m
	}
	return KeyboardPostMessage
}
