//go:build !windows

package desktop

import (
	"context"
	"errors"
	"image"

	"maamcp/internal/engine"
)

var errUnsupported = errors.New("desktop window control requires Windows")

func listWindows(ctx context.Context) ([]engine.DesktopWindow, error) {
	return nil, nil
}

func platformWindowAlive(hwnd uintptr) bool {
	return false
}

func platformCapture(hwnd uintptr, method ScreencapMethod) (image.Image, error) {
	return nil, errUnsupported
}

func platformMouseDown(hwnd uintptr, method MouseMethod, x, y, button int) error {
	return errUnsupported
}

func platformMouseUp(hwnd uintptr, method MouseMethod, x, y, button int) error {
	return errUnsupported
}

func platformDrag(hwnd uintptr, method MouseMethod, x1, y1, x2, y2, durationMs int) error {
	return errUnsupported
}

func platformInputText(hwnd uintptr, method KeyboardMethod, text string) error {
	return errUnsupported
}

func platformKey(hwnd uintptr, method KeyboardMethod, key int, down bool) error {
	return errUnsupported
}

func platformScroll(hwnd uintptr, dx, dy int) error {
	return errUnsupported
}
