//go:build windows

package desktop

import (
	"context"
	"fmt"
	"image"
	"syscall"
	"time"
	"unsafe"

	"maamcp/internal/engine"
)

var (
	user32 = syscall.NewLazyDLL("user32.dll")
	gdi32  = syscall.NewLazyDLL("gdi32.dll")

	procEnumWindows        = user32.NewProc("EnumWindows")
	procIsWindow           = user32.NewProc("IsWindow")
	procIsWindowVisible    = user32.NewProc("IsWindowVisible")
	procGetWindowTextW     = user32.NewProc("GetWindowTextW")
	procGetClassNameW      = user32.NewProc("GetClassNameW")
	procGetWindowRect      = user32.NewProc("GetWindowRect")
	procGetWindowDC        = user32.NewProc("GetWindowDC")
	procReleaseDC          = user32.NewProc("ReleaseDC")
	procPostMessageW       = user32.NewProc("PostMessageW")
	procPrintWindow        = user32.NewProc("PrintWindow")
	procSetCursorPos       = user32.NewProc("SetCursorPos")
	procClientToScreen     = user32.NewProc("ClientToScreen")
	procCreateCompatibleDC = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBM = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject       = gdi32.NewProc("SelectObject")
	procDeleteObject       = gdi32.NewProc("DeleteObject")
	procDeleteDC           = gdi32.NewProc("DeleteDC")
	procBitBlt             = gdi32.NewProc("BitBlt")
	procGetDIBits          = gdi32.NewProc("GetDIBits")
)

const (
	wmMouseMove   = 0x0200
	wmLButtonDown = 0x0201
	wmLButtonUp   = 0x0202
	wmRButtonDown = 0x0204
	wmRButtonUp   = 0x0205
	wmMButtonDown = 0x0207
	wmMButtonUp   = 0x0208
	wmMouseWheel  = 0x020A
	wmMouseHWheel = 0x020E
	wmKeyDown     = 0x0100
	wmKeyUp       = 0x0101
	wmChar        = 0x0102

	mkLButton = 0x0001
	mkRButton = 0x0002
	mkMButton = 0x0010

	srcCopy             = 0x00CC0020
	pwRenderFullContent = 0x0002
	biRGB               = 0
)

type winRect struct {
	Left, Top, Right, Bottom int32
}

type winPoint struct {
	X, Y int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

func listWindows(ctx context.Context) ([]engine.DesktopWindow, error) {
	var windows []engine.DesktopWindow
	cb := syscall.NewCallback(func(hwnd uintptr, lparam uintptr) uintptr {
		visible, _, _ := procIsWindowVisible.Call(hwnd)
		if visible == 0 {
			return 1
		}
		title := windowText(hwnd, procGetWindowTextW)
		if title == "" {
			return 1
		}
		windows = append(windows, engine.DesktopWindow{
			Handle:     hwnd,
			WindowName: title,
			ClassName:  windowText(hwnd, procGetClassNameW),
		})
		return 1
	})
	ret, _, err := procEnumWindows.Call(cb, 0)
	if ret == 0 {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	return windows, nil
}

func windowText(hwnd uintptr, proc *syscall.LazyProc) string {
	buf := make([]uint16, 512)
	n, _, _ := proc.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:n])
}

func platformWindowAlive(hwnd uintptr) bool {
	ret, _, _ := procIsWindow.Call(hwnd)
	return ret != 0
}

func platformCapture(hwnd uintptr, method ScreencapMethod) (image.Image, error) {
	var rect winRect
	if ret, _, err := procGetWindowRect.Call(hwnd, uintptr(unsafe.Pointer(&rect))); ret == 0 {
		return nil, fmt.Errorf("GetWindowRect: %w", err)
	}
	w := int(rect.Right - rect.Left)
	h := int(rect.Bottom - rect.Top)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("window has empty bounds %dx%d", w, h)
	}

	winDC, _, _ := procGetWindowDC.Call(hwnd)
	if winDC == 0 {
		return nil, fmt.Errorf("GetWindowDC failed")
	}
	defer procReleaseDC.Call(hwnd, winDC)

	memDC, _, _ := procCreateCompatibleDC.Call(winDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	bitmap, _, _ := procCreateCompatibleBM.Call(winDC, uintptr(w), uintptr(h))
	if bitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(bitmap)
	procSelectObject.Call(memDC, bitmap)

	// PrintWindow renders background windows; GDI/ScreenDC and the DXGI
	// variants fall back to a plain BitBlt of the window DC here.
	switch method {
	case ScreencapPrintWindow, ScreencapFramePool:
		if ret, _, _ := procPrintWindow.Call(hwnd, memDC, pwRenderFullContent); ret == 0 {
			return nil, fmt.Errorf("PrintWindow failed")
		}
	default:
		if ret, _, err := procBitBlt.Call(memDC, 0, 0, uintptr(w), uintptr(h), winDC, 0, 0, srcCopy); ret == 0 {
			return nil, fmt.Errorf("BitBlt: %w", err)
		}
	}

	hdr := bitmapInfoHeader{
		Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:       int32(w),
		Height:      -int32(h), // top-down rows
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}
	pixels := make([]byte, w*h*4)
	ret, _, err := procGetDIBits.Call(memDC, bitmap, 0, uintptr(h),
		uintptr(unsafe.Pointer(&pixels[0])), uintptr(unsafe.Pointer(&hdr)), 0)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < w*h; i++ {
		// BGRA to RGBA
		img.Pix[i*4+0] = pixels[i*4+2]
		img.Pix[i*4+1] = pixels[i*4+1]
		img.Pix[i*4+2] = pixels[i*4+0]
		img.Pix[i*4+3] = 0xFF
	}
	return img, nil
}

func mouseMessages(button int) (down, up uintptr, mask uintptr) {
	switch button {
	case 1:
		return wmRButtonDown, wmRButtonUp, mkRButton
	case 2:
		return wmMButtonDown, wmMButtonUp, mkMButton
	default:
		return wmLButtonDown, wmLButtonUp, mkLButton
	}
}

func mouseLParam(x, y int) uintptr {
	return uintptr(uint32(y)<<16 | uint32(x)&0xFFFF)
}

func postMessage(hwnd, msg, wparam, lparam uintptr) error {
	ret, _, err := procPostMessageW.Call(hwnd, msg, wparam, lparam)
	if ret == 0 {
		return fmt.Errorf("PostMessageW(0x%04X): %w", msg, err)
	}
	return nil
}

func moveCursorTo(hwnd uintptr, x, y int) {
	pt := winPoint{X: int32(x), Y: int32(y)}
	procClientToScreen.Call(hwnd, uintptr(unsafe.Pointer(&pt)))
	procSetCursorPos.Call(uintptr(pt.X), uintptr(pt.Y))
}

func platformMouseDown(hwnd uintptr, method MouseMethod, x, y, button int) error {
	if method == MousePostMessageWithCursorPos || method == MouseSeize {
		moveCursorTo(hwnd, x, y)
	}
	down, _, mask := mouseMessages(button)
	return postMessage(hwnd, down, mask, mouseLParam(x, y))
}

func platformMouseUp(hwnd uintptr, method MouseMethod, x, y, button int) error {
	if method == MousePostMessageWithCursorPos || method == MouseSeize {
		moveCursorTo(hwnd, x, y)
	}
	_, up, _ := mouseMessages(button)
	return postMessage(hwnd, up, 0, mouseLParam(x, y))
}

func platformDrag(hwnd uintptr, method MouseMethod, x1, y1, x2, y2, durationMs int) error {
	if err := platformMouseDown(hwnd, method, x1, y1, 0); err != nil {
		return err
	}
	const steps = 20
	stepDelay := time.Duration(durationMs/steps) * time.Millisecond
	for i := 1; i <= steps; i++ {
		x := x1 + (x2-x1)*i/steps
		y := y1 + (y2-y1)*i/steps
		if err := postMessage(hwnd, wmMouseMove, mkLButton, mouseLParam(x, y)); err != nil {
			return err
		}
		time.Sleep(stepDelay)
	}
	return platformMouseUp(hwnd, method, x2, y2, 0)
}

func platformInputText(hwnd uintptr, method KeyboardMethod, text string) error {
	for _, u := range syscall.StringToUTF16(text) {
		if u == 0 {
			break
		}
		if err := postMessage(hwnd, wmChar, uintptr(u), 0); err != nil {
			return err
		}
	}
	return nil
}

func platformKey(hwnd uintptr, method KeyboardMethod, key int, down bool) error {
	msg := uintptr(wmKeyDown)
	var lparam uintptr = 1
	if !down {
		msg = wmKeyUp
		lparam = 1 | 1<<30 | 1<<31
	}
	return postMessage(hwnd, msg, uintptr(key), lparam)
}

func platformScroll(hwnd uintptr, dx, dy int) error {
	if dy != 0 {
		wparam := uintptr(uint32(int16(dy))<<16) & 0xFFFF0000
		if err := postMessage(hwnd, wmMouseWheel, wparam, 0); err != nil {
			return err
		}
	}
	if dx != 0 {
		wparam := uintptr(uint32(int16(dx))<<16) & 0xFFFF0000
		if err := postMessage(hwnd, wmMouseHWheel, wparam, 0); err != nil {
			return err
		}
	}
	return nil
}
