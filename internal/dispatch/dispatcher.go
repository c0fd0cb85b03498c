// Package dispatch implements the public operation surface of the control
// plane: discovery, connection, resource loading, recognition, and input.
// Every operation validates its handles against the registry, drives the
// engine through the post/wait bridge, and reports failure through its
// return value only.
package dispatch

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"maamcp/internal/capture"
	"maamcp/internal/engine"
	"maamcp/internal/registry"
	"maamcp/internal/session"
)

const (
	// Downscale targets for captured frames. Phone text is large, so ADB
	// targets get 720p; desktop windows keep more detail at 1080p.
	adbShortSide    = 720
	windowShortSide = 1080

	// MaxWaitSeconds caps a single wait call so a long external wait cannot
	// starve the caller; the caller re-issues to continue waiting.
	MaxWaitSeconds = 60.0
)

// Dispatcher is the command surface bound to one registry, composer and
// engine. It holds no per-call state and is safe for concurrent use.
type Dispatcher struct {
	reg      *registry.Registry
	composer *session.Composer
	eng      engine.Engine
	captures *capture.Store
	logger   *zap.Logger

	// gestures holds one mutex per controller handle so a compound
	// gesture's atomic steps never interleave with another caller's
	// gesture on the same controller.
	gestures sync.Map

	sleep func(time.Duration)
}

// New creates a dispatcher.
func New(reg *registry.Registry, composer *session.Composer, eng engine.Engine, captures *capture.Store, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		reg:      reg,
		composer: composer,
		eng:      eng,
		captures: captures,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// FindAdbDevices scans for ADB devices, registers each descriptor under its
// name, and returns the names.
func (d *Dispatcher) FindAdbDevices(ctx context.Context) []string {
	devices, err := d.eng.FindAdbDevices(ctx)
	if err != nil {
		d.logger.Warn("adb device scan failed", zap.Error(err))
		return []string{}
	}
	names := make([]string, 0, len(devices))
	for _, dev := range devices {
		d.reg.RegisterByName(dev.Name, dev)
		names = append(names, dev.Name)
	}
	return names
}

// FindWindows scans for desktop windows, registers each descriptor under
// its window name, and returns the non-empty names.
func (d *Dispatcher) FindWindows(ctx context.Context) []string {
	windows, err := d.eng.FindDesktopWindows(ctx)
	if err != nil {
		d.logger.Warn("window scan failed", zap.Error(err))
		return []string{}
	}
	names := make([]string, 0, len(windows))
	for _, win := range windows {
		if win.WindowName == "" {
			continue
		}
		d.reg.RegisterByName(win.WindowName, win)
		names = append(names, win.WindowName)
	}
	return names
}

// ConnectAdbDevice connects to a previously discovered device and returns
// the controller handle. The second return value is false when the device
// name is unknown or the connection fails.
func (d *Dispatcher) ConnectAdbDevice(deviceName string) (string, bool) {
	obj, ok := d.reg.Get(deviceName)
	if !ok {
		return "", false
	}
	dev, ok := obj.(engine.AdbDevice)
	if !ok {
		return "", false
	}

	controller := d.eng.NewAdbController(dev)
	controller.SetScreenshotTargetShortSide(adbShortSide)
	if !controller.PostConnect().Wait().Succeeded {
		d.logger.Warn("adb connect failed", zap.String("device", deviceName))
		controller.Close()
		return "", false
	}

	handle := d.reg.Register(controller)
	d.logger.Info("adb device connected",
		zap.String("device", deviceName),
		zap.String("controller", handle))
	return handle, true
}

// ConnectWindow connects to a previously discovered window using the named
// screencap/mouse/keyboard strategies. Unrecognized strategy names fall
// back to the documented defaults.
func (d *Dispatcher) ConnectWindow(windowName, screencapMethod, mouseMethod, keyboardMethod string) (string, bool) {
	obj, ok := d.reg.Get(windowName)
	if !ok {
		return "", false
	}
	win, ok := obj.(engine.DesktopWindow)
	if !ok {
		return "", false
	}

	opts := parseWindowOptions(screencapMethod, mouseMethod, keyboardMethod)
	controller := d.eng.NewWindowController(win, opts)
	controller.SetScreenshotTargetShortSide(windowShortSide)
	if !controller.PostConnect().Wait().Succeeded {
		d.logger.Warn("window connect failed", zap.String("window", windowName))
		controller.Close()
		return "", false
	}

	handle := d.reg.Register(controller)
	d.logger.Info("window connected",
		zap.String("window", windowName),
		zap.String("controller", handle))
	return handle, true
}

// LoadResource loads a recognition asset bundle and returns its handle. A
// missing path returns absent without touching the registry.
func (d *Dispatcher) LoadResource(path string) (string, bool) {
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	resource := d.eng.NewResource()
	if !resource.PostBundle(path).Wait().Succeeded {
		d.logger.Warn("resource load failed", zap.String("path", path))
		return "", false
	}
	handle := d.reg.Register(resource)
	d.logger.Info("resource loaded", zap.String("path", path), zap.String("resource", handle))
	return handle, true
}

// OCR captures a frame from the controller and runs recognition against it
// using the tasker for the (controller, resource) pair. Any failure at
// capture, bind, or recognition collapses to absent.
func (d *Dispatcher) OCR(controllerID, resourceID string) ([]engine.RecognitionResult, bool) {
	controller, err := d.controller(controllerID)
	if err != nil {
		return nil, false
	}

	taskerHandle, ok := d.composer.GetOrCreateTasker(controllerID, resourceID)
	if !ok {
		return nil, false
	}
	obj, ok := d.reg.Get(taskerHandle)
	if !ok {
		return nil, false
	}
	tasker, ok := obj.(engine.Tasker)
	if !ok {
		return nil, false
	}

	frame, err := d.captureFrame(controller)
	if err != nil {
		return nil, false
	}
	outcome := tasker.PostRecognition(frame).Wait()
	if !outcome.Succeeded {
		return nil, false
	}
	results, ok := outcome.Value.([]engine.RecognitionResult)
	if !ok {
		return nil, false
	}
	return results, true
}

// Screencap captures a frame and writes it to the scratch directory,
// returning the absolute file path.
func (d *Dispatcher) Screencap(controllerID string) (string, bool) {
	controller, err := d.controller(controllerID)
	if err != nil {
		return "", false
	}
	frame, err := d.captureFrame(controller)
	if err != nil {
		return "", false
	}
	path, err := d.captures.Save(frame)
	if err != nil {
		d.logger.Warn("capture save failed", zap.Error(err))
		return "", false
	}
	return path, true
}

// Click presses down at (x, y), holds for durationMs, and releases. A
// failed down-step aborts without issuing the up-step.
func (d *Dispatcher) Click(controllerID string, x, y, button, durationMs int) bool {
	controller, err := d.controller(controllerID)
	if err != nil {
		return false
	}
	mu := d.gesture(controllerID)
	mu.Lock()
	defer mu.Unlock()
	return d.press(controller, x, y, button, durationMs) == nil
}

// DoubleClick performs two presses separated by intervalMs. Every one of
// the four atomic steps is validated before the next is issued.
func (d *Dispatcher) DoubleClick(controllerID string, x, y, button, durationMs, intervalMs int) bool {
	controller, err := d.controller(controllerID)
	if err != nil {
		return false
	}
	mu := d.gesture(controllerID)
	mu.Lock()
	defer mu.Unlock()
	if err := d.press(controller, x, y, button, durationMs); err != nil {
		return false
	}
	d.sleep(time.Duration(intervalMs) * time.Millisecond)
	return d.press(controller, x, y, button, durationMs) == nil
}

// Swipe performs a gesture from (x1, y1) to (x2, y2) over durationMs.
func (d *Dispatcher) Swipe(controllerID string, x1, y1, x2, y2, durationMs int) bool {
	controller, err := d.controller(controllerID)
	if err != nil {
		return false
	}
	return controller.PostSwipe(x1, y1, x2, y2, durationMs).Wait().Succeeded
}

// InputText types text on the target.
func (d *Dispatcher) InputText(controllerID, text string) bool {
	controller, err := d.controller(controllerID)
	if err != nil {
		return false
	}
	return controller.PostInputText(text).Wait().Succeeded
}

// ClickKey presses a key, holds for durationMs, and releases. A failed
// down-step aborts without issuing the up-step.
func (d *Dispatcher) ClickKey(controllerID string, key, durationMs int) bool {
	controller, err := d.controller(controllerID)
	if err != nil {
		return false
	}
	mu := d.gesture(controllerID)
	mu.Lock()
	defer mu.Unlock()
	if !controller.PostKeyDown(key).Wait().Succeeded {
		return false
	}
	d.sleep(time.Duration(durationMs) * time.Millisecond)
	return controller.PostKeyUp(key).Wait().Succeeded
}

// Scroll sends wheel input. Only window controllers support it.
func (d *Dispatcher) Scroll(controllerID string, dx, dy int) bool {
	controller, err := d.controller(controllerID)
	if err != nil {
		return false
	}
	return controller.PostScroll(dx, dy).Wait().Succeeded
}

// WaitSeconds blocks for the requested time, capped at MaxWaitSeconds per
// call, and describes what it did so the caller knows whether to re-issue.
func (d *Dispatcher) WaitSeconds(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds > MaxWaitSeconds {
		d.sleep(time.Duration(MaxWaitSeconds * float64(time.Second)))
		return fmt.Sprintf("waited %.0f seconds (per-call maximum); call wait again to continue waiting", MaxWaitSeconds)
	}
	d.sleep(time.Duration(seconds * float64(time.Second)))
	return fmt.Sprintf("waited %g seconds", seconds)
}

// Cleanup removes all scratch captures. Called on orderly shutdown.
func (d *Dispatcher) Cleanup() error {
	return d.captures.Cleanup()
}

// press runs one down/hold/up cycle. The down outcome is validated before
// the hold, and a failed down never issues the up: no compensating touch-up
// is attempted.
func (d *Dispatcher) press(controller engine.Controller, x, y, button, durationMs int) error {
	if !controller.PostTouchDown(x, y, button).Wait().Succeeded {
		return errEngineFailure
	}
	d.sleep(time.Duration(durationMs) * time.Millisecond)
	if !controller.PostTouchUp(button).Wait().Succeeded {
		return errEngineFailure
	}
	return nil
}

// gesture returns the mutex serializing compound input on one controller.
func (d *Dispatcher) gesture(handle string) *sync.Mutex {
	mu, _ := d.gestures.LoadOrStore(handle, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (d *Dispatcher) controller(handle string) (engine.Controller, error) {
	obj, ok := d.reg.Get(handle)
	if !ok {
		return nil, errUnknownHandle
	}
	controller, ok := obj.(engine.Controller)
	if !ok {
		return nil, errUnknownHandle
	}
	return controller, nil
}

func (d *Dispatcher) captureFrame(controller engine.Controller) (image.Image, error) {
	outcome := controller.PostScreencap().Wait()
	if !outcome.Succeeded {
		return nil, errEngineFailure
	}
	frame, ok := outcome.Value.(image.Image)
	if !ok || frame == nil {
		return nil, errEngineFailure
	}
	return frame, nil
}

func parseWindowOptions(screencapMethod, mouseMethod, keyboardMethod string) engine.WindowOptions {
	return engine.WindowOptions{
		ScreencapMethod: parseScreencap(screencapMethod),
		MouseMethod:     parseMouse(mouseMethod),
		KeyboardMethod:  parseKeyboard(keyboardMethod),
	}
}
