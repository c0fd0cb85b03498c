// Package local assembles the concrete automation engine: ADB device
// control, desktop window control, resource bundles, and recognition.
package local

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"maamcp/internal/engine"
	"maamcp/internal/engine/adb"
	"maamcp/internal/engine/desktop"
)

// Engine implements engine.Engine against the local host.
type Engine struct {
	runner     *adb.Runner
	recognizer engine.Recognizer
	logger     *zap.Logger
}

// New creates an engine using the given adb binary and recognizer. The
// recognizer may be nil; tasker binds will then fail until one is set.
func New(adbPath string, recognizer engine.Recognizer, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		runner:     adb.NewRunner(adbPath),
		recognizer: recognizer,
		logger:     logger,
	}
}

// FindAdbDevices scans for connected ADB devices.
func (e *Engine) FindAdbDevices(ctx context.Context) ([]engine.AdbDevice, error) {
	devices, err := adb.FindDevices(ctx, e.runner)
	if err != nil {
		return nil, fmt.Errorf("find adb devices: %w", err)
	}
	e.logger.Debug("adb scan complete", zap.Int("devices", len(devices)))
	return devices, nil
}

// FindDesktopWindows scans for visible desktop windows.
func (e *Engine) FindDesktopWindows(ctx context.Context) ([]engine.DesktopWindow, error) {
	windows, err := desktop.FindWindows(ctx)
	if err != nil {
		return nil, fmt.Errorf("find desktop windows: %w", err)
	}
	e.logger.Debug("window scan complete", zap.Int("windows", len(windows)))
	return windows, nil
}

// NewAdbController creates a controller for the given device descriptor.
func (e *Engine) NewAdbController(dev engine.AdbDevice) engine.Controller {
	runner := e.runner
	if dev.AdbPath != "" && dev.AdbPath != runner.Path() {
		runner = adb.NewRunner(dev.AdbPath)
	}
	return adb.NewController(runner, dev)
}

// NewWindowController creates a controller for the given window descriptor.
func (e *Engine) NewWindowController(win engine.DesktopWindow, opts engine.WindowOptions) engine.Controller {
	return desktop.NewController(win, desktop.Options{
		Screencap: desktop.ScreencapMethod(opts.ScreencapMethod),
		Mouse:     desktop.MouseMethod(opts.MouseMethod),
		Keyboard:  desktop.KeyboardMethod(opts.KeyboardMethod),
	})
}

// NewResource creates an unloaded resource bundle.
func (e *Engine) NewResource() engine.Resource {
	return &Resource{}
}

// BindTasker pairs a controller with a loaded resource.
func (e *Engine) BindTasker(c engine.Controller, r engine.Resource) (engine.Tasker, error) {
	if c == nil || r == nil {
		return nil, fmt.Errorf("bind tasker: controller and resource required")
	}
	if r.Path() == "" {
		return nil, fmt.Errorf("bind tasker: resource bundle not loaded")
	}
	if e.recognizer == nil {
		return nil, fmt.Errorf("bind tasker: no recognizer configured")
	}
	return &Tasker{
		controller: c,
		resource:   r,
		recognizer: e.recognizer,
	}, nil
}

var _ engine.Engine = (*Engine)(nil)
