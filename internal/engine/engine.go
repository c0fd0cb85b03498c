// Package engine defines the automation engine boundary consumed by the
// control plane: controllers, resources, taskers, target discovery, and the
// two-phase post/wait primitive every device-facing operation follows.
package engine

import (
	"context"
	"image"
)

// AdbDevice describes a discovered ADB target with enough connection
// parameters to construct a controller for it.
type AdbDevice struct {
	Name    string `json:"name"`
	Serial  string `json:"serial"`
	AdbPath string `json:"adb_path"`
	Model   string `json:"model,omitempty"`
}

// DesktopWindow describes a discovered desktop window.
type DesktopWindow struct {
	Handle     uintptr `json:"handle"`
	WindowName string  `json:"window_name"`
	ClassName  string  `json:"class_name,omitempty"`
}

// RecognitionResult is one entry of a recognizer's structured output.
type RecognitionResult struct {
	Text  string  `json:"text"`
	Box   [4]int  `json:"box"` // x, y, w, h
	Score float64 `json:"score"`
}

// Controller is a live, connected automation endpoint for one device or one
// window. Every operation posts a job against the controller's own queue and
// returns immediately; the caller waits on the returned Pending to obtain
// the outcome. Operations on the same controller execute in post order.
type Controller interface {
	PostConnect() *Pending
	PostScreencap() *Pending // Outcome.Value is an image.Image
	PostTouchDown(x, y, contact int) *Pending
	PostTouchUp(contact int) *Pending
	PostSwipe(x1, y1, x2, y2, durationMs int) *Pending
	PostInputText(text string) *Pending
	PostKeyDown(key int) *Pending
	PostKeyUp(key int) *Pending
	PostScroll(dx, dy int) *Pending

	// SetScreenshotTargetShortSide asks the controller to scale captured
	// frames so the short side does not exceed px. Zero disables scaling.
	SetScreenshotTargetShortSide(px int)

	Close() error
}

// Resource is a loaded bundle of recognition assets. One resource may be
// paired with many controllers.
type Resource interface {
	// PostBundle loads the bundle rooted at path.
	PostBundle(path string) *Pending

	// Path returns the bundle root after a successful load.
	Path() string
}

// Tasker is the bound execution context for running recognition against one
// (controller, resource) pair.
type Tasker interface {
	// PostRecognition submits a frame; Outcome.Value is []RecognitionResult.
	PostRecognition(img image.Image) *Pending
}

// Recognizer performs the actual recognition work. The algorithm is an
// external collaborator; the engine only invokes it and waits.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]RecognitionResult, error)
}

// Engine is the full provider surface the control plane consumes: target
// discovery plus construction of controllers, resources and taskers.
type Engine interface {
	FindAdbDevices(ctx context.Context) ([]AdbDevice, error)
	FindDesktopWindows(ctx context.Context) ([]DesktopWindow, error)

	NewAdbController(dev AdbDevice) Controller
	NewWindowController(win DesktopWindow, opts WindowOptions) Controller
	NewResource() Resource

	// BindTasker pairs a controller with a loaded resource. Binding carries
	// non-trivial setup cost; callers are expected to memoize the result.
	BindTasker(c Controller, r Resource) (Tasker, error)
}

// WindowOptions selects the screencap and input strategies for a window
// controller. The concrete strategy enums live in the desktop provider;
// here they are carried as already-parsed numeric values.
type WindowOptions struct {
	ScreencapMethod uint64
	MouseMethod     uint64
	KeyboardMethod  uint64
}
