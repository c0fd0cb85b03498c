package dispatch

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"maamcp/internal/capture"
	"maamcp/internal/engine"
	"maamcp/internal/engine/desktop"
	"maamcp/internal/registry"
	"maamcp/internal/session"
)

// fakeController records every atomic step it is asked to perform and can
// be scripted to fail specific steps.
type fakeController struct {
	steps []string
	fail  map[string]bool
	frame image.Image
}

func newFakeController() *fakeController {
	return &fakeController{
		fail:  make(map[string]bool),
		frame: image.NewRGBA(image.Rect(0, 0, 4, 4)),
	}
}

func (c *fakeController) step(name string) *engine.Pending {
	c.steps = append(c.steps, name)
	if c.fail[name] {
		return engine.Resolved(engine.Failure())
	}
	return engine.Resolved(engine.Success(nil))
}

func (c *fakeController) PostConnect() *engine.Pending { return c.step("connect") }
func (c *fakeController) PostScreencap() *engine.Pending {
	c.steps = append(c.steps, "screencap")
	if c.fail["screencap"] {
		return engine.Resolved(engine.Failure())
	}
	return engine.Resolved(engine.Success(c.frame))
}
func (c *fakeController) PostTouchDown(x, y, contact int) *engine.Pending { return c.step("down") }
func (c *fakeController) PostTouchUp(contact int) *engine.Pending         { return c.step("up") }
func (c *fakeController) PostSwipe(x1, y1, x2, y2, durationMs int) *engine.Pending {
	return c.step("swipe")
}
func (c *fakeController) PostInputText(text string) *engine.Pending { return c.step("text") }
func (c *fakeController) PostKeyDown(key int) *engine.Pending       { return c.step("keydown") }
func (c *fakeController) PostKeyUp(key int) *engine.Pending         { return c.step("keyup") }
func (c *fakeController) PostScroll(dx, dy int) *engine.Pending     { return c.step("scroll") }
func (c *fakeController) SetScreenshotTargetShortSide(px int)       {}
func (c *fakeController) Close() error                              { return nil }

type fakeResource struct {
	path string
	fail bool
}

func (r *fakeResource) PostBundle(path string) *engine.Pending {
	if r.fail {
		return engine.Resolved(engine.Failure())
	}
	r.path = path
	return engine.Resolved(engine.Success(path))
}
func (r *fakeResource) Path() string { return r.path }

type fakeTasker struct {
	results []engine.RecognitionResult
	fail    bool
}

func (t *fakeTasker) PostRecognition(img image.Image) *engine.Pending {
	if t.fail {
		return engine.Resolved(engine.Failure())
	}
	return engine.Resolved(engine.Success(t.results))
}

type fakeEngine struct {
	devices    []engine.AdbDevice
	windows    []engine.DesktopWindow
	controller *fakeController
	resource   *fakeResource
	tasker     *fakeTasker
	binds      int
	bindFail   bool
	lastOpts   engine.WindowOptions
}

func (e *fakeEngine) FindAdbDevices(ctx context.Context) ([]engine.AdbDevice, error) {
	return e.devices, nil
}
func (e *fakeEngine) FindDesktopWindows(ctx context.Context) ([]engine.DesktopWindow, error) {
	return e.windows, nil
}
func (e *fakeEngine) NewAdbController(dev engine.AdbDevice) engine.Controller {
	return e.controller
}
func (e *fakeEngine) NewWindowController(win engine.DesktopWindow, opts engine.WindowOptions) engine.Controller {
	e.lastOpts = opts
	return e.controller
}
func (e *fakeEngine) NewResource() engine.Resource {
	return e.resource
}
func (e *fakeEngine) BindTasker(c engine.Controller, r engine.Resource) (engine.Tasker, error) {
	e.binds++
	if e.bindFail {
		return nil, fmt.Errorf("bind refused")
	}
	return e.tasker, nil
}

type fixture struct {
	reg  *registry.Registry
	eng  *fakeEngine
	disp *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	eng := &fakeEngine{
		devices: []engine.AdbDevice{
			{Name: "deviceA", Serial: "emulator-5554"},
			{Name: "deviceB", Serial: "emulator-5556"},
		},
		windows:    []engine.DesktopWindow{{Handle: 42, WindowName: "Notepad"}, {Handle: 43}},
		controller: newFakeController(),
		resource:   &fakeResource{},
		tasker:     &fakeTasker{results: []engine.RecognitionResult{{Text: "OK", Score: 0.9}}},
	}
	reg := registry.New()
	composer := session.NewComposer(reg, eng, nil)
	store := capture.NewStore(filepath.Join(t.TempDir(), "screenshots"))
	disp := New(reg, composer, eng, store, nil)
	disp.sleep = func(d time.Duration) {
		eng.controller.steps = append(eng.controller.steps, "sleep")
	}
	return &fixture{reg: reg, eng: eng, disp: disp}
}

// connect discovers devices and connects deviceA.
func (f *fixture) connect(t *testing.T) string {
	t.Helper()
	names := f.disp.FindAdbDevices(context.Background())
	if diff := cmp.Diff([]string{"deviceA", "deviceB"}, names); diff != "" {
		t.Fatalf("FindAdbDevices mismatch (-want +got):\n%s", diff)
	}
	handle, ok := f.disp.ConnectAdbDevice("deviceA")
	if !ok || handle == "" {
		t.Fatalf("ConnectAdbDevice(deviceA) = %q, %v", handle, ok)
	}
	f.eng.controller.steps = nil
	return handle
}

func TestDiscoverAndConnectScenario(t *testing.T) {
	f := newFixture(t)
	h1 := f.connect(t)
	if _, ok := f.reg.Get(h1); !ok {
		t.Fatal("controller handle does not resolve")
	}
	if handle, ok := f.disp.ConnectAdbDevice("missing"); ok || handle != "" {
		t.Fatalf("ConnectAdbDevice(missing) = %q, %v; want absent", handle, ok)
	}
}

func TestConnectFailureDoesNotRegister(t *testing.T) {
	f := newFixture(t)
	f.disp.FindAdbDevices(context.Background())
	before := f.reg.Len()
	f.eng.controller.fail["connect"] = true
	if _, ok := f.disp.ConnectAdbDevice("deviceA"); ok {
		t.Fatal("ConnectAdbDevice succeeded despite failed connect")
	}
	if f.reg.Len() != before {
		t.Fatal("failed connect left a controller in the registry")
	}
}

func TestFindWindowsSkipsUnnamed(t *testing.T) {
	f := newFixture(t)
	names := f.disp.FindWindows(context.Background())
	if diff := cmp.Diff([]string{"Notepad"}, names); diff != "" {
		t.Fatalf("FindWindows mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectWindowStrategyFallback(t *testing.T) {
	f := newFixture(t)
	f.disp.FindWindows(context.Background())

	if _, ok := f.disp.ConnectWindow("Notepad", "NoSuchCapture", "NoSuchMouse", "NoSuchKeyboard"); !ok {
		t.Fatal("ConnectWindow failed")
	}
	want := engine.WindowOptions{
		ScreencapMethod: uint64(desktop.ScreencapFramePool),
		MouseMethod:     uint64(desktop.MousePostMessage),
		KeyboardMethod:  uint64(desktop.KeyboardPostMessage),
	}
	if f.eng.lastOpts != want {
		t.Fatalf("window options = %+v, want defaults %+v", f.eng.lastOpts, want)
	}
}

func TestClickSequence(t *testing.T) {
	f := newFixture(t)
	h := f.connect(t)

	if !f.disp.Click(h, 100, 200, 0, 50) {
		t.Fatal("Click failed")
	}
	want := []string{"down", "sleep", "up"}
	if diff := cmp.Diff(want, f.eng.controller.steps); diff != "" {
		t.Fatalf("click steps mismatch (-want +got):\n%s", diff)
	}
}

func TestClickDownFailureShortCircuits(t *testing.T) {
	f := newFixture(t)
	h := f.connect(t)
	f.eng.controller.fail["down"] = true

	if f.disp.Click(h, 100, 200, 0, 50) {
		t.Fatal("Click reported success after failed down")
	}
	for _, s := range f.eng.controller.steps {
		if s == "up" {
			t.Fatalf("up issued after failed down: %v", f.eng.controller.steps)
		}
	}
}

func TestConcurrentClicksOnOneControllerDoNotInterleave(t *testing.T) {
	f := newFixture(t)
	h := f.connect(t)

	// Stretch the first click's hold until the second click has started,
	// then let both run to completion.
	firstHolding := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.disp.sleep = func(d time.Duration) {
		once.Do(func() {
			close(firstHolding)
			<-release
		})
	}

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		if !f.disp.Click(h, 1, 1, 0, 50) {
			t.Error("first Click failed")
		}
	}()
	<-firstHolding

	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		if !f.disp.Click(h, 2, 2, 0, 50) {
			t.Error("second Click failed")
		}
	}()

	time.Sleep(20 * time.Millisecond)
	close(release)
	<-firstDone
	<-secondDone

	want := []string{"down", "up", "down", "up"}
	if diff := cmp.Diff(want, f.eng.controller.steps); diff != "" {
		t.Fatalf("concurrent click steps mismatch (-want +got):\n%s", diff)
	}
}

func TestDoubleClickSequence(t *testing.T) {
	f := newFixture(t)
	h := f.connect(t)

	if !f.disp.DoubleClick(h, 100, 200, 0, 50, 100) {
		t.Fatal("DoubleClick failed")
	}
	var atomic []string
	for _, s := range f.eng.controller.steps {
		if s != "sleep" {
			atomic = append(atomic, s)
		}
	}
	if diff := cmp.Diff([]string{"down", "up", "down", "up"}, atomic); diff != "" {
		t.Fatalf("double-click atomic steps mismatch (-want +got):\n%s", diff)
	}
}

func TestDoubleClickAbortsOnFirstUpFailure(t *testing.T) {
	f := newFixture(t)
	h := f.connect(t)
	f.eng.controller.fail["up"] = true

	if f.disp.DoubleClick(h, 100, 200, 0, 50, 100) {
		t.Fatal("DoubleClick reported success after failed up")
	}
	downs := 0
	for _, s := range f.eng.controller.steps {
		if s == "down" {
			downs++
		}
	}
	if downs != 1 {
		t.Fatalf("second press issued after failed first press: %v", f.eng.controller.steps)
	}
}

func TestUnknownHandleSentinels(t *testing.T) {
	f := newFixture(t)

	if ok := f.disp.Click("nope", 1, 2, 0, 10); ok {
		t.Fatal("Click on unknown handle returned true")
	}
	if ok := f.disp.Swipe("nope", 0, 0, 1, 1, 100); ok {
		t.Fatal("Swipe on unknown handle returned true")
	}
	if ok := f.disp.InputText("nope", "hi"); ok {
		t.Fatal("InputText on unknown handle returned true")
	}
	if ok := f.disp.ClickKey("nope", 4, 50); ok {
		t.Fatal("ClickKey on unknown handle returned true")
	}
	if ok := f.disp.Scroll("nope", 0, 120); ok {
		t.Fatal("Scroll on unknown handle returned true")
	}
	if path, ok := f.disp.Screencap("nope"); ok || path != "" {
		t.Fatal("Screencap on unknown handle returned a path")
	}
	if results, ok := f.disp.OCR("nope", "also-nope"); ok || results != nil {
		t.Fatal("OCR on unknown handles returned results")
	}
	if len(f.eng.controller.steps) != 0 {
		t.Fatalf("engine was reached with unknown handles: %v", f.eng.controller.steps)
	}
}

func TestLoadResourceMissingPath(t *testing.T) {
	f := newFixture(t)
	before := f.reg.Len()
	if handle, ok := f.disp.LoadResource("/no/such/path"); ok || handle != "" {
		t.Fatalf("LoadResource = %q, %v; want absent", handle, ok)
	}
	if f.reg.Len() != before {
		t.Fatal("LoadResource touched the registry for a missing path")
	}
}

func TestLoadResource(t *testing.T) {
	f := newFixture(t)
	handle, ok := f.disp.LoadResource(t.TempDir())
	if !ok || handle == "" {
		t.Fatalf("LoadResource = %q, %v", handle, ok)
	}
	if _, ok := f.reg.Get(handle); !ok {
		t.Fatal("resource handle does not resolve")
	}
}

func TestOCRBindsOnceAcrossCalls(t *testing.T) {
	f := newFixture(t)
	h := f.connect(t)
	rid, ok := f.disp.LoadResource(t.TempDir())
	if !ok {
		t.Fatal("LoadResource failed")
	}

	for i := 0; i < 3; i++ {
		results, ok := f.disp.OCR(h, rid)
		if !ok || len(results) != 1 || results[0].Text != "OK" {
			t.Fatalf("OCR call %d = %v, %v", i, results, ok)
		}
	}
	if f.eng.binds != 1 {
		t.Fatalf("tasker bound %d times across OCR calls, want 1", f.eng.binds)
	}
}

func TestOCRCaptureFailure(t *testing.T) {
	f := newFixture(t)
	h := f.connect(t)
	rid, ok := f.disp.LoadResource(t.TempDir())
	if !ok {
		t.Fatal("LoadResource failed")
	}
	f.eng.controller.fail["screencap"] = true
	if results, ok := f.disp.OCR(h, rid); ok || results != nil {
		t.Fatal("OCR returned results despite capture failure")
	}
}

func TestOCRBindFailure(t *testing.T) {
	f := newFixture(t)
	h := f.connect(t)
	rid, ok := f.disp.LoadResource(t.TempDir())
	if !ok {
		t.Fatal("LoadResource failed")
	}
	f.eng.bindFail = true
	if _, ok := f.disp.OCR(h, rid); ok {
		t.Fatal("OCR succeeded despite bind failure")
	}
}

func TestScreencapAndCleanup(t *testing.T) {
	f := newFixture(t)
	h := f.connect(t)

	path, ok := f.disp.Screencap(h)
	if !ok || path == "" {
		t.Fatalf("Screencap = %q, %v", path, ok)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Fatalf("Screencap path %q is not a png", path)
	}
	if err := f.disp.Cleanup(); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
}

func TestWaitSecondsCapped(t *testing.T) {
	f := newFixture(t)
	var slept time.Duration
	f.disp.sleep = func(d time.Duration) { slept = d }

	msg := f.disp.WaitSeconds(120)
	if slept != 60*time.Second {
		t.Fatalf("slept %v for a 120s request, want 60s", slept)
	}
	if !strings.Contains(msg, "maximum") {
		t.Fatalf("capped wait message %q does not mention the cap", msg)
	}

	msg = f.disp.WaitSeconds(0.5)
	if slept != 500*time.Millisecond {
		t.Fatalf("slept %v for a 0.5s request", slept)
	}
	if !strings.Contains(msg, "0.5") {
		t.Fatalf("wait message %q does not echo the duration", msg)
	}
}
