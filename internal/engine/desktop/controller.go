package desktop

import (
	"context"

	"maamcp/internal/engine"
)

// Options selects the capture and input strategies for a window controller.
type Options struct {
	Screencap ScreencapMethod
	Mouse     MouseMethod
	Keyboard  KeyboardMethod
}

// DefaultOptions returns the documented default strategies.
func DefaultOptions() Options {
	return Options{
		Screencap: ScreencapFramePool,
		Mouse:     MousePostMessage,
		Keyboard:  KeyboardPostMessage,
	}
}

// FindWindows enumerates visible desktop windows. On non-Windows platforms
// the list is always empty.
func FindWindows(ctx context.Context) ([]engine.DesktopWindow, error) {
	return listWindows(ctx)
}

// Controller drives one desktop window through its own operation queue.
type Controller struct {
	win       engine.DesktopWindow
	opts      Options
	queue     *engine.OpQueue
	shortSide int

	// last pressed position per mouse button, for the up half of a press
	lastX, lastY int
}

// NewController creates a controller for win.
func NewController(win engine.DesktopWindow, opts Options) *Controller {
	return &Controller{
		win:   win,
		opts:  opts,
		queue: engine.NewOpQueue(16),
	}
}

// SetScreenshotTargetShortSide sets the capture downscale target.
func (c *Controller) SetScreenshotTargetShortSide(px int) {
	c.shortSide = px
}

// PostConnect verifies the window handle is still valid.
func (c *Controller) PostConnect() *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		if !platformWindowAlive(c.win.Handle) {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// PostScreencap captures the window contents.
func (c *Controller) PostScreencap() *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		img, err := platformCapture(c.win.Handle, c.opts.Screencap)
		if err != nil {
			return engine.Failure()
		}
		return engine.Success(engine.ScaleToShortSide(img, c.shortSide))
	})
}

// PostTouchDown presses the given mouse button at (x, y). Button 0 is left,
// 1 is right, 2 is middle.
func (c *Controller) PostTouchDown(x, y, button int) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		c.lastX, c.lastY = x, y
		if err := platformMouseDown(c.win.Handle, c.opts.Mouse, x, y, button); err != nil {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// PostTouchUp releases the given mouse button at the last pressed position.
func (c *Controller) PostTouchUp(button int) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		if err := platformMouseUp(c.win.Handle, c.opts.Mouse, c.lastX, c.lastY, button); err != nil {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// PostSwipe drags from (x1, y1) to (x2, y2) over durationMs.
func (c *Controller) PostSwipe(x1, y1, x2, y2, durationMs int) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		if err := platformDrag(c.win.Handle, c.opts.Mouse, x1, y1, x2, y2, durationMs); err != nil {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// PostInputText types text into the window.
func (c *Controller) PostInputText(text string) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		if err := platformInputText(c.win.Handle, c.opts.Keyboard, text); err != nil {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// PostKeyDown presses a virtual key.
func (c *Controller) PostKeyDown(key int) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		if err := platformKey(c.win.Handle, c.opts.Keyboard, key, true); err != nil {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// PostKeyUp releases a virtual key.
func (c *Controller) PostKeyUp(key int) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		if err := platformKey(c.win.Handle, c.opts.Keyboard, key, false); err != nil {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// PostScroll sends mouse wheel input. dy in multiples of 120 scrolls
// vertically; dx horizontally.
func (c *Controller) PostScroll(dx, dy int) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		if err := platformScroll(c.win.Handle, dx, dy); err != nil {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// Close stops the controller's queue.
func (c *Controller) Close() error {
	c.queue.Close()
	return nil
}

var _ engine.Controller = (*Controller)(nil)
