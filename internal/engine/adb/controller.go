package adb

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strconv"

	"maamcp/internal/engine"
)

// Controller drives one ADB device. All operations run on the controller's
// own queue, so they execute in post order and never contend with other
// controllers.
type Controller struct {
	runner    *Runner
	device    engine.AdbDevice
	queue     *engine.OpQueue
	shortSide int
}

// NewController creates a controller for dev. The connection is not
// established until PostConnect resolves successfully.
func NewController(runner *Runner, dev engine.AdbDevice) *Controller {
	return &Controller{
		runner: runner,
		device: dev,
		queue:  engine.NewOpQueue(16),
	}
}

// Serial returns the device serial this controller is bound to.
func (c *Controller) Serial() string {
	return c.device.Serial
}

// SetScreenshotTargetShortSide sets the capture downscale target.
func (c *Controller) SetScreenshotTargetShortSide(px int) {
	c.shortSide = px
}

// PostConnect verifies the device is reachable.
func (c *Controller) PostConnect() *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		out, err := c.runner.RunShell(context.Background(), c.device.Serial, "echo", "ok")
		if err != nil || !bytes.Contains(out, []byte("ok")) {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// PostScreencap captures the screen as a PNG via exec-out and decodes it.
func (c *Controller) PostScreencap() *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		out, err := c.runner.Run(context.Background(), "-s", c.device.Serial, "exec-out", "screencap", "-p")
		if err != nil {
			return engine.Failure()
		}
		img, err := png.Decode(bytes.NewReader(out))
		if err != nil {
			return engine.Failure()
		}
		return engine.Success(engine.ScaleToShortSide(img, c.shortSide))
	})
}

// PostTouchDown presses down at (x, y). The contact argument selects the
// finger slot; adb input exposes only a single pointer stream, so non-zero
// contacts share it.
func (c *Controller) PostTouchDown(x, y, contact int) *engine.Pending {
	return c.shell("input", "motionevent", "DOWN", strconv.Itoa(x), strconv.Itoa(y))
}

// PostTouchUp lifts the pointer.
func (c *Controller) PostTouchUp(contact int) *engine.Pending {
	return c.shell("input", "motionevent", "UP", "0", "0")
}

// PostSwipe swipes from (x1, y1) to (x2, y2) over durationMs.
func (c *Controller) PostSwipe(x1, y1, x2, y2, durationMs int) *engine.Pending {
	return c.shell("input", "swipe",
		strconv.Itoa(x1), strconv.Itoa(y1),
		strconv.Itoa(x2), strconv.Itoa(y2),
		strconv.Itoa(durationMs))
}

// PostInputText types text on the device.
func (c *Controller) PostInputText(text string) *engine.Pending {
	return c.shell("input", "text", escapeShellText(text))
}

// PostKeyDown sends a key event. adb input has no separate down/up phases,
// so the keyevent fires on down and up resolves as a no-op.
func (c *Controller) PostKeyDown(key int) *engine.Pending {
	return c.shell("input", "keyevent", strconv.Itoa(key))
}

// PostKeyUp completes a key press started by PostKeyDown.
func (c *Controller) PostKeyUp(key int) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		return engine.Success(nil)
	})
}

// PostScroll is not supported on ADB targets; the outcome is always failure.
func (c *Controller) PostScroll(dx, dy int) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		return engine.Failure()
	})
}

// Close stops the controller's queue.
func (c *Controller) Close() error {
	c.queue.Close()
	return nil
}

func (c *Controller) shell(args ...string) *engine.Pending {
	return c.queue.Post(func() engine.Outcome {
		if _, err := c.runner.RunShell(context.Background(), c.device.Serial, args...); err != nil {
			return engine.Failure()
		}
		return engine.Success(nil)
	})
}

// escapeShellText quotes text for "input text". Spaces must be encoded as
// %s and the whole argument single-quoted to survive the device shell.
func escapeShellText(text string) string {
	var b bytes.Buffer
	b.WriteByte('\'')
	for _, r := range text {
		switch r {
		case ' ':
			b.WriteString("%s")
		case '\'':
			b.WriteString(`'\''`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

var _ engine.Controller = (*Controller)(nil)

// String implements fmt.Stringer for logging.
func (c *Controller) String() string {
	return fmt.Sprintf("adb(%s)", c.device.Serial)
}
