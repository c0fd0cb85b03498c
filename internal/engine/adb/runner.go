// Package adb implements target discovery and controllers for Android
// devices reached through the adb binary.
package adb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	maxOutputBytes = 32 << 20 // screencap PNGs can be large
)

// Runner executes adb invocations on the host.
type Runner struct {
	adbPath string
	timeout time.Duration
}

// NewRunner creates a runner for the given adb binary path. An empty path
// falls back to "adb" on PATH.
func NewRunner(adbPath string) *Runner {
	if adbPath == "" {
		adbPath = "adb"
	}
	return &Runner{adbPath: adbPath, timeout: defaultTimeout}
}

// Path returns the adb binary path this runner uses.
func (r *Runner) Path() string {
	return r.adbPath
}

// Run executes adb with the given arguments and returns stdout.
func (r *Runner) Run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.adbPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("adb %v: %w", args, ctx.Err())
		}
		return nil, fmt.Errorf("adb %v: %w (stderr: %s)", args, err, bytes.TrimSpace(stderr.Bytes()))
	}
	out := stdout.Bytes()
	if len(out) > maxOutputBytes {
		return nil, fmt.Errorf("adb %v: output exceeds %d bytes", args, maxOutputBytes)
	}
	return out, nil
}

// RunShell executes "adb -s serial shell <args>".
func (r *Runner) RunShell(ctx context.Context, serial string, args ...string) ([]byte, error) {
	full := append([]string{"-s", serial, "shell"}, args...)
	return r.Run(ctx, full...)
}
