package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"maamcp/internal/engine"
)

// CommandRecognizer shells out to an external OCR helper. The frame is
// written to a temporary PNG, the helper is invoked with its path as the
// last argument, and stdout is parsed as a JSON array of recognition
// results ({"text", "box", "score"}).
type CommandRecognizer struct {
	Binary  string
	Args    []string
	Timeout time.Duration
}

// NewCommandRecognizer creates a recognizer invoking the given command.
func NewCommandRecognizer(binary string, args ...string) *CommandRecognizer {
	return &CommandRecognizer{
		Binary:  binary,
		Args:    args,
		Timeout: 60 * time.Second,
	}
}

// Recognize runs the helper against img.
func (r *CommandRecognizer) Recognize(ctx context.Context, img image.Image) ([]engine.RecognitionResult, error) {
	if r.Binary == "" {
		return nil, fmt.Errorf("recognizer command not configured")
	}

	tmp, err := os.CreateTemp("", "maamcp-frame-*.png")
	if err != nil {
		return nil, fmt.Errorf("create frame file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := png.Encode(tmp, img); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close frame file: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	args := append(append([]string{}, r.Args...), filepath.Clean(tmpPath))
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("recognizer %s: %w (stderr: %s)", r.Binary, err, bytes.TrimSpace(stderr.Bytes()))
	}

	var results []engine.RecognitionResult
	if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
		return nil, fmt.Errorf("parse recognizer output: %w", err)
	}
	return results, nil
}

var _ engine.Recognizer = (*CommandRecognizer)(nil)
