// Package pipeline reads and writes declarative automation-pipeline
// documents: a protocol reference for generators and a validated file save.
package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// SaveResult is the structured outcome of a save, marshalled to JSON for
// the tool response.
type SaveResult struct {
	OK    bool   `json:"ok"`
	Path  string `json:"path,omitempty"`
	Error string `json:"error,omitempty"`
}

// SaveOptions controls where a pipeline document lands.
type SaveOptions struct {
	// OutputPath is an explicit file or directory. Empty means the default
	// location under DataDir/pipelines.
	OutputPath string

	// Name seeds the generated filename when OutputPath is empty or a
	// directory.
	Name string

	// Overwrite permits replacing an existing file.
	Overwrite bool

	// DataDir is the root for the default pipelines directory.
	DataDir string
}

func failure(format string, args ...any) SaveResult {
	return SaveResult{Error: fmt.Sprintf(format, args...)}
}

// Save validates pipelineJSON and writes it, pretty-printed, to the
// resolved location. Validation requires a non-empty JSON object keyed by
// node name.
func Save(pipelineJSON string, opts SaveOptions) SaveResult {
	if !gjson.Valid(pipelineJSON) {
		return failure("pipeline JSON is not valid JSON")
	}
	doc := gjson.Parse(pipelineJSON)
	if !doc.IsObject() {
		return failure("pipeline JSON must be an object keyed by node name, not an array or primitive")
	}
	if len(doc.Map()) == 0 {
		return failure("pipeline JSON must contain at least one node")
	}

	path, err := resolvePath(opts)
	if err != nil {
		return failure("%v", err)
	}

	if _, err := os.Stat(path); err == nil && !opts.Overwrite {
		return failure("file already exists and overwrite is false: %s", path)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(pipelineJSON), "", "  "); err != nil {
		return failure("format pipeline JSON: %v", err)
	}
	pretty.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return failure("create output directory: %v", err)
	}
	if err := os.WriteFile(path, pretty.Bytes(), 0o644); err != nil {
		return failure("write pipeline file: %v", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return SaveResult{OK: true, Path: abs}
}

func resolvePath(opts SaveOptions) (string, error) {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.json", sanitizeName(opts.Name), timestamp)

	if opts.OutputPath != "" {
		info, err := os.Stat(opts.OutputPath)
		if err == nil && info.IsDir() {
			return filepath.Join(opts.OutputPath, filename), nil
		}
		return opts.OutputPath, nil
	}

	if opts.DataDir == "" {
		return "", fmt.Errorf("no output path and no data directory configured")
	}
	return filepath.Join(opts.DataDir, "pipelines", filename), nil
}

// sanitizeName strips characters unfit for filenames, caps the length, and
// falls back to "pipeline" when nothing usable remains.
func sanitizeName(name string) string {
	var b []rune
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b = append(b, r)
		case r == '.' || r == '_' || r == '-' || r == ' ':
			b = append(b, r)
		}
	}
	s := strings.Trim(string(b), " ")
	if len([]rune(s)) > 50 {
		s = string([]rune(s)[:50])
	}
	if s == "" {
		return "pipeline"
	}
	return s
}
