package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPipeline = `{"OpenSettings":{"recognition":"OCR","expected":"Settings","action":"Click","next":["EnterDisplay"]}}`

func TestSaveRejectsInvalidJSON(t *testing.T) {
	res := Save(`{"broken":`, SaveOptions{DataDir: t.TempDir()})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "not valid JSON")
}

func TestSaveRejectsNonObject(t *testing.T) {
	for _, doc := range []string{`[1, 2]`, `"node"`, `42`} {
		res := Save(doc, SaveOptions{DataDir: t.TempDir()})
		assert.False(t, res.OK, "doc %s accepted", doc)
		assert.Contains(t, res.Error, "object")
	}
}

func TestSaveRejectsEmptyObject(t *testing.T) {
	res := Save(`{}`, SaveOptions{DataDir: t.TempDir()})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "at least one node")
}

func TestSaveToDefaultLocation(t *testing.T) {
	dataDir := t.TempDir()
	res := Save(validPipeline, SaveOptions{Name: "open settings", DataDir: dataDir})
	require.True(t, res.OK, "Save failed: %s", res.Error)
	require.True(t, filepath.IsAbs(res.Path))
	assert.Contains(t, res.Path, filepath.Join(dataDir, "pipelines"))
	assert.Contains(t, filepath.Base(res.Path), "open settings_")

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "OpenSettings")
	assert.True(t, strings.Contains(string(data), "\n  "), "output is not indented")
}

func TestSaveToExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "my.json")
	res := Save(validPipeline, SaveOptions{OutputPath: path, Overwrite: true})
	require.True(t, res.OK, "Save failed: %s", res.Error)
	assert.Equal(t, path, res.Path)
}

func TestSaveToExplicitDirectory(t *testing.T) {
	dir := t.TempDir()
	res := Save(validPipeline, SaveOptions{OutputPath: dir, Name: "flow"})
	require.True(t, res.OK, "Save failed: %s", res.Error)
	assert.Equal(t, dir, filepath.Dir(res.Path))
	assert.True(t, strings.HasPrefix(filepath.Base(res.Path), "flow_"))
}

func TestSaveOverwriteRefused(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	res := Save(validPipeline, SaveOptions{OutputPath: path, Overwrite: false})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "already exists")

	res = Save(validPipeline, SaveOptions{OutputPath: path, Overwrite: true})
	assert.True(t, res.OK, "overwrite save failed: %s", res.Error)
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"open settings", "open settings"},
		{"a/b\\c:d", "abcd"},
		{"  spaced  ", "spaced"},
		{"", "pipeline"},
		{"///", "pipeline"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeName(tt.in), "sanitizeName(%q)", tt.in)
	}
}

func TestProtocolDocumentationCoversCoreSections(t *testing.T) {
	for _, section := range []string{"DirectHit", "OCR", "TemplateMatch", "Click", "Swipe", "InputText", "next"} {
		assert.Contains(t, ProtocolDocumentation, section)
	}
}
