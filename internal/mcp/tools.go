package mcp

import (
	"context"
	"encoding/json"

	"maamcp/internal/dispatch"
	"maamcp/internal/pipeline"
)

// ocrEntry is the wire shape of one recognition hit.
type ocrEntry struct {
	Text  string  `json:"text"`
	Box   [4]int  `json:"box"`
	Score float64 `json:"score"`
}

// RegisterAutomationTools binds the full automation surface to the server.
// Pipeline saves land under dataDir when the caller gives no explicit path.
func RegisterAutomationTools(s *Server, d *dispatch.Dispatcher, dataDir string) {
	s.RegisterTool(Tool{
		Name:        "find_adb_device_list",
		Description: "List connected ADB devices by name. Run before connect_adb_device.",
		InputSchema: objectSchema(nil, nil),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return d.FindAdbDevices(ctx), nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "find_window_list",
		Description: "List visible desktop windows by title. Run before connect_window.",
		InputSchema: objectSchema(nil, nil),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return d.FindWindows(ctx), nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "wait",
		Description: "Block for the given number of seconds, capped at 60 per call.",
		InputSchema: objectSchema(map[string]propSpec{
			"seconds": {Type: "number", Description: "Seconds to wait"},
		}, []string{"seconds"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return d.WaitSeconds(floatArg(args, "seconds", 0)), nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "connect_adb_device",
		Description: "Connect to a discovered ADB device and return its controller handle, or null on failure.",
		InputSchema: objectSchema(map[string]propSpec{
			"device_name": {Type: "string", Description: "Name from find_adb_device_list"},
		}, []string{"device_name"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			handle, ok := d.ConnectAdbDevice(stringArg(args, "device_name", ""))
			if !ok {
				return nil, nil
			}
			return handle, nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "connect_window",
		Description: "Connect to a discovered desktop window and return its controller handle, or null on failure.",
		InputSchema: objectSchema(map[string]propSpec{
			"window_name":      {Type: "string", Description: "Title from find_window_list"},
			"screencap_method": {Type: "string", Description: "Capture strategy, default FramePool"},
			"mouse_method":     {Type: "string", Description: "Mouse strategy, default PostMessage"},
			"keyboard_method":  {Type: "string", Description: "Keyboard strategy, default PostMessage"},
		}, []string{"window_name"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			handle, ok := d.ConnectWindow(
				stringArg(args, "window_name", ""),
				stringArg(args, "screencap_method", "FramePool"),
				stringArg(args, "mouse_method", "PostMessage"),
				stringArg(args, "keyboard_method", "PostMessage"),
			)
			if !ok {
				return nil, nil
			}
			return handle, nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "load_resource",
		Description: "Load a recognition asset bundle from a directory and return its resource handle, or null on failure.",
		InputSchema: objectSchema(map[string]propSpec{
			"path": {Type: "string", Description: "Bundle directory path"},
		}, []string{"path"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			handle, ok := d.LoadResource(stringArg(args, "path", ""))
			if !ok {
				return nil, nil
			}
			return handle, nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "ocr",
		Description: "Capture the current frame and run text recognition. Returns recognized text with boxes and scores, or null on failure.",
		InputSchema: objectSchema(map[string]propSpec{
			"controller_id": {Type: "string", Description: "Controller handle"},
			"resource_id":   {Type: "string", Description: "Resource handle"},
		}, []string{"controller_id", "resource_id"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			results, ok := d.OCR(
				stringArg(args, "controller_id", ""),
				stringArg(args, "resource_id", ""),
			)
			if !ok {
				return nil, nil
			}
			entries := make([]ocrEntry, 0, len(results))
			for _, r := range results {
				entries = append(entries, ocrEntry{Text: r.Text, Box: r.Box, Score: r.Score})
			}
			return entries, nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "screencap",
		Description: "Capture the current frame to a scratch PNG and return its absolute path, or null on failure.",
		InputSchema: objectSchema(map[string]propSpec{
			"controller_id": {Type: "string", Description: "Controller handle"},
		}, []string{"controller_id"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			path, ok := d.Screencap(stringArg(args, "controller_id", ""))
			if !ok {
				return nil, nil
			}
			return path, nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "click",
		Description: "Click at (x, y). Returns true on success.",
		InputSchema: objectSchema(map[string]propSpec{
			"controller_id": {Type: "string", Description: "Controller handle"},
			"x":             {Type: "integer", Description: "X coordinate"},
			"y":             {Type: "integer", Description: "Y coordinate"},
			"button":        {Type: "integer", Description: "Button or contact id, default 0"},
			"duration":      {Type: "integer", Description: "Hold time in ms, default 50"},
		}, []string{"controller_id", "x", "y"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return d.Click(
				stringArg(args, "controller_id", ""),
				intArg(args, "x", 0),
				intArg(args, "y", 0),
				intArg(args, "button", 0),
				intArg(args, "duration", 50),
			), nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "double_click",
		Description: "Double-click at (x, y). Returns true on success.",
		InputSchema: objectSchema(map[string]propSpec{
			"controller_id": {Type: "string", Description: "Controller handle"},
			"x":             {Type: "integer", Description: "X coordinate"},
			"y":             {Type: "integer", Description: "Y coordinate"},
			"button":        {Type: "integer", Description: "Button or contact id, default 0"},
			"duration":      {Type: "integer", Description: "Hold time per press in ms, default 50"},
			"interval":      {Type: "integer", Description: "Gap between presses in ms, default 100"},
		}, []string{"controller_id", "x", "y"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return d.DoubleClick(
				stringArg(args, "controller_id", ""),
				intArg(args, "x", 0),
				intArg(args, "y", 0),
				intArg(args, "button", 0),
				intArg(args, "duration", 50),
				intArg(args, "interval", 100),
			), nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "swipe",
		Description: "Swipe from (x1, y1) to (x2, y2). Returns true on success.",
		InputSchema: objectSchema(map[string]propSpec{
			"controller_id": {Type: "string", Description: "Controller handle"},
			"x1":            {Type: "integer", Description: "Start X"},
			"y1":            {Type: "integer", Description: "Start Y"},
			"x2":            {Type: "integer", Description: "End X"},
			"y2":            {Type: "integer", Description: "End Y"},
			"duration":      {Type: "integer", Description: "Gesture time in ms, default 200"},
		}, []string{"controller_id", "x1", "y1", "x2", "y2"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return d.Swipe(
				stringArg(args, "controller_id", ""),
				intArg(args, "x1", 0),
				intArg(args, "y1", 0),
				intArg(args, "x2", 0),
				intArg(args, "y2", 0),
				intArg(args, "duration", 200),
			), nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "input_text",
		Description: "Type text on the target. Returns true on success.",
		InputSchema: objectSchema(map[string]propSpec{
			"controller_id": {Type: "string", Description: "Controller handle"},
			"text":          {Type: "string", Description: "Text to type"},
		}, []string{"controller_id", "text"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return d.InputText(
				stringArg(args, "controller_id", ""),
				stringArg(args, "text", ""),
			), nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "click_key",
		Description: "Press and release a key by code. Returns true on success.",
		InputSchema: objectSchema(map[string]propSpec{
			"controller_id": {Type: "string", Description: "Controller handle"},
			"key":           {Type: "integer", Description: "Key code"},
			"duration":      {Type: "integer", Description: "Hold time in ms, default 50"},
		}, []string{"controller_id", "key"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return d.ClickKey(
				stringArg(args, "controller_id", ""),
				intArg(args, "key", 0),
				intArg(args, "duration", 50),
			), nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "scroll",
		Description: "Send mouse wheel input. Window controllers only. Returns true on success.",
		InputSchema: objectSchema(map[string]propSpec{
			"controller_id": {Type: "string", Description: "Controller handle"},
			"dx":            {Type: "integer", Description: "Horizontal wheel delta"},
			"dy":            {Type: "integer", Description: "Vertical wheel delta"},
		}, []string{"controller_id"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return d.Scroll(
				stringArg(args, "controller_id", ""),
				intArg(args, "dx", 0),
				intArg(args, "dy", 0),
			), nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "get_pipeline_protocol",
		Description: "Return the pipeline document protocol reference. Read before save_pipeline.",
		InputSchema: objectSchema(nil, nil),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return pipeline.ProtocolDocumentation, nil
		},
	})

	s.RegisterTool(Tool{
		Name:        "save_pipeline",
		Description: "Validate a pipeline JSON document and save it to disk. Returns the saved path or an error message.",
		InputSchema: objectSchema(map[string]propSpec{
			"pipeline_json": {Type: "string", Description: "Pipeline document as a JSON string"},
			"output_path":   {Type: "string", Description: "Target file or directory, optional"},
			"name":          {Type: "string", Description: "Base name for a generated filename, optional"},
			"overwrite":     {Type: "boolean", Description: "Replace an existing file, default true"},
		}, []string{"pipeline_json"}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return pipeline.Save(stringArg(args, "pipeline_json", ""), pipeline.SaveOptions{
				OutputPath: stringArg(args, "output_path", ""),
				Name:       stringArg(args, "name", ""),
				Overwrite:  boolArg(args, "overwrite", true),
				DataDir:    dataDir,
			}), nil
		},
	})
}

type propSpec struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

func objectSchema(props map[string]propSpec, required []string) json.RawMessage {
	if props == nil {
		props = map[string]propSpec{}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	data, _ := json.Marshal(schema)
	return data
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return fallback
}

// intArg reads a numeric argument. JSON numbers decode as float64, but
// clients that send proper integers are accepted as well.
func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return fallback
}

func floatArg(args map[string]any, key string, fallback float64) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return fallback
}

func boolArg(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}
