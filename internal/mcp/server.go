package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

const protocolVersion = "2024-11-05"

// Server serves MCP tool calls over newline-delimited JSON-RPC. Requests
// are handled one at a time in arrival order, matching the single-caller
// tool protocol.
type Server struct {
	name         string
	version      string
	instructions string

	in  io.Reader
	out io.Writer

	writeMu sync.Mutex
	tools   []Tool
	byName  map[string]Tool
	logger  *zap.Logger
}

// NewServer creates a server reading requests from in and writing
// responses to out. Diagnostics go to the logger only; out carries nothing
// but protocol frames.
func NewServer(name, version, instructions string, in io.Reader, out io.Writer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		name:         name,
		version:      version,
		instructions: instructions,
		in:           in,
		out:          out,
		byName:       make(map[string]Tool),
		logger:       logger,
	}
}

// RegisterTool adds a tool to the surface. Registering the same name twice
// replaces the earlier definition.
func (s *Server) RegisterTool(t Tool) {
	if _, exists := s.byName[t.Name]; !exists {
		s.tools = append(s.tools, t)
	} else {
		for i := range s.tools {
			if s.tools[i].Name == t.Name {
				s.tools[i] = t
				break
			}
		}
	}
	s.byName[t.Name] = t
}

// Tools returns the registered tools in registration order.
func (s *Server) Tools() []Tool {
	out := make([]Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// Serve processes requests until the input is exhausted or ctx is done.
// The reader runs in its own goroutine so cancellation is honored even
// while blocked waiting for the next line.
func (s *Server) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read requests: %w", err)
					}
				default:
				}
				return nil
			}
			if len(line) == 0 {
				continue
			}

			var req mcpRequest
			if err := json.Unmarshal(line, &req); err != nil {
				s.logger.Warn("unparseable request", zap.Error(err))
				s.writeError(json.RawMessage("null"), codeParseError, "parse error")
				continue
			}
			s.handle(ctx, &req)
		}
	}
}

func (s *Server) handle(ctx context.Context, req *mcpRequest) {
	// Notifications carry no ID and get no response.
	if len(req.ID) == 0 || string(req.ID) == "null" {
		s.logger.Debug("notification", zap.String("method", req.Method))
		return
	}

	switch req.Method {
	case "initialize":
		s.writeResult(req.ID, map[string]any{
			"protocolVersion": protocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]string{
				"name":    s.name,
				"version": s.version,
			},
			"instructions": s.instructions,
		})
	case "ping":
		s.writeResult(req.ID, map[string]any{})
	case "tools/list":
		schemas := make([]toolSchema, 0, len(s.tools))
		for _, t := range s.tools {
			schemas = append(schemas, toolSchema{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: t.InputSchema,
			})
		}
		s.writeResult(req.ID, map[string]any{"tools": schemas})
	case "tools/call":
		s.handleCall(ctx, req)
	default:
		s.writeError(req.ID, codeMethodNotFound, fmt.Sprintf("method not found: %s", req.Method))
	}
}

func (s *Server) handleCall(ctx context.Context, req *mcpRequest) {
	var params callParams
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		s.writeError(req.ID, codeInvalidParams, "tools/call requires a tool name")
		return
	}
	tool, ok := s.byName[params.Name]
	if !ok {
		s.writeError(req.ID, codeInvalidParams, fmt.Sprintf("unknown tool: %s", params.Name))
		return
	}
	if params.Arguments == nil {
		params.Arguments = make(map[string]any)
	}

	s.logger.Debug("tool call", zap.String("tool", params.Name))
	value, err := tool.Handler(ctx, params.Arguments)
	if err != nil {
		s.writeResult(req.ID, callResult{
			Content: []textContent{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
		return
	}

	text, err := encodeResult(value)
	if err != nil {
		s.writeError(req.ID, codeInternalError, fmt.Sprintf("encode result: %v", err))
		return
	}
	s.writeResult(req.ID, callResult{
		Content: []textContent{{Type: "text", Text: text}},
	})
}

// encodeResult renders a tool's return value as response text. Strings
// pass through untouched; everything else is JSON-encoded.
func encodeResult(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *Server) writeResult(id json.RawMessage, result any) {
	s.write(mcpResponse{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *Server) writeError(id json.RawMessage, code int, message string) {
	s.write(mcpResponse{JSONRPC: "2.0", ID: id, Error: &mcpError{Code: code, Message: message}})
}

func (s *Server) write(resp mcpResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("marshal response", zap.Error(err))
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(append(data, '\n')); err != nil {
		s.logger.Error("write response", zap.Error(err))
	}
}
