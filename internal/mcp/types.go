// Package mcp implements the server side of the Model Context Protocol:
// JSON-RPC 2.0 messages over newline-delimited stdio, exposing a set of
// tools to a connected agent.
package mcp

import (
	"context"
	"encoding/json"
)

// mcpRequest represents a JSON-RPC style MCP request. A missing ID marks a
// notification.
type mcpRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// mcpResponse represents a JSON-RPC style MCP response.
type mcpResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *mcpError       `json:"error,omitempty"`
}

// mcpError represents an error in an MCP response.
type mcpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON-RPC 2.0 error codes used by the server.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// ToolHandler executes one tool call. The returned value is JSON-encoded
// into the response content; a returned error becomes a tool-level error
// result rather than a protocol error.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// Tool couples a tool schema with its handler.
type Tool struct {
	Name        string
	Description string
	InputSchema json.RawMessage
	Handler     ToolHandler
}

// toolSchema is the wire form of a tool for tools/list.
type toolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// callParams are the parameters of a tools/call request.
type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// textContent is one text block of a tool result.
type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// callResult is the result payload of a tools/call response.
type callResult struct {
	Content []textContent `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}
