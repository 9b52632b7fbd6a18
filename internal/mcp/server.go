// Package mcp exposes the evaluation pipeline to Model Context Protocol
// clients: spec validation, task listing, single-response grading, and
// results reporting, served as MCP tools over JSON-RPC 2.0.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/apex-evals/apexeval/internal/jsonrpc"
)

const protocolVersion = "2024-11-05"

// Server answers MCP messages. Every protocol method is registered on a
// jsonrpc registry, so the same server sits behind stdio or a TCP
// listener unchanged.
type Server struct {
	version  string
	logger   *slog.Logger
	registry *jsonrpc.Registry
	tools    []Tool
}

// NewServer creates an MCP server. version is reported to clients in the
// initialize handshake.
func NewServer(version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		version:  version,
		logger:   logger,
		registry: jsonrpc.NewRegistry(),
		tools:    toolbox(),
	}
	s.registry.Register("initialize", s.initialize)
	s.registry.Register("notifications/initialized", s.initialized)
	s.registry.Register("tools/list", s.toolsList)
	s.registry.Register("tools/call", s.toolsCall)
	return s
}

// Registry returns the method table for serving over any jsonrpc
// transport.
func (s *Server) Registry() *jsonrpc.Registry {
	return s.registry
}

// Serve runs one MCP session over r and w until EOF or ctx cancellation.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) {
	jsonrpc.NewServer(s.registry, s.logger).ServeStdio(ctx, r, w)
}

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	ServerInfo      serverInfo   `json:"serverInfo"`
}

type capabilities struct {
	Tools *toolsCapability `json:"tools,omitempty"`
}

type toolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *Server) initialize(_ context.Context, _ json.RawMessage) (any, *jsonrpc.Error) {
	return initializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    capabilities{Tools: &toolsCapability{}},
		ServerInfo:      serverInfo{Name: "apexeval", Version: s.version},
	}, nil
}

// initialized is the client's handshake acknowledgement. It arrives as a
// notification, so the result is discarded before it reaches the wire.
func (s *Server) initialized(_ context.Context, _ json.RawMessage) (any, *jsonrpc.Error) {
	return nil, nil
}

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

func (s *Server) toolsList(_ context.Context, _ json.RawMessage) (any, *jsonrpc.Error) {
	return toolsListResult{Tools: s.tools}, nil
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type toolsCallResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// toolsCall dispatches one tool invocation. Tool failures come back as
// results with isError set rather than as protocol errors, so MCP clients
// surface them to the model instead of dropping the call.
func (s *Server) toolsCall(ctx context.Context, params json.RawMessage) (any, *jsonrpc.Error) {
	var p toolsCallParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, jsonrpc.ErrInvalidParams(err.Error())
	}

	args := p.Arguments
	if args == nil {
		args = json.RawMessage(`{}`)
	}

	s.logger.Debug("tool call", "tool", p.Name)

	result, err := s.callTool(ctx, p.Name, args)
	if err != nil {
		return toolError(err), nil
	}

	text, err := json.Marshal(result)
	if err != nil {
		return toolError(fmt.Errorf("encoding tool result: %w", err)), nil
	}
	return toolsCallResult{Content: []contentBlock{{Type: "text", Text: string(text)}}}, nil
}

func toolError(err error) toolsCallResult {
	return toolsCallResult{
		Content: []contentBlock{{Type: "text", Text: err.Error()}},
		IsError: true,
	}
}
