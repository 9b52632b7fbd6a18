package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
)

// Handler executes one method call and returns its result or error.
type Handler func(ctx context.Context, params json.RawMessage) (any, *Error)

// Registry maps method names to handlers.
type Registry struct {
	methods map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]Handler)}
}

// Register adds a handler under the given method name.
func (r *Registry) Register(method string, h Handler) {
	r.methods[method] = h
}

// Lookup returns the handler for method, or nil when none is registered.
func (r *Registry) Lookup(method string) Handler {
	return r.methods[method]
}

// Server dispatches requests read from a Transport to registry handlers.
type Server struct {
	registry *Registry
	logger   *slog.Logger
}

// NewServer creates a server over the given registry.
func NewServer(registry *Registry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{registry: registry, logger: logger}
}

// ServeTransport reads requests until EOF, a read error, or ctx
// cancellation, answering each on the same transport. Notifications, which
// are requests sent without an id key, never receive a response.
func (s *Server) ServeTransport(ctx context.Context, t *Transport) {
	for {
		if ctx.Err() != nil {
			return
		}

		req, raw, err := t.ReadRequest()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			s.logger.Debug("read error", "error", err)
			s.respond(t, &Response{
				JSONRPC: "2.0",
				Error:   ErrParseError(err.Error()),
				ID:      json.RawMessage("null"),
			})
			return
		}

		notification := !hasID(raw)

		resp := s.dispatch(ctx, req)
		if notification {
			continue
		}
		if !s.respond(t, resp) {
			return
		}
	}
}

// dispatch runs one request through version check, method lookup, and the
// handler.
func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	if req.JSONRPC != "2.0" {
		return &Response{
			JSONRPC: "2.0",
			Error:   ErrInvalidRequest(`jsonrpc field must be "2.0"`),
			ID:      req.ID,
		}
	}

	handler := s.registry.Lookup(req.Method)
	if handler == nil {
		return &Response{
			JSONRPC: "2.0",
			Error:   ErrMethodNotFound(req.Method),
			ID:      req.ID,
		}
	}

	params := req.Params
	if params == nil {
		params = json.RawMessage(`{}`)
	}

	result, rpcErr := handler(ctx, params)
	resp := &Response{JSONRPC: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	return resp
}

func (s *Server) respond(t *Transport, resp *Response) bool {
	if err := t.WriteResponse(resp); err != nil {
		s.logger.Debug("write error", "error", err)
		return false
	}
	return true
}

// ServeStdio runs the server over the given streams, typically
// stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) {
	s.ServeTransport(ctx, NewTransport(stdin, stdout))
}

// hasID reports whether the raw request carries a top-level id key. Per
// JSON-RPC 2.0 a request without one is a notification and must not be
// answered, even on error.
func hasID(raw []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, ok := obj["id"]
	return ok
}
