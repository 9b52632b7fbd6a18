// Package jsonrpc implements the JSON-RPC 2.0 message layer used by the
// MCP server: newline-delimited framing, method dispatch, and the error
// envelope. It carries no evaluation semantics of its own.
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Message types per https://www.jsonrpc.org/specification. The ID is kept
// as raw JSON so string and numeric ids round-trip unchanged.

// Request is one incoming call or notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Response answers one Request. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error is the JSON-RPC error envelope.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Data)
	}
	return e.Message
}

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Application error codes used by the evaluation tool handlers.
const (
	CodeSpecNotFound     = -32000
	CodeValidationFailed = -32001
	CodeGradingFailed    = -32002
)

func ErrParseError(data any) *Error {
	return &Error{Code: CodeParseError, Message: "Parse error", Data: data}
}

func ErrInvalidRequest(data any) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid request", Data: data}
}

func ErrMethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found", Data: method}
}

func ErrInvalidParams(data any) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: data}
}

func ErrInternalError(data any) *Error {
	return &Error{Code: CodeInternalError, Message: "Internal error", Data: data}
}

func ErrSpecNotFound(path string) *Error {
	return &Error{Code: CodeSpecNotFound, Message: "Eval spec not found", Data: path}
}

func ErrValidationFailed(data any) *Error {
	return &Error{Code: CodeValidationFailed, Message: "Validation failed", Data: data}
}

func ErrGradingFailed(data any) *Error {
	return &Error{Code: CodeGradingFailed, Message: "Grading failed", Data: data}
}
