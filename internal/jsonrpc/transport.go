package jsonrpc

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"
)

// Transport frames JSON-RPC messages as newline-delimited JSON over a byte
// stream. Writes are serialized so concurrent handlers cannot interleave
// responses.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex
}

// NewTransport wraps a reader/writer pair as a transport.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{reader: bufio.NewReader(r), writer: w}
}

// ReadRequest reads one request line. The raw bytes are returned alongside
// the decoded request so callers can distinguish notifications, which omit
// the id key entirely.
func (t *Transport) ReadRequest() (*Request, []byte, error) {
	line, err := t.reader.ReadBytes('\n')
	if err != nil {
		return nil, nil, err
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &req, line, nil
}

// WriteResponse sends one response line.
func (t *Transport) WriteResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err = t.writer.Write(append(data, '\n'))
	return err
}

// TCPListener serves each accepted connection with its own transport.
// Intended for local debugging; there is no authentication.
type TCPListener struct {
	listener net.Listener
	server   *Server
}

// ListenTCP starts listening on addr for the given server.
func ListenTCP(addr string, server *Server) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return &TCPListener{listener: ln, server: server}, nil
}

// Addr returns the bound network address.
func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Serve accepts connections until the listener is closed or ctx is
// canceled. Each connection is served on its own goroutine.
func (l *TCPListener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.listener.Close() //nolint:errcheck
	}()

	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go func() {
			defer conn.Close() //nolint:errcheck
			l.server.ServeTransport(ctx, NewTransport(conn, conn))
		}()
	}
}

// Close shuts the listener down.
func (l *TCPListener) Close() error {
	return l.listener.Close()
}
