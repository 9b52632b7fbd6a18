package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTCPAddr(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name        string
		addr        string
		allowRemote bool
		want        string
	}{
		{"bare port", "9000", false, "127.0.0.1:9000"},
		{"port only", ":9000", false, "127.0.0.1:9000"},
		{"wildcard v4", "0.0.0.0:9000", false, "127.0.0.1:9000"},
		{"wildcard v6", "[::]:9000", false, "127.0.0.1:9000"},
		{"explicit host kept", "192.168.1.5:9000", false, "192.168.1.5:9000"},
		{"remote allowed", "0.0.0.0:9000", true, "0.0.0.0:9000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveTCPAddr(tt.addr, tt.allowRemote, logger))
		})
	}
}

func TestMCPCommand_ServesStdio(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}` + "\n")
	var out, errOut bytes.Buffer

	cmd := newMCPCommand()
	cmd.SetIn(in)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"protocolVersion":"2024-11-05"`)
	assert.Contains(t, errOut.String(), "MCP server running on stdio")
}
