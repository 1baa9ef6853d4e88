package mcp

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-paper-parser/internal/pipeline"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_Run_StdioMode(t *testing.T) {
	server := newTestServer(t, t.TempDir())
	var out bytes.Buffer
	server.stdin = strings.NewReader("")
	server.stdout = &out

	// Run should return quickly in stdio mode when context is canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			assert.Contains(t, err.Error(), "context")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestServer_Run_ServerMode(t *testing.T) {
	cfg := testConfig("server", t.TempDir())
	cfg.Host = "127.0.0.1"
	cfg.Port = freePort(t)
	server, err := NewServer(cfg, pipeline.New(cfg.Pipeline), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	require.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond, "SSE server never listened on %s", addr)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestServer_Run_PortInUse(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cfg := testConfig("server", t.TempDir())
	cfg.Host = "127.0.0.1"
	cfg.Port = l.Addr().(*net.TCPAddr).Port
	server, err := NewServer(cfg, pipeline.New(cfg.Pipeline), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to serve SSE")
}

func TestServer_Run_InvalidMode(t *testing.T) {
	tests := []string{"cli", "invalid", ""}

	for _, mode := range tests {
		t.Run("mode_"+mode, func(t *testing.T) {
			cfg := testConfig(mode, t.TempDir())
			server, err := NewServer(cfg, pipeline.New(cfg.Pipeline), nil)
			require.NoError(t, err)

			err = server.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), "does not run an MCP server")
		})
	}
}
