package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-paper-parser/internal/config"
	"github.com/a3tai/mcp-paper-parser/internal/pdf"
	"github.com/a3tai/mcp-paper-parser/internal/pdf/pdftest"
	"github.com/a3tai/mcp-paper-parser/internal/pipeline"
)

func paperBytes() []byte {
	doc := pdftest.New()
	doc.AddPage(612, 792).
		TextTop(pdftest.Bold, 16, 72, 80, "Layout analysis of scientific papers").
		TextTop(pdftest.Regular, 10, 72, 110, "Ada Lovelace and Alan Turing").
		TextTop(pdftest.Bold, 10, 72, 200, "Abstract").
		TextTop(pdftest.Regular, 10, 72, 225, "We study page layout. The method is simple.").
		TextTop(pdftest.Bold, 10, 72, 280, "Introduction").
		TextTop(pdftest.Regular, 10, 72, 305, "Papers mix text and figures.")
	return doc.Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testConfig(mode, dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mode = mode
	cfg.Directory = dir
	cfg.ServerName = "test-server"
	cfg.Version = "1.0.0"
	cfg.MaxFileSize = 1024 * 1024
	cfg.Workers = 2
	return cfg
}

func newTestServer(t *testing.T, dir string) *Server {
	t.Helper()
	cfg := testConfig("stdio", dir)
	s, err := NewServer(cfg, pipeline.New(cfg.Pipeline), nil)
	require.NoError(t, err)
	return s
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestNewServer(t *testing.T) {
	cfg := testConfig("stdio", t.TempDir())
	p := pipeline.New(cfg.Pipeline)

	tests := []struct {
		name        string
		config      *config.Config
		pipeline    *pipeline.Pipeline
		expectError string
	}{
		{name: "valid stdio mode config", config: cfg, pipeline: p},
		{name: "valid server mode config", config: testConfig("server", t.TempDir()), pipeline: p},
		{name: "nil config", pipeline: p, expectError: "config cannot be nil"},
		{name: "nil pipeline", config: cfg, expectError: "pipeline cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, tt.pipeline, nil)
			if tt.expectError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectError)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, server)
			assert.Same(t, tt.config, server.config)
			assert.NotNil(t, server.mcpServer)
			assert.NotNil(t, server.validator)
		})
	}
}

func TestServer_HandleParsePaper(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "paper.pdf", paperBytes())
	server := newTestServer(t, dir)

	tests := []struct {
		name     string
		args     map[string]interface{}
		wantErr  bool
		contains []string
	}{
		{
			name:     "summary by default with relative path",
			args:     map[string]interface{}{"path": "paper.pdf"},
			contains: []string{"Title: Layout analysis of scientific papers", "ABSTRACT: 2 sentences", "INTRODUCTION: 1 sentences"},
		},
		{
			name:     "markdown",
			args:     map[string]interface{}{"path": filepath.Join(dir, "paper.pdf"), "format": "markdown"},
			contains: []string{"### **Abstract**", "We study page layout."},
		},
		{
			name:     "json",
			args:     map[string]interface{}{"path": "paper.pdf", "format": "json"},
			contains: []string{`"doc_id"`, `"raw_markdown"`, `"abstract"`},
		},
		{
			name:    "unknown format",
			args:    map[string]interface{}{"path": "paper.pdf", "format": "xml"},
			wantErr: true,
		},
		{
			name:    "missing path",
			args:    map[string]interface{}{},
			wantErr: true,
		},
		{
			name:    "file does not exist",
			args:    map[string]interface{}{"path": "absent.pdf"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleParsePaper(context.Background(), callRequest(tt.args))
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tt.wantErr, result.IsError, extractTextFromResult(result))

			text := extractTextFromResult(result)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
		})
	}
}

func TestServer_HandleParsePaperNotAPaper(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "garbage.pdf", make([]byte, 1024))
	server := newTestServer(t, dir)

	result, err := server.handleParsePaper(context.Background(), callRequest(map[string]interface{}{"path": "garbage.pdf"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_HandleValidatePaper(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "paper.pdf", paperBytes())
	writeFile(t, dir, "zeros.pdf", make([]byte, 1024))

	blank := pdftest.New()
	blank.AddPage(612, 792).Rect(72, 72, 100, 100)
	writeFile(t, dir, "scanned.pdf", blank.Bytes())

	server := newTestServer(t, dir)

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "parseable paper", path: "paper.pdf", want: "is valid and parseable (1 pages"},
		{name: "not a pdf", path: "zeros.pdf", want: "PDF validation failed"},
		{name: "no text layer", path: "scanned.pdf", want: "PDF validation failed"},
		{name: "missing file", path: "absent.pdf", want: "PDF validation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleValidatePaper(context.Background(), callRequest(map[string]interface{}{"path": tt.path}))
			require.NoError(t, err)
			assert.Contains(t, extractTextFromResult(result), tt.want)
		})
	}
}

func TestServer_HandleParseDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf", paperBytes())
	writeFile(t, dir, "b.pdf", make([]byte, 512))
	writeFile(t, dir, "notes.txt", []byte("not a pdf"))
	server := newTestServer(t, dir)

	result, err := server.handleParseDirectory(context.Background(), callRequest(map[string]interface{}{}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Parsed 2 PDF file(s)")
	assert.Contains(t, text, "(1 failed)")
	assert.Contains(t, text, `1. a.pdf: "Layout analysis of scientific papers": 1 pages`)
	assert.Contains(t, text, "2. b.pdf: FAILED")
	assert.NotContains(t, text, "notes.txt")
}

func TestServer_HandleParseDirectoryEmpty(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	server := newTestServer(t, dir)

	result, err := server.handleParseDirectory(context.Background(), callRequest(map[string]interface{}{"directory": "empty"}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "No PDF files found in directory: ")
	assert.Contains(t, extractTextFromResult(result), "empty")
}

func TestServer_PathsOutsideDirectory(t *testing.T) {
	server := newTestServer(t, t.TempDir())
	ctx := context.Background()

	result, err := server.handleParsePaper(ctx, callRequest(map[string]interface{}{"path": "../escape.pdf"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, extractTextFromResult(result), "outside configured directory")

	result, err = server.handleValidatePaper(ctx, callRequest(map[string]interface{}{"path": "/etc/passwd"}))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "PDF validation failed for /etc/passwd")

	result, err = server.handleParseDirectory(ctx, callRequest(map[string]interface{}{"directory": t.TempDir()}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServer_HandleServerInfo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "paper.pdf", paperBytes())
	server := newTestServer(t, dir)

	result, err := server.handleServerInfo(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "test-server v1.0.0 - Server Information")
	assert.Contains(t, text, "Default Directory: "+dir)
	assert.Contains(t, text, "Max File Size: 1 MB")
	assert.Contains(t, text, "1. paper.pdf")
	for _, tool := range []string{"parse_paper", "validate_paper", "parse_directory", "server_info"} {
		assert.Contains(t, text, "• "+tool+":")
	}
}

func TestFormatMethods(t *testing.T) {
	server := newTestServer(t, t.TempDir())

	t.Run("server info truncates long listings", func(t *testing.T) {
		files := make([]pdf.FileInfo, 12)
		for i := range files {
			files[i] = pdf.FileInfo{Name: "f.pdf", Size: 10}
		}
		formatted := server.formatServerInfoResult(&pdf.ServerInfoResult{
			ServerName:        "s",
			Version:           "2",
			MaxFileSize:       5 * 1024 * 1024,
			DirectoryContents: files,
			FromCache:         true,
		})
		assert.Contains(t, formatted, "Max File Size: 5 MB")
		assert.Contains(t, formatted, "12 PDF files found, cached")
		assert.Contains(t, formatted, "... and 2 more files")
	})

	t.Run("server info without files", func(t *testing.T) {
		formatted := server.formatServerInfoResult(&pdf.ServerInfoResult{ServerName: "s", Version: "2"})
		assert.Contains(t, formatted, "No PDF files found in default directory")
	})

	t.Run("truncated directory scan", func(t *testing.T) {
		formatted := server.formatParseDirectoryResult("/d", &pdf.ScanResult{Truncated: true}, nil)
		assert.True(t, strings.HasPrefix(formatted, "Parsed 0 PDF file(s) in directory: /d (0 failed)"))
		assert.Contains(t, formatted, "truncated")
	})
}

// Helper function to extract text from a CallToolResult
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	// Try to extract text content
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		// Handle pointer to TextContent as well
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}

	return ""
}
