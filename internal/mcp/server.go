package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/mcp-paper-parser/internal/config"
	"github.com/a3tai/mcp-paper-parser/internal/descriptions"
	"github.com/a3tai/mcp-paper-parser/internal/output"
	"github.com/a3tai/mcp-paper-parser/internal/pdf"
	"github.com/a3tai/mcp-paper-parser/internal/pipeline"
)

const shutdownTimeout = 5 * time.Second

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	pipeline  *pipeline.Pipeline
	validator *pdf.Validator
	sandbox   *pdf.Sandbox
	info      *pdf.ServerInfo
	mcpServer *server.MCPServer
	logger    *slog.Logger

	// stdin and stdout carry the stdio transport.
	stdin  io.Reader
	stdout io.Writer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, p *pipeline.Pipeline, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if p == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	sandbox, err := pdf.NewSandbox(cfg.Directory)
	if err != nil {
		return nil, fmt.Errorf("invalid server directory: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:    cfg,
		pipeline:  p,
		validator: pdf.NewValidator(cfg.MaxFileSize),
		sandbox:   sandbox,
		info:      pdf.NewServerInfo(cfg.MaxFileSize),
		mcpServer: mcpServer,
		logger:    logger.With("component", "MCPServer"),
		stdin:     os.Stdin,
		stdout:    os.Stdout,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	parsePaperTool := mcp.NewTool(
		"parse_paper",
		mcp.WithDescription(descriptions.GetToolDescription("parse_paper")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, absolute or relative to the server directory"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: summary (default), json or markdown"),
			mcp.Enum(output.Summary, output.JSON, output.Markdown),
		),
	)
	s.mcpServer.AddTool(parsePaperTool, s.handleParsePaper)

	validatePaperTool := mcp.NewTool(
		"validate_paper",
		mcp.WithDescription(descriptions.GetToolDescription("validate_paper")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, absolute or relative to the server directory"),
		),
	)
	s.mcpServer.AddTool(validatePaperTool, s.handleValidatePaper)

	parseDirectoryTool := mcp.NewTool(
		"parse_directory",
		mcp.WithDescription(descriptions.GetToolDescription("parse_directory")),
		mcp.WithString("directory",
			mcp.Description("Directory to parse (uses the server directory if empty)"),
		),
	)
	s.mcpServer.AddTool(parseDirectoryTool, s.handleParseDirectory)

	serverInfoTool := mcp.NewTool(
		"server_info",
		mcp.WithDescription(descriptions.GetToolDescription("server_info")),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}


func stringArg(request mcp.CallToolRequest, name, fallback string) string {
	if v, ok := request.GetArguments()[name].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Handler functions
func (s *Server) handleParsePaper(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format := stringArg(request, "format", output.Summary)
	if !config.ValidFormat(format) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown format %q (use summary, json or markdown)", format)), nil
	}

	path, err = s.sandbox.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.validator.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, err := s.pipeline.Parse(ctx, data, path)
	if err != nil {
		s.logger.Warn("parse failed", "path", path, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := output.Render(doc, format)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleValidatePaper(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	resolved, err := s.sandbox.Resolve(path)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("PDF validation failed for %s: %v", path, err)), nil
	}
	path = resolved

	result, err := s.validator.ValidateFile(pdf.ValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !result.Valid {
		return mcp.NewToolResultText(fmt.Sprintf("PDF validation failed for %s: %s", result.Path, result.Message)), nil
	}

	// Readable files still need a text layer to be parsed.
	data, err := s.validator.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := pdf.NewLoader(s.pipeline.Config().Loader, s.logger).Load(ctx, data, path); err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("PDF validation failed for %s: %v", result.Path, err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("PDF file %s is valid and parseable (%d pages, %d bytes)",
		result.Path, result.Pages, result.Size)), nil
}

func (s *Server) handleParseDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	directory, err := s.sandbox.Resolve(stringArg(request, "directory", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	scan, err := s.info.Scanner().Scan(ctx, directory)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scanning %s: %v", directory, err)), nil
	}
	if len(scan.Files) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No PDF files found in directory: %s", directory)), nil
	}

	inputs := make([]pipeline.Input, len(scan.Files))
	for i, f := range scan.Files {
		inputs[i] = pipeline.Input{
			Filename: f.Path,
			Open:     func() ([]byte, error) { return s.validator.ReadFile(f.Path) },
		}
	}

	results, err := s.pipeline.BatchParse(ctx, inputs, s.config.Workers)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parsing %s: %v", directory, err)), nil
	}

	return mcp.NewToolResultText(s.formatParseDirectoryResult(directory, scan, results)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.info.GetServerInfo(ctx, s.config.ServerName, s.config.Version, s.config.Directory)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatServerInfoResult(result)), nil
}

// Formatting methods
func (s *Server) formatParseDirectoryResult(directory string, scan *pdf.ScanResult, results []pipeline.Result) string {
	failed := 0
	var b strings.Builder
	for i, r := range results {
		name := filepath.Base(r.Filename)
		if r.Err != nil {
			failed++
			fmt.Fprintf(&b, "%d. %s: FAILED: %v\n", i+1, name, r.Err)
			continue
		}
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, name, output.Line(r.Document))
	}

	text := fmt.Sprintf("Parsed %d PDF file(s) in directory: %s (%d failed)\n", len(results), directory, failed)
	if scan.Truncated {
		text += "Directory listing was truncated at the scan limit\n"
	}
	return text + "\n" + b.String()
}

func (s *Server) formatServerInfoResult(result *pdf.ServerInfoResult) string {
	text := fmt.Sprintf("%s v%s - Server Information\n", result.ServerName, result.Version)
	text += fmt.Sprintf("Default Directory: %s\n", result.DefaultDirectory)
	text += fmt.Sprintf("Max File Size: %d MB\n\n", result.MaxFileSize/(1024*1024))

	if len(result.DirectoryContents) > 0 {
		text += fmt.Sprintf("Directory Contents (%d PDF files found", len(result.DirectoryContents))
		if result.FromCache {
			text += ", cached"
		}
		text += "):\n"
		for i, file := range result.DirectoryContents {
			if i >= 10 { // Limit to first 10 files for readability
				text += fmt.Sprintf("   ... and %d more files\n", len(result.DirectoryContents)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, file.Name, file.Size)
		}
		text += "\n"
	} else {
		text += "Directory Contents: No PDF files found in default directory\n\n"
	}

	text += "Available Tools:\n"
	for _, tool := range result.AvailableTools {
		text += fmt.Sprintf("  • %s: %s\n", tool.Name, tool.Description)
	}
	return text
}

// Run starts the MCP server in the configured mode and blocks until ctx
// ends or the transport fails.
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("mode %q does not run an MCP server", s.config.Mode)
	}
}

// runStdioMode serves MCP over stdin and stdout.
func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Debug("starting stdio server", "directory", s.config.Directory)

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, s.stdin, s.stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over SSE at the configured address.
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           sse,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting SSE server", "address", addr, "directory", s.config.Directory)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve SSE on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sse.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("SSE session shutdown", "error", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down SSE server: %w", err)
	}
	s.logger.Info("SSE server stopped")
	return nil
}
