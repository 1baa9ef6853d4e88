package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-paper-parser/internal/config"
	"github.com/a3tai/mcp-paper-parser/internal/mcp"
	"github.com/a3tai/mcp-paper-parser/internal/model"
	"github.com/a3tai/mcp-paper-parser/internal/output"
	"github.com/a3tai/mcp-paper-parser/internal/pdf"
	"github.com/a3tai/mcp-paper-parser/internal/pipeline"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// Exit codes
const (
	exitOK = iota
	exitConfig
	exitParse
)

// setupLogging builds the process logger. In stdio mode stdout carries the
// MCP protocol, so logs go to stderr and only errors are shown unless debug
// is enabled.
func setupLogging(cfg *config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.IsDebug() {
		opts.AddSource = true
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// runCLI parses cfg.File and writes the result to cfg.Out or stdout.
func runCLI(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) int {
	data, err := pdf.NewValidator(cfg.MaxFileSize).ReadFile(cfg.File)
	if err != nil {
		logger.Error("cannot read input", "file", cfg.File, "error", err)
		return exitParse
	}

	p := pipeline.New(cfg.Pipeline, pipeline.WithLogger(logger))
	doc, err := p.Parse(ctx, data, cfg.File)
	if err != nil {
		logger.Error("parse failed", "file", cfg.File, "error", err)
		return exitParse
	}

	if err := writeOutput(stdout, cfg.Out, doc, cfg.Format); err != nil {
		logger.Error("cannot write output", "out", cfg.Out, "format", cfg.Format, "error", err)
		return exitParse
	}
	for _, warning := range doc.Warnings {
		logger.Warn("degraded", "detail", warning)
	}
	return exitOK
}

// writeOutput renders doc to path, or to stdout when path is empty.
func writeOutput(stdout io.Writer, path string, doc *model.ParsedDocument, format string) error {
	if path == "" {
		return output.Write(stdout, doc, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := output.Write(f, doc, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

// runServer runs the MCP server until ctx ends or the transport fails.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) int {
	p := pipeline.New(cfg.Pipeline, pipeline.WithLogger(logger))
	server, err := mcp.NewServer(cfg, p, logger)
	if err != nil {
		logger.Error("failed to create MCP server", "error", err)
		return exitConfig
	}

	if err := server.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		return exitParse
	}
	if cfg.IsServerMode() {
		logger.Info("server stopped successfully")
	}
	return exitOK
}

func run(ctx context.Context, stdout, stderr io.Writer) int {
	cfg, err := config.LoadFromFlags()
	if err != nil {
		if err.Error() == "version requested" {
			printVersion(stdout)
			return exitOK
		}
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitConfig
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	logger := setupLogging(cfg, stderr)
	slog.SetDefault(logger)
	logger.Debug("starting", "config", cfg.String())

	if cfg.IsCLIMode() {
		return runCLI(ctx, cfg, logger, stdout)
	}
	return runServer(ctx, cfg, logger)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	code := run(ctx, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Paper Parser\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
