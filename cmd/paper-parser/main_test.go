package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-paper-parser/internal/config"
	"github.com/a3tai/mcp-paper-parser/internal/model"
	"github.com/a3tai/mcp-paper-parser/internal/pdf/pdftest"
)

const (
	testVersion = "1.2.3"
	devVersion  = "dev"
)

func paperFile(t *testing.T) string {
	t.Helper()
	doc := pdftest.New()
	doc.AddPage(612, 792).
		TextTop(pdftest.Bold, 16, 72, 80, "Layout analysis of scientific papers").
		TextTop(pdftest.Regular, 10, 72, 110, "Ada Lovelace and Alan Turing").
		TextTop(pdftest.Bold, 10, 72, 200, "Abstract").
		TextTop(pdftest.Regular, 10, 72, 225, "We study page layout. The method is simple.").
		TextTop(pdftest.Bold, 10, 72, 280, "Introduction").
		TextTop(pdftest.Regular, 10, 72, 305, "Papers mix text and figures.")

	path := filepath.Join(t.TempDir(), "paper.pdf")
	require.NoError(t, os.WriteFile(path, doc.Bytes(), 0o644))
	return path
}

func cliConfig(file string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeCLI
	cfg.File = file
	return cfg
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestPrintVersion(t *testing.T) {
	oldVersion := version
	oldBuildTime := buildTime
	oldGitCommit := gitCommit

	version = testVersion
	buildTime = "2023-12-01_10:30:00"
	gitCommit = "abc123"

	defer func() {
		// Restore original values
		version = oldVersion
		buildTime = oldBuildTime
		gitCommit = oldGitCommit
	}()

	var buf bytes.Buffer
	printVersion(&buf)
	output := buf.String()

	expectedStrings := []string{
		"Paper Parser",
		"Version: " + testVersion,
		"Build Time: 2023-12-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	}

	for _, expected := range expectedStrings {
		if !strings.Contains(output, expected) {
			t.Errorf("printVersion() output missing expected string: %s\nActual output:\n%s", expected, output)
		}
	}
}

func TestPrintVersionWithDefaults(t *testing.T) {
	if version != devVersion {
		t.Skipf("binary built with version %s", version)
	}

	var buf bytes.Buffer
	printVersion(&buf)
	if !strings.Contains(buf.String(), "Version: dev") {
		t.Errorf("printVersion() should report the dev version, got:\n%s", buf.String())
	}
}

func TestSetupLogging(t *testing.T) {
	tests := []struct {
		name      string
		mode      string
		logLevel  string
		wantLevel slog.Level
	}{
		{name: "stdio mode - debug enabled", mode: "stdio", logLevel: "debug", wantLevel: slog.LevelDebug},
		{name: "stdio mode - debug disabled", mode: "stdio", logLevel: "info", wantLevel: slog.LevelError},
		{name: "server mode", mode: "server", logLevel: "info", wantLevel: slog.LevelInfo},
		{name: "cli mode warn", mode: "cli", logLevel: "warn", wantLevel: slog.LevelWarn},
		{name: "empty level", mode: "server", logLevel: "", wantLevel: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Mode: tt.mode, LogLevel: tt.logLevel}
			logger := setupLogging(cfg, &bytes.Buffer{})

			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tt.wantLevel))
			assert.False(t, logger.Enabled(ctx, tt.wantLevel-1))
		})
	}
}

func TestSetupLoggingWritesToGivenWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogging(&config.Config{Mode: "server", LogLevel: "info"}, &buf)

	logger.Info("hello", "k", "v")
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "k=v")
}

func TestRunCLI(t *testing.T) {
	path := paperFile(t)

	t.Run("json to stdout", func(t *testing.T) {
		var out bytes.Buffer
		code := runCLI(context.Background(), cliConfig(path), discard(), &out)
		require.Equal(t, exitOK, code)

		var doc map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
		assert.Equal(t, "Layout analysis of scientific papers", doc["title"])
		assert.Contains(t, doc["sections"], "abstract")
	})

	t.Run("summary to file", func(t *testing.T) {
		cfg := cliConfig(path)
		cfg.Format = config.FormatSummary
		cfg.Out = filepath.Join(t.TempDir(), "out.txt")

		var out bytes.Buffer
		require.Equal(t, exitOK, runCLI(context.Background(), cfg, discard(), &out))
		assert.Empty(t, out.String())

		written, err := os.ReadFile(cfg.Out)
		require.NoError(t, err)
		assert.Contains(t, string(written), "ABSTRACT: 2 sentences")
	})

	t.Run("output directory missing", func(t *testing.T) {
		cfg := cliConfig(path)
		cfg.Out = filepath.Join(t.TempDir(), "nope", "out.json")
		assert.Equal(t, exitParse, runCLI(context.Background(), cfg, discard(), &bytes.Buffer{}))
		assert.NoFileExists(t, cfg.Out)
	})

	t.Run("missing file", func(t *testing.T) {
		code := runCLI(context.Background(), cliConfig(filepath.Join(t.TempDir(), "absent.pdf")), discard(), &bytes.Buffer{})
		assert.Equal(t, exitParse, code)
	})

	t.Run("not a pdf", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.pdf")
		require.NoError(t, os.WriteFile(bad, []byte("definitely not a pdf"), 0o644))
		code := runCLI(context.Background(), cliConfig(bad), discard(), &bytes.Buffer{})
		assert.Equal(t, exitParse, code)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Equal(t, exitParse, runCLI(ctx, cliConfig(path), discard(), &bytes.Buffer{}))
	})
}

func TestWriteOutput(t *testing.T) {
	doc := &model.ParsedDocument{Title: "A paper", Sections: map[string]*model.ParsedSection{}}

	var out bytes.Buffer
	require.NoError(t, writeOutput(&out, "", doc, config.FormatJSON))
	assert.Contains(t, out.String(), `"title": "A paper"`)

	dest := filepath.Join(t.TempDir(), "doc.json")
	out.Reset()
	require.NoError(t, writeOutput(&out, dest, doc, config.FormatJSON))
	assert.Empty(t, out.String())
	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(written), `"title": "A paper"`)

	err = writeOutput(&out, t.TempDir(), doc, config.FormatJSON)
	assert.Error(t, err)
}

// withArgs points the global flag set at args with no PAPER_PARSER_*
// variables in effect.
func withArgs(t *testing.T, args ...string) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		pflag.CommandLine = pflag.NewFlagSet(originalArgs[0], pflag.ExitOnError)
		viper.Reset()
	})
	for _, name := range []string{"MODE", "HOST", "PORT", "DIR", "FILE", "OUT", "FORMAT", "CONFIG", "LOG_LEVEL", "MAX_FILE_SIZE"} {
		t.Setenv(config.EnvPrefix+"_"+name, "")
	}
	os.Args = append([]string{"paper-parser"}, args...)
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

func TestRun(t *testing.T) {
	path := paperFile(t)

	tests := []struct {
		name       string
		args       []string
		wantCode   int
		wantStdout string
		wantStderr string
	}{
		{name: "version", args: []string{"--version"}, wantCode: exitOK, wantStdout: "Paper Parser"},
		{name: "invalid mode", args: []string{"--mode=bogus"}, wantCode: exitConfig, wantStderr: "Failed to load configuration"},
		{name: "invalid format", args: []string{"--file=" + path, "--format=xml"}, wantCode: exitConfig, wantStderr: "invalid format"},
		{name: "cli markdown", args: []string{"--file=" + path, "--format=markdown"}, wantCode: exitOK, wantStdout: "### **Abstract**"},
		{name: "cli unreadable", args: []string{"--file=" + filepath.Join(t.TempDir(), "absent.pdf")}, wantCode: exitParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withArgs(t, tt.args...)

			var stdout, stderr bytes.Buffer
			code := run(context.Background(), &stdout, &stderr)

			assert.Equal(t, tt.wantCode, code, stderr.String())
			assert.Contains(t, stdout.String(), tt.wantStdout)
			assert.Contains(t, stderr.String(), tt.wantStderr)
		})
	}
}
