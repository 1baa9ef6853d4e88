package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"
	ModeCLI    = "cli"

	// Output formats of the cli mode and the parse_paper tool
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
	FormatSummary  = "summary"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultFormat      = FormatJSON

	// EnvPrefix prefixes every environment variable read by LoadFromFlags.
	EnvPrefix = "PAPER_PARSER"
)

// Config holds the process configuration of the paper parser
type Config struct {
	// Server configuration
	Mode string // "stdio", "server" or "cli"
	Host string
	Port int

	// Directory is the root the MCP tools resolve relative paths against.
	Directory string

	// CLI configuration
	File   string // paper to parse in cli mode
	Out    string // output file; empty writes to stdout
	Format string // json, markdown or summary

	// ConfigPath points at a YAML file with pipeline settings.
	ConfigPath string
	// Workers bounds concurrent parses in parse_directory; 0 uses GOMAXPROCS.
	Workers int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes

	// Pipeline holds the stage settings read from ConfigPath.
	Pipeline PipelineConfig
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:        ModeStdio, // Default to stdio mode for MCP compatibility
		Host:        DefaultHost,
		Port:        DefaultPort,
		Directory:   currentDir,
		Format:      DefaultFormat,
		Version:     "1.0.0",
		ServerName:  "paper-parser",
		LogLevel:    DefaultLogLevel,
		MaxFileSize: DefaultMaxFileSize,
		Pipeline:    DefaultPipelineConfig(),
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	// A file argument selects the one-shot cli mode
	if cfg.File != "" && !pflag.CommandLine.Changed("mode") && os.Getenv(EnvPrefix+"_MODE") == "" {
		cfg.Mode = ModeCLI
	}

	// Expand paths if needed
	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	pipeline, err := LoadPipelineConfig(cfg.ConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Pipeline = pipeline

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// PAPER_PARSER_LOG_LEVEL maps to the log-level key
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("file", cfg.File)
	viper.SetDefault("out", cfg.Out)
	viper.SetDefault("format", cfg.Format)
	viper.SetDefault("config", cfg.ConfigPath)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("log-level", cfg.LogLevel)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'stdio' for MCP standard I/O, 'server' for MCP over SSE, 'cli' to parse one file")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.Directory, "Directory the MCP tools resolve paper paths against")
	pflag.String("file", cfg.File, "Paper to parse; implies --mode=cli")
	pflag.String("out", cfg.Out, "Write the cli result to this file instead of stdout")
	pflag.String("format", cfg.Format, "Output format: json, markdown or summary")
	pflag.String("config", cfg.ConfigPath, "YAML file with pipeline settings")
	pflag.Int("workers", cfg.Workers, "Concurrent parses for parse_directory (0 = GOMAXPROCS)")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "file", "out", "format",
		"config", "workers", "log-level", "max-file-size",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPaper Parser - structured documents from scientific PDFs, as a CLI or an MCP server\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --file=paper.pdf                          "+
			"# parse one paper, JSON to stdout\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --file=paper.pdf --format=markdown --out=paper.md\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/papers                     "+
			"# MCP stdio server\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081  # MCP over SSE\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  PAPER_PARSER_MODE          Run mode\n")
		fmt.Fprintf(os.Stderr, "  PAPER_PARSER_HOST          Server host\n")
		fmt.Fprintf(os.Stderr, "  PAPER_PARSER_PORT          Server port\n")
		fmt.Fprintf(os.Stderr, "  PAPER_PARSER_DIR           Paper directory\n")
		fmt.Fprintf(os.Stderr, "  PAPER_PARSER_CONFIG        Pipeline config file\n")
		fmt.Fprintf(os.Stderr, "  PAPER_PARSER_LOG_LEVEL     Log level\n")
		fmt.Fprintf(os.Stderr, "  PAPER_PARSER_MAX_FILE_SIZE Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.Directory = viper.GetString("dir")
	cfg.File = viper.GetString("file")
	cfg.Out = viper.GetString("out")
	cfg.Format = viper.GetString("format")
	cfg.ConfigPath = viper.GetString("config")
	cfg.Workers = viper.GetInt("workers")
	cfg.LogLevel = viper.GetString("log-level")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
}

// Validate checks if the configuration is valid. Directories are not
// created; a missing directory surfaces when a tool reads from it.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeStdio, ModeServer:
		if c.Directory == "" {
			return errors.New("directory cannot be empty")
		}
	case ModeCLI:
		if c.File == "" {
			return errors.New("cli mode needs --file")
		}
	default:
		return errors.New("mode must be one of 'stdio', 'server' or 'cli'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if !ValidFormat(c.Format) {
		return fmt.Errorf("invalid format: %s (must be one of: json, markdown, summary)", c.Format)
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.Workers < 0 {
		return errors.New("workers must be >= 0")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ValidFormat reports whether f names a supported output format.
func ValidFormat(f string) bool {
	switch f {
	case FormatJSON, FormatMarkdown, FormatSummary:
		return true
	}
	return false
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, File: %s, Format: %s, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.Directory, c.File, c.Format, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in SSE server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}

// IsCLIMode returns true if a single file is parsed without an MCP server
func (c *Config) IsCLIMode() bool {
	return c.Mode == ModeCLI
}
