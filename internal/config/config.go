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

	// Default values
	DefaultPort         = 8080
	DefaultHost         = "127.0.0.1"
	DefaultLogLevel     = "info"
	DefaultMaxFileSize  = 20 * 1024 * 1024 // 20MB
	DefaultPreviewWidth = 600.0
	DefaultSeparator    = "_"

	// MinPreviewWidth leaves room for the smallest signature box
	MinPreviewWidth = 100.0

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the Berita Acara MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Documents
	WorkDir     string // source PDFs and attachments are read from here
	OutputDir   string // signed documents and reports are written here
	RosterFile  string // YAML roster of approvers; empty disables NIK roles
	BrowserBin  string // headless Chrome binary for form capture
	MaxFileSize int64  // Maximum PDF file size in bytes

	// Signing
	PreviewWidth float64 // container width the page preview is laid out in
	Separator    string  // filename token separator

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:         ModeStdio, // Default to stdio mode for MCP compatibility
		Host:         DefaultHost,
		Port:         DefaultPort,
		WorkDir:      currentDir,
		MaxFileSize:  DefaultMaxFileSize,
		PreviewWidth: DefaultPreviewWidth,
		Separator:    DefaultSeparator,
		Version:      "1.0.0",
		ServerName:   "mcp-berita-acara",
		LogLevel:     DefaultLogLevel,
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

	// Expand paths if needed
	cfg.WorkDir = absPath(cfg.WorkDir)
	cfg.OutputDir = absPath(cfg.OutputDir)
	cfg.RosterFile = absPath(cfg.RosterFile)
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.WorkDir
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if expanded, err := filepath.Abs(p); err == nil {
		return expanded
	}
	return p
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	// Set environment variable prefix
	viper.SetEnvPrefix("BA")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.WorkDir)
	viper.SetDefault("outdir", cfg.OutputDir)
	viper.SetDefault("roster", cfg.RosterFile)
	viper.SetDefault("browser", cfg.BrowserBin)
	viper.SetDefault("width", cfg.PreviewWidth)
	viper.SetDefault("separator", cfg.Separator)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.WorkDir, "Directory containing source PDFs and photos")
	pflag.String("outdir", cfg.OutputDir, "Directory signed PDFs and reports are written to (default: --dir)")
	pflag.String("roster", cfg.RosterFile, "YAML roster of approvers (NIK, name, role)")
	pflag.String("browser", cfg.BrowserBin, "Chrome/Chromium binary used to capture the report form")
	pflag.Float64("width", cfg.PreviewWidth, "Preview container width in pixels")
	pflag.String("separator", cfg.Separator, "Separator between signed filename tokens")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

var flagKeys = []string{
	"mode", "host", "port", "dir", "outdir", "roster", "browser",
	"width", "separator", "loglevel", "maxfilesize",
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Berita Acara - sign variance reports and compose Berita Acara PDFs\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/data/ba --roster=roster.yaml      "+
			"# stdio mode with a roster\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --outdir=/data/signed      # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --separator=' '                          # BA VARIANCE ... filenames\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  BA_MODE        Server mode\n")
		fmt.Fprintf(os.Stderr, "  BA_HOST        Server host\n")
		fmt.Fprintf(os.Stderr, "  BA_PORT        Server port\n")
		fmt.Fprintf(os.Stderr, "  BA_DIR         Work directory\n")
		fmt.Fprintf(os.Stderr, "  BA_OUTDIR      Output directory\n")
		fmt.Fprintf(os.Stderr, "  BA_ROSTER      Roster file\n")
		fmt.Fprintf(os.Stderr, "  BA_BROWSER     Browser binary\n")
		fmt.Fprintf(os.Stderr, "  BA_WIDTH       Preview width\n")
		fmt.Fprintf(os.Stderr, "  BA_SEPARATOR   Filename separator\n")
		fmt.Fprintf(os.Stderr, "  BA_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  BA_MAXFILESIZE Maximum file size\n")
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
	cfg.WorkDir = viper.GetString("dir")
	cfg.OutputDir = viper.GetString("outdir")
	cfg.RosterFile = viper.GetString("roster")
	cfg.BrowserBin = viper.GetString("browser")
	cfg.PreviewWidth = viper.GetFloat64("width")
	cfg.Separator = viper.GetString("separator")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate mode
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.WorkDir == "" {
		return errors.New("work directory cannot be empty")
	}
	if err := ensureDir(c.WorkDir); err != nil {
		return err
	}
	if c.OutputDir != "" {
		if err := ensureDir(c.OutputDir); err != nil {
			return err
		}
	}

	if c.RosterFile != "" {
		if _, err := os.Stat(c.RosterFile); err != nil {
			return fmt.Errorf("cannot access roster %s: %w", c.RosterFile, err)
		}
	}

	// Validate max file size
	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	if c.PreviewWidth < MinPreviewWidth {
		return fmt.Errorf("preview width must be at least %.0f", MinPreviewWidth)
	}

	if c.Separator == "" || strings.ContainsAny(c.Separator, `/\`) {
		return fmt.Errorf("invalid filename separator %q", c.Separator)
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

// ensureDir creates a missing directory
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	return nil
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
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, WorkDir: %s, OutputDir: %s, Roster: %s, Width: %.0f, Separator: %q, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.WorkDir, c.OutputDir, c.RosterFile, c.PreviewWidth, c.Separator, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
