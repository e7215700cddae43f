// Package config handles loading server configuration from flags and environment.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables consulted when the matching flag is not given.
const (
	EnvDirectory   = "RAWHTTP_DIRECTORY"
	EnvAddr        = "RAWHTTP_ADDR"
	EnvIdleTimeout = "RAWHTTP_IDLE_TIMEOUT"
	EnvMaxConns    = "RAWHTTP_MAX_CONNS"
	EnvLedgerDir   = "RAWHTTP_LEDGER_DIR"
	EnvLogLevel    = "RAWHTTP_LOG_LEVEL"
	EnvLogFormat   = "RAWHTTP_LOG_FORMAT"
)

const (
	DefaultAddr        = "localhost:4221"
	DefaultIdleTimeout = time.Second
	DefaultReadBuffer  = 4096
)

// Config holds everything the server needs at startup.
type Config struct {
	// Directory is where /files reads from and uploads write to.
	Directory string
	Addr      string

	// IdleTimeout bounds each blocking read on a connection.
	IdleTimeout    time.Duration
	ReadBufferSize int

	// MaxConns caps concurrently open connections. Zero means unbounded.
	MaxConns int

	// LedgerDir enables the upload ledger when non-empty.
	LedgerDir string

	LogLevel  slog.Level
	LogFormat string // json, text
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Directory:      os.TempDir(),
		Addr:           DefaultAddr,
		IdleTimeout:    DefaultIdleTimeout,
		ReadBufferSize: DefaultReadBuffer,
		LogLevel:       slog.LevelInfo,
		LogFormat:      "json",
	}
}

// Load builds a Config from command-line args (without the program name).
// Flags take precedence over environment variables, which take precedence
// over defaults.
func Load(args []string) (Config, error) {
	def := Default()

	fs := flag.NewFlagSet("rawhttp", flag.ContinueOnError)
	directory := fs.String("directory", getEnvOrDefault(EnvDirectory, def.Directory), "Directory served under /files")
	addr := fs.String("addr", getEnvOrDefault(EnvAddr, def.Addr), "Listen address")
	idle := fs.String("idle-timeout", getEnvOrDefault(EnvIdleTimeout, def.IdleTimeout.String()), "Per-read idle timeout")
	maxConns := fs.String("max-conns", getEnvOrDefault(EnvMaxConns, "0"), "Maximum concurrent connections (0 = unbounded)")
	ledgerDir := fs.String("ledger-dir", getEnvOrDefault(EnvLedgerDir, ""), "BadgerDB directory for the upload ledger (empty disables it)")
	logLevel := fs.String("log-level", getEnvOrDefault(EnvLogLevel, "info"), "Log level: debug, info, warn, error")
	logFormat := fs.String("log-format", getEnvOrDefault(EnvLogFormat, def.LogFormat), "Log format: json or text")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := def
	cfg.Directory = *directory
	cfg.Addr = *addr
	cfg.LedgerDir = *ledgerDir
	cfg.LogFormat = strings.ToLower(*logFormat)

	d, err := time.ParseDuration(*idle)
	if err != nil {
		return Config{}, fmt.Errorf("invalid idle timeout %q: %w", *idle, err)
	}
	cfg.IdleTimeout = d

	n, err := strconv.Atoi(*maxConns)
	if err != nil {
		return Config{}, fmt.Errorf("invalid max conns %q: %w", *maxConns, err)
	}
	cfg.MaxConns = n

	if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return Config{}, fmt.Errorf("invalid log level %q: %w", *logLevel, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.Directory == "" {
		return fmt.Errorf("storage directory is empty")
	}
	if c.Addr == "" {
		return fmt.Errorf("listen address is empty")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive, got %s", c.IdleTimeout)
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("read buffer size must be positive, got %d", c.ReadBufferSize)
	}
	if c.MaxConns < 0 {
		return fmt.Errorf("max conns must not be negative, got %d", c.MaxConns)
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger described by c.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
