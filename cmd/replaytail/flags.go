package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ServerURL          string
	Table              string
	SequenceLength     int
	EmitTimesteps      bool
	NumWorkers         int
	MaxInFlight        int
	RateLimiterTimeout time.Duration
	MaxSamples         int
	Info               bool
	Reset              bool
	MetricsPort        int
	LogLevel           string
	LogFormat          string
	Debug              bool
	ShutdownTimeout    time.Duration
	ShowVersion        bool
	ShowHelp           bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ServerURL, "server",
		getEnv("REPLAYTAIL_SERVER", "nats://localhost:4222"),
		"NATS server URL (env: REPLAYTAIL_SERVER)")

	flag.StringVar(&cfg.Table, "table",
		getEnv("REPLAYTAIL_TABLE", ""),
		"Replay table to sample from (env: REPLAYTAIL_TABLE)")

	flag.IntVar(&cfg.SequenceLength, "sequence-length", 0,
		"Expected timesteps per item, 0 to accept any length")

	flag.BoolVar(&cfg.EmitTimesteps, "timesteps", true,
		"Emit individual timesteps; false emits whole sequences (requires -sequence-length)")

	flag.IntVar(&cfg.NumWorkers, "workers", -1,
		"Concurrent fetch workers, -1 selects automatically")

	flag.IntVar(&cfg.MaxInFlight, "max-in-flight", 100,
		"In-flight sample budget per worker")

	flag.DurationVar(&cfg.RateLimiterTimeout, "rate-limiter-timeout", -1,
		"How long the server-side rate limiter may defer a sample, -1 waits forever")

	flag.IntVar(&cfg.MaxSamples, "max-samples", 0,
		"Stop after this many samples, 0 for unlimited")

	flag.BoolVar(&cfg.Info, "info", false,
		"Print server table metadata and exit")

	flag.BoolVar(&cfg.Reset, "reset", false,
		"Reset the table (drop all items) and exit")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("REPLAYTAIL_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: REPLAYTAIL_METRICS_PORT)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("REPLAYTAIL_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: REPLAYTAIL_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("REPLAYTAIL_LOG_FORMAT", "text"),
		"Log format: json, text (env: REPLAYTAIL_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", 10*time.Second,
		"Graceful shutdown timeout")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")

	flag.Usage = printDetailedHelp

	flag.Parse()

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.Table == "" && !cfg.Info {
		return fmt.Errorf("-table is required (or use -info to list tables)")
	}

	if !cfg.EmitTimesteps && cfg.SequenceLength < 1 {
		return fmt.Errorf("-sequence-length is required when emitting whole sequences")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Tail samples from a replay table

Usage: %s -table <name> [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # List tables and their signatures
  %s -info

  # Tail timesteps from a table
  %s -table experience

  # Fetch 100 whole sequences of length 80, then stop
  %s -table experience -timesteps=false -sequence-length 80 -max-samples 100

  # Drain whatever is currently sampleable, then exit
  %s -table experience -rate-limiter-timeout 2s

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
