// Package main implements replaytail, a diagnostic tool that samples a
// remote replay table and writes the received samples to stdout as JSON
// lines. It is the command-line face of the replaystream client:
// everything it does goes through the same stream machinery a training
// loop would use.
package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"syscall"
	"time"

	"github.com/c360/replaystream/errors"
	"github.com/c360/replaystream/metric"
	"github.com/c360/replaystream/natsclient"
	"github.com/c360/replaystream/sample"
	"github.com/c360/replaystream/stream"
	"github.com/c360/replaystream/tableclient"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "replaytail"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("replaytail failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()
	if err := validateFlags(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics are optional; without a port the registry stays nil and
	// every layer below skips metric recording.
	var registry *metric.MetricsRegistry
	if cfg.MetricsPort > 0 {
		registry = metric.NewMetricsRegistry()
		server := metric.NewServer(cfg.MetricsPort, "/metrics", registry)
		go func() {
			if err := server.Start(); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer func() { _ = server.Stop() }()
		logger.Info("metrics server started", "address", server.Address())
	}

	nc, err := natsclient.NewClient(cfg.ServerURL,
		natsclient.WithName(appName),
		natsclient.WithMetrics(registry),
	)
	if err != nil {
		return err
	}
	if err := nc.Connect(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.ServerURL, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		_ = nc.Close(closeCtx)
	}()

	client, err := tableclient.New(nc,
		tableclient.WithLogger(logger),
		tableclient.WithMetrics(registry),
	)
	if err != nil {
		return err
	}

	switch {
	case cfg.Info:
		return printServerInfo(ctx, client)
	case cfg.Reset:
		logger.Warn("resetting table", "table", cfg.Table)
		return client.Reset(ctx, cfg.Table)
	default:
		return tail(ctx, client, cfg, registry, logger)
	}
}

func printServerInfo(ctx context.Context, client *tableclient.Client) error {
	tables, err := client.ServerInfo(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	enc := json.NewEncoder(os.Stdout)
	for _, name := range names {
		t := tables[name]
		out := map[string]any{
			"name":         t.Name,
			"sampler":      t.Sampler,
			"remover":      t.Remover,
			"max_size":     t.MaxSize,
			"current_size": t.CurrentSize,
			"rate_limiter": t.RateLimiter,
		}
		if t.Signature != nil {
			sig := make([]string, 0, t.Signature.Len())
			for _, leaf := range t.Signature.Leaves() {
				sig = append(sig, fmt.Sprintf("%s: %s", leaf.Path, leaf.TensorSpec))
			}
			out["signature"] = sig
		}
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

func tail(ctx context.Context, client *tableclient.Client, cfg *CLIConfig,
	registry *metric.MetricsRegistry, logger *slog.Logger) error {

	opts := stream.DefaultOptions()
	opts.SequenceLength = cfg.SequenceLength
	opts.EmitTimesteps = cfg.EmitTimesteps
	opts.NumWorkers = cfg.NumWorkers
	opts.MaxInFlightSamplesPerWorker = cfg.MaxInFlight
	opts.Logger = logger
	opts.MetricsRegistry = registry
	if cfg.RateLimiterTimeout >= 0 {
		opts.RateLimiterTimeoutMS = cfg.RateLimiterTimeout.Milliseconds()
	}

	s, err := stream.NewFromTableSignature(ctx, client, cfg.Table, 30*time.Second, opts)
	if err != nil {
		return err
	}
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.Stop(cfg.ShutdownTimeout); err != nil {
			logger.Warn("stream did not stop cleanly", "error", err)
		}
	}()

	enc := json.NewEncoder(os.Stdout)
	emitted := 0
	for cfg.MaxSamples == 0 || emitted < cfg.MaxSamples {
		rs, err := s.Next(ctx)
		if stderrors.Is(err, errors.ErrEndOfStream) {
			logger.Info("stream ended", "samples", emitted)
			break
		}
		if stderrors.Is(err, context.Canceled) {
			logger.Info("interrupted", "samples", emitted)
			break
		}
		if err != nil {
			return err
		}

		if err := enc.Encode(renderSample(rs)); err != nil {
			return err
		}
		emitted++
	}

	stats := s.Stats()
	logger.Info("done",
		"items_sampled", stats.ItemsSampled,
		"samples_emitted", stats.SamplesEmitted,
		"timesteps_emitted", stats.TimestepsEmitted,
		"rate_limiter_timed_out", stats.RateLimiterTimedOut)
	return nil
}

// renderSample summarizes one sample for output: sampling metadata plus
// the shape of every leaf, without the raw tensor bytes.
func renderSample(rs sample.ReplaySample) map[string]any {
	leaves := make([]string, len(rs.Data))
	for i, t := range rs.Data {
		leaves[i] = t.Spec().String()
	}
	out := map[string]any{
		"key":         rs.Info[0].Key,
		"probability": rs.Info[0].Probability,
		"priority":    rs.Info[0].Priority,
		"table_size":  rs.Info[0].TableSize,
		"leaves":      leaves,
	}
	if len(rs.Info) > 1 {
		out["sequence_length"] = len(rs.Info)
	}
	return out
}
