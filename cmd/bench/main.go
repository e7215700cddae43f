// Package main provides the benchmark runner CLI for a running rawhttp server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goceleris/rawhttp/internal/bench"
)

func main() {
	def := bench.DefaultConfig()

	addr := flag.String("addr", def.Addr, "Server address")
	duration := flag.Duration("duration", def.Duration, "Duration per scenario")
	connections := flag.Int("connections", def.Connections, "Maximum connections")
	workers := flag.Int("workers", def.Workers, "Number of worker goroutines")
	warmup := flag.Duration("warmup", def.WarmupTime, "Warmup duration per scenario")
	keepAlive := flag.Bool("keep-alive", true, "Reuse connections between requests")
	only := flag.String("scenarios", "", "Comma-separated scenario names (empty runs all)")
	out := flag.String("out", "", "Write the JSON report to this file instead of stdout")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	scenarios, err := selectScenarios(*only)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	report := &bench.Report{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Addr:      *addr,
		Config: bench.ReportConfig{
			Duration:    duration.String(),
			Connections: *connections,
			Workers:     *workers,
		},
	}

	for _, sc := range scenarios {
		if ctx.Err() != nil {
			break
		}
		logger.Info("running scenario", "scenario", sc.Name, "method", sc.Method, "path", sc.Path)

		res, err := bench.New(bench.Config{
			Addr:        *addr,
			Scenario:    sc,
			Duration:    *duration,
			Connections: *connections,
			Workers:     *workers,
			WarmupTime:  *warmup,
			KeepAlive:   *keepAlive,
		}).Run(ctx)
		if err != nil {
			logger.Error("scenario failed", "scenario", sc.Name, "error", err)
			os.Exit(1)
		}

		logger.Info("scenario complete",
			"scenario", sc.Name,
			"requests", res.Requests,
			"errors", res.Errors,
			"rps", int64(res.RequestsPerSec),
			"p99", res.Latency.P99)
		report.Results = append(report.Results, res.ToScenarioResult())
	}

	data, err := report.ToJSON()
	if err != nil {
		logger.Error("failed to encode report", "error", err)
		os.Exit(1)
	}

	if *out == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*out, data, 0644); err != nil {
		logger.Error("failed to write report", "file", *out, "error", err)
		os.Exit(1)
	}
	logger.Info("report written", "file", *out)
}

func selectScenarios(only string) ([]bench.Scenario, error) {
	all := bench.DefaultScenarios()
	if only == "" {
		return all, nil
	}

	byName := make(map[string]bench.Scenario, len(all))
	for _, sc := range all {
		byName[sc.Name] = sc
	}

	var picked []bench.Scenario
	for _, name := range strings.Split(only, ",") {
		sc, ok := byName[strings.TrimSpace(name)]
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		picked = append(picked, sc)
	}
	return picked, nil
}
