// Package bench drives a running rawhttp server with keep-alive load and
// records latency percentiles per route scenario.
package bench

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Scenario is one request shape replayed by every worker.
type Scenario struct {
	Name    string
	Method  string
	Path    string
	Headers map[string]string
	Body    []byte
}

// DefaultScenarios covers every route. The upload scenario writes the file
// that the file scenario reads back, so order matters.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{Name: "root", Method: "GET", Path: "/"},
		{Name: "echo", Method: "GET", Path: "/echo/benchmark"},
		{Name: "echo-gzip", Method: "GET", Path: "/echo/benchmark", Headers: map[string]string{"Accept-Encoding": "gzip"}},
		{Name: "user-agent", Method: "GET", Path: "/user-agent", Headers: map[string]string{"User-Agent": "rawhttp-bench/1.0"}},
		{Name: "upload", Method: "POST", Path: "/files/bench.bin", Body: make([]byte, 4096)},
		{Name: "file", Method: "GET", Path: "/files/bench.bin"},
	}
}

// Config holds benchmark configuration.
type Config struct {
	Addr        string
	Scenario    Scenario
	Duration    time.Duration
	Connections int
	Workers     int
	WarmupTime  time.Duration
	KeepAlive   bool
}

// DefaultConfig returns sensible defaults for benchmarking a local server.
func DefaultConfig() Config {
	return Config{
		Addr:        "localhost:4221",
		Duration:    10 * time.Second,
		Connections: 64,
		Workers:     16,
		WarmupTime:  time.Second,
		KeepAlive:   true,
	}
}

// Benchmarker runs one scenario against a server.
type Benchmarker struct {
	config Config
	url    string
	client *http.Client

	// Metrics
	requests  atomic.Int64
	errors    atomic.Int64
	bytesRead atomic.Int64

	latencies *LatencyRecorder

	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a new Benchmarker with the given configuration.
func New(cfg Config) *Benchmarker {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Connections,
		MaxIdleConnsPerHost: cfg.Connections,
		MaxConnsPerHost:     cfg.Connections,
		IdleConnTimeout:     90 * time.Second,
		DisableKeepAlives:   !cfg.KeepAlive,
		DisableCompression:  true,
	}

	return &Benchmarker{
		config: cfg,
		url:    "http://" + cfg.Addr + cfg.Scenario.Path,
		client: &http.Client{
			Transport: transport,
			Timeout:   10 * time.Second,
		},
		latencies: NewLatencyRecorder(),
	}
}

// Run executes the benchmark and returns results.
func (b *Benchmarker) Run(ctx context.Context) (*Result, error) {
	if b.config.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive, got %d", b.config.Workers)
	}
	defer b.client.CloseIdleConnections()

	if b.config.WarmupTime > 0 {
		b.warmup(ctx)
	}

	// Reset metrics for actual benchmark
	b.requests.Store(0)
	b.errors.Store(0)
	b.bytesRead.Store(0)
	b.latencies.Reset()

	b.running.Store(true)
	start := time.Now()

	for i := 0; i < b.config.Workers; i++ {
		b.wg.Add(1)
		go b.worker(ctx)
	}

	select {
	case <-ctx.Done():
	case <-time.After(b.config.Duration):
	}

	b.running.Store(false)
	b.wg.Wait()

	return b.buildResult(time.Since(start)), nil
}

func (b *Benchmarker) warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, b.config.WarmupTime)
	defer cancel()

	b.running.Store(true)

	for i := 0; i < max(b.config.Workers/2, 1); i++ {
		b.wg.Add(1)
		go b.worker(warmupCtx)
	}

	<-warmupCtx.Done()
	b.running.Store(false)
	b.wg.Wait()
}

func (b *Benchmarker) worker(ctx context.Context) {
	defer b.wg.Done()

	for b.running.Load() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		start := time.Now()
		n, err := b.doRequest(ctx)
		latency := time.Since(start)

		if err != nil {
			if ctx.Err() == nil {
				b.errors.Add(1)
			}
			continue
		}
		b.requests.Add(1)
		b.bytesRead.Add(int64(n))
		b.latencies.Record(latency)
	}
}

func (b *Benchmarker) doRequest(ctx context.Context) (int, error) {
	var body io.Reader
	if len(b.config.Scenario.Body) > 0 {
		body = bytes.NewReader(b.config.Scenario.Body)
	}

	req, err := http.NewRequestWithContext(ctx, b.config.Scenario.Method, b.url, body)
	if err != nil {
		return 0, err
	}

	// The server only understands Content-Length framing.
	req.ContentLength = int64(len(b.config.Scenario.Body))

	for k, v := range b.config.Scenario.Headers {
		req.Header.Set(k, v)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	n, _ := io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return int(n), fmt.Errorf("status %d", resp.StatusCode)
	}

	return int(n), nil
}

func (b *Benchmarker) buildResult(elapsed time.Duration) *Result {
	reqs := b.requests.Load()
	bytesRead := b.bytesRead.Load()

	return &Result{
		Scenario:       b.config.Scenario.Name,
		Requests:       reqs,
		Errors:         b.errors.Load(),
		Duration:       elapsed,
		RequestsPerSec: float64(reqs) / elapsed.Seconds(),
		ThroughputBPS:  float64(bytesRead) / elapsed.Seconds(),
		Latency:        b.latencies.Percentiles(),
	}
}
