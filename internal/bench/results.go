package bench

import (
	"encoding/json"
	"strconv"
	"time"
)

// Result holds the outcome of one scenario.
type Result struct {
	Scenario       string        `json:"scenario"`
	Requests       int64         `json:"requests"`
	Errors         int64         `json:"errors"`
	Duration       time.Duration `json:"duration"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	ThroughputBPS  float64       `json:"throughput_bps"`
	Latency        Percentiles   `json:"latency"`
}

// Percentiles holds latency percentile values.
type Percentiles struct {
	Avg  time.Duration `json:"avg"`
	Min  time.Duration `json:"min"`
	Max  time.Duration `json:"max"`
	P50  time.Duration `json:"p50"`
	P90  time.Duration `json:"p90"`
	P99  time.Duration `json:"p99"`
	P999 time.Duration `json:"p99_9"`
}

// Report is the JSON document written by cmd/bench.
type Report struct {
	Timestamp string           `json:"timestamp"`
	Addr      string           `json:"addr"`
	Config    ReportConfig     `json:"config"`
	Results   []ScenarioResult `json:"results"`
}

// ReportConfig records the load settings used for a report.
type ReportConfig struct {
	Duration    string `json:"duration"`
	Connections int    `json:"connections"`
	Workers     int    `json:"workers"`
}

// ScenarioResult is the human-readable form of a Result.
type ScenarioResult struct {
	Scenario       string        `json:"scenario"`
	Requests       int64         `json:"requests"`
	Errors         int64         `json:"errors"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	TransferPerSec string        `json:"transfer_per_sec"`
	Latency        LatencyResult `json:"latency"`
}

// LatencyResult holds latency data in output format.
type LatencyResult struct {
	Avg  string `json:"avg"`
	Max  string `json:"max"`
	P50  string `json:"p50"`
	P90  string `json:"p90"`
	P99  string `json:"p99"`
	P999 string `json:"p99.9"`
}

// ToScenarioResult converts r to its report form.
func (r *Result) ToScenarioResult() ScenarioResult {
	return ScenarioResult{
		Scenario:       r.Scenario,
		Requests:       r.Requests,
		Errors:         r.Errors,
		RequestsPerSec: r.RequestsPerSec,
		TransferPerSec: formatBytes(r.ThroughputBPS) + "/s",
		Latency: LatencyResult{
			Avg:  r.Latency.Avg.String(),
			Max:  r.Latency.Max.String(),
			P50:  r.Latency.P50.String(),
			P90:  r.Latency.P90.String(),
			P99:  r.Latency.P99.String(),
			P999: r.Latency.P999.String(),
		},
	}
}

// ToJSON serializes the report.
func (o *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(o, "", "  ")
}

func formatBytes(b float64) string {
	const unit = 1024
	if b < unit {
		return formatFloat(b) + "B"
	}
	div, exp := float64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return formatFloat(b/div) + string("KMGTPE"[exp]) + "B"
}

func formatFloat(f float64) string {
	switch {
	case f >= 100:
		return strconv.FormatFloat(f, 'f', 0, 64)
	case f >= 10:
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}
