// Package stats reads a running fractalscope-server's /metrics endpoint and
// summarises it for the CLI.
package stats

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Metric names exported by the server.
const (
	metricEstimates = "fractalscope_estimates_total"
	metricReloads   = "fractalscope_threshold_reloads_total"
	metricThreshold = "fractalscope_threshold"
	metricLive      = "fractalscope_live_clients"
)

// Outcome labels that count as a successful classification.
const (
	outcomeDetected    = "detected"
	outcomeNotDetected = "not_detected"
)

// DefaultTimeout bounds a single fetch when the caller's client has none.
const DefaultTimeout = 10 * time.Second

// Summary is one reading of the server's counters.
type Summary struct {
	Server    string    `json:"server"`
	FetchedAt time.Time `json:"fetched_at"`

	Threshold   float64 `json:"threshold"`
	Reloads     float64 `json:"reloads"`
	LiveClients float64 `json:"live_clients"`

	// Outcomes sums estimate counters across sources, keyed by outcome.
	Outcomes map[string]float64 `json:"outcomes"`
	// BySource holds the same counters split by source ("api", "live").
	BySource map[string]map[string]float64 `json:"by_source"`
	// Total is the sum of all estimate counters.
	Total float64 `json:"total"`
	// DetectedPct is detected / (detected + not_detected) * 100.
	DetectedPct float64 `json:"detected_pct"`
	// ErrorPct is the share of estimates rejected by validation.
	ErrorPct float64 `json:"error_pct"`
}

// Rate is the change between two summaries of the same server.
type Rate struct {
	Elapsed     time.Duration `json:"elapsed"`
	PerMinute   float64       `json:"per_minute"`
	DetectedPM  float64       `json:"detected_per_minute"`
	ErrorsPM    float64       `json:"errors_per_minute"`
	ReloadDelta float64       `json:"reloads"`
}

// Fetch GETs server + "/metrics" and summarises it. client may be nil.
func Fetch(ctx context.Context, client *http.Client, server string) (*Summary, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	url := strings.TrimRight(server, "/") + "/metrics"

	mfs, err := fetchMetrics(ctx, client, url)
	if err != nil {
		return nil, fmt.Errorf("stats: %s: %w", url, err)
	}
	s := Summarize(mfs)
	s.Server = server
	s.FetchedAt = time.Now().UTC()
	return s, nil
}

// Summarize builds a Summary from parsed metric families. Missing families
// read as zero.
func Summarize(mfs map[string]*dto.MetricFamily) *Summary {
	s := &Summary{
		Threshold:   sumFamily(mfs[metricThreshold]),
		Reloads:     sumFamily(mfs[metricReloads]),
		LiveClients: sumFamily(mfs[metricLive]),
		Outcomes:    make(map[string]float64),
		BySource:    make(map[string]map[string]float64),
	}

	if mf := mfs[metricEstimates]; mf != nil {
		for _, m := range mf.GetMetric() {
			v := valueOf(m)
			source, outcome := label(m, "source"), label(m, "outcome")
			s.Outcomes[outcome] += v
			if s.BySource[source] == nil {
				s.BySource[source] = make(map[string]float64)
			}
			s.BySource[source][outcome] += v
			s.Total += v
		}
	}

	det, not := s.Outcomes[outcomeDetected], s.Outcomes[outcomeNotDetected]
	if det+not > 0 {
		s.DetectedPct = det / (det + not) * 100
	}
	if s.Total > 0 {
		s.ErrorPct = s.Errors() / s.Total * 100
	}
	return s
}

// Errors is the number of estimates rejected by validation.
func (s *Summary) Errors() float64 {
	return s.Total - s.Outcomes[outcomeDetected] - s.Outcomes[outcomeNotDetected]
}

// OutcomeNames returns the outcome keys in sorted order.
func (s *Summary) OutcomeNames() []string {
	names := make([]string, 0, len(s.Outcomes))
	for k := range s.Outcomes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// RateBetween derives per-minute rates from two readings. A counter that went
// backwards (server restart) contributes zero.
func RateBetween(prev, cur *Summary) Rate {
	elapsed := cur.FetchedAt.Sub(prev.FetchedAt)
	mins := elapsed.Minutes()
	if mins <= 0 {
		mins = 1 // guard against zero or negative clock drift
	}
	return Rate{
		Elapsed:     elapsed,
		PerMinute:   deltaOf(cur.Total, prev.Total) / mins,
		DetectedPM:  deltaOf(cur.Outcomes[outcomeDetected], prev.Outcomes[outcomeDetected]) / mins,
		ErrorsPM:    deltaOf(cur.Errors(), prev.Errors()) / mins,
		ReloadDelta: deltaOf(cur.Reloads, prev.Reloads),
	}
}

// --- internal ---------------------------------------------------------------

// fetchMetrics performs an HTTP GET to url and returns parsed metric families.
func fetchMetrics(ctx context.Context, client *http.Client, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r. A partial result
// with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// sumFamily adds up all counter, gauge, or untyped values in a MetricFamily.
// Returns 0 if mf is nil (metric not present in the scrape).
func sumFamily(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		total += valueOf(m)
	}
	return total
}

func valueOf(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Untyped != nil:
		return m.Untyped.GetValue()
	}
	return 0
}

func label(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func deltaOf(current, previous float64) float64 {
	d := current - previous
	if d < 0 {
		return 0
	}
	return d
}
