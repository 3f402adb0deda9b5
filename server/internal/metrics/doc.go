// Package metrics exposes server counters in the Prometheus text format.
//
// Recorder keeps a handful of counters and gauges in memory and renders them
// as client_model MetricFamily values, encoded with expfmt:
//
//	fractalscope_estimates_total{source,outcome}  counter
//	fractalscope_threshold_reloads_total          counter
//	fractalscope_threshold                        gauge
//	fractalscope_live_clients                     gauge
//
// source is "api" or "live"; outcome is "detected", "not_detected" or one of
// the fractal error codes. Every source/outcome pair is emitted from startup
// so rate() queries never see a missing series.
//
// Recorder implements http.Handler and is mounted at /metrics.
package metrics
