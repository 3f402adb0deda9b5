package metrics

import (
	"io"
	"net/http"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

// Metric names.
const (
	NameEstimates = "fractalscope_estimates_total"
	NameReloads   = "fractalscope_threshold_reloads_total"
	NameThreshold = "fractalscope_threshold"
	NameLive      = "fractalscope_live_clients"
)

// Estimate sources.
const (
	SourceAPI  = "api"
	SourceLive = "live"
)

// Estimate outcomes besides the fractal error codes.
const (
	OutcomeDetected    = "detected"
	OutcomeNotDetected = "not_detected"
)

var (
	sources  = []string{SourceAPI, SourceLive}
	outcomes = []string{
		OutcomeDetected,
		OutcomeNotDetected,
		fractal.CodeNotANumber,
		fractal.CodeNonPositiveValue,
		fractal.CodeDegenerateInput,
	}
)

type seriesKey struct{ source, outcome string }

// Recorder is safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	estimates map[seriesKey]float64
	reloads   float64
	threshold float64
	live      func() int
}

// New returns a Recorder reporting threshold as the initial gauge value.
func New(threshold float64) *Recorder {
	r := &Recorder{
		estimates: make(map[seriesKey]float64, len(sources)*len(outcomes)),
		threshold: threshold,
	}
	for _, s := range sources {
		for _, o := range outcomes {
			r.estimates[seriesKey{s, o}] = 0
		}
	}
	return r
}

// Outcome classifies the result of one estimator call.
func Outcome(est fractal.Estimate, err error) string {
	if err != nil {
		return fractal.Code(err)
	}
	if est.Classification.ExceedsThreshold {
		return OutcomeDetected
	}
	return OutcomeNotDetected
}

// ObserveEstimate counts one estimator call from source.
func (r *Recorder) ObserveEstimate(source string, est fractal.Estimate, err error) {
	k := seriesKey{source, Outcome(est, err)}
	r.mu.Lock()
	r.estimates[k]++
	r.mu.Unlock()
}

// ObserveReload counts a threshold change and updates the gauge.
func (r *Recorder) ObserveReload(threshold float64) {
	r.mu.Lock()
	r.reloads++
	r.threshold = threshold
	r.mu.Unlock()
}

// TrackLiveClients sets the callback sampled for the live client gauge.
func (r *Recorder) TrackLiveClients(fn func() int) {
	r.mu.Lock()
	r.live = fn
	r.mu.Unlock()
}

// Families renders the current values. Series are sorted by label values.
func (r *Recorder) Families() []*dto.MetricFamily {
	r.mu.Lock()
	keys := make([]seriesKey, 0, len(r.estimates))
	for k := range r.estimates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].source != keys[j].source {
			return keys[i].source < keys[j].source
		}
		return keys[i].outcome < keys[j].outcome
	})
	est := make([]*dto.Metric, 0, len(keys))
	for _, k := range keys {
		est = append(est, &dto.Metric{
			Label: []*dto.LabelPair{
				{Name: proto.String("outcome"), Value: proto.String(k.outcome)},
				{Name: proto.String("source"), Value: proto.String(k.source)},
			},
			Counter: &dto.Counter{Value: proto.Float64(r.estimates[k])},
		})
	}
	reloads, threshold, live := r.reloads, r.threshold, r.live
	r.mu.Unlock()

	var liveCount float64
	if live != nil {
		liveCount = float64(live())
	}

	return []*dto.MetricFamily{
		{
			Name:   proto.String(NameEstimates),
			Help:   proto.String("Estimator calls by source and outcome."),
			Type:   dto.MetricType_COUNTER.Enum(),
			Metric: est,
		},
		{
			Name:   proto.String(NameReloads),
			Help:   proto.String("Threshold changes applied from config reloads."),
			Type:   dto.MetricType_COUNTER.Enum(),
			Metric: []*dto.Metric{{Counter: &dto.Counter{Value: proto.Float64(reloads)}}},
		},
		{
			Name:   proto.String(NameThreshold),
			Help:   proto.String("Active classification threshold."),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(threshold)}}},
		},
		{
			Name:   proto.String(NameLive),
			Help:   proto.String("Connected live calculator clients."),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: proto.Float64(liveCount)}}},
		},
	}
}

// Write encodes all families to w in the given exposition format.
func (r *Recorder) Write(w io.Writer, format expfmt.Format) error {
	enc := expfmt.NewEncoder(w, format)
	for _, mf := range r.Families() {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}

// ServeHTTP serves GET /metrics in the text format.
func (r *Recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	w.Header().Set("Content-Type", string(format))
	r.Write(w, format) //nolint:errcheck
}
