package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fractalscope/fractalscope/pkg/fractal"
	"github.com/fractalscope/fractalscope/server/internal/calibration"
	"github.com/fractalscope/fractalscope/server/internal/form"
	"github.com/fractalscope/fractalscope/server/internal/metrics"
)

// maxBodyBytes bounds POST bodies; four short numbers fit many times over.
const maxBodyBytes = 4 << 10

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	cal     *calibration.Store
	rec     *metrics.Recorder
	version string
	mux     *http.ServeMux
}

// New creates a Handler wired to the given calibration store and registers
// all routes. rec may be nil.
func New(cal *calibration.Store, rec *metrics.Recorder, version string) http.Handler {
	h := &Handler{cal: cal, rec: rec, version: version, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/estimate", h.estimate)
	h.mux.HandleFunc("/api/v1/threshold", h.threshold)
	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		jsonErr(w, r, http.StatusNotFound, "not found")
	})

	return h
}

// ServeHTTP assigns the request ID, dispatches and logs the request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	id := r.Header.Get("X-Request-Id")
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	w.Header().Set("X-Request-Id", id)

	sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
	h.mux.ServeHTTP(sw, r.WithContext(withRequestID(r.Context(), id)))

	slog.Info("api: request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", sw.code,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", id,
	)
}

// --- route handlers ---------------------------------------------------------

// estimate handles GET and POST /api/v1/estimate.
func (h *Handler) estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req = EstimateRequest{
			N1: FieldValue(q.Get("n1")),
			S1: FieldValue(q.Get("s1")),
			N2: FieldValue(q.Get("n2")),
			S2: FieldValue(q.Get("s2")),
		}
	case http.MethodPost:
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			jsonErr(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	default:
		jsonErr(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	// Load once so the whole calculation sees a single threshold.
	est := h.cal.Current()
	out, err := est.EstimateText(string(req.N1), string(req.S1), string(req.N2), string(req.S2))
	if h.rec != nil {
		h.rec.ObserveEstimate(metrics.SourceAPI, out, err)
	}
	if err != nil {
		jsonResp(w, http.StatusUnprocessableEntity, ErrorResponse{
			RequestID: requestID(r.Context()),
			Error:     fractal.UserMessage(err),
			Code:      fractal.Code(err),
			Field:     fractal.FieldOf(err),
		})
		return
	}

	jsonResp(w, http.StatusOK, EstimateResponse{
		RequestID: requestID(r.Context()),
		Result:    toEstimateResult(out),
	})
}

// threshold returns GET /api/v1/threshold.
func (h *Handler) threshold(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap := h.cal.Snapshot()
	jsonResp(w, http.StatusOK, ThresholdResponse{
		RequestID: requestID(r.Context()),
		Threshold: snap.Estimator.Threshold(),
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{
		RequestID: requestID(r.Context()),
		Status:    "ok",
		Version:   h.version,
		Threshold: h.cal.Current().Threshold(),
	})
}

// --- helpers ----------------------------------------------------------------

func toEstimateResult(e fractal.Estimate) EstimateResult {
	return EstimateResult{
		Slope:            e.Fit.Slope,
		Intercept:        e.Fit.Intercept,
		FractalDimension: e.FractalDimension(),
		Display:          form.Render(e),
		Diagnostics:      computeDiagnostics(e),
	}
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, r *http.Request, code int, msg string) {
	jsonResp(w, code, ErrorResponse{RequestID: requestID(r.Context()), Error: msg})
}

type ctxKey struct{}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// statusWriter records the status code for the access log.
type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

