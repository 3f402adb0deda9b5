package api

import (
	"encoding/json"
	"fmt"

	"github.com/fractalscope/fractalscope/server/internal/form"
)

// FieldValue is one raw calculator input. It accepts a JSON string, a JSON
// number or null, and keeps the text so the estimator can validate it.
type FieldValue string

// UnmarshalJSON implements json.Unmarshaler.
func (v *FieldValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = FieldValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("value must be a string or a number, got %s", b)
	}
	*v = FieldValue(n.String())
	return nil
}

// EstimateRequest is the body of POST /api/v1/estimate.
type EstimateRequest struct {
	N1 FieldValue `json:"n1"`
	S1 FieldValue `json:"s1"`
	N2 FieldValue `json:"n2"`
	S2 FieldValue `json:"s2"`
}

// EstimateResponse is the 200 payload for /api/v1/estimate.
type EstimateResponse struct {
	RequestID string         `json:"request_id"`
	Result    EstimateResult `json:"result"`
}

// EstimateResult carries the raw fit values next to the rendered panel.
type EstimateResult struct {
	Slope            float64          `json:"slope"`
	Intercept        float64          `json:"intercept"`
	FractalDimension float64          `json:"fractal_dimension"`
	Display          form.Result      `json:"display"`
	Diagnostics      []DiagnosticHint `json:"diagnostics"`
}

// ThresholdResponse is the payload for GET /api/v1/threshold.
type ThresholdResponse struct {
	RequestID string  `json:"request_id"`
	Threshold float64 `json:"threshold"`
	Version   uint64  `json:"version"`
	UpdatedAt string  `json:"updated_at"` // RFC3339
}

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	RequestID string  `json:"request_id"`
	Status    string  `json:"status"`
	Version   string  `json:"version"`
	Threshold float64 `json:"threshold"`
}

// ErrorResponse is the JSON error body. Code and Field are set for
// validation failures only.
type ErrorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Field     string `json:"field,omitempty"`
}
