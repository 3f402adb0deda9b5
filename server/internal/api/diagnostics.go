package api

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

// Diagnostic levels, most severe first.
const (
	LevelCritical = "critical"
	LevelWarning  = "warning"
	LevelInfo     = "info"
	LevelOK       = "ok"
)

// nearThresholdBand is how close to the threshold a slope must be for the
// verdict to be called fragile.
const nearThresholdBand = 0.05

// steepSlope is the magnitude beyond which a fit is outside the range box
// counting produces for planar or volumetric images.
const steepSlope = 3.0

// DiagnosticHint is one human-readable note about a fit. The UI renders
// these as chips under the result; Detail is shown on click.
type DiagnosticHint struct {
	// Key is a stable machine-readable identifier.
	Key string `json:"key"`
	// Level is "ok" | "info" | "warning" | "critical".
	Level string `json:"level"`
	// Title is a short label shown on the chip.
	Title string `json:"title"`
	// Detail is the full explanation.
	Detail string `json:"detail"`
	// Value is an optional number associated with this hint.
	Value *float64 `json:"value,omitempty"`
}

// computeDiagnostics derives hints from an estimate, ordered critical first,
// then warnings, info and ok.
func computeDiagnostics(e fractal.Estimate) []DiagnosticHint {
	var hints []DiagnosticHint

	slope := e.Fit.Slope
	th := e.Classification.Threshold
	thText := strconv.FormatFloat(th, 'f', -1, 64)

	if e.Classification.ExceedsThreshold {
		v := slope
		hints = append(hints, DiagnosticHint{
			Key:   "threshold_exceeded",
			Level: LevelCritical,
			Title: "Above threshold",
			Detail: fmt.Sprintf(
				"The fitted fractal dimension %s is above the %s threshold. "+
					"In this model an irregular, space-filling boundary is read as a sign of "+
					"malignant growth. Repeat the count at two other box sizes before relying on it.",
				fractal.FormatFixed(slope), thText),
			Value: &v,
		})
	} else {
		v := slope
		hints = append(hints, DiagnosticHint{
			Key:   "below_threshold",
			Level: LevelOK,
			Title: "Below threshold",
			Detail: fmt.Sprintf(
				"The fitted fractal dimension %s does not exceed the %s threshold.",
				fractal.FormatFixed(slope), thText),
			Value: &v,
		})
	}

	if d := math.Abs(slope - th); d < nearThresholdBand {
		v := d
		hints = append(hints, DiagnosticHint{
			Key:   "near_threshold",
			Level: LevelWarning,
			Title: "Close to threshold",
			Detail: fmt.Sprintf(
				"The slope is within %s of the threshold. A small counting error in either "+
					"sample could flip the verdict.", fractal.FormatFixed(d)),
			Value: &v,
		})
	}

	if math.Abs(slope) > steepSlope {
		v := slope
		hints = append(hints, DiagnosticHint{
			Key:   "steep_fit",
			Level: LevelWarning,
			Title: "Unusually steep fit",
			Detail: fmt.Sprintf(
				"A slope of %s is outside what box counting produces for images. "+
					"Check that counts and dimensions were not swapped or mistyped.",
				fractal.FormatFixed(slope)),
			Value: &v,
		})
	}

	if slope < 0 {
		hints = append(hints, DiagnosticHint{
			Key:   "negative_slope",
			Level: LevelInfo,
			Title: "Negative slope",
			Detail: "The dimension shrinks as the box count grows. " +
				"That is expected when S is the box edge length rather than its inverse.",
		})
	}

	if e.Input.Second.Count < e.Input.First.Count {
		hints = append(hints, DiagnosticHint{
			Key:    "counts_reversed",
			Level:  LevelInfo,
			Title:  "Samples in reverse order",
			Detail: "The second sample has fewer boxes than the first. The fit is the same either way.",
		})
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return levelRank(hints[i].Level) < levelRank(hints[j].Level)
	})
	return hints
}

func levelRank(level string) int {
	switch level {
	case LevelCritical:
		return 0
	case LevelWarning:
		return 1
	case LevelInfo:
		return 2
	default:
		return 3
	}
}
