package fractal

import (
	"fmt"
	"math"
	"strconv"
)

// DefaultThreshold is the slope above which a fit is classified as cancerous.
const DefaultThreshold = 1.5

// Classification labels.
const (
	LabelDetected    = "CANCER DETECTED"
	LabelNotDetected = "NO CANCER DETECTED"
)

// Config holds estimator configuration.
type Config struct {
	// Threshold is compared against the fitted slope with a strict ">":
	// a slope exactly equal to Threshold is not flagged.
	Threshold float64 `yaml:"threshold" json:"threshold"`
}

// DefaultConfig returns the calibrated default configuration.
func DefaultConfig() Config {
	return Config{Threshold: DefaultThreshold}
}

// Pair is one (N, S) sample: a box count and the box dimension it was
// counted at.
type Pair struct {
	Count     float64 `json:"count"`
	Dimension float64 `json:"dimension"`
}

// Input is the two samples a fit is drawn through.
type Input struct {
	First  Pair `json:"first"`
	Second Pair `json:"second"`
}

// Values returns the inputs in form order: n1, s1, n2, s2.
func (in Input) Values() [4]float64 {
	return [4]float64{in.First.Count, in.First.Dimension, in.Second.Count, in.Second.Dimension}
}

// fieldNames matches the order of Input.Values.
var fieldNames = [4]string{"n1", "s1", "n2", "s2"}

// Fit is the line through the two log-transformed samples.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`

	// Equation is "y = {slope}x + {intercept}" with 4 decimals each.
	Equation string `json:"equation"`
}

// Coefficient returns a in S = a·N^slope, i.e. 10^intercept.
func (f Fit) Coefficient() float64 {
	return math.Pow(10, f.Intercept)
}

// PredictDimension returns the dimension the power law predicts for count n.
func (f Fit) PredictDimension(n float64) float64 {
	return f.Coefficient() * math.Pow(n, f.Slope)
}

// PredictCount inverts PredictDimension. It returns NaN for a flat fit.
func (f Fit) PredictCount(s float64) float64 {
	if f.Slope == 0 {
		return math.NaN()
	}
	return math.Pow(10, (math.Log10(s)-f.Intercept)/f.Slope)
}

// SlopeText returns the slope with 4 decimals.
func (f Fit) SlopeText() string { return FormatFixed(f.Slope) }

// InterceptText returns the intercept with 4 decimals.
func (f Fit) InterceptText() string { return FormatFixed(f.Intercept) }

// Classification is the verdict for one fitted slope.
type Classification struct {
	ExceedsThreshold bool    `json:"exceeds_threshold"`
	Message          string  `json:"message"`
	Threshold        float64 `json:"threshold"`
}

// Label returns the short heading for the verdict.
func (c Classification) Label() string {
	if c.ExceedsThreshold {
		return LabelDetected
	}
	return LabelNotDetected
}

// Estimate is a fit together with its classification and the inputs it was
// derived from.
type Estimate struct {
	Input          Input          `json:"input"`
	Fit            Fit            `json:"fit"`
	Classification Classification `json:"classification"`
}

// FractalDimension is the fitted slope.
func (e Estimate) FractalDimension() float64 { return e.Fit.Slope }

// Estimator fits and classifies sample pairs against a fixed threshold.
// The zero value is not usable; construct with New.
type Estimator struct {
	threshold float64
}

// New returns an Estimator for cfg. The threshold must be finite.
func New(cfg Config) (*Estimator, error) {
	if math.IsNaN(cfg.Threshold) || math.IsInf(cfg.Threshold, 0) {
		return nil, fmt.Errorf("fractal: threshold must be a finite number, got %v", cfg.Threshold)
	}
	return &Estimator{threshold: cfg.Threshold}, nil
}

// Default returns an Estimator using DefaultConfig.
func Default() *Estimator {
	return &Estimator{threshold: DefaultThreshold}
}

// Threshold returns the configured classification threshold.
func (e *Estimator) Threshold() float64 { return e.threshold }

// Estimate validates in, fits the line and classifies its slope.
func (e *Estimator) Estimate(in Input) (Estimate, error) {
	if err := Validate(in); err != nil {
		return Estimate{}, err
	}
	fit, err := FitLine(in.First, in.Second)
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{
		Input:          in,
		Fit:            fit,
		Classification: e.Classify(fit.Slope),
	}, nil
}

// EstimateValues is Estimate for four bare numbers in form order.
func (e *Estimator) EstimateValues(n1, s1, n2, s2 float64) (Estimate, error) {
	return e.Estimate(Input{
		First:  Pair{Count: n1, Dimension: s1},
		Second: Pair{Count: n2, Dimension: s2},
	})
}

// EstimateText parses four raw text fields and estimates them.
func (e *Estimator) EstimateText(n1, s1, n2, s2 string) (Estimate, error) {
	in, err := ParseInput(n1, s1, n2, s2)
	if err != nil {
		return Estimate{}, err
	}
	return e.Estimate(in)
}

// Classify compares slope against the threshold.
func (e *Estimator) Classify(slope float64) Classification {
	exceeds := slope > e.threshold
	var msg string
	if exceeds {
		msg = fmt.Sprintf("Cancer detected - Fractal dimension (%s) is above threshold (%s)",
			FormatFixed(slope), formatThreshold(e.threshold))
	} else {
		msg = fmt.Sprintf("No cancer detected - Fractal dimension (%s) is below threshold (%s)",
			FormatFixed(slope), formatThreshold(e.threshold))
	}
	return Classification{
		ExceedsThreshold: exceeds,
		Message:          msg,
		Threshold:        e.threshold,
	}
}

// Validate checks in without fitting it: every value must be finite, then
// strictly positive. The first failing field in n1, s1, n2, s2 order is
// reported.
func Validate(in Input) error {
	vals := in.Values()
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return &InputError{Field: fieldNames[i], Err: ErrNotANumber}
		}
	}
	for i, v := range vals {
		if v <= 0 {
			return &InputError{Field: fieldNames[i], Err: ErrNonPositiveValue}
		}
	}
	return nil
}

// FitLine fits y = slope·x + intercept through (log10 N, log10 S) of both
// pairs. Inputs must already be positive; see Validate.
func FitLine(p1, p2 Pair) (Fit, error) {
	x1 := math.Log10(p1.Count)
	x2 := math.Log10(p2.Count)
	y1 := math.Log10(p1.Dimension)
	y2 := math.Log10(p2.Dimension)

	dx := x2 - x1
	if dx == 0 {
		return Fit{}, &InputError{Err: ErrDegenerateInput}
	}

	slope := (y2 - y1) / dx
	intercept := y1 - slope*x1
	if !isFinite(slope) || !isFinite(intercept) {
		return Fit{}, &InputError{Err: ErrDegenerateInput}
	}

	return Fit{
		Slope:     slope,
		Intercept: intercept,
		Equation:  fmt.Sprintf("y = %sx + %s", FormatFixed(slope), FormatFixed(intercept)),
	}, nil
}

// FormatFixed renders v with exactly 4 digits after the decimal point.
// Negative zero renders as "0.0000".
func FormatFixed(v float64) string {
	if v == 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// formatThreshold renders the threshold in its shortest form ("1.5").
func formatThreshold(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
