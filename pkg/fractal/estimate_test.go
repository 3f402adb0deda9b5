package fractal

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func relEqual(a, b, tol float64) bool {
	if a == b {
		return true
	}
	return math.Abs(a-b) <= tol*math.Max(math.Abs(a), math.Abs(b))
}

// --- Concrete scenarios ---

func TestEstimate_SlopeTwo_Detected(t *testing.T) {
	out, err := Default().EstimateValues(10, 10, 100, 1000)
	if err != nil {
		t.Fatalf("EstimateValues: %v", err)
	}
	if !almostEqual(out.Fit.Slope, 2.0, 1e-12) {
		t.Errorf("Slope = %v, want 2.0", out.Fit.Slope)
	}
	if !almostEqual(out.Fit.Intercept, -1.0, 1e-12) {
		t.Errorf("Intercept = %v, want -1.0", out.Fit.Intercept)
	}
	if out.Fit.Equation != "y = 2.0000x + -1.0000" {
		t.Errorf("Equation = %q, want %q", out.Fit.Equation, "y = 2.0000x + -1.0000")
	}
	if !out.Classification.ExceedsThreshold {
		t.Error("ExceedsThreshold = false, want true for slope 2.0")
	}
	want := "Cancer detected - Fractal dimension (2.0000) is above threshold (1.5)"
	if out.Classification.Message != want {
		t.Errorf("Message = %q, want %q", out.Classification.Message, want)
	}
	if out.Classification.Label() != LabelDetected {
		t.Errorf("Label = %q, want %q", out.Classification.Label(), LabelDetected)
	}
}

func TestEstimate_SlopeOne_NotDetected(t *testing.T) {
	out, err := Default().EstimateValues(1, 1, 10, 10)
	if err != nil {
		t.Fatalf("EstimateValues: %v", err)
	}
	if !almostEqual(out.Fit.Slope, 1.0, 1e-12) {
		t.Errorf("Slope = %v, want 1.0", out.Fit.Slope)
	}
	if !almostEqual(out.Fit.Intercept, 0.0, 1e-12) {
		t.Errorf("Intercept = %v, want 0.0", out.Fit.Intercept)
	}
	if out.Classification.ExceedsThreshold {
		t.Error("ExceedsThreshold = true, want false for slope 1.0")
	}
	want := "No cancer detected - Fractal dimension (1.0000) is below threshold (1.5)"
	if out.Classification.Message != want {
		t.Errorf("Message = %q, want %q", out.Classification.Message, want)
	}
	if out.FractalDimension() != out.Fit.Slope {
		t.Errorf("FractalDimension = %v, want slope %v", out.FractalDimension(), out.Fit.Slope)
	}
}

func TestEstimate_NegativeCount_NonPositive(t *testing.T) {
	_, err := Default().EstimateValues(-5, 2, 10, 5)
	if !errors.Is(err, ErrNonPositiveValue) {
		t.Fatalf("err = %v, want ErrNonPositiveValue", err)
	}
	if f := FieldOf(err); f != "n1" {
		t.Errorf("FieldOf = %q, want n1", f)
	}
}

func TestEstimateText_NonNumeric_NotANumber(t *testing.T) {
	_, err := Default().EstimateText("abc", "2", "10", "5")
	if !errors.Is(err, ErrNotANumber) {
		t.Fatalf("err = %v, want ErrNotANumber", err)
	}
	if UserMessage(err) != "Please enter valid numbers." {
		t.Errorf("UserMessage = %q", UserMessage(err))
	}
}

func TestEstimate_EqualCounts_Degenerate(t *testing.T) {
	out, err := Default().EstimateValues(10, 10, 10, 20)
	if !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("err = %v, want ErrDegenerateInput", err)
	}
	if out != (Estimate{}) {
		t.Errorf("partial result returned on error: %+v", out)
	}
	if Code(err) != CodeDegenerateInput {
		t.Errorf("Code = %q, want %q", Code(err), CodeDegenerateInput)
	}
}

func TestEstimate_EqualCountsAndDimensions_Degenerate(t *testing.T) {
	_, err := Default().EstimateValues(7, 3, 7, 3)
	if !errors.Is(err, ErrDegenerateInput) {
		t.Fatalf("err = %v, want ErrDegenerateInput", err)
	}
}

// --- Validation order ---

func TestValidate_NaNBeatsNonPositive(t *testing.T) {
	// n1 is negative but s2 is NaN; the NotANumber pass runs first.
	_, err := Default().EstimateValues(-1, 2, 3, math.NaN())
	if !errors.Is(err, ErrNotANumber) {
		t.Fatalf("err = %v, want ErrNotANumber", err)
	}
	if f := FieldOf(err); f != "s2" {
		t.Errorf("FieldOf = %q, want s2", f)
	}
}

func TestValidate_Infinity_NotANumber(t *testing.T) {
	_, err := Default().EstimateValues(1, math.Inf(1), 3, 4)
	if !errors.Is(err, ErrNotANumber) {
		t.Fatalf("err = %v, want ErrNotANumber", err)
	}
}

func TestValidate_ZeroAnywhere_NonPositive(t *testing.T) {
	cases := [][4]float64{
		{0, 1, 2, 3},
		{1, 0, 2, 3},
		{1, 2, 0, 3},
		{1, 2, 3, 0},
		{1, 2, 3, -0.5},
	}
	for i, c := range cases {
		_, err := Default().EstimateValues(c[0], c[1], c[2], c[3])
		if !errors.Is(err, ErrNonPositiveValue) {
			t.Errorf("case %d %v: err = %v, want ErrNonPositiveValue", i, c, err)
			continue
		}
		if want := fieldNames[i%4]; i < 4 && FieldOf(err) != want {
			t.Errorf("case %d: FieldOf = %q, want %q", i, FieldOf(err), want)
		}
		if UserMessage(err) != "Please enter valid positive numbers." {
			t.Errorf("case %d: UserMessage = %q", i, UserMessage(err))
		}
	}
}

// --- Classification ---

func TestClassify_ExactlyAtThreshold_NotDetected(t *testing.T) {
	c := Default().Classify(1.5)
	if c.ExceedsThreshold {
		t.Error("slope == threshold must not exceed (strict >)")
	}
	if !strings.HasPrefix(c.Message, "No cancer detected") {
		t.Errorf("Message = %q", c.Message)
	}
}

func TestClassify_JustAboveThreshold_Detected(t *testing.T) {
	c := Default().Classify(math.Nextafter(1.5, 2))
	if !c.ExceedsThreshold {
		t.Error("slope just above threshold should exceed")
	}
}

func TestClassify_CustomThreshold(t *testing.T) {
	e, err := New(Config{Threshold: 2.25})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	out, err := e.EstimateValues(10, 10, 100, 1000)
	if err != nil {
		t.Fatalf("EstimateValues: %v", err)
	}
	if out.Classification.ExceedsThreshold {
		t.Error("slope 2.0 should not exceed threshold 2.25")
	}
	want := "No cancer detected - Fractal dimension (2.0000) is below threshold (2.25)"
	if out.Classification.Message != want {
		t.Errorf("Message = %q, want %q", out.Classification.Message, want)
	}
	if out.Classification.Threshold != 2.25 {
		t.Errorf("Threshold = %v, want 2.25", out.Classification.Threshold)
	}
}

func TestNew_RejectsNonFiniteThreshold(t *testing.T) {
	for _, th := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := New(Config{Threshold: th}); err == nil {
			t.Errorf("New(%v): expected error, got nil", th)
		}
	}
}

func TestDefaultConfig(t *testing.T) {
	if got := DefaultConfig().Threshold; got != 1.5 {
		t.Errorf("DefaultConfig().Threshold = %v, want 1.5", got)
	}
}

// --- Properties ---

func TestEstimate_PowerLawPassesThroughBothSamples(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	e := Default()
	for i := 0; i < 500; i++ {
		n1 := 1 + rng.Float64()*999
		n2 := 1 + rng.Float64()*999
		if math.Abs(math.Log10(n2)-math.Log10(n1)) < 0.1 {
			continue
		}
		s1 := 0.01 + rng.Float64()*500
		s2 := 0.01 + rng.Float64()*500

		out, err := e.EstimateValues(n1, s1, n2, s2)
		if err != nil {
			t.Fatalf("EstimateValues(%v, %v, %v, %v): %v", n1, s1, n2, s2, err)
		}
		if got := out.Fit.PredictDimension(n1); !relEqual(got, s1, 1e-9) {
			t.Errorf("a·n1^slope = %v, want s1 = %v", got, s1)
		}
		if got := out.Fit.PredictDimension(n2); !relEqual(got, s2, 1e-9) {
			t.Errorf("a·n2^slope = %v, want s2 = %v", got, s2)
		}
	}
}

func TestEstimate_Idempotent(t *testing.T) {
	e := Default()
	a, errA := e.EstimateValues(3.7, 12.1, 48.2, 900.5)
	b, errB := e.EstimateValues(3.7, 12.1, 48.2, 900.5)
	if errA != nil || errB != nil {
		t.Fatalf("errors: %v, %v", errA, errB)
	}
	if math.Float64bits(a.Fit.Slope) != math.Float64bits(b.Fit.Slope) ||
		math.Float64bits(a.Fit.Intercept) != math.Float64bits(b.Fit.Intercept) {
		t.Errorf("fits differ: %+v vs %+v", a.Fit, b.Fit)
	}
	if a != b {
		t.Errorf("estimates differ: %+v vs %+v", a, b)
	}
}

func TestFit_PredictCountInvertsPredictDimension(t *testing.T) {
	out, err := Default().EstimateValues(2, 5, 40, 300)
	if err != nil {
		t.Fatalf("EstimateValues: %v", err)
	}
	if got := out.Fit.PredictCount(out.Fit.PredictDimension(17)); !relEqual(got, 17, 1e-9) {
		t.Errorf("PredictCount(PredictDimension(17)) = %v, want 17", got)
	}
}

func TestFit_PredictCountFlat(t *testing.T) {
	out, err := Default().EstimateValues(2, 5, 40, 5)
	if err != nil {
		t.Fatalf("EstimateValues: %v", err)
	}
	if !math.IsNaN(out.Fit.PredictCount(5)) {
		t.Errorf("PredictCount on flat fit = %v, want NaN", out.Fit.PredictCount(5))
	}
}

// --- Formatting ---

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2, "2.0000"},
		{-1, "-1.0000"},
		{0, "0.0000"},
		{math.Copysign(0, -1), "0.0000"},
		{1.23456, "1.2346"},
		{-0.00001, "-0.0000"},
	}
	for _, tt := range tests {
		if got := FormatFixed(tt.in); got != tt.want {
			t.Errorf("FormatFixed(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFit_Texts(t *testing.T) {
	f := Fit{Slope: 1.98766, Intercept: -0.12346}
	if f.SlopeText() != "1.9877" {
		t.Errorf("SlopeText = %q, want 1.9877", f.SlopeText())
	}
	if f.InterceptText() != "-0.1235" {
		t.Errorf("InterceptText = %q, want -0.1235", f.InterceptText())
	}
}

func TestFlatFit_NoNegativeZeroInEquation(t *testing.T) {
	// Equal dimensions with decreasing counts gives slope 0/negative = -0.
	out, err := Default().EstimateValues(100, 5, 10, 5)
	if err != nil {
		t.Fatalf("EstimateValues: %v", err)
	}
	if strings.Contains(out.Fit.Equation, "-0.0000x") {
		t.Errorf("Equation = %q, negative zero slope leaked", out.Fit.Equation)
	}
}
