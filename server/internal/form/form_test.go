package form

import (
	"testing"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

func filled(n1, s1, n2, s2 string) *Form {
	f := &Form{}
	_ = f.Set(FieldN1, n1)
	_ = f.Set(FieldS1, s1)
	_ = f.Set(FieldN2, n2)
	_ = f.Set(FieldS2, s2)
	return f
}

func TestForm_ReadyRequiresAllFour(t *testing.T) {
	f := &Form{}
	if f.Ready() {
		t.Error("empty form should not be ready")
	}
	_ = f.Set(FieldN1, "10")
	_ = f.Set(FieldS1, "10")
	_ = f.Set(FieldN2, "100")
	if f.Ready() {
		t.Error("three fields should not be ready")
	}
	_ = f.Set(FieldS2, "1000")
	if !f.Ready() {
		t.Error("four fields should be ready")
	}
}

func TestForm_SetUnknownField(t *testing.T) {
	f := &Form{}
	if err := f.Set("n3", "1"); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestForm_CalculateSuccess(t *testing.T) {
	f := filled("10", "10", "100", "1000")
	if _, err := f.Calculate(fractal.Default()); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	v := f.View()
	if v.Result == nil {
		t.Fatal("Result: got nil")
	}
	if v.Error != "" {
		t.Errorf("Error: got %q, want empty", v.Error)
	}
	if v.Result.Equation != "y = 2.0000x + -1.0000" {
		t.Errorf("Equation: got %q", v.Result.Equation)
	}
	if v.Result.FractalDimension != "2.0000" || v.Result.Slope != "2.0000" {
		t.Errorf("dimension/slope: got %q/%q", v.Result.FractalDimension, v.Result.Slope)
	}
	if v.Result.Intercept != "-1.0000" {
		t.Errorf("Intercept: got %q", v.Result.Intercept)
	}
	if v.Result.Label != fractal.LabelDetected {
		t.Errorf("Label: got %q", v.Result.Label)
	}
}

func TestForm_ErrorClearsResult(t *testing.T) {
	f := filled("10", "10", "100", "1000")
	f.Calculate(fractal.Default()) //nolint:errcheck

	_ = f.Set(FieldN1, "-5")
	if _, err := f.Calculate(fractal.Default()); err == nil {
		t.Fatal("expected error, got nil")
	}
	v := f.View()
	if v.Result != nil {
		t.Errorf("Result: got %+v, want nil after error", v.Result)
	}
	if v.Error != "Please enter valid positive numbers." {
		t.Errorf("Error: got %q", v.Error)
	}
	if v.Field != FieldN1 {
		t.Errorf("Field: got %q, want n1", v.Field)
	}
}

func TestForm_ResultClearsError(t *testing.T) {
	f := filled("abc", "10", "100", "1000")
	f.Calculate(fractal.Default()) //nolint:errcheck
	if f.View().Error != "Please enter valid numbers." {
		t.Fatalf("Error: got %q", f.View().Error)
	}

	_ = f.Set(FieldN1, "10")
	if _, err := f.Calculate(fractal.Default()); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	v := f.View()
	if v.Error != "" || v.Field != "" {
		t.Errorf("Error/Field: got %q/%q, want empty", v.Error, v.Field)
	}
	if v.Result == nil {
		t.Error("Result: got nil")
	}
}

func TestForm_CalculateRevalidatesWhenNotReady(t *testing.T) {
	// Callers are expected to check Ready, but the core still rejects.
	f := filled("10", "", "100", "1000")
	if _, err := f.Calculate(fractal.Default()); err == nil {
		t.Fatal("expected error for empty field, got nil")
	}
	if f.View().Field != FieldS1 {
		t.Errorf("Field: got %q, want s1", f.View().Field)
	}
}

func TestForm_ViewIsACopy(t *testing.T) {
	f := filled("1", "1", "10", "10")
	f.Calculate(fractal.Default()) //nolint:errcheck
	v := f.View()
	v.Result.Message = "tampered"
	if f.View().Result.Message == "tampered" {
		t.Error("mutating a View changed the form")
	}
}

func TestForm_Merge(t *testing.T) {
	f := filled("1", "2", "3", "4")
	s2 := "40"
	if err := f.Merge(map[string]*string{FieldS2: &s2, FieldN1: nil}); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := Fields{N1: "1", S1: "2", N2: "3", S2: "40"}
	if f.Fields() != want {
		t.Errorf("Fields: got %+v, want %+v", f.Fields(), want)
	}
	bad := "x"
	if err := f.Merge(map[string]*string{"z": &bad}); err == nil {
		t.Error("expected error for unknown field, got nil")
	}
}

func TestForm_MergeUnknownFieldAppliesNothing(t *testing.T) {
	f := filled("1", "2", "3", "4")
	before := f.Fields()
	n1, bad := "5", "x"
	// Map order is random, so repeat until the valid key has surely been
	// visited before the unknown one at least once.
	for i := 0; i < 200; i++ {
		if err := f.Merge(map[string]*string{FieldN1: &n1, "bogus": &bad}); err == nil {
			t.Fatal("expected error for unknown field, got nil")
		}
		if f.Fields() != before {
			t.Fatalf("iteration %d: Fields: got %+v, want %+v", i, f.Fields(), before)
		}
	}
}

func TestForm_RecalculateUsesSubmittedValues(t *testing.T) {
	f := filled("10", "10", "100", "1000")
	if _, err := f.Calculate(fractal.Default()); err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if err := f.Set(FieldS2, "abc"); err != nil {
		t.Fatal(err)
	}

	est, err := fractal.New(fractal.Config{Threshold: 2.5})
	if err != nil {
		t.Fatal(err)
	}
	if !f.Recalculate(est) {
		t.Fatal("Recalculate: got false, want true")
	}

	v := f.View()
	if v.Result == nil {
		t.Fatalf("result cleared after recalculation, error %q", v.Error)
	}
	if v.Result.Label != fractal.LabelNotDetected {
		t.Errorf("label: got %q, want %q", v.Result.Label, fractal.LabelNotDetected)
	}
	if v.Result.FractalDimension != "2.0000" {
		t.Errorf("dimension: got %q, want 2.0000", v.Result.FractalDimension)
	}
	if v.Fields.S2 != "abc" {
		t.Errorf("edited field: got %q, want abc", v.Fields.S2)
	}
}

func TestForm_RecalculateWithoutResult(t *testing.T) {
	f := filled("10", "10", "100", "1000")
	if f.Recalculate(fractal.Default()) {
		t.Error("Recalculate on a fresh form: got true, want false")
	}
	if f.HasResult() {
		t.Error("Recalculate produced a result without a prior calculation")
	}
}
