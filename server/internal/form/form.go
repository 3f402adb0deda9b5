// Package form models the calculator page: four text fields plus whatever the
// last calculation produced.
//
// A Form is presentation state. It is owned by one UI session (one live
// connection) and is not safe for concurrent use. The arithmetic is delegated
// to a fractal.Estimator, which re-validates the fields on every Calculate no
// matter what Ready reported.
package form

import (
	"fmt"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

// Field names, in form order.
const (
	FieldN1 = "n1"
	FieldS1 = "s1"
	FieldN2 = "n2"
	FieldS2 = "s2"
)

// Fields are the raw text values as typed.
type Fields struct {
	N1 string `json:"n1"`
	S1 string `json:"s1"`
	N2 string `json:"n2"`
	S2 string `json:"s2"`
}

// Result is the rendered outcome of a successful calculation.
type Result struct {
	Equation         string  `json:"equation"`
	FractalDimension string  `json:"fractal_dimension"`
	Slope            string  `json:"slope"`
	Intercept        string  `json:"intercept"`
	Label            string  `json:"label"`
	Message          string  `json:"message"`
	ExceedsThreshold bool    `json:"exceeds_threshold"`
	Threshold        float64 `json:"threshold"`
}

// View is an immutable copy of the form for rendering. Result and Error are
// never both set.
type View struct {
	Fields Fields  `json:"fields"`
	Ready  bool    `json:"ready"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
	Field  string  `json:"field,omitempty"`
}

// Form holds the page state between user actions.
type Form struct {
	fields Fields
	result *Result
	err    string
	field  string

	// submitted holds the fields result was computed from.
	submitted Fields
}

// Set updates one field by name.
func (f *Form) Set(name, value string) error {
	return setField(&f.fields, name, value)
}

// Merge applies every non-nil value in upd. If any name is unknown, nothing
// is applied.
func (f *Form) Merge(upd map[string]*string) error {
	next := f.fields
	for name, v := range upd {
		if v == nil {
			continue
		}
		if err := setField(&next, name, *v); err != nil {
			return err
		}
	}
	f.fields = next
	return nil
}

func setField(fs *Fields, name, value string) error {
	switch name {
	case FieldN1:
		fs.N1 = value
	case FieldS1:
		fs.S1 = value
	case FieldN2:
		fs.N2 = value
	case FieldS2:
		fs.S2 = value
	default:
		return fmt.Errorf("form: unknown field %q", name)
	}
	return nil
}

// Fields returns the current text values.
func (f *Form) Fields() Fields { return f.fields }

// Ready reports whether all four fields are non-empty, i.e. whether the
// calculate action should be enabled.
func (f *Form) Ready() bool {
	return f.fields.N1 != "" && f.fields.S1 != "" && f.fields.N2 != "" && f.fields.S2 != ""
}

// HasResult reports whether the last calculation succeeded.
func (f *Form) HasResult() bool { return f.result != nil }

// Calculate runs est over the current fields. On success the result replaces
// any previous error; on failure the user message replaces any previous
// result. It returns the estimator outcome for callers that count it.
func (f *Form) Calculate(est *fractal.Estimator) (fractal.Estimate, error) {
	return f.run(est, f.fields)
}

// Recalculate reruns the last successful calculation with est, using the
// values that produced it rather than any edits made since. It reports false
// and changes nothing when the form holds no result.
func (f *Form) Recalculate(est *fractal.Estimator) bool {
	if f.result == nil {
		return false
	}
	f.run(est, f.submitted) //nolint:errcheck
	return true
}

func (f *Form) run(est *fractal.Estimator, in Fields) (fractal.Estimate, error) {
	out, err := est.EstimateText(in.N1, in.S1, in.N2, in.S2)
	if err != nil {
		f.result = nil
		f.err = fractal.UserMessage(err)
		f.field = fractal.FieldOf(err)
		return fractal.Estimate{}, err
	}
	r := Render(out)
	f.result = &r
	f.submitted = in
	f.err = ""
	f.field = ""
	return out, nil
}

// View returns a copy of the current state.
func (f *Form) View() View {
	v := View{
		Fields: f.fields,
		Ready:  f.Ready(),
		Error:  f.err,
		Field:  f.field,
	}
	if f.result != nil {
		r := *f.result
		v.Result = &r
	}
	return v
}

// Render formats an estimate the way the result panel shows it.
func Render(e fractal.Estimate) Result {
	return Result{
		Equation:         e.Fit.Equation,
		FractalDimension: fractal.FormatFixed(e.FractalDimension()),
		Slope:            e.Fit.SlopeText(),
		Intercept:        e.Fit.InterceptText(),
		Label:            e.Classification.Label(),
		Message:          e.Classification.Message,
		ExceedsThreshold: e.Classification.ExceedsThreshold,
		Threshold:        e.Classification.Threshold,
	}
}
