package fractal

import (
	"errors"
	"fmt"
)

// Validation failures. Every error returned by this package wraps exactly one
// of these, so callers can branch with errors.Is.
var (
	// ErrNotANumber means an input could not be read as a finite real number.
	ErrNotANumber = errors.New("not a number")

	// ErrNonPositiveValue means an input parsed but is zero or negative.
	ErrNonPositiveValue = errors.New("non-positive value")

	// ErrDegenerateInput means the two counts do not define a line: their
	// logarithms are equal, so the slope would be ±Inf or NaN.
	ErrDegenerateInput = errors.New("degenerate input")
)

// Machine-readable error codes used in API bodies and metric labels.
const (
	CodeNotANumber       = "not_a_number"
	CodeNonPositiveValue = "non_positive_value"
	CodeDegenerateInput  = "degenerate_input"
	CodeUnknown          = "unknown"
)

// InputError reports which input field failed validation.
type InputError struct {
	// Field is one of "n1", "s1", "n2", "s2". Empty when the failure is not
	// attributable to a single field (degenerate input).
	Field string

	// Value is the offending raw text, when the input came from text.
	Value string

	Err error
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("fractal: %v", e.Err)
	}
	if e.Value != "" {
		return fmt.Sprintf("fractal: %s=%q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("fractal: %s: %v", e.Field, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// UserMessage returns the generic message shown to a user for err.
// It returns "" for a nil error.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotANumber):
		return "Please enter valid numbers."
	case errors.Is(err, ErrNonPositiveValue):
		return "Please enter valid positive numbers."
	case errors.Is(err, ErrDegenerateInput):
		return "Please enter two different numbers of boxes."
	default:
		return "Unable to calculate."
	}
}

// Code maps err to its machine-readable code.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotANumber):
		return CodeNotANumber
	case errors.Is(err, ErrNonPositiveValue):
		return CodeNonPositiveValue
	case errors.Is(err, ErrDegenerateInput):
		return CodeDegenerateInput
	default:
		return CodeUnknown
	}
}

// FieldOf returns the field name carried by err, or "".
func FieldOf(err error) string {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie.Field
	}
	return ""
}
