package fractal

import (
	"math"
	"strconv"
	"strings"
)

// ParseInput reads the four raw form fields, in n1, s1, n2, s2 order.
//
// Surrounding whitespace is ignored. Empty text, text that is not a number,
// and NaN or infinite values all fail with ErrNotANumber. Positivity is not
// checked here; Estimate does that.
func ParseInput(n1, s1, n2, s2 string) (Input, error) {
	raw := [4]string{n1, s1, n2, s2}
	var vals [4]float64
	for i, text := range raw {
		v, err := parseField(text)
		if err != nil {
			return Input{}, &InputError{Field: fieldNames[i], Value: text, Err: err}
		}
		vals[i] = v
	}
	return Input{
		First:  Pair{Count: vals[0], Dimension: vals[1]},
		Second: Pair{Count: vals[2], Dimension: vals[3]},
	}, nil
}

func parseField(text string) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, ErrNotANumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrNotANumber
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotANumber
	}
	return v, nil
}
