// Package fractal implements the two-point log-log slope estimator behind the
// cancer-screening calculator.
//
// estimate.go provides the pure Estimate function: two (count, dimension)
// pairs are log10-transformed, a line is fitted through both points and the
// slope (the "fractal dimension") is classified against a threshold.
//
//	x = log10(N), y = log10(S)
//	slope     = (y2 - y1) / (x2 - x1)
//	intercept = y1 - slope*x1
//
// The threshold is configuration, not a constant: New(Config{Threshold: t})
// returns an Estimator bound to t. DefaultConfig uses 1.5.
//
// parse.go turns the four raw text fields of a form into numbers and reports
// which field could not be read.
//
// Validation order: NotANumber, then NonPositiveValue, then DegenerateInput
// (equal counts). No partial result is returned on error. An Estimator holds
// no mutable state and is safe for concurrent use.
package fractal
