package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

// estimateFlags holds the raw text of the four measurements.
type estimateFlags struct {
	n1, s1, n2, s2 string
}

// NewEstimateCommand creates the "estimate" command.
func NewEstimateCommand(g *globalFlags) *cobra.Command {
	flags := &estimateFlags{}

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the fractal dimension from two measurements",
		Long: `Fit log10(S) = slope * log10(N) + intercept through two measurements
and classify the slope against the threshold.

All four values must be positive numbers and N1 and N2 must differ.
Invalid input exits with status 2.

Examples:
  fractalcalc estimate --n1 10 --s1 10 --n2 100 --s2 1000
  fractalcalc estimate --n1 4 --s1 2.5 --n2 64 --s2 40 --threshold 1.8 --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(cmd.OutOrStdout(), g, flags)
		},
	}

	cmd.Flags().StringVar(&flags.n1, "n1", "", "Number of boxes, first measurement")
	cmd.Flags().StringVar(&flags.s1, "s1", "", "Dimension, first measurement")
	cmd.Flags().StringVar(&flags.n2, "n2", "", "Number of boxes, second measurement")
	cmd.Flags().StringVar(&flags.s2, "s2", "", "Dimension, second measurement")

	return cmd
}

func runEstimate(w io.Writer, g *globalFlags, flags *estimateFlags) error {
	est, err := g.estimator()
	if err != nil {
		return err
	}

	out, err := est.EstimateText(flags.n1, flags.s1, flags.n2, flags.s2)
	if err != nil {
		slog.Debug("estimate rejected", "err", err)
		return inputError(err)
	}
	slog.Debug("estimate computed", "slope", out.Fit.Slope, "intercept", out.Fit.Intercept)

	if g.jsonOutput {
		return writeJSON(w, toEstimateJSON(out))
	}
	printEstimateText(w, out)
	return nil
}

// estimateJSON is the JSON shape of one successful estimate.
type estimateJSON struct {
	N1 float64 `json:"n1"`
	S1 float64 `json:"s1"`
	N2 float64 `json:"n2"`
	S2 float64 `json:"s2"`

	Equation         string  `json:"equation"`
	FractalDimension string  `json:"fractal_dimension"`
	Slope            float64 `json:"slope"`
	Intercept        float64 `json:"intercept"`
	ExceedsThreshold bool    `json:"exceeds_threshold"`
	Threshold        float64 `json:"threshold"`
	Label            string  `json:"label"`
	Message          string  `json:"message"`
}

func toEstimateJSON(e fractal.Estimate) estimateJSON {
	return estimateJSON{
		N1:               e.Input.First.Count,
		S1:               e.Input.First.Dimension,
		N2:               e.Input.Second.Count,
		S2:               e.Input.Second.Dimension,
		Equation:         e.Fit.Equation,
		FractalDimension: fractal.FormatFixed(e.FractalDimension()),
		Slope:            e.Fit.Slope,
		Intercept:        e.Fit.Intercept,
		ExceedsThreshold: e.Classification.ExceedsThreshold,
		Threshold:        e.Classification.Threshold,
		Label:            e.Classification.Label(),
		Message:          e.Classification.Message,
	}
}

// printEstimateText prints the result panel:
//
//	Equation:           y = 2.0000x + -1.0000
//	Fractal dimension:  2.0000
//	Slope:              2.0000
//	Intercept:          -1.0000
//	Result:             CANCER DETECTED
//	Cancer detected - Fractal dimension (2.0000) is above threshold (1.5)
func printEstimateText(w io.Writer, e fractal.Estimate) {
	fmt.Fprintf(w, "%-19s %s\n", "Equation:", e.Fit.Equation)
	fmt.Fprintf(w, "%-19s %s\n", "Fractal dimension:", fractal.FormatFixed(e.FractalDimension()))
	fmt.Fprintf(w, "%-19s %s\n", "Slope:", e.Fit.SlopeText())
	fmt.Fprintf(w, "%-19s %s\n", "Intercept:", e.Fit.InterceptText())
	fmt.Fprintf(w, "%-19s %s\n", "Result:", e.Classification.Label())
	fmt.Fprintln(w, e.Classification.Message)
}
