package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

// BatchEntry is one measurement set in a batch file. Values are kept as the
// raw YAML text so they go through the same parsing as typed input.
type BatchEntry struct {
	Name string `yaml:"name"`
	N1   string `yaml:"n1"`
	S1   string `yaml:"s1"`
	N2   string `yaml:"n2"`
	S2   string `yaml:"s2"`
}

// BatchResult is the outcome of one entry. Exactly one of Estimate and Error
// is set.
type BatchResult struct {
	Name     string            `json:"name"`
	Estimate *estimateJSON     `json:"estimate,omitempty"`
	Error    *batchErrorDetail `json:"error,omitempty"`
}

type batchErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

// NewBatchCommand creates the "batch" command.
func NewBatchCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "batch FILE",
		Short: "Estimate every entry of a YAML batch file",
		Long: `Read a YAML list of measurement sets and estimate each one
independently. An invalid entry is reported and the batch continues.
The command exits with status 2 if any entry failed.

Use "-" as FILE to read from standard input.

File format:
  - name: biopsy-a
    n1: 10
    s1: 10
    n2: 100
    s2: 1000
  - name: biopsy-b
    n1: 4
    s1: 2.5
    n2: 64
    s2: 40`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readBatch(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return runBatch(cmd.OutOrStdout(), g, entries)
		},
	}
}

// readBatch loads entries from path, or from stdin when path is "-".
func readBatch(stdin io.Reader, path string) ([]BatchEntry, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, WrapCLIError(ExitGeneralError, fmt.Sprintf("read batch file %q", path), err)
	}
	return ParseBatch(data)
}

// ParseBatch decodes a YAML batch. Unnamed entries are named by position.
func ParseBatch(data []byte) ([]BatchEntry, error) {
	var entries []BatchEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, WrapCLIError(ExitGeneralError, "parse batch file", err)
	}
	for i := range entries {
		if entries[i].Name == "" {
			entries[i].Name = fmt.Sprintf("#%d", i+1)
		}
	}
	return entries, nil
}

// EvaluateBatch estimates each entry with est. It never stops early.
func EvaluateBatch(est *fractal.Estimator, entries []BatchEntry) []BatchResult {
	results := make([]BatchResult, 0, len(entries))
	for _, e := range entries {
		r := BatchResult{Name: e.Name}
		out, err := est.EstimateText(e.N1, e.S1, e.N2, e.S2)
		if err != nil {
			slog.Debug("batch entry rejected", "name", e.Name, "err", err)
			r.Error = &batchErrorDetail{
				Message: fractal.UserMessage(err),
				Code:    fractal.Code(err),
				Field:   fractal.FieldOf(err),
			}
		} else {
			j := toEstimateJSON(out)
			r.Estimate = &j
		}
		results = append(results, r)
	}
	return results
}

func runBatch(w io.Writer, g *globalFlags, entries []BatchEntry) error {
	est, err := g.estimator()
	if err != nil {
		return err
	}

	results := EvaluateBatch(est, entries)
	failed := 0
	for _, r := range results {
		if r.Error != nil {
			failed++
		}
	}

	if g.jsonOutput {
		out := struct {
			Results []BatchResult `json:"results"`
			Total   int           `json:"total"`
			Failed  int           `json:"failed"`
		}{Results: results, Total: len(results), Failed: failed}
		if err := writeJSON(w, out); err != nil {
			return err
		}
	} else {
		printBatchText(w, results)
	}

	if failed > 0 {
		return NewCLIError(ExitInvalidInput, fmt.Sprintf("%d of %d entries failed", failed, len(results)))
	}
	return nil
}

// printBatchText prints one row per entry:
//
//	NAME        DIMENSION  RESULT              EQUATION
//	biopsy-a    2.0000     CANCER DETECTED     y = 2.0000x + -1.0000
//	biopsy-c    -          ERROR               Please enter valid numbers. (n1)
func printBatchText(w io.Writer, results []BatchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return
	}
	fmt.Fprintf(w, "%-20s %-10s %-20s %s\n", "NAME", "DIMENSION", "RESULT", "EQUATION")
	for _, r := range results {
		if r.Error != nil {
			detail := r.Error.Message
			if r.Error.Field != "" {
				detail += " (" + r.Error.Field + ")"
			}
			fmt.Fprintf(w, "%-20s %-10s %-20s %s\n", r.Name, "-", "ERROR", detail)
			continue
		}
		fmt.Fprintf(w, "%-20s %-10s %-20s %s\n",
			r.Name, r.Estimate.FractalDimension, r.Estimate.Label, r.Estimate.Equation)
	}
}
