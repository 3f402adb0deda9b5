// Package cli implements the cobra commands of fractalcalc.
//
// Each subcommand (estimate, batch, stats) lives in its own file. This file
// defines the root command, the global flags and error reporting.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

// Version, Commit and Date are injected from the main package at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	// jsonOutput switches all output to indented JSON.
	jsonOutput bool

	// threshold overrides the classification threshold.
	threshold float64

	// verbose turns on debug logging to stderr.
	verbose bool
}

// estimator builds the estimator for the configured threshold.
func (g *globalFlags) estimator() (*fractal.Estimator, error) {
	est, err := fractal.New(fractal.Config{Threshold: g.threshold})
	if err != nil {
		return nil, WrapCLIError(ExitGeneralError, "invalid --threshold", err)
	}
	return est, nil
}

// NewRootCommand creates the root command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "fractalcalc",
		Short: "Two-point fractal dimension calculator",
		Long: `fractalcalc fits a line through two box-counting measurements on a
log-log scale and compares its slope, the fractal dimension, against a
threshold. A slope above the threshold is reported as CANCER DETECTED.

Each measurement is a pair (N, S): N boxes at dimension S.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),

		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if g.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().Float64Var(&g.threshold, "threshold", fractal.DefaultThreshold,
		"Fractal dimension above which a sample is classified as detected")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(NewEstimateCommand(g))
	rootCmd.AddCommand(NewBatchCommand(g))
	rootCmd.AddCommand(NewStatsCommand(g))

	return rootCmd
}

// Execute runs rootCmd until completion or SIGINT/SIGTERM and exits with the
// command's exit code.
func Execute(rootCmd *cobra.Command) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := Run(ctx, rootCmd)
	cancel()
	os.Exit(int(code))
}

// Run executes rootCmd, reports any error on its stderr and returns the exit
// code.
func Run(ctx context.Context, rootCmd *cobra.Command) ExitCode {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("json")
	printError(rootCmd.ErrOrStderr(), jsonOut, err)
	return exitCodeOf(err)
}

// printError writes err as "Error: ..." text or as a JSON object.
func printError(w io.Writer, jsonOut bool, err error) {
	message, detail := err.Error(), ""
	var ce *CLIError
	if errors.As(err, &ce) {
		message = ce.Message
		if ce.Err != nil {
			detail = ce.Err.Error()
		}
	}

	if !jsonOut {
		if detail != "" && ce.Code != ExitInvalidInput {
			fmt.Fprintf(w, "Error: %s: %s\n", message, detail)
		} else {
			fmt.Fprintf(w, "Error: %s\n", message)
		}
		return
	}

	body := map[string]interface{}{"message": message}
	if detail != "" {
		body["detail"] = detail
	}
	if code := fractal.Code(err); code != fractal.CodeUnknown {
		body["code"] = code
	}
	if field := fractal.FieldOf(err); field != "" {
		body["field"] = field
	}
	data, _ := json.MarshalIndent(map[string]interface{}{"error": body}, "", "  ")
	fmt.Fprintln(w, string(data))
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
