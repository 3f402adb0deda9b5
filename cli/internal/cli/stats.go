package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fractalscope/fractalscope/cli/internal/stats"
)

type statsFlags struct {
	server  string
	watch   time.Duration
	timeout time.Duration
}

// NewStatsCommand creates the "stats" command.
func NewStatsCommand(g *globalFlags) *cobra.Command {
	flags := &statsFlags{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise a running fractalscope-server",
		Long: `Fetch the server's /metrics endpoint and print estimate totals by
outcome, the active threshold and open live connections.

With --watch, poll at that interval and also print per-minute rates until
interrupted.

Examples:
  fractalcalc stats --server http://localhost:8080
  fractalcalc stats --watch 30s`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd.Context(), cmd.OutOrStdout(), g, flags)
		},
	}

	cmd.Flags().StringVar(&flags.server, "server", "http://localhost:8080", "Base URL of the server")
	cmd.Flags().DurationVar(&flags.watch, "watch", 0, "Poll interval; 0 fetches once")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", stats.DefaultTimeout, "HTTP timeout per fetch")

	return cmd
}

func runStats(ctx context.Context, w io.Writer, g *globalFlags, flags *statsFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if flags.watch < 0 {
		return NewCLIError(ExitGeneralError, "--watch must not be negative")
	}
	client := &http.Client{Timeout: flags.timeout}

	cur, err := stats.Fetch(ctx, client, flags.server)
	if err != nil {
		return WrapCLIError(ExitGeneralError, "fetch server metrics", err)
	}
	if err := printStats(w, g.jsonOutput, cur, nil); err != nil {
		return err
	}
	if flags.watch == 0 {
		return nil
	}

	t := time.NewTicker(flags.watch)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
		next, err := stats.Fetch(ctx, client, flags.server)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return WrapCLIError(ExitGeneralError, "fetch server metrics", err)
		}
		rate := stats.RateBetween(cur, next)
		if err := printStats(w, g.jsonOutput, next, &rate); err != nil {
			return err
		}
		cur = next
	}
}

func printStats(w io.Writer, jsonOut bool, s *stats.Summary, rate *stats.Rate) error {
	if jsonOut {
		return writeJSON(w, struct {
			*stats.Summary
			Rate *stats.Rate `json:"rate,omitempty"`
		}{s, rate})
	}

	fmt.Fprintf(w, "%-14s %s\n", "Server:", s.Server)
	fmt.Fprintf(w, "%-14s %g\n", "Threshold:", s.Threshold)
	fmt.Fprintf(w, "%-14s %.0f\n", "Live clients:", s.LiveClients)
	fmt.Fprintf(w, "%-14s %.0f\n", "Reloads:", s.Reloads)
	fmt.Fprintf(w, "%-14s %.0f (detected %.1f%%, errors %.1f%%)\n",
		"Estimates:", s.Total, s.DetectedPct, s.ErrorPct)
	if rate != nil {
		fmt.Fprintf(w, "%-14s %.1f/min (detected %.1f/min, errors %.1f/min)\n",
			"Rate:", rate.PerMinute, rate.DetectedPM, rate.ErrorsPM)
	}

	fmt.Fprintf(w, "\n%-20s %8s %8s %8s\n", "OUTCOME", "API", "LIVE", "TOTAL")
	for _, o := range s.OutcomeNames() {
		fmt.Fprintf(w, "%-20s %8.0f %8.0f %8.0f\n",
			o, s.BySource["api"][o], s.BySource["live"][o], s.Outcomes[o])
	}
	return nil
}
