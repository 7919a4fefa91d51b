package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/setpoint/internal/ledger"
)

// DefaultLedgerPath is where history looks for the generation ledger
// when --ledger is not given.
const DefaultLedgerPath = "setpoint-ledger.db"

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Ledger    string
	Namespace string
	Limit     int
}

// HistoryResult holds the runs reported by the history command.
type HistoryResult struct {
	Runs []RunReport `json:"runs"`
}

// RunReport describes one recorded generation run.
type RunReport struct {
	ID              string           `json:"id"`
	CommitSHA       string           `json:"commit_sha,omitempty"`
	CommitTimestamp string           `json:"commit_timestamp,omitempty"`
	GeneratedAt     string           `json:"generated_at"`
	Artifacts       []ArtifactReport `json:"artifacts"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs",
		Long: `List generation runs recorded in a ledger, newest first.

Each run shows its commit provenance and the artifacts it emitted.

Examples:
  setpoint history --ledger runs.db
  setpoint history --ledger runs.db --namespace relay --limit 10`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Ledger, "ledger", DefaultLedgerPath, "path to the generation ledger")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "only runs that emitted this namespace")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum runs to list (0 = all)")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// Opening a SQLite path creates it, so a missing ledger must be
	// caught first.
	if _, err := os.Stat(opts.Ledger); err != nil {
		return failCode(formatter, ErrCodeNotFound, ExitCommandError,
			fmt.Sprintf("ledger not found: %s", opts.Ledger))
	}

	led, err := ledger.Open(opts.Ledger)
	if err != nil {
		return fail(formatter, err)
	}
	defer led.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	runs, err := led.ListRuns(ctx, ledger.RunQuery{Namespace: opts.Namespace, Limit: opts.Limit})
	if err != nil {
		return fail(formatter, err)
	}

	result := HistoryResult{Runs: []RunReport{}}
	for _, run := range runs {
		records, err := led.RunArtifacts(ctx, run.ID)
		if err != nil {
			return fail(formatter, err)
		}
		result.Runs = append(result.Runs, runReport(run, records))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputHistoryText(formatter, result)
}

// runReport converts a ledger run and its artifact rows into a report.
func runReport(run ledger.Run, records []ledger.ArtifactRecord) RunReport {
	report := RunReport{
		ID:          run.ID,
		CommitSHA:   run.CommitSHA,
		GeneratedAt: run.GeneratedAt.UTC().Format(time.RFC3339),
		Artifacts:   []ArtifactReport{},
	}
	if !run.CommitTimestamp.IsZero() {
		report.CommitTimestamp = run.CommitTimestamp.UTC().Format(time.RFC3339)
	}
	for _, rec := range records {
		report.Artifacts = append(report.Artifacts, ArtifactReport{
			Namespace: rec.Namespace,
			Target:    rec.Target,
			Name:      rec.Name,
			Size:      rec.Size,
			Digest:    rec.Digest,
		})
	}
	return report
}

// outputHistoryText renders run history as text. Artifact rows show
// under --verbose.
func outputHistoryText(formatter *OutputFormatter, result HistoryResult) error {
	w := formatter.Writer

	if len(result.Runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}

	fmt.Fprintf(w, "%d run(s)\n\n", len(result.Runs))
	for _, run := range result.Runs {
		fmt.Fprintf(w, "Run %s\n", run.ID)
		fmt.Fprintf(w, "  generated: %s\n", run.GeneratedAt)
		if run.CommitSHA != "" {
			if run.CommitTimestamp != "" {
				fmt.Fprintf(w, "  commit:    %s (%s)\n", run.CommitSHA, run.CommitTimestamp)
			} else {
				fmt.Fprintf(w, "  commit:    %s\n", run.CommitSHA)
			}
		}
		fmt.Fprintf(w, "  artifacts: %d\n", len(run.Artifacts))
		if formatter.Verbose {
			for _, a := range run.Artifacts {
				fmt.Fprintf(w, "    %s/%s %s (%d bytes, sha256 %s)\n",
					a.Namespace, a.Target, a.Name, a.Size, a.Digest)
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
