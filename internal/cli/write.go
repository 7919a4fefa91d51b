package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/setpoint/internal/generate"
	"github.com/roach88/setpoint/internal/ledger"
	"github.com/roach88/setpoint/internal/option"
)

// WriteOptions holds flags for the write command.
type WriteOptions struct {
	*RootOptions
	Schemas         string
	Root            string
	Out             string
	OutputFormat    string // "json" | "configmap"
	CommitSHA       string
	CommitTimestamp string
	Ledger          string
}

// validOutputFormats defines the allowed artifact output formats.
var validOutputFormats = []string{"json", "configmap"}

// WriteResult holds the outcome of a generation run.
type WriteResult struct {
	OutputDir string           `json:"output_dir"`
	Format    string           `json:"format"`
	Files     []string         `json:"files"`
	Artifacts []ArtifactReport `json:"artifacts"`
	RunID     string           `json:"run_id,omitempty"`
}

// ArtifactReport describes one canonical values document of a run.
type ArtifactReport struct {
	Namespace string `json:"namespace"`
	Target    string `json:"target"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Digest    string `json:"digest"`
}

// NewWriteCommand creates the write command.
func NewWriteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WriteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "write",
		Short: "Generate distribution artifacts from an authoring tree",
		Long: `Validate an authoring tree and write its distribution artifacts.

Every (namespace, target) pair except the "default" base layer becomes
one artifact holding the full effective value set: target override over
default-layer value over schema default. Artifacts are canonical JSON
documents, or ConfigMap manifests with --output-format configmap. An
artifact over the size ceiling fails the run before anything is written.

The output directory must not already exist.

Examples:
  setpoint write --schemas ./schemas --root ./values --out ./dist
  setpoint write --schemas ./schemas --root ./values --out ./dist \
    --output-format configmap --commit-sha "$GIT_SHA" --ledger runs.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schemas, "schemas", "", "path to schemas directory (required)")
	_ = cmd.MarkFlagRequired("schemas")
	cmd.Flags().StringVar(&opts.Root, "root", "", "path to authoring tree root (required)")
	_ = cmd.MarkFlagRequired("root")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output directory, must not exist (required)")
	_ = cmd.MarkFlagRequired("out")
	cmd.Flags().StringVar(&opts.OutputFormat, "output-format", "json", "artifact format (json|configmap)")
	cmd.Flags().StringVar(&opts.CommitSHA, "commit-sha", "", "values-repo commit the run is generated from")
	cmd.Flags().StringVar(&opts.CommitTimestamp, "commit-timestamp", "", "commit time, RFC 3339 or unix seconds")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "record the run in this SQLite ledger")

	return cmd
}

func runWrite(opts *WriteOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if !isValidOutputFormat(opts.OutputFormat) {
		return failCode(formatter, ErrCodeGeneric, ExitCommandError,
			fmt.Sprintf("invalid output format %q: must be one of %v", opts.OutputFormat, validOutputFormats))
	}
	commitTime, err := parseCommitTimestamp(opts.CommitTimestamp)
	if err != nil {
		return failCode(formatter, ErrCodeGeneric, ExitCommandError, err.Error())
	}
	if _, err := os.Stat(opts.Out); err == nil {
		return failCode(formatter, ErrCodeWriteFailed, ExitCommandError,
			fmt.Sprintf("output directory %s already exists", opts.Out))
	}

	reg, err := option.LoadRegistry(opts.Schemas)
	if err != nil {
		return fail(formatter, err)
	}
	tree, err := generate.LoadTree(opts.Root, reg)
	if err != nil {
		return outputValuesErrors(formatter, err)
	}

	// The canonical artifacts are built for every run: they enforce the
	// size ceiling and carry the digests the ledger records, whichever
	// presentation format lands on disk.
	artifacts, err := generate.BuildArtifacts(tree, reg)
	if err != nil {
		return fail(formatter, err)
	}
	formatter.VerboseLog("Built %d artifact(s) from %s", len(artifacts), opts.Root)

	generatedAt := time.Now().UTC()
	result := &WriteResult{
		OutputDir: opts.Out,
		Format:    opts.OutputFormat,
		Artifacts: artifactReports(artifacts),
	}

	switch opts.OutputFormat {
	case "json":
		if err := generate.WriteArtifacts(opts.Out, artifacts); err != nil {
			return failCode(formatter, ErrCodeWriteFailed, ExitCommandError, err.Error())
		}
		for _, a := range artifacts {
			result.Files = append(result.Files, a.Name)
		}
	case "configmap":
		meta := generate.ConfigMapMeta{
			GeneratedAt:     generatedAt.Format(time.RFC3339),
			CommitSHA:       opts.CommitSHA,
			CommitTimestamp: opts.CommitTimestamp,
		}
		files, err := generate.WriteConfigMaps(opts.Out, tree, reg, meta)
		if err != nil {
			return fail(formatter, err)
		}
		result.Files = files
	}

	if opts.Ledger != "" {
		runID, err := recordRun(cmd.Context(), opts, commitTime, generatedAt, artifacts)
		if err != nil {
			return failCode(formatter, ErrCodeWriteFailed, ExitCommandError, err.Error())
		}
		result.RunID = runID
	}

	return outputWriteSuccess(formatter, result, opts.Ledger)
}

// isValidOutputFormat checks if the format is one of the allowed values.
func isValidOutputFormat(format string) bool {
	for _, f := range validOutputFormats {
		if f == format {
			return true
		}
	}
	return false
}

// parseCommitTimestamp accepts unix seconds or an RFC 3339 timestamp.
// Empty input is the zero time.
func parseCommitTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --commit-timestamp %q: expected unix seconds or RFC 3339", s)
	}
	return ts.UTC(), nil
}

// artifactReports summarizes canonical artifacts for output and history.
func artifactReports(artifacts []generate.Artifact) []ArtifactReport {
	reports := make([]ArtifactReport, len(artifacts))
	for i, a := range artifacts {
		reports[i] = ArtifactReport{
			Namespace: a.Namespace,
			Target:    a.Target,
			Name:      a.Name,
			Size:      int64(len(a.Data)),
			Digest:    a.Digest(),
		}
	}
	return reports
}

// recordRun writes the run and its artifacts into the ledger.
func recordRun(ctx context.Context, opts *WriteOptions, commitTime, generatedAt time.Time, artifacts []generate.Artifact) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	led, err := ledger.Open(opts.Ledger)
	if err != nil {
		return "", err
	}
	defer led.Close()

	return led.RecordRun(ctx, ledger.RunInfo{
		CommitSHA:       opts.CommitSHA,
		CommitTimestamp: commitTime,
		GeneratedAt:     generatedAt,
	}, artifacts)
}

// outputWriteSuccess outputs the result of a successful run.
func outputWriteSuccess(formatter *OutputFormatter, result *WriteResult, ledgerPath string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Wrote %d file(s) to %s (format %s)\n\n",
		len(result.Files), result.OutputDir, result.Format)
	for _, name := range result.Files {
		fmt.Fprintf(formatter.Writer, "  %s\n", name)
	}
	if len(result.Files) > 0 {
		fmt.Fprintln(formatter.Writer)
	}
	if result.RunID != "" {
		fmt.Fprintf(formatter.Writer, "Recorded run %s in %s\n", result.RunID, ledgerPath)
	}
	return nil
}
