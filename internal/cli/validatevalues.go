package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/setpoint/internal/generate"
	"github.com/roach88/setpoint/internal/option"
)

// ValidateValuesOptions holds flags for the validate-values command.
type ValidateValuesOptions struct {
	*RootOptions
	Schemas string
	Root    string
}

// ValuesReport summarizes a validated authoring tree.
type ValuesReport struct {
	Namespaces []NamespaceValuesReport `json:"namespaces"`
	Documents  int                     `json:"documents"`
}

// NamespaceValuesReport summarizes one namespace of the authoring tree.
type NamespaceValuesReport struct {
	Namespace string   `json:"namespace"`
	Targets   []string `json:"targets"`
	Documents int      `json:"documents"`
}

// NewValidateValuesCommand creates the validate-values command.
func NewValidateValuesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateValuesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate-values",
		Short: "Validate an authoring tree against its schemas",
		Long: `Validate every YAML document in an authoring tree.

Each document must sit at {root}/{namespace}/{target}/{file}.yaml, carry
a single top-level "options" mapping, and type-check against the
namespace schema. Every contributing namespace must include the
"default" target. Nothing is written.

Example:
  setpoint validate-values --schemas ./setpoint/schemas --root ./values`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateValues(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schemas, "schemas", "", "path to schemas directory (required)")
	_ = cmd.MarkFlagRequired("schemas")
	cmd.Flags().StringVar(&opts.Root, "root", "", "path to authoring tree root (required)")
	_ = cmd.MarkFlagRequired("root")

	return cmd
}

func runValidateValues(opts *ValidateValuesOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	reg, err := option.LoadRegistry(opts.Schemas)
	if err != nil {
		return fail(formatter, err)
	}

	tree, err := generate.LoadTree(opts.Root, reg)
	if err != nil {
		return outputValuesErrors(formatter, err)
	}

	report := buildValuesReport(tree)
	formatter.VerboseLog("Validated %d document(s) in %s", report.Documents, opts.Root)

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d document(s) across %d namespace(s) valid\n",
		report.Documents, len(report.Namespaces))
	for _, ns := range report.Namespaces {
		fmt.Fprintf(formatter.Writer, "  %s: %d document(s), targets %v\n",
			ns.Namespace, ns.Documents, ns.Targets)
	}
	return nil
}

// buildValuesReport summarizes a loaded authoring tree.
func buildValuesReport(tree generate.Tree) ValuesReport {
	report := ValuesReport{Namespaces: []NamespaceValuesReport{}}
	for _, namespace := range tree.Namespaces() {
		ns := NamespaceValuesReport{
			Namespace: namespace,
			Targets:   tree.Targets(namespace),
		}
		for _, target := range ns.Targets {
			ns.Documents += len(tree[namespace][target])
		}
		report.Documents += ns.Documents
		report.Namespaces = append(report.Namespaces, ns)
	}
	return report
}

// outputValuesErrors reports an authoring-tree failure, listing each
// violation when the error carries a validation list.
func outputValuesErrors(formatter *OutputFormatter, err error) error {
	var verrs option.ValidationErrors
	if !errors.As(err, &verrs) {
		return fail(formatter, err)
	}

	if formatter.Format == "json" {
		details := make([]CLIError, len(verrs))
		for i, ve := range verrs {
			details[i] = CLIError{Code: string(ve.Code), Message: ve.Error()}
		}
		_ = formatter.Error(ErrCodeValidation, err.Error(), details)
		return NewExitError(ExitFailure,
			fmt.Sprintf("%s: validation failed with %d error(s)", ErrCodeValidation, len(verrs)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, ve := range verrs {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", ErrCodeValidation, ve.Error())
	}
	fmt.Fprintln(formatter.Writer)

	return NewExitError(ExitFailure,
		fmt.Sprintf("%s: validation failed with %d error(s)", ErrCodeValidation, len(verrs)))
}
