package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/setpoint/internal/option"
)

// ValidateSchemaOptions holds flags for the validate-schema command.
type ValidateSchemaOptions struct {
	*RootOptions
	Schemas string
}

// SchemaReport summarizes a validated schemas directory.
type SchemaReport struct {
	Namespaces []NamespaceSchemaReport `json:"namespaces"`
}

// NamespaceSchemaReport summarizes one namespace schema.
type NamespaceSchemaReport struct {
	Namespace string `json:"namespace"`
	Version   string `json:"version,omitempty"`
	Options   int    `json:"options"`
}

// NewValidateSchemaCommand creates the validate-schema command.
func NewValidateSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateSchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate-schema",
		Short: "Validate namespace schemas",
		Long: `Validate every namespace schema in a schemas directory.

Checks the structural shape of each schema.json and that every declared
default conforms to its option's type. Nothing is written.

Example:
  setpoint validate-schema --schemas ./setpoint/schemas`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidateSchema(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Schemas, "schemas", "", "path to schemas directory (required)")
	_ = cmd.MarkFlagRequired("schemas")

	return cmd
}

func runValidateSchema(opts *ValidateSchemaOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	reg, err := option.LoadRegistry(opts.Schemas)
	if err != nil {
		return fail(formatter, err)
	}
	if reg.Len() == 0 {
		return failCode(formatter, ErrCodeNotFound, ExitCommandError,
			fmt.Sprintf("no namespace schemas found in %s", opts.Schemas))
	}

	report := buildSchemaReport(reg)
	for _, ns := range report.Namespaces {
		formatter.VerboseLog("Validated namespace %s: %d option(s)", ns.Namespace, ns.Options)
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ %d namespace schema(s) valid\n", len(report.Namespaces))
	for _, ns := range report.Namespaces {
		fmt.Fprintf(formatter.Writer, "  %s: %d option(s)\n", ns.Namespace, ns.Options)
	}
	return nil
}

// buildSchemaReport summarizes every schema in the registry.
func buildSchemaReport(reg *option.Registry) SchemaReport {
	report := SchemaReport{Namespaces: []NamespaceSchemaReport{}}
	for _, namespace := range reg.Namespaces() {
		schema, _ := reg.Get(namespace)
		report.Namespaces = append(report.Namespaces, NamespaceSchemaReport{
			Namespace: namespace,
			Version:   schema.Version,
			Options:   schema.Len(),
		})
	}
	return report
}
