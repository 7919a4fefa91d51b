package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions carries the persistent flags shared by every command.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string // optional TOML file with flag defaults
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the setpoint CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "setpoint",
		Short: "Setpoint - typed configuration and feature flags",
		Long: `Schema-validated configuration generation and distribution.

Validates authored values against namespace schemas, writes canonical
artifacts and ConfigMap manifests, and serves hot-reloaded options to
running services.`,
		SilenceErrors: true, // main prints the final error once
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Config file defaults apply before anything reads the flags
			if opts.ConfigFile != "" {
				defaults, err := LoadFlagDefaults(opts.ConfigFile)
				if err != nil {
					return err
				}
				if err := defaults.Apply(cmd); err != nil {
					return err
				}
			}

			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			setupLogging(opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "TOML file with flag defaults")

	cmd.AddCommand(NewValidateSchemaCommand(opts))
	cmd.AddCommand(NewValidateValuesCommand(opts))
	cmd.AddCommand(NewWriteCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// setupLogging installs the process-wide slog handler: text on stderr,
// Info level, Debug when verbose.
func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// newFormatter builds the command's output formatter from the global
// flags. Verbose diagnostics go to stderr so JSON output stays parseable.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}
