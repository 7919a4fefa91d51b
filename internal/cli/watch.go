package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/setpoint/internal/runtime"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Dir      string
	Interval time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Serve a directory and log every reload",
		Long: `Open a store against a directory and poll its values documents.

Every published snapshot and every rejected reload is logged until the
process is interrupted. A verification tool for distribution pipelines:
point it at a directory ConfigMap manifests are mounted into and watch
edits arrive.

Example:
  setpoint watch --dir ./setpoint --interval 2s`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", "", "options directory with schemas/ and values/ (required)")
	_ = cmd.MarkFlagRequired("dir")
	cmd.Flags().DurationVar(&opts.Interval, "interval", runtime.DefaultPollInterval, "poll interval")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	slog.Info("opening options directory", "dir", opts.Dir)
	st, err := runtime.OpenDirectory(opts.Dir)
	if err != nil {
		return fail(formatter, err)
	}

	// Tests cancel through the command's context; interactive runs get a
	// fresh one cancelled by the signal handler below.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("stopping on signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	w, err := st.Watch(ctx, runtime.WithInterval(opts.Interval))
	if err != nil {
		return fail(formatter, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Watching %s: %d namespace(s), poll interval %s\n",
		opts.Dir, len(st.Namespaces()), opts.Interval)
	fmt.Fprintln(cmd.OutOrStdout(), "Ctrl-C to stop.")

	<-w.Done()
	slog.Info("watcher stopped")
	return nil
}
