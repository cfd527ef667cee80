package cli

import (
	"github.com/spf13/cobra"

	"github.com/optiso/optiso/internal/harness"
	"github.com/optiso/optiso/internal/worker"
)

// NewWorkerCommand creates the hidden worker command: the entry point
// for process-pool worker processes. It serves jobs from stdin until
// the coordinator closes the pipe.
func NewWorkerCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "worker",
		Short:         "Serve simulation jobs over stdin/stdout (internal)",
		Hidden:        true,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureLogging(rootOpts.Verbose)
			err := worker.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), harness.EngineRunner{})
			if err != nil {
				return WrapExitError(ExitCommandError, "worker loop failed", err)
			}
			return nil
		},
	}
	return cmd
}
