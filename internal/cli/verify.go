package cli

import (
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/optiso/optiso/internal/harness"
	"github.com/optiso/optiso/internal/report"
	"github.com/optiso/optiso/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
	Strict   bool
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <scenario.yaml>",
		Short: "Run a scenario through the isolation strategies and verify the results",
		Long: `Run a verification scenario: establish the sequential reference,
dispatch the same-parameters and differing-parameters batches under each
requested strategy, and report per-job matches against the reference.

A shared-memory mismatch is a finding, not a command failure; use
--strict to turn any failed verdict into exit code 1.

Example:
  optiso verify example-data/edfa_concurrency.yaml
  optiso verify --db runs.db --strict scenario.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "persist the run into this SQLite database")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit 1 if any strategy fails verification")

	return cmd
}

func runVerify(cmd *cobra.Command, opts *VerifyOptions, scenarioPath string) error {
	logger := configureLogging(opts.Verbose)

	sc, err := harness.LoadScenario(scenarioPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	started := time.Now()
	res, err := harness.RunScenario(cmd.Context(), sc, harness.RunConfig{Logger: logger})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		run := store.Run{
			ID:             uuid.NewString(),
			Scenario:       res.Scenario,
			StartedAt:      started,
			Workers:        res.Workers,
			Tolerance:      res.Tolerance,
			Recommendation: res.Recommendation,
			Verdicts:       res.Verdicts,
		}
		if err := st.SaveRun(cmd.Context(), run); err != nil {
			return WrapExitError(ExitCommandError, "failed to persist run", err)
		}
		logger.Info("run persisted", "id", run.ID, "db", opts.Database)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := report.RenderJSON(out, res); err != nil {
			return WrapExitError(ExitCommandError, "failed to render report", err)
		}
	} else {
		if err := report.Render(out, res); err != nil {
			return WrapExitError(ExitCommandError, "failed to render report", err)
		}
	}

	if opts.Strict {
		for _, v := range res.Verdicts {
			if !v.Pass {
				return NewExitError(ExitFailure, "verification failed for strategy "+v.Strategy)
			}
		}
	}
	return nil
}
