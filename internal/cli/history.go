package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optiso/optiso/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List persisted verification runs or show one run's verdicts",
		Long: `Without arguments, list all runs persisted with verify --db, most
recent first. With a run id, show that run's per-strategy verdicts and
per-job outcomes.

Example:
  optiso history --db runs.db
  optiso history --db runs.db 1b4e28ba-2fa1-11d2-883f-0016d3cca427`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite database written by verify --db")
	cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions, args []string) error {
	configureLogging(opts.Verbose)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if len(args) == 0 {
		return listRuns(cmd, opts, st)
	}
	return showRun(cmd, opts, st, args[0])
}

func listRuns(cmd *cobra.Command, opts *HistoryOptions, st *store.Store) error {
	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return printJSON(out, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(out, "%s  %s  %s  workers=%d\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Scenario, r.Workers)
		fmt.Fprintf(out, "    %s\n", r.Recommendation)
	}
	return nil
}

func showRun(cmd *cobra.Command, opts *HistoryOptions, st *store.Store, runID string) error {
	verdicts, err := st.GetVerdicts(cmd.Context(), runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load verdicts", err)
	}
	if len(verdicts) == 0 {
		return NewExitError(ExitCommandError, "no run found with id "+runID)
	}
	outcomes, err := st.GetOutcomes(cmd.Context(), runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load outcomes", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return printJSON(out, struct {
			Verdicts []store.VerdictRow `json:"verdicts"`
			Outcomes []store.OutcomeRow `json:"outcomes"`
		}{verdicts, outcomes})
	}

	for _, v := range verdicts {
		status := "FAIL"
		if v.Pass {
			status = "PASS"
		}
		fmt.Fprintf(out, "%s: %s (overrides distinct: %t)\n", v.Strategy, status, v.OverridesDistinct)
	}
	for _, o := range outcomes {
		label := "match"
		if !o.Outcome.Matched {
			label = "MISMATCH"
		}
		fmt.Fprintf(out, "  %s %s job %d: %s (max deviation %.1e)\n",
			o.Outcome.Strategy, o.Check, o.Outcome.JobIndex, label, o.Outcome.MaxDeviation)
	}
	return nil
}
