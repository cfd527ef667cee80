package store

import (
	"context"
	"fmt"
	"time"

	"github.com/optiso/optiso/internal/harness"
)

// RunSummary is one row of the run history listing.
type RunSummary struct {
	ID             string    `json:"id"`
	Scenario       string    `json:"scenario"`
	StartedAt      time.Time `json:"started_at"`
	Workers        int       `json:"workers"`
	Recommendation string    `json:"recommendation"`
}

// VerdictRow is one strategy's persisted verdict for a run.
type VerdictRow struct {
	Strategy          string `json:"strategy"`
	OverridesDistinct bool   `json:"overrides_distinct"`
	Pass              bool   `json:"pass"`
}

// OutcomeRow is one persisted per-job outcome.
type OutcomeRow struct {
	Check   string                      `json:"check"`
	Outcome harness.VerificationOutcome `json:"outcome"`
}

// ListRuns returns all runs, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scenario, started_at, workers, recommendation
		FROM runs
		ORDER BY started_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var started string
		if err := rows.Scan(&r.ID, &r.Scenario, &started, &r.Workers, &r.Recommendation); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		if r.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
			return nil, fmt.Errorf("list runs: bad timestamp %q: %w", started, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetVerdicts returns the per-strategy verdicts for one run.
func (s *Store) GetVerdicts(ctx context.Context, runID string) ([]VerdictRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, overrides_distinct, pass
		FROM verdicts
		WHERE run_id = ?
		ORDER BY strategy
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []VerdictRow
	for rows.Next() {
		var v VerdictRow
		var distinct, pass int
		if err := rows.Scan(&v.Strategy, &distinct, &pass); err != nil {
			return nil, fmt.Errorf("get verdicts: %w", err)
		}
		v.OverridesDistinct = distinct != 0
		v.Pass = pass != 0
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}

// GetOutcomes returns every per-job outcome for one run, ordered by
// strategy, check, and job index.
func (s *Store) GetOutcomes(ctx context.Context, runID string) ([]OutcomeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT strategy, check_name, job_index, matched, max_deviation, error
		FROM outcomes
		WHERE run_id = ?
		ORDER BY strategy, check_name, job_index
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []OutcomeRow
	for rows.Next() {
		var row OutcomeRow
		var matched int
		if err := rows.Scan(&row.Outcome.Strategy, &row.Check, &row.Outcome.JobIndex, &matched, &row.Outcome.MaxDeviation, &row.Outcome.Err); err != nil {
			return nil, fmt.Errorf("get outcomes: %w", err)
		}
		row.Outcome.Matched = matched != 0
		outcomes = append(outcomes, row)
	}
	return outcomes, rows.Err()
}
