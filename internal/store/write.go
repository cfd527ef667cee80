package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/optiso/optiso/internal/harness"
)

// Run is one persisted scenario run.
type Run struct {
	ID             string
	Scenario       string
	StartedAt      time.Time
	Workers        int
	Tolerance      float64
	Recommendation string
	Verdicts       []harness.StrategyVerdict
}

// Check names used in outcome rows.
const (
	CheckSameParams = "same-params"
	CheckDiffering  = "differing-params"
)

// SaveRun writes a run with all its verdicts and outcomes in one
// transaction. Duplicate run IDs are rejected.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, started_at, workers, tolerance, recommendation)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Scenario,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.Workers,
		run.Tolerance,
		run.Recommendation,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}

	for _, v := range run.Verdicts {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO verdicts (run_id, strategy, overrides_distinct, pass)
			VALUES (?, ?, ?, ?)
		`, run.ID, v.Strategy, boolInt(v.OverridesDistinct), boolInt(v.Pass))
		if err != nil {
			return fmt.Errorf("save verdict %s: %w", v.Strategy, err)
		}

		if err := insertOutcomes(ctx, tx, run.ID, v.Strategy, CheckSameParams, v.SameParams); err != nil {
			return err
		}
		if err := insertOutcomes(ctx, tx, run.ID, v.Strategy, CheckDiffering, v.DifferingParams); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func insertOutcomes(ctx context.Context, tx *sql.Tx, runID, strategy, check string, outcomes []harness.VerificationOutcome) error {
	for _, o := range outcomes {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO outcomes (run_id, strategy, check_name, job_index, matched, max_deviation, error)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, runID, strategy, check, o.JobIndex, boolInt(o.Matched), o.MaxDeviation, o.Err)
		if err != nil {
			return fmt.Errorf("save outcome %s/%s/%d: %w", strategy, check, o.JobIndex, err)
		}
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
