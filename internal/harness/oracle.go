package harness

import (
	"context"

	"github.com/optiso/optiso/internal/engine"
	"github.com/optiso/optiso/internal/simparams"
)

// Oracle runs jobs strictly sequentially to produce the trusted
// baseline the verifier compares concurrent results against.
type Oracle struct {
	runner Runner
}

// NewOracle creates an oracle over the given runner.
func NewOracle(runner Runner) *Oracle {
	return &Oracle{runner: runner}
}

// Run executes each job one at a time, never overlapping, resetting the
// parameter store to the known-empty baseline before each job. Output
// order matches input order. A job failure is recorded in that job's
// result; the batch always completes.
func (o *Oracle) Run(ctx context.Context, jobs []Job) []SimulationResult {
	results := make([]SimulationResult, len(jobs))
	for i, job := range jobs {
		results[i] = o.runOne(ctx, job)
	}
	return results
}

func (o *Oracle) runOne(ctx context.Context, job Job) SimulationResult {
	simparams.Reset(nil)
	if job.PowerOverride != nil {
		simparams.Set(engine.KeyReferencePower, *job.PowerOverride)
	}
	res, err := o.runner.Run(ctx, job)
	if err != nil {
		return errorResult(err)
	}
	return res
}
