package harness_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiso/optiso/internal/engine"
	"github.com/optiso/optiso/internal/harness"
	"github.com/optiso/optiso/internal/simparams"
	"github.com/optiso/optiso/internal/testutil"
)

func TestSharedPool_Name(t *testing.T) {
	assert.Equal(t, harness.StrategySharedMemory, (&harness.SharedPool{}).Name())
	assert.Equal(t, harness.StrategySharedExplicit, (&harness.SharedPool{Explicit: true}).Name())
}

func TestSharedPool_SingleWorkerMatchesReference(t *testing.T) {
	// One worker means no overlap, so the save/reset/override/restore
	// discipline is sufficient and every job sees its own parameters.
	pool := &harness.SharedPool{Runner: &testutil.StubRunner{}, Workers: 1}
	jobs := overrideJobs(-2, -1, 0, 1)

	results := pool.Map(context.Background(), jobs)

	require.Len(t, results, 4)
	for i, p := range []float64{-2, -1, 0, 1} {
		assert.Equal(t, testutil.StubResult(p), results[i], "job %d", i)
	}
}

func TestSharedPool_ExplicitVariantIsImmuneToConcurrency(t *testing.T) {
	// Parameters travel as values through RunExplicit, so even heavily
	// overlapped tasks cannot contaminate each other.
	pool := &harness.SharedPool{
		Runner:   &testutil.StubRunner{Delay: 10 * time.Millisecond},
		Workers:  4,
		Explicit: true,
	}
	jobs := overrideJobs(-2, -1, 0, 1)

	results := pool.Map(context.Background(), jobs)

	require.Len(t, results, 4)
	for i, p := range []float64{-2, -1, 0, 1} {
		assert.Equal(t, testutil.StubResult(p), results[i], "job %d", i)
	}
}

// rendezvousRunner forces two tasks to overlap: both block at entry
// until both have arrived, read the store, and block again until both
// have read. Both store writes therefore land before either read.
type rendezvousRunner struct {
	enter *sync.WaitGroup
	exit  *sync.WaitGroup
}

func (r *rendezvousRunner) Run(ctx context.Context, job harness.Job) (harness.SimulationResult, error) {
	r.enter.Done()
	r.enter.Wait()

	power := 0.0
	if p := engine.FromStore().ReferencePowerDBm; p != nil {
		power = *p
	}

	r.exit.Done()
	r.exit.Wait()
	return testutil.StubResult(power), nil
}

func (r *rendezvousRunner) RunExplicit(ctx context.Context, job harness.Job) (harness.SimulationResult, error) {
	power := 0.0
	if job.PowerOverride != nil {
		power = *job.PowerOverride
	}
	return testutil.StubResult(power), nil
}

func TestSharedPool_OverlappedTasksSeeLastWrite(t *testing.T) {
	var enter, exit sync.WaitGroup
	enter.Add(2)
	exit.Add(2)

	pool := &harness.SharedPool{Runner: &rendezvousRunner{enter: &enter, exit: &exit}, Workers: 2}
	jobs := overrideJobs(1, 2)

	results := pool.Map(context.Background(), jobs)

	// Both tasks wrote before either read, so both observe the same
	// surviving value and at most one job got its own parameter.
	require.Len(t, results, 2)
	assert.Equal(t, results[0], results[1])
	assert.False(t, harness.PairwiseDistinct(results, harness.DefaultTolerance))

	one := testutil.StubResult(1)
	two := testutil.StubResult(2)
	assert.Contains(t, []harness.SimulationResult{one, two}, results[0])
}

func TestSharedPool_RestoresStoreAfterBatch(t *testing.T) {
	before := simparams.Settings{"sentinel": 7.0}
	simparams.Reset(before.Clone())

	pool := &harness.SharedPool{Runner: &testutil.StubRunner{}, Workers: 1}
	pool.Map(context.Background(), overrideJobs(1, 2))

	assert.True(t, simparams.Equal(before, simparams.Current()))
	simparams.Reset(nil)
}

func TestSharedPool_HungTaskTimesOut(t *testing.T) {
	runner := &testutil.StubRunner{
		Hang: func(job harness.Job) bool { return true },
	}
	pool := &harness.SharedPool{Runner: runner, Workers: 2, Grace: 50 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	results := pool.Map(ctx, overrideJobs(0, 1))

	require.Len(t, results, 2)
	for i, res := range results {
		assert.True(t, res.Failed(), "job %d", i)
		assert.Contains(t, res.Err, "WORKER_TIMEOUT", "job %d", i)
	}
}

func TestSharedPool_FailedJobDoesNotAbortBatch(t *testing.T) {
	runner := &testutil.StubRunner{
		Fail: func(job harness.Job) error {
			if job.PowerOverride != nil && *job.PowerOverride == -1 {
				return assert.AnError
			}
			return nil
		},
	}
	pool := &harness.SharedPool{Runner: runner, Workers: 1}

	results := pool.Map(context.Background(), overrideJobs(-2, -1, 0))

	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.False(t, results[2].Failed())
}
