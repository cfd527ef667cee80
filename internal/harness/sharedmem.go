package harness

import (
	"context"
	"sync"
	"time"

	"github.com/optiso/optiso/internal/engine"
	"github.com/optiso/optiso/internal/simparams"
)

// defaultGrace is how long Map keeps draining after the batch deadline
// so tasks that honor cancellation can still deliver their error.
const defaultGrace = 250 * time.Millisecond

// SharedPool runs jobs as concurrent goroutines inside this process,
// all sharing the one simparams store.
//
// Isolation is attempted, not guaranteed: each task saves a deep copy
// of the store, resets it, writes its own override, runs, and restores
// the copy on every exit path. Nothing serializes the reset-to-read
// window across tasks; surfacing what that window does under load is
// the point. Only the result-registry insert is locked.
type SharedPool struct {
	Runner  Runner
	Workers int

	// Explicit selects the fixed variant: parameters travel as values
	// through RunExplicit and the store is never touched.
	Explicit bool

	// Grace bounds the post-deadline drain. Zero means defaultGrace.
	Grace time.Duration
}

// Name returns the strategy name for outcomes and reports.
func (p *SharedPool) Name() string {
	if p.Explicit {
		return StrategySharedExplicit
	}
	return StrategySharedMemory
}

// Map runs all jobs and returns results in job order. The call blocks
// until every task finished or the context expired; a task that never
// returns is abandoned after a short grace period and its slot reports
// a timeout error. Goroutines cannot be killed, so an abandoned task
// keeps running until its own context check fires.
func (p *SharedPool) Map(ctx context.Context, jobs []Job) []SimulationResult {
	workers := p.Workers
	if workers <= 0 || workers > len(jobs) {
		workers = len(jobs)
	}

	// The shared result registry. The mutex guards the insert only,
	// never the compute-then-insert sequence.
	registry := make(map[int]SimulationResult, len(jobs))
	var regMu sync.Mutex

	jobCh := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobCh {
				p.runTask(ctx, jobs[idx], idx, registry, &regMu)
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for i := range jobs {
			select {
			case jobCh <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		grace := p.Grace
		if grace <= 0 {
			grace = defaultGrace
		}
		select {
		case <-done:
		case <-time.After(grace):
		}
	}

	results := make([]SimulationResult, len(jobs))
	regMu.Lock()
	defer regMu.Unlock()
	for i := range jobs {
		if res, ok := registry[i]; ok {
			results[i] = res
		} else {
			results[i] = errorResult(NewTimeoutError(p.Name(), i))
		}
	}
	return results
}

// runTask executes one job under the save/reset/override/run/restore
// discipline and inserts the result into the registry.
func (p *SharedPool) runTask(ctx context.Context, job Job, idx int, registry map[int]SimulationResult, regMu *sync.Mutex) {
	var res SimulationResult
	var err error

	if p.Explicit {
		res, err = p.Runner.RunExplicit(ctx, job)
	} else {
		func() {
			backup := simparams.Current()
			// Restore runs on every exit path, success or not.
			defer simparams.Restore(backup)

			simparams.Reset(nil)
			if job.PowerOverride != nil {
				simparams.Set(engine.KeyReferencePower, *job.PowerOverride)
			}
			res, err = p.Runner.Run(ctx, job)
		}()
	}

	if err != nil {
		if ctx.Err() != nil {
			res = errorResult(NewTimeoutError(p.Name(), idx))
		} else {
			res = errorResult(err)
		}
	}

	regMu.Lock()
	registry[idx] = res
	regMu.Unlock()
}
