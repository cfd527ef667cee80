// Package testutil provides deterministic helpers for harness tests:
// a scripted stand-in for the engine and writers for small network
// fixtures.
package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/optiso/optiso/internal/engine"
	"github.com/optiso/optiso/internal/harness"
)

// StubChannels is the series length StubResult produces.
const StubChannels = 4

// StubResult is the deterministic result the stub computes for a given
// effective power. Tests use it to state expectations without
// duplicating arithmetic.
func StubResult(powerDBm float64) harness.SimulationResult {
	res := harness.SimulationResult{
		GSNR: make([]float64, StubChannels),
		OSNR: make([]float64, StubChannels),
	}
	for i := 0; i < StubChannels; i++ {
		res.GSNR[i] = 20 + 1.5*powerDBm + 0.1*float64(i)
		res.OSNR[i] = 24 + 1.0*powerDBm + 0.05*float64(i)
	}
	for i := 0; i < StubChannels; i++ {
		res.AvgGSNR += res.GSNR[i] / StubChannels
		res.AvgOSNR += res.OSNR[i] / StubChannels
	}
	return res
}

// StubRunner is a harness.Runner whose results are a pure function of
// the effective power. Run reads the power from the simparams store
// exactly like the real engine does, so store races contaminate stub
// results the same way they would real ones.
type StubRunner struct {
	// Delay stretches each Run, widening the shared-memory race
	// window. Zero means no delay.
	Delay time.Duration

	// Hang, when set, selects jobs whose Run blocks until the context
	// ends (simulating a worker that never returns).
	Hang func(job harness.Job) bool

	// Fail, when set, selects jobs whose Run returns an error.
	Fail func(job harness.Job) error

	// Calls counts Run and RunExplicit invocations.
	Calls atomic.Int64
}

// Run computes the stub result from the store-held power, honoring
// Hang, Fail, and Delay.
func (s *StubRunner) Run(ctx context.Context, job harness.Job) (harness.SimulationResult, error) {
	s.Calls.Add(1)
	if s.Hang != nil && s.Hang(job) {
		<-ctx.Done()
		return harness.SimulationResult{}, ctx.Err()
	}
	if s.Fail != nil {
		if err := s.Fail(job); err != nil {
			return harness.SimulationResult{}, err
		}
	}

	// Side-channel read, after an optional delay so another task's
	// store write can land in between.
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return harness.SimulationResult{}, ctx.Err()
		}
	}
	power := 0.0
	if p := engine.FromStore().ReferencePowerDBm; p != nil {
		power = *p
	}
	return StubResult(power), nil
}

// RunExplicit computes the stub result from the job's own override,
// never touching the store.
func (s *StubRunner) RunExplicit(ctx context.Context, job harness.Job) (harness.SimulationResult, error) {
	s.Calls.Add(1)
	if s.Fail != nil {
		if err := s.Fail(job); err != nil {
			return harness.SimulationResult{}, err
		}
	}
	power := 0.0
	if job.PowerOverride != nil {
		power = *job.PowerOverride
	}
	return StubResult(power), nil
}
