// Package worker implements the job-serving side of process-level
// isolation.
//
// A worker is a freshly spawned copy of this binary running the hidden
// `worker` command. The coordinator writes harness.WorkerRequest frames
// to the worker's stdin and reads harness.WorkerResponse frames from
// its stdout, one JSON document per frame. A fresh process means a
// fresh address space and therefore a private simparams store; nothing
// from the coordinator is inherited.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/optiso/optiso/internal/engine"
	"github.com/optiso/optiso/internal/harness"
	"github.com/optiso/optiso/internal/simparams"
)

// Serve handles requests until stdin closes or the context ends.
//
// For every request the worker resets its (private) parameter store to
// the empty baseline, applies the job's power override into the store,
// and runs the engine. This is the same discipline the shared-memory
// strategy follows; here it is trivially safe because no other worker
// can see this store.
func Serve(ctx context.Context, r io.Reader, w io.Writer, runner harness.Runner) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req harness.WorkerRequest
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("worker: decoding request: %w", err)
		}

		resp := harness.WorkerResponse{Index: req.Index, Result: execute(ctx, runner, req.Job)}
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("worker: encoding response: %w", err)
		}
	}
}

func execute(ctx context.Context, runner harness.Runner, job harness.Job) harness.SimulationResult {
	simparams.Reset(nil)
	if job.PowerOverride != nil {
		simparams.Set(engine.KeyReferencePower, *job.PowerOverride)
	}

	res, err := runner.Run(ctx, job)
	if err != nil {
		return harness.SimulationResult{Err: err.Error()}
	}
	return res
}
