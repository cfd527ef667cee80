package harness

import (
	"context"

	"github.com/optiso/optiso/internal/engine"
	"github.com/optiso/optiso/internal/netio"
)

// EngineRunner executes jobs against the real engine. Equipment and
// topology are reloaded from scratch for every run so that no loaded
// state leaks between jobs; the only state a run can share with another
// is the simparams store itself.
type EngineRunner struct{}

// Run loads the job's references and simulates, reading parameters from
// the process-wide store. The job's power override is NOT applied here:
// in the shared-global model the override travels through the store,
// and putting it there is the calling strategy's reset/override step.
func (EngineRunner) Run(ctx context.Context, job Job) (SimulationResult, error) {
	eqpt, net, err := load(job)
	if err != nil {
		return SimulationResult{}, err
	}
	_, res, err := engine.Run(ctx, eqpt, net, job.SourceID, job.DestinationID)
	if err != nil {
		return SimulationResult{}, err
	}
	return fromEngine(res), nil
}

// RunExplicit simulates under parameters derived from the job alone.
// The global store is never consulted.
func (EngineRunner) RunExplicit(ctx context.Context, job Job) (SimulationResult, error) {
	eqpt, net, err := load(job)
	if err != nil {
		return SimulationResult{}, err
	}
	params := engine.DefaultParams()
	if job.PowerOverride != nil {
		v := *job.PowerOverride
		params.ReferencePowerDBm = &v
	}
	_, res, err := engine.RunExplicit(ctx, eqpt, net, job.SourceID, job.DestinationID, params)
	if err != nil {
		return SimulationResult{}, err
	}
	return fromEngine(res), nil
}

func load(job Job) (*netio.Equipment, *netio.Network, error) {
	eqpt, err := netio.LoadEquipment(job.EquipmentRef)
	if err != nil {
		return nil, nil, err
	}
	net, err := netio.LoadTopology(job.TopologyRef, eqpt)
	if err != nil {
		return nil, nil, err
	}
	return eqpt, net, nil
}

func fromEngine(res *engine.Result) SimulationResult {
	return SimulationResult{
		AvgGSNR: res.AvgGSNR,
		AvgOSNR: res.AvgOSNR,
		GSNR:    res.GSNR,
		OSNR:    res.OSNR,
	}
}
