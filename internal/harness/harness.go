package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/optiso/optiso/internal/netio"
)

// Strategy is an isolation model under test: it runs a batch of jobs
// concurrently and returns results in job order.
type Strategy interface {
	Name() string
	Map(ctx context.Context, jobs []Job) []SimulationResult
}

// RunConfig carries the injectable parts of a scenario run.
type RunConfig struct {
	// Runner executes individual simulations. Nil means the real
	// engine (EngineRunner).
	Runner Runner

	// Logger receives progress events. Nil discards them.
	Logger *slog.Logger

	// Spawn overrides worker process creation for the process pool.
	// Nil uses the default re-exec spawn.
	Spawn SpawnFunc
}

// ScenarioResult is the terminal record of one scenario run across all
// requested strategies.
type ScenarioResult struct {
	Scenario       string             `json:"scenario"`
	Description    string             `json:"description,omitempty"`
	Workers        int                `json:"workers"`
	Tolerance      float64            `json:"tolerance"`
	Overrides      []float64          `json:"overrides"`
	Reference      SimulationResult   `json:"reference"`
	OverrideRefs   []SimulationResult `json:"override_references"`
	Verdicts       []StrategyVerdict  `json:"verdicts"`
	Recommendation string             `json:"recommendation"`
}

// RunScenario establishes the sequential baseline, drives every
// requested strategy through the same-parameters and
// differing-parameters checks, and verifies the outcomes.
//
// Per-job failures never abort the run; the only fatal conditions are
// unresolvable endpoints and a baseline the oracle cannot produce.
func RunScenario(ctx context.Context, sc *Scenario, cfg RunConfig) (*ScenarioResult, error) {
	runner := cfg.Runner
	if runner == nil {
		runner = EngineRunner{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := resolveEndpoints(sc); err != nil {
		return nil, err
	}

	result := &ScenarioResult{
		Scenario:    sc.Name,
		Description: sc.Description,
		Workers:     sc.Workers,
		Tolerance:   sc.Tolerance,
		Overrides:   sc.Overrides,
	}

	// Sequential ground truth. Without it there is nothing to verify
	// against, so a failed baseline is the one batch-fatal condition.
	oracle := NewOracle(runner)
	logger.Info("running sequential reference", "scenario", sc.Name, "source", sc.Source, "destination", sc.Destination)
	result.Reference = oracle.Run(ctx, []Job{sc.BaseJob()})[0]
	if result.Reference.Failed() {
		return nil, NewNoBaselineError(result.Reference.Err)
	}

	overrideJobs := sc.OverrideJobs()
	logger.Info("running per-override references", "count", len(overrideJobs))
	result.OverrideRefs = oracle.Run(ctx, overrideJobs)

	sameJobs := sc.SameParamsJobs()
	sameRefs := make([]SimulationResult, len(sameJobs))
	for i := range sameRefs {
		sameRefs[i] = result.Reference
	}

	for _, name := range sc.Strategies {
		strat, cleanup := buildStrategy(name, sc, runner, cfg, logger)

		logger.Info("dispatching same-parameters batch", "strategy", name, "jobs", len(sameJobs))
		sameRes := mapBatch(ctx, strat, sameJobs, sc.Timeout)

		logger.Info("dispatching differing-parameters batch", "strategy", name, "jobs", len(overrideJobs))
		diffRes := mapBatch(ctx, strat, overrideJobs, sc.Timeout)

		if cleanup != nil {
			cleanup()
		}

		verdict := StrategyVerdict{Strategy: name}
		verdict.SameParams = Verify(name, sameRefs, sameRes, sc.Tolerance)
		verdict.DifferingParams = Verify(name, result.OverrideRefs, diffRes, sc.Tolerance)
		verdict.OverridesDistinct = PairwiseDistinct(diffRes, sc.Tolerance)
		verdict.Finalize()
		result.Verdicts = append(result.Verdicts, verdict)

		logger.Info("strategy verdict", "strategy", name, "pass", verdict.Pass)
	}

	result.Recommendation = Recommend(result.Verdicts)
	return result, nil
}

// resolveEndpoints fills in missing source/destination with the first
// two transceivers of the topology, sorted by UID.
func resolveEndpoints(sc *Scenario) error {
	if sc.Source != "" && sc.Destination != "" {
		return nil
	}
	eqpt, err := netio.LoadEquipment(sc.Equipment)
	if err != nil {
		return err
	}
	net, err := netio.LoadTopology(sc.Topology, eqpt)
	if err != nil {
		return err
	}
	trxs := net.Transceivers()
	if len(trxs) < 2 {
		return fmt.Errorf("topology %s has %d transceivers, need at least 2", sc.Topology, len(trxs))
	}
	if sc.Source == "" {
		sc.Source = trxs[0]
	}
	if sc.Destination == "" {
		for _, uid := range trxs {
			if uid != sc.Source {
				sc.Destination = uid
				break
			}
		}
	}
	return nil
}

func buildStrategy(name string, sc *Scenario, runner Runner, cfg RunConfig, logger *slog.Logger) (Strategy, func()) {
	switch name {
	case StrategyProcessPool:
		opts := []PoolOption{WithPoolLogger(logger)}
		if cfg.Spawn != nil {
			opts = append(opts, WithSpawn(cfg.Spawn))
		}
		pool := NewProcessPool(sc.Workers, opts...)
		return pool, pool.Close
	case StrategySharedExplicit:
		return &SharedPool{Runner: runner, Workers: sc.Workers, Explicit: true}, nil
	default:
		return &SharedPool{Runner: runner, Workers: sc.Workers}, nil
	}
}

// mapBatch applies the scenario's per-batch timeout around one Map
// dispatch and joins before returning: no partial batch is ever
// verified.
func mapBatch(ctx context.Context, strat Strategy, jobs []Job, timeout Duration) []SimulationResult {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(timeout))
		defer cancel()
	}
	return strat.Map(ctx, jobs)
}

// Recommend derives the adoption guidance from the process-pool and
// shared-memory verdicts.
func Recommend(verdicts []StrategyVerdict) string {
	var procPass, sharedPass *bool
	for i := range verdicts {
		v := verdicts[i]
		switch v.Strategy {
		case StrategyProcessPool:
			procPass = &v.Pass
		case StrategySharedMemory:
			sharedPass = &v.Pass
		}
	}

	switch {
	case procPass == nil || sharedPass == nil:
		return "Run both process-pool and shared-memory strategies for an adoption recommendation."
	case *procPass && !*sharedPass:
		return "Use process-level isolation for concurrent simulations; shared global state makes the in-process approach unreliable."
	case *procPass && *sharedPass:
		return "Both strategies passed; process-level isolation is still recommended for safety."
	case !*procPass && *sharedPass:
		return "Only shared-memory isolation passed; investigate the process pool failure before adopting either."
	default:
		return "Both strategies failed; run simulations sequentially."
	}
}
