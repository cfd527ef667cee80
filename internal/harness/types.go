package harness

import "context"

// Strategy names used in outcomes and reports.
const (
	StrategyOracle         = "oracle"
	StrategyProcessPool    = "process-pool"
	StrategySharedMemory   = "shared-memory"
	StrategySharedExplicit = "shared-memory-explicit"
)

// Job describes one simulation request. Jobs are immutable once
// constructed; strategies receive them by value.
type Job struct {
	TopologyRef   string   `json:"topology_ref" yaml:"topology"`
	EquipmentRef  string   `json:"equipment_ref" yaml:"equipment"`
	SourceID      string   `json:"source_id" yaml:"source"`
	DestinationID string   `json:"destination_id" yaml:"destination"`
	PowerOverride *float64 `json:"power_override,omitempty" yaml:"power_override,omitempty"`
}

// Equivalent reports whether two jobs match on every field except the
// power override.
func (j Job) Equivalent(o Job) bool {
	return j.TopologyRef == o.TopologyRef &&
		j.EquipmentRef == o.EquipmentRef &&
		j.SourceID == o.SourceID &&
		j.DestinationID == o.DestinationID
}

// WithOverride returns a copy of the job with the given power override.
func (j Job) WithOverride(powerDBm float64) Job {
	j.PowerOverride = &powerDBm
	return j
}

// SimulationResult is the terminal output of one simulation. Err is set
// when the computation failed; a failed result carries no series data.
type SimulationResult struct {
	AvgGSNR float64   `json:"avg_gsnr"`
	AvgOSNR float64   `json:"avg_osnr"`
	GSNR    []float64 `json:"gsnr_values,omitempty"`
	OSNR    []float64 `json:"osnr_values,omitempty"`
	Err     string    `json:"error,omitempty"`
}

// Failed reports whether the computation produced an error instead of
// data.
func (r SimulationResult) Failed() bool {
	return r.Err != ""
}

// errorResult wraps an error as a terminal SimulationResult.
func errorResult(err error) SimulationResult {
	return SimulationResult{Err: err.Error()}
}

// VerificationOutcome is the verifier's per-job verdict for one
// strategy.
type VerificationOutcome struct {
	JobIndex     int     `json:"job_index"`
	Strategy     string  `json:"strategy"`
	Matched      bool    `json:"matched"`
	MaxDeviation float64 `json:"max_deviation"`
	Err          string  `json:"error,omitempty"`
}

// Runner executes a single simulation for a job.
//
// Run reads simulation parameters from the process-wide store; the
// caller is responsible for the reset/override discipline around it.
// RunExplicit derives parameters from the job alone and never touches
// the store.
type Runner interface {
	Run(ctx context.Context, job Job) (SimulationResult, error)
	RunExplicit(ctx context.Context, job Job) (SimulationResult, error)
}
