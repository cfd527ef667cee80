package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultOverrides is the power sweep used when a scenario does not
// specify one.
var DefaultOverrides = []float64{-2.0, -1.0, 0.0, 1.0}

// DefaultWorkers is the worker count used when a scenario omits it.
const DefaultWorkers = 4

// Duration wraps time.Duration so scenarios can say `timeout: 90s`.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("timeout must be a duration string like \"90s\": %w", err)
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(td)
	return nil
}

// Scenario defines one isolation verification run: which network, which
// endpoints, how many workers, which power sweep, and which strategies
// to put under test.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario probes.
	Description string `yaml:"description"`

	// Topology and Equipment are paths to the network inputs,
	// relative to the scenario file.
	Topology  string `yaml:"topology"`
	Equipment string `yaml:"equipment"`

	// Source and Destination are transceiver UIDs. When empty, the
	// first two transceivers of the topology (sorted by UID) are used.
	Source      string `yaml:"source,omitempty"`
	Destination string `yaml:"destination,omitempty"`

	// Workers is the concurrency width for both strategies.
	Workers int `yaml:"workers,omitempty"`

	// Tolerance is the absolute comparison tolerance against the
	// oracle. Zero means DefaultTolerance.
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Timeout bounds each dispatched batch. Zero falls back to the
	// process pool's DefaultBatchTimeout.
	Timeout Duration `yaml:"timeout,omitempty"`

	// Overrides is the power sweep (dBm) for the differing-parameters
	// check. Empty means DefaultOverrides.
	Overrides []float64 `yaml:"overrides,omitempty"`

	// Strategies lists the isolation strategies under test.
	Strategies []string `yaml:"strategies"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so typos fail loudly, and the topology/equipment paths
// are resolved relative to the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}

	base := filepath.Dir(path)
	if sc.Topology != "" && !filepath.IsAbs(sc.Topology) {
		sc.Topology = filepath.Join(base, sc.Topology)
	}
	if sc.Equipment != "" && !filepath.IsAbs(sc.Equipment) {
		sc.Equipment = filepath.Join(base, sc.Equipment)
	}

	sc.applyDefaults()
	if err := sc.validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

func (sc *Scenario) applyDefaults() {
	if sc.Workers == 0 {
		sc.Workers = DefaultWorkers
	}
	if sc.Tolerance == 0 {
		sc.Tolerance = DefaultTolerance
	}
	if len(sc.Overrides) == 0 {
		sc.Overrides = append([]float64(nil), DefaultOverrides...)
	}
}

func (sc *Scenario) validate() error {
	if sc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if sc.Description == "" {
		return fmt.Errorf("description is required")
	}
	if sc.Topology == "" {
		return fmt.Errorf("topology is required")
	}
	if sc.Equipment == "" {
		return fmt.Errorf("equipment is required")
	}
	for _, p := range []string{sc.Topology, sc.Equipment} {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("input file not found: %s", p)
		}
	}
	if sc.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if sc.Tolerance < 0 {
		return fmt.Errorf("tolerance must be non-negative")
	}
	if len(sc.Overrides) < 2 {
		return fmt.Errorf("overrides needs at least 2 values for the differing-parameters check")
	}
	seen := make(map[float64]bool, len(sc.Overrides))
	for _, o := range sc.Overrides {
		if seen[o] {
			return fmt.Errorf("override values must be distinct (duplicate %.2f)", o)
		}
		seen[o] = true
	}
	if len(sc.Strategies) == 0 {
		return fmt.Errorf("strategies list is required and must be non-empty")
	}
	for i, s := range sc.Strategies {
		switch s {
		case StrategyProcessPool, StrategySharedMemory, StrategySharedExplicit:
		default:
			return fmt.Errorf("strategies[%d]: unknown strategy %q", i, s)
		}
	}
	return nil
}

// BaseJob returns the job every check derives from. Source and
// destination must already be resolved.
func (sc *Scenario) BaseJob() Job {
	return Job{
		TopologyRef:   sc.Topology,
		EquipmentRef:  sc.Equipment,
		SourceID:      sc.Source,
		DestinationID: sc.Destination,
	}
}

// SameParamsJobs returns Workers copies of the base job for the
// same-parameters sanity check.
func (sc *Scenario) SameParamsJobs() []Job {
	jobs := make([]Job, sc.Workers)
	base := sc.BaseJob()
	for i := range jobs {
		jobs[i] = base
	}
	return jobs
}

// OverrideJobs returns one job per override value for the
// differing-parameters isolation check.
func (sc *Scenario) OverrideJobs() []Job {
	jobs := make([]Job, len(sc.Overrides))
	base := sc.BaseJob()
	for i, o := range sc.Overrides {
		jobs[i] = base.WithOverride(o)
	}
	return jobs
}
