package harness_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiso/optiso/internal/harness"
	"github.com/optiso/optiso/internal/testutil"
)

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	return testutil.WriteFile(t, "scenario.yaml", body)
}

func minimalScenario(t *testing.T, extra string) string {
	t.Helper()
	eqptPath, topoPath := testutil.WriteNetworkFixtures(t)
	return writeScenario(t, fmt.Sprintf(`name: minimal
description: smallest valid scenario
topology: %s
equipment: %s
strategies: [shared-memory]
%s`, topoPath, eqptPath, extra))
}

func TestLoadScenario_AppliesDefaults(t *testing.T) {
	sc, err := harness.LoadScenario(minimalScenario(t, ""))
	require.NoError(t, err)

	assert.Equal(t, harness.DefaultWorkers, sc.Workers)
	assert.Equal(t, harness.DefaultTolerance, sc.Tolerance)
	assert.Equal(t, harness.DefaultOverrides, sc.Overrides)
	assert.Equal(t, harness.Duration(0), sc.Timeout)
}

func TestLoadScenario_ParsesAllFields(t *testing.T) {
	sc, err := harness.LoadScenario(minimalScenario(t, `source: "trx A"
destination: "trx B"
workers: 8
tolerance: 1.0e-9
timeout: 90s
overrides: [-3.0, 3.0]`))
	require.NoError(t, err)

	assert.Equal(t, "trx A", sc.Source)
	assert.Equal(t, "trx B", sc.Destination)
	assert.Equal(t, 8, sc.Workers)
	assert.Equal(t, 1e-9, sc.Tolerance)
	assert.Equal(t, harness.Duration(90*time.Second), sc.Timeout)
	assert.Equal(t, []float64{-3, 3}, sc.Overrides)
}

func TestLoadScenario_ResolvesRelativePaths(t *testing.T) {
	// Fixture files and scenario land in different temp dirs, so the
	// scenario references them absolutely; a relative reference resolves
	// against the scenario's own directory and fails the existence check
	// here.
	path := writeScenario(t, `name: rel
description: relative paths resolve against the scenario dir
topology: missing_topology.json
equipment: missing_eqpt.json
strategies: [shared-memory]
`)
	_, err := harness.LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input file not found")
}

func TestLoadScenario_RejectsUnknownFields(t *testing.T) {
	_, err := harness.LoadScenario(minimalScenario(t, "worker_count: 4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing scenario YAML")
}

func TestLoadScenario_RejectsBadDuration(t *testing.T) {
	_, err := harness.LoadScenario(minimalScenario(t, "timeout: ninety"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		wantErr string
	}{
		{"negative workers", "workers: -1", "workers must be at least 1"},
		{"negative tolerance", "tolerance: -0.5", "tolerance must be non-negative"},
		{"single override", "overrides: [1.0]", "at least 2 values"},
		{"duplicate overrides", "overrides: [1.0, 1.0]", "must be distinct"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := harness.LoadScenario(minimalScenario(t, tt.extra))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_RejectsUnknownStrategy(t *testing.T) {
	eqptPath, topoPath := testutil.WriteNetworkFixtures(t)
	path := writeScenario(t, fmt.Sprintf(`name: bad
description: strategy typo
topology: %s
equipment: %s
strategies: [thread-pool]
`, topoPath, eqptPath))

	_, err := harness.LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown strategy "thread-pool"`)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := harness.LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading scenario file")
}

func TestScenario_JobBuilders(t *testing.T) {
	sc := &harness.Scenario{
		Topology:    "topo.json",
		Equipment:   "eqpt.json",
		Source:      "trx A",
		Destination: "trx B",
		Workers:     3,
		Overrides:   []float64{-1, 1},
	}

	base := sc.BaseJob()
	assert.Equal(t, "trx A", base.SourceID)
	assert.Nil(t, base.PowerOverride)

	same := sc.SameParamsJobs()
	require.Len(t, same, 3)
	for _, j := range same {
		assert.True(t, j.Equivalent(base))
		assert.Nil(t, j.PowerOverride)
	}

	diff := sc.OverrideJobs()
	require.Len(t, diff, 2)
	for i, j := range diff {
		assert.True(t, j.Equivalent(base))
		require.NotNil(t, j.PowerOverride)
		assert.Equal(t, sc.Overrides[i], *j.PowerOverride)
	}
}
