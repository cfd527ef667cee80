package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Transceiver UIDs in the fixture topology.
const (
	FixtureSource = "trx A"
	FixtureDest   = "trx B"
)

const fixtureEquipment = `{
  "SI": {
    "f_min": 193.0e12,
    "f_max": 193.35e12,
    "baud_rate": 32e9,
    "spacing": 50e9,
    "power_dbm": 0,
    "roll_off": 0.15
  },
  "Edfa": {
    "std": {"gain_flatmax": 26, "gain_min": 8, "p_max": 21, "nf": 6}
  },
  "Fiber": {
    "SSMF": {"loss_coef": 0.2}
  }
}`

const fixtureTopology = `{
  "network_name": "two_span",
  "elements": [
    {"uid": "trx A", "type": "Transceiver"},
    {"uid": "trx B", "type": "Transceiver"},
    {"uid": "amp1", "type": "Edfa", "type_variety": "std", "operational": {"gain_target": 15.0}},
    {"uid": "span1", "type": "Fiber", "type_variety": "SSMF", "params": {"length_km": 50.0}},
    {"uid": "amp2", "type": "Edfa", "type_variety": "std", "operational": {"gain_target": 12.0}}
  ],
  "connections": [
    {"from_node": "trx A", "to_node": "amp1"},
    {"from_node": "amp1", "to_node": "span1"},
    {"from_node": "span1", "to_node": "amp2"},
    {"from_node": "amp2", "to_node": "trx B"}
  ]
}`

// WriteNetworkFixtures writes a small valid equipment/topology pair
// into a temp dir and returns their paths. The topology is an eight
// channel, single span link between FixtureSource and FixtureDest.
func WriteNetworkFixtures(t *testing.T) (eqptPath, topoPath string) {
	t.Helper()
	dir := t.TempDir()
	eqptPath = filepath.Join(dir, "eqpt_config.json")
	topoPath = filepath.Join(dir, "topology.json")
	writeFile(t, eqptPath, fixtureEquipment)
	writeFile(t, topoPath, fixtureTopology)
	return eqptPath, topoPath
}

// WriteFile writes arbitrary content for loader error-path tests.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	writeFile(t, path, content)
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
}
