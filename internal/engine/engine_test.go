package engine_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiso/optiso/internal/engine"
	"github.com/optiso/optiso/internal/netio"
	"github.com/optiso/optiso/internal/simparams"
	"github.com/optiso/optiso/internal/testutil"
)

func loadFixtures(t *testing.T) (*netio.Equipment, *netio.Network) {
	t.Helper()
	eqptPath, topoPath := testutil.WriteNetworkFixtures(t)
	eqpt, err := netio.LoadEquipment(eqptPath)
	require.NoError(t, err)
	net, err := netio.LoadTopology(topoPath, eqpt)
	require.NoError(t, err)
	return eqpt, net
}

func TestRun_Deterministic(t *testing.T) {
	eqpt, net := loadFixtures(t)
	simparams.Reset(nil)

	path1, res1, err := engine.Run(context.Background(), eqpt, net, testutil.FixtureSource, testutil.FixtureDest)
	require.NoError(t, err)
	path2, res2, err := engine.Run(context.Background(), eqpt, net, testutil.FixtureSource, testutil.FixtureDest)
	require.NoError(t, err)

	assert.Equal(t, path1, path2)
	assert.Equal(t, res1, res2)
	assert.Equal(t, 50.0, path1.SpanKm)
	assert.Equal(t, []string{"trx A", "amp1", "span1", "amp2", "trx B"}, path1.Elements)
	assert.Len(t, res1.GSNR, eqpt.SI.ChannelCount())
	assert.Len(t, res1.OSNR, eqpt.SI.ChannelCount())
}

func TestRun_OSNRExceedsGSNR(t *testing.T) {
	eqpt, net := loadFixtures(t)
	simparams.Reset(nil)

	_, res, err := engine.Run(context.Background(), eqpt, net, testutil.FixtureSource, testutil.FixtureDest)
	require.NoError(t, err)

	// GSNR includes NLI on top of ASE, so it is strictly below OSNR.
	for i := range res.GSNR {
		assert.Less(t, res.GSNR[i], res.OSNR[i], "channel %d", i)
	}
	assert.Less(t, res.AvgGSNR, res.AvgOSNR)
}

func TestRunExplicit_DistinctPowersDistinctResults(t *testing.T) {
	eqpt, net := loadFixtures(t)

	results := make([]float64, 0, 4)
	for _, p := range []float64{-2, -1, 0, 1} {
		power := p
		_, res, err := engine.RunExplicit(context.Background(), eqpt, net,
			testutil.FixtureSource, testutil.FixtureDest,
			engine.Params{ReferencePowerDBm: &power, NLICoefficientDB: 40})
		require.NoError(t, err)
		results = append(results, res.AvgGSNR)
	}

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			assert.Greater(t, math.Abs(results[i]-results[j]), 1e-6)
		}
	}
}

func TestRun_ReadsPowerFromStore(t *testing.T) {
	eqpt, net := loadFixtures(t)

	simparams.Reset(nil)
	simparams.Set(engine.KeyReferencePower, -1.5)
	t.Cleanup(func() { simparams.Reset(nil) })

	_, fromStore, err := engine.Run(context.Background(), eqpt, net, testutil.FixtureSource, testutil.FixtureDest)
	require.NoError(t, err)

	power := -1.5
	_, explicit, err := engine.RunExplicit(context.Background(), eqpt, net,
		testutil.FixtureSource, testutil.FixtureDest,
		engine.Params{ReferencePowerDBm: &power, NLICoefficientDB: 40})
	require.NoError(t, err)

	assert.Equal(t, explicit, fromStore)
}

func TestRunExplicit_BadEndpoints(t *testing.T) {
	eqpt, net := loadFixtures(t)
	params := engine.DefaultParams()

	tests := []struct {
		name     string
		src, dst string
	}{
		{"unknown source", "ghost", testutil.FixtureDest},
		{"unknown destination", testutil.FixtureSource, "ghost"},
		{"source is not a transceiver", "amp1", testutil.FixtureDest},
		{"same endpoint twice", testutil.FixtureSource, testutil.FixtureSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := engine.RunExplicit(context.Background(), eqpt, net, tt.src, tt.dst, params)
			require.Error(t, err)
			assert.True(t, engine.IsSimulationError(err))

			var simErr *engine.SimulationError
			require.ErrorAs(t, err, &simErr)
			assert.Equal(t, engine.ErrCodeBadEndpoint, simErr.Code)
		})
	}
}

func TestRunExplicit_NoPath(t *testing.T) {
	eqptPath, _ := testutil.WriteNetworkFixtures(t)
	eqpt, err := netio.LoadEquipment(eqptPath)
	require.NoError(t, err)

	// Two transceivers with no connections between them.
	topoPath := testutil.WriteFile(t, "topology.json", `{
	  "network_name": "islands",
	  "elements": [
	    {"uid": "trx A", "type": "Transceiver"},
	    {"uid": "trx B", "type": "Transceiver"}
	  ],
	  "connections": []
	}`)
	net, err := netio.LoadTopology(topoPath, eqpt)
	require.NoError(t, err)

	_, _, err = engine.RunExplicit(context.Background(), eqpt, net, "trx A", "trx B", engine.DefaultParams())
	require.Error(t, err)

	var simErr *engine.SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, engine.ErrCodeNoPath, simErr.Code)
}

func TestRunExplicit_NoAmplifiedSpan(t *testing.T) {
	eqptPath, _ := testutil.WriteNetworkFixtures(t)
	eqpt, err := netio.LoadEquipment(eqptPath)
	require.NoError(t, err)

	topoPath := testutil.WriteFile(t, "topology.json", `{
	  "network_name": "passive",
	  "elements": [
	    {"uid": "trx A", "type": "Transceiver"},
	    {"uid": "trx B", "type": "Transceiver"},
	    {"uid": "span1", "type": "Fiber", "type_variety": "SSMF", "params": {"length_km": 10.0}}
	  ],
	  "connections": [
	    {"from_node": "trx A", "to_node": "span1"},
	    {"from_node": "span1", "to_node": "trx B"}
	  ]
	}`)
	net, err := netio.LoadTopology(topoPath, eqpt)
	require.NoError(t, err)

	_, _, err = engine.RunExplicit(context.Background(), eqpt, net, "trx A", "trx B", engine.DefaultParams())
	require.Error(t, err)

	var simErr *engine.SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, engine.ErrCodeNoConvergence, simErr.Code)
	assert.Contains(t, simErr.Message, "no amplified span")
}

func TestRunExplicit_PowerExceedsPMax(t *testing.T) {
	eqpt, net := loadFixtures(t)

	// 10 dBm launch + 15 dB gain lands well above the 21 dBm p_max.
	power := 10.0
	_, _, err := engine.RunExplicit(context.Background(), eqpt, net,
		testutil.FixtureSource, testutil.FixtureDest,
		engine.Params{ReferencePowerDBm: &power, NLICoefficientDB: 40})
	require.Error(t, err)

	var simErr *engine.SimulationError
	require.ErrorAs(t, err, &simErr)
	assert.Equal(t, engine.ErrCodeNoConvergence, simErr.Code)
	assert.Contains(t, simErr.Message, "p_max")
}

func TestRunExplicit_CancelledContext(t *testing.T) {
	eqpt, net := loadFixtures(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := engine.RunExplicit(ctx, eqpt, net, testutil.FixtureSource, testutil.FixtureDest, engine.DefaultParams())
	require.ErrorIs(t, err, context.Canceled)
}

func TestFromStore_Defaults(t *testing.T) {
	simparams.Reset(nil)

	p := engine.FromStore()
	assert.Nil(t, p.ReferencePowerDBm)
	assert.Equal(t, engine.DefaultParams().NLICoefficientDB, p.NLICoefficientDB)
}

func TestFromStore_ReadsOverrides(t *testing.T) {
	simparams.Reset(nil)
	simparams.Set(engine.KeyReferencePower, 2.0)
	simparams.Set(engine.KeyNLICoefficient, 35)
	t.Cleanup(func() { simparams.Reset(nil) })

	p := engine.FromStore()
	require.NotNil(t, p.ReferencePowerDBm)
	assert.Equal(t, 2.0, *p.ReferencePowerDBm)
	assert.Equal(t, 35.0, p.NLICoefficientDB)
}
