package harness_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optiso/optiso/internal/harness"
	"github.com/optiso/optiso/internal/testutil"
)

func TestVerify_MatchWithinTolerance(t *testing.T) {
	ref := []harness.SimulationResult{testutil.StubResult(0)}
	act := []harness.SimulationResult{testutil.StubResult(0)}
	act[0].AvgGSNR += 5e-7

	outcomes := harness.Verify(harness.StrategySharedMemory, ref, act, harness.DefaultTolerance)

	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Matched)
	assert.InDelta(t, 5e-7, outcomes[0].MaxDeviation, 1e-12)
	assert.Equal(t, harness.StrategySharedMemory, outcomes[0].Strategy)
}

func TestVerify_MismatchBeyondTolerance(t *testing.T) {
	ref := []harness.SimulationResult{testutil.StubResult(0)}
	act := []harness.SimulationResult{testutil.StubResult(-1)}

	outcomes := harness.Verify(harness.StrategySharedMemory, ref, act, harness.DefaultTolerance)

	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)
	assert.Greater(t, outcomes[0].MaxDeviation, harness.DefaultTolerance)
}

func TestVerify_MatchedByIndexNotValue(t *testing.T) {
	// Results swapped relative to the reference must mismatch even
	// though the same values appear in both batches.
	ref := []harness.SimulationResult{testutil.StubResult(-1), testutil.StubResult(1)}
	act := []harness.SimulationResult{testutil.StubResult(1), testutil.StubResult(-1)}

	outcomes := harness.Verify(harness.StrategyProcessPool, ref, act, harness.DefaultTolerance)

	assert.False(t, outcomes[0].Matched)
	assert.False(t, outcomes[1].Matched)
}

func TestVerify_BothFailedCountsAsMatch(t *testing.T) {
	ref := []harness.SimulationResult{{Err: "SIM_NO_PATH: no route between transceivers"}}
	act := []harness.SimulationResult{{Err: "SIM_NO_PATH: no route between transceivers"}}

	outcomes := harness.Verify(harness.StrategyProcessPool, ref, act, harness.DefaultTolerance)

	assert.True(t, outcomes[0].Matched)
	assert.NotEmpty(t, outcomes[0].Err)
}

func TestVerify_OneSidedFailureIsMismatch(t *testing.T) {
	ok := testutil.StubResult(0)
	failed := harness.SimulationResult{Err: "worker exited before responding"}

	strategyFailed := harness.Verify(harness.StrategyProcessPool,
		[]harness.SimulationResult{ok}, []harness.SimulationResult{failed}, harness.DefaultTolerance)
	assert.False(t, strategyFailed[0].Matched)
	assert.Equal(t, "worker exited before responding", strategyFailed[0].Err)

	refFailed := harness.Verify(harness.StrategyProcessPool,
		[]harness.SimulationResult{failed}, []harness.SimulationResult{ok}, harness.DefaultTolerance)
	assert.False(t, refFailed[0].Matched)
	assert.NotEmpty(t, refFailed[0].Err)
}

func TestMaxDeviation(t *testing.T) {
	base := testutil.StubResult(0)

	t.Run("identical results", func(t *testing.T) {
		assert.Equal(t, 0.0, harness.MaxDeviation(base, base))
	})

	t.Run("series deviation dominates", func(t *testing.T) {
		other := testutil.StubResult(0)
		other.GSNR = append([]float64(nil), base.GSNR...)
		other.GSNR[2] += 0.25
		assert.InDelta(t, 0.25, harness.MaxDeviation(base, other), 1e-12)
	})

	t.Run("scalar deviation dominates", func(t *testing.T) {
		other := testutil.StubResult(0)
		other.AvgOSNR += 1.5
		assert.InDelta(t, 1.5, harness.MaxDeviation(base, other), 1e-12)
	})

	t.Run("length mismatch is infinite", func(t *testing.T) {
		other := testutil.StubResult(0)
		other.OSNR = other.OSNR[:2]
		assert.True(t, math.IsInf(harness.MaxDeviation(base, other), 1))
	})
}

func TestPairwiseDistinct(t *testing.T) {
	tol := harness.DefaultTolerance

	t.Run("distinct results", func(t *testing.T) {
		results := []harness.SimulationResult{
			testutil.StubResult(-2), testutil.StubResult(-1), testutil.StubResult(0),
		}
		assert.True(t, harness.PairwiseDistinct(results, tol))
	})

	t.Run("two identical results", func(t *testing.T) {
		results := []harness.SimulationResult{
			testutil.StubResult(-2), testutil.StubResult(0), testutil.StubResult(0),
		}
		assert.False(t, harness.PairwiseDistinct(results, tol))
	})

	t.Run("failures are skipped", func(t *testing.T) {
		results := []harness.SimulationResult{
			testutil.StubResult(0), {Err: "boom"}, {Err: "boom"},
		}
		assert.True(t, harness.PairwiseDistinct(results, tol))
	})
}

func TestStrategyVerdict_Finalize(t *testing.T) {
	matched := harness.VerificationOutcome{Matched: true}
	mismatched := harness.VerificationOutcome{Matched: false}

	tests := []struct {
		name    string
		verdict harness.StrategyVerdict
		want    bool
	}{
		{
			name: "all matched and distinct",
			verdict: harness.StrategyVerdict{
				SameParams:        []harness.VerificationOutcome{matched, matched},
				DifferingParams:   []harness.VerificationOutcome{matched},
				OverridesDistinct: true,
			},
			want: true,
		},
		{
			name: "one mismatch fails the strategy",
			verdict: harness.StrategyVerdict{
				SameParams:        []harness.VerificationOutcome{matched, mismatched},
				DifferingParams:   []harness.VerificationOutcome{matched},
				OverridesDistinct: true,
			},
			want: false,
		},
		{
			name: "indistinct overrides fail the strategy",
			verdict: harness.StrategyVerdict{
				SameParams:        []harness.VerificationOutcome{matched},
				DifferingParams:   []harness.VerificationOutcome{matched},
				OverridesDistinct: false,
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.verdict.Finalize()
			assert.Equal(t, tt.want, tt.verdict.Pass)
		})
	}
}
