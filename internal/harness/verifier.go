package harness

import "math"

// DefaultTolerance is the absolute tolerance for numeric comparison
// against the oracle.
const DefaultTolerance = 1e-6

// Verify compares a strategy's results against the oracle's, producing
// one outcome per job. Results are matched by index, never by
// completion order.
//
// A job matches when both scalar metrics and every element of both
// series differ from the reference by at most tol. Two results that
// both failed count as matched (the strategy reproduced the baseline's
// failure); a failure on one side only is a mismatch.
func Verify(strategy string, reference, actual []SimulationResult, tol float64) []VerificationOutcome {
	outcomes := make([]VerificationOutcome, len(reference))
	for i := range reference {
		outcomes[i] = verifyOne(strategy, i, reference[i], actual[i], tol)
	}
	return outcomes
}

func verifyOne(strategy string, idx int, ref, act SimulationResult, tol float64) VerificationOutcome {
	out := VerificationOutcome{JobIndex: idx, Strategy: strategy}

	switch {
	case ref.Failed() && act.Failed():
		out.Matched = true
		out.Err = act.Err
	case ref.Failed():
		out.Err = "reference failed but strategy result did not: " + ref.Err
	case act.Failed():
		out.Err = act.Err
	default:
		out.MaxDeviation = MaxDeviation(ref, act)
		out.Matched = out.MaxDeviation <= tol
	}
	return out
}

// MaxDeviation returns the largest absolute difference across both
// scalar metrics and both per-channel series. Series of different
// lengths deviate infinitely.
func MaxDeviation(a, b SimulationResult) float64 {
	dev := math.Abs(a.AvgGSNR - b.AvgGSNR)
	dev = math.Max(dev, math.Abs(a.AvgOSNR-b.AvgOSNR))
	dev = math.Max(dev, seriesDeviation(a.GSNR, b.GSNR))
	dev = math.Max(dev, seriesDeviation(a.OSNR, b.OSNR))
	return dev
}

func seriesDeviation(a, b []float64) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	dev := 0.0
	for i := range a {
		dev = math.Max(dev, math.Abs(a[i]-b[i]))
	}
	return dev
}

// PairwiseDistinct reports whether all successful results differ from
// each other by more than tol on the primary scalar metric. The
// differing-parameters check uses this to prove the overrides actually
// took effect; identical results would mean the parameter never reached
// the computation.
func PairwiseDistinct(results []SimulationResult, tol float64) bool {
	for i := 0; i < len(results); i++ {
		if results[i].Failed() {
			continue
		}
		for j := i + 1; j < len(results); j++ {
			if results[j].Failed() {
				continue
			}
			if math.Abs(results[i].AvgGSNR-results[j].AvgGSNR) <= tol {
				return false
			}
		}
	}
	return true
}

// StrategyVerdict aggregates one strategy's outcomes across both
// checks. Pass is the logical AND of every per-job outcome plus the
// distinctness requirement.
type StrategyVerdict struct {
	Strategy          string                `json:"strategy"`
	SameParams        []VerificationOutcome `json:"same_params"`
	DifferingParams   []VerificationOutcome `json:"differing_params"`
	OverridesDistinct bool                  `json:"overrides_distinct"`
	Pass              bool                  `json:"pass"`
}

// Finalize computes Pass from the collected outcomes.
func (v *StrategyVerdict) Finalize() {
	v.Pass = v.OverridesDistinct
	for _, o := range v.SameParams {
		v.Pass = v.Pass && o.Matched
	}
	for _, o := range v.DifferingParams {
		v.Pass = v.Pass && o.Matched
	}
}
