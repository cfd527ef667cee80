package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/optiso/optiso/internal/netio"
)

// Path is the ordered element walk a simulation propagated through.
type Path struct {
	Elements []string
	SpanKm   float64
}

// Result holds the per-channel series and their scalar summaries, all
// in dB. Series are ordered by ascending channel frequency.
type Result struct {
	GSNR    []float64
	OSNR    []float64
	AvgGSNR float64
	AvgOSNR float64
}

// Run simulates a transmission from src to dst, reading simulation
// parameters from the process-wide store (see FromStore).
func Run(ctx context.Context, eqpt *netio.Equipment, net *netio.Network, src, dst string) (*Path, *Result, error) {
	return RunExplicit(ctx, eqpt, net, src, dst, FromStore())
}

// RunExplicit simulates a transmission under an explicitly supplied
// parameter set, bypassing the global store entirely.
func RunExplicit(ctx context.Context, eqpt *netio.Equipment, net *netio.Network, src, dst string, params Params) (*Path, *Result, error) {
	if err := checkEndpoint(net, src); err != nil {
		return nil, nil, err
	}
	if err := checkEndpoint(net, dst); err != nil {
		return nil, nil, err
	}
	if src == dst {
		return nil, nil, newSimError(ErrCodeBadEndpoint, src, dst, "source and destination are the same transceiver")
	}

	walk := shortestPath(net, src, dst)
	if walk == nil {
		return nil, nil, newSimError(ErrCodeNoPath, src, dst, "no route between transceivers")
	}

	path := &Path{Elements: walk}
	for _, uid := range walk {
		el := net.Elements[uid]
		if el.Type == netio.TypeFiber {
			path.SpanKm += el.Params.LengthKm
		}
	}

	res, err := propagate(ctx, eqpt, net, walk, src, dst, params)
	if err != nil {
		return nil, nil, err
	}
	return path, res, nil
}

func checkEndpoint(net *netio.Network, uid string) error {
	el, ok := net.Elements[uid]
	if !ok {
		return newSimError(ErrCodeBadEndpoint, uid, "", fmt.Sprintf("element %q not in topology", uid))
	}
	if el.Type != netio.TypeTransceiver {
		return newSimError(ErrCodeBadEndpoint, uid, "", fmt.Sprintf("element %q is not a transceiver", uid))
	}
	return nil
}

// shortestPath runs a BFS over the directed adjacency. Neighbor order
// is sorted at load time, so the chosen route is deterministic.
func shortestPath(net *netio.Network, src, dst string) []string {
	prev := map[string]string{src: src}
	queue := []string{src}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			var walk []string
			for at := dst; ; at = prev[at] {
				walk = append([]string{at}, walk...)
				if at == src {
					return walk
				}
			}
		}
		for _, next := range net.Adjacency[cur] {
			if _, seen := prev[next]; !seen {
				prev[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// propagate walks every channel through the path, accumulating ASE and
// NLI noise in linear units (mW) and converting to dB at the end.
func propagate(ctx context.Context, eqpt *netio.Equipment, net *netio.Network, walk []string, src, dst string, params Params) (*Result, error) {
	nch := eqpt.SI.ChannelCount()
	launchDBm := eqpt.SI.PowerDBm
	if params.ReferencePowerDBm != nil {
		launchDBm = *params.ReferencePowerDBm
	}

	res := &Result{
		GSNR: make([]float64, nch),
		OSNR: make([]float64, nch),
	}

	fCenter := (eqpt.SI.FMin + eqpt.SI.FMax) / 2
	fWidth := eqpt.SI.FMax - eqpt.SI.FMin
	amplified := false

	for i := 0; i < nch; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		freq := eqpt.SI.FMin + float64(i)*eqpt.SI.Spacing
		tilt := (freq - fCenter) / fWidth // [-0.5, 0.5] across the grid

		signal := dbToLin(launchDBm)
		ase := 0.0
		nli := 0.0

		for _, uid := range walk {
			el := net.Elements[uid]
			switch el.Type {
			case netio.TypeFiber:
				fib := eqpt.Fiber[el.TypeVariety]
				lossDB := fib.LossCoef * el.Params.LengthKm * (1 + 0.02*tilt)
				// NLI builds from the power entering the span.
				nli += math.Pow(signal, 3) * dbToLin(-params.NLICoefficientDB) * (1 + 0.1*tilt)
				att := dbToLin(-lossDB)
				signal *= att
				ase *= att
				nli *= att
			case netio.TypeEdfa:
				amp := eqpt.Edfa[el.TypeVariety]
				gain := clamp(el.Operational.GainTarget, amp.GainMin, amp.GainFlatmax)
				g := dbToLin(gain)
				signal *= g
				ase *= g
				nli *= g
				ase += dbToLin(amp.NF + gain - 58)
				if linToDB(signal) > amp.PMax {
					return nil, newSimError(ErrCodeNoConvergence, src, dst,
						fmt.Sprintf("amplifier %q output %.2f dBm exceeds p_max %.2f dBm", uid, linToDB(signal), amp.PMax))
				}
				amplified = true
			}
		}

		if !amplified || ase <= 0 {
			return nil, newSimError(ErrCodeNoConvergence, src, dst, "path has no amplified span")
		}

		res.OSNR[i] = linToDB(signal / ase)
		res.GSNR[i] = linToDB(signal / (ase + nli))
	}

	res.AvgGSNR = mean(res.GSNR)
	res.AvgOSNR = mean(res.OSNR)
	return res, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func dbToLin(db float64) float64 {
	return math.Pow(10, db/10)
}

func linToDB(lin float64) float64 {
	return 10 * math.Log10(lin)
}

func mean(vals []float64) float64 {
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
