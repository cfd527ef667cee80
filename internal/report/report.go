// Package report renders the harness's verification outcomes for
// humans (text) and machines (JSON).
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/optiso/optiso/internal/harness"
)

// Render writes the per-strategy, per-job pass/fail report. Output is
// deterministic for a given ScenarioResult; the golden tests depend on
// that.
func Render(w io.Writer, res *harness.ScenarioResult) error {
	p := message.NewPrinter(language.English)

	if _, err := p.Fprintf(w, "== Scenario: %s ==\n", res.Scenario); err != nil {
		return err
	}
	if res.Description != "" {
		p.Fprintf(w, "%s\n", res.Description)
	}
	p.Fprintf(w, "%d workers, tolerance %.1e\n", res.Workers, res.Tolerance)
	p.Fprintf(w, "Reference: GSNR %.4f dB, OSNR %.4f dB\n", res.Reference.AvgGSNR, res.Reference.AvgOSNR)

	for _, v := range res.Verdicts {
		p.Fprintf(w, "\nStrategy %s: %s\n", v.Strategy, passFail(v.Pass))

		p.Fprintf(w, "  same-params:\n")
		for _, o := range v.SameParams {
			renderOutcome(p, w, o, nil)
		}

		p.Fprintf(w, "  differing-params (overrides distinct: %s):\n", yesNo(v.OverridesDistinct))
		for _, o := range v.DifferingParams {
			var override *float64
			if o.JobIndex < len(res.Overrides) {
				override = &res.Overrides[o.JobIndex]
			}
			renderOutcome(p, w, o, override)
		}
	}

	_, err := p.Fprintf(w, "\nRecommendation: %s\n", res.Recommendation)
	return err
}

func renderOutcome(p *message.Printer, w io.Writer, o harness.VerificationOutcome, override *float64) {
	label := fmt.Sprintf("job %d", o.JobIndex)
	if override != nil {
		label = p.Sprintf("job %d (%+.1f dBm)", o.JobIndex, *override)
	}
	switch {
	case o.Err != "" && !o.Matched:
		p.Fprintf(w, "    %s: error (%s)\n", label, o.Err)
	case o.Matched:
		p.Fprintf(w, "    %s: match (max deviation %.1e)\n", label, o.MaxDeviation)
	default:
		p.Fprintf(w, "    %s: MISMATCH (max deviation %.1e)\n", label, o.MaxDeviation)
	}
}

func passFail(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// RenderJSON writes the full result as indented JSON.
func RenderJSON(w io.Writer, res *harness.ScenarioResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
