package engine

import "github.com/optiso/optiso/internal/simparams"

// Store keys the engine consults. Anything else in the store is ignored.
const (
	KeyReferencePower = "reference_power_dbm"
	KeyNLICoefficient = "nli_coefficient_db"
)

// defaultNLICoefficientDB scales nonlinear interference per span.
const defaultNLICoefficientDB = 40.0

// Params are the simulation parameters a single run computes under.
type Params struct {
	// ReferencePowerDBm overrides the equipment library's per-channel
	// launch power when set.
	ReferencePowerDBm *float64

	// NLICoefficientDB attenuates the per-span nonlinear interference
	// contribution. Larger means less NLI.
	NLICoefficientDB float64
}

// DefaultParams returns the parameters an empty store implies.
func DefaultParams() Params {
	return Params{NLICoefficientDB: defaultNLICoefficientDB}
}

// FromStore snapshots the process-wide store into a Params value.
//
// This is the side-channel read: the returned value reflects whatever
// the store holds at this instant, including another worker's writes.
func FromStore() Params {
	p := DefaultParams()
	if v, ok := simparams.Float(KeyReferencePower); ok {
		p.ReferencePowerDBm = &v
	}
	if v, ok := simparams.Float(KeyNLICoefficient); ok {
		p.NLICoefficientDB = v
	}
	return p
}
