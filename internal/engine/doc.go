// Package engine computes per-channel OSNR and GSNR for a transmission
// path through a loaded network.
//
// The computation is deterministic: identical inputs and identical
// simulation parameters always produce bit-identical results. That
// determinism is what lets the harness treat a sequential run as ground
// truth for concurrent runs.
//
// # The parameter side channel
//
// Run reads the process-wide simparams store at entry instead of taking
// simulation parameters as an argument. This faithfully reproduces the
// global-state pattern the harness exists to probe: two concurrent
// callers that interleave their store writes can contaminate each
// other's runs. RunExplicit is the fixed variant that takes a Params
// value explicitly and never touches the store.
//
// # Physical model
//
// The model is a small analytic EDFA chain, not a full split-step
// simulation. Fibers attenuate and inject nonlinear interference that
// grows with the cube of channel power; amplifiers apply a clipped gain
// and add ASE noise from their noise figure. A mild frequency tilt
// keeps the per-channel series non-flat so element-wise comparisons
// exercise real data.
package engine
