// Package solver defines the contract with external constrained-model
// solvers.
//
// A Gateway receives a finalized cqm.Model with a soft time limit and a
// label, and returns a SampleSet ordered from best to worst energy. The core
// never retries or suppresses gateway errors. Implementations register
// themselves by name so the configuration can select one; see
// infra/solver/httpgw and infra/solver/replay.
package solver
