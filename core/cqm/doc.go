// Package cqm builds constrained quadratic models for external hybrid
// solvers and encodes resource-constrained project scheduling instances into
// them.
//
// Models are assembled with a Builder that accumulates immutable variable and
// constraint records; Builder.Model finalizes them into an opaque Model value
// that can be serialized, evaluated against a Sample and checked for
// feasibility. Only linear expressions are needed by the scheduling encoding,
// so quadratic terms are not represented.
package cqm
