// Package ilp provides the small mixed 0/1 integer-programming solver
// backing the scheduling pipelines.
//
// Models are built incrementally (Binary and Continuous variables, linear
// constraints, one linear objective) and solved by branch and bound: each
// node relaxes the remaining binaries to [0,1], solves the relaxation with
// gonum's simplex, and branches on the most fractional binary. The search
// honors a wall-clock limit and a relative optimality gap; on timeout the
// best incumbent found so far is returned when one exists.
//
// The scheduler only ever builds models with a few hundred variables, so
// the emphasis is on predictability rather than raw solver speed. Anything
// larger should go through a dedicated MIP solver behind the same
// schedule.Solver interface.
package ilp
