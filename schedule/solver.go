package schedule

import (
	"context"
	"time"

	"github.com/net-stroboscope/collector/ilp"
)

// Solver abstracts the MIP solver used by the BinPack and MaxFill stages,
// so deployments can swap in a commercial solver or run without one: a nil
// Solver makes every ILP stage report ErrNoSchedule, leaving the first-fit
// based pipelines fully functional.
type Solver interface {
	SolveILP(ctx context.Context, m *ilp.Model, timeLimit time.Duration, mipGap float64) (*ilp.Solution, error)
}

// ILPSolver is the default Solver, backed by the ilp package.
type ILPSolver struct{}

// SolveILP implements Solver.
func (ILPSolver) SolveILP(ctx context.Context, m *ilp.Model, timeLimit time.Duration, mipGap float64) (*ilp.Solution, error) {
	return ilp.Solve(ctx, m, ilp.Options{TimeLimit: timeLimit, MIPGap: mipGap})
}

// solveModel runs the model through the solver, mapping the absence of a
// solver and every solver failure to ErrNoSchedule.
func solveModel(ctx context.Context, sv Solver, m *ilp.Model, b Budget) (*ilp.Solution, error) {
	if sv == nil {
		return nil, errNoSchedulef("no MIP solver available")
	}
	sol, err := sv.SolveILP(ctx, m, b.MaxILPRun, b.MIPGap)
	if err != nil {
		return nil, errNoSchedulef("solver failed: %v", err)
	}
	return sol, nil
}
