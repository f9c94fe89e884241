package ilp

import (
	"context"
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// Options bounds one Solve invocation.
type Options struct {
	// TimeLimit caps the wall-clock time of the search; zero means no cap.
	TimeLimit time.Duration
	// MIPGap stops the search once the incumbent is provably within this
	// relative distance of the optimum.
	MIPGap float64
}

const (
	intTol     = 1e-6
	simplexTol = 1e-10
)

// Solve runs branch and bound on the model.
//
// The relaxation of each node is solved with gonum's simplex; branching
// fixes the most fractional binary, exploring its nearest rounding first
// and the other value after. Nodes whose bound
// cannot beat the incumbent are pruned. When the time limit expires the
// best incumbent is returned, or ErrTimeout when there is none.
func Solve(ctx context.Context, m *Model, opts Options) (*Solution, error) {
	if len(m.vars) == 0 {
		return &Solution{}, nil
	}
	var deadline time.Time
	if opts.TimeLimit > 0 {
		deadline = time.Now().Add(opts.TimeLimit)
	}

	// Internally everything minimizes; flip the sign on the way out.
	sign := 1.0
	if m.maximize {
		sign = -1.0
	}
	obj := make([]float64, len(m.vars))
	for _, t := range m.obj {
		obj[t.Var] += sign * t.Coef
	}

	type node struct{ fixed map[Var]float64 }
	stack := []node{{fixed: map[Var]float64{}}}

	var (
		best     []float64
		bestObj  = math.Inf(1)
		rootWait = true
		rootObj  = math.Inf(-1)
		timedOut bool
	)

	for len(stack) > 0 {
		if ctx.Err() != nil {
			timedOut = true
			break
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			timedOut = true
			break
		}
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		x, objVal, err := m.relax(obj, n.fixed)
		if errors.Is(err, ErrInfeasible) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if rootWait {
			rootObj = objVal
			rootWait = false
		}
		if objVal >= bestObj-intTol {
			continue // bound: cannot beat the incumbent
		}

		branch, frac := mostFractional(m, x, n.fixed)
		if frac <= intTol {
			// Integral: a new incumbent.
			best = roundBinaries(m, x)
			bestObj = objVal
			if gapClosed(bestObj, rootObj, opts.MIPGap) {
				break
			}
			continue
		}
		// Explore the nearest rounding first (it is pushed last).
		one := cloneFixed(n.fixed)
		one[branch] = 1
		zero := cloneFixed(n.fixed)
		zero[branch] = 0
		if x[branch] >= 0.5 {
			stack = append(stack, node{fixed: zero}, node{fixed: one})
		} else {
			stack = append(stack, node{fixed: one}, node{fixed: zero})
		}
	}

	if best == nil {
		if timedOut {
			return nil, ErrTimeout
		}
		return nil, ErrInfeasible
	}
	return &Solution{X: best, Objective: sign * bestObj}, nil
}

// gapClosed reports whether the incumbent is within the relative gap of
// the root relaxation bound.
func gapClosed(incumbent, rootBound, gap float64) bool {
	if gap <= 0 {
		return false
	}
	denom := math.Max(1, math.Abs(incumbent))
	return (incumbent-rootBound)/denom <= gap
}

func mostFractional(m *Model, x []float64, fixed map[Var]float64) (Var, float64) {
	bestVar := Var(-1)
	bestFrac := 0.0
	for i, def := range m.vars {
		if !def.integer {
			continue
		}
		if _, ok := fixed[Var(i)]; ok {
			continue
		}
		frac := math.Abs(x[i] - math.Round(x[i]))
		if frac > bestFrac {
			bestFrac = frac
			bestVar = Var(i)
		}
	}
	return bestVar, bestFrac
}

func roundBinaries(m *Model, x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	for i, def := range m.vars {
		if def.integer {
			out[i] = math.Round(out[i])
		}
	}
	return out
}

func cloneFixed(f map[Var]float64) map[Var]float64 {
	c := make(map[Var]float64, len(f)+1)
	for k, v := range f {
		c[k] = v
	}
	return c
}

// relax solves the LP relaxation of the model with the given binaries
// fixed, returning the full variable vector and its (minimizing) objective
// value. Fixed variables are folded into the right-hand sides so the LP
// only carries the free columns.
func (m *Model) relax(obj []float64, fixed map[Var]float64) ([]float64, float64, error) {
	// Column index per free variable.
	col := make(map[Var]int, len(m.vars))
	var free []Var
	for i := range m.vars {
		if _, ok := fixed[Var(i)]; !ok {
			col[Var(i)] = len(free)
			free = append(free, Var(i))
		}
	}

	// Gather the inequality rows Gx <= h, folding fixed variables.
	var rows [][]float64
	var rhs []float64
	addRow := func(terms []Term, scale, bound float64) {
		row := make([]float64, len(free))
		b := bound
		for _, t := range terms {
			if v, ok := fixed[t.Var]; ok {
				b -= scale * t.Coef * v
				continue
			}
			row[col[t.Var]] += scale * t.Coef
		}
		rows = append(rows, row)
		rhs = append(rhs, b)
	}
	for _, c := range m.cons {
		switch c.Rel {
		case LE:
			addRow(c.Terms, 1, c.RHS)
		case GE:
			addRow(c.Terms, -1, -c.RHS)
		case EQ:
			addRow(c.Terms, 1, c.RHS)
			addRow(c.Terms, -1, -c.RHS)
		}
	}
	// Finite upper bounds become rows; lower bounds other than zero too.
	for _, v := range free {
		def := m.vars[v]
		if !math.IsInf(def.ub, 1) {
			addRow([]Term{{Var: v, Coef: 1}}, 1, def.ub)
		}
		if def.lb > 0 {
			addRow([]Term{{Var: v, Coef: 1}}, -1, -def.lb)
		}
	}

	if len(free) == 0 {
		// Everything is fixed: just check feasibility of the folded rows.
		for i := range rows {
			if rhs[i] < -intTol {
				return nil, 0, ErrInfeasible
			}
		}
		x := make([]float64, len(m.vars))
		total := 0.0
		for i := range m.vars {
			x[i] = fixed[Var(i)]
			total += obj[i] * x[i]
		}
		return x, total, nil
	}

	// Standard form: minimize c'y subject to Ay = b, y >= 0, with one
	// slack column per inequality row.
	nFree := len(free)
	nRows := len(rows)
	c := make([]float64, nFree+nRows)
	for i, v := range free {
		c[i] = obj[v]
	}
	a := mat.NewDense(nRows, nFree+nRows, nil)
	for r, row := range rows {
		for j, coef := range row {
			a.Set(r, j, coef)
		}
		a.Set(r, nFree+r, 1)
	}

	_, y, err := lp.Simplex(c, a, rhs, simplexTol, nil)
	switch err {
	case nil:
	case lp.ErrInfeasible:
		return nil, 0, ErrInfeasible
	case lp.ErrUnbounded:
		return nil, 0, ErrUnbounded
	default:
		return nil, 0, err
	}

	x := make([]float64, len(m.vars))
	total := 0.0
	for i := range m.vars {
		if v, ok := fixed[Var(i)]; ok {
			x[i] = v
		} else {
			x[i] = y[col[Var(i)]]
		}
		total += obj[i] * x[i]
	}
	return x, total, nil
}
