package schedule

import (
	"context"
	"fmt"

	"github.com/net-stroboscope/collector/ilp"
)

func errNoSchedulef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNoSchedule, fmt.Sprintf(format, args...))
}

// BinPack finds a minimum-length schedule by exhaustive search, phrased as
// a 0/1 integer program:
//
//	R[q,s] = 1 iff query q runs in slot s, Y[s] = 1 iff slot s is used;
//	every query runs exactly once, slot loads respect the budget, and
//	used slots are pushed to the front (a symmetry breaker);
//	the objective minimizes the number of used slots.
//
// The first-fit estimate upper-bounds the slot count so the program stays
// finite.
func BinPack(ctx context.Context, items []Item, b Budget, sv Solver) (Schedule, error) {
	upper, err := FirstFit(items, b)
	if err != nil {
		return nil, err
	}
	nSlots := len(upper)
	nQueries := len(items)
	if nQueries == 0 {
		return Schedule{}, nil
	}

	m := ilp.NewModel("query bin packing")
	r := make([][]ilp.Var, nQueries)
	for q := range items {
		r[q] = make([]ilp.Var, nSlots)
		for s := 0; s < nSlots; s++ {
			r[q][s] = m.Binary(fmt.Sprintf("R_%d_%d", q, s))
		}
	}
	y := make([]ilp.Var, nSlots)
	for s := 0; s < nSlots; s++ {
		y[s] = m.Binary(fmt.Sprintf("Y_%d", s))
	}

	// C1: every query is assigned to exactly one slot.
	for q := range items {
		terms := make([]ilp.Term, nSlots)
		for s := 0; s < nSlots; s++ {
			terms[s] = ilp.Term{Var: r[q][s], Coef: 1}
		}
		m.Add(terms, ilp.EQ, 1)
	}
	// C2: slot loads fit the budget of used slots.
	for s := 0; s < nSlots; s++ {
		terms := make([]ilp.Term, 0, nQueries+1)
		for q, it := range items {
			terms = append(terms, ilp.Term{Var: r[q][s], Coef: it.Cost()})
		}
		terms = append(terms, ilp.Term{Var: y[s], Coef: -b.Using})
		m.Add(terms, ilp.LE, 0)
	}
	// C3: a slot hosting any query is used.
	for s := 0; s < nSlots; s++ {
		for q := range items {
			m.Add([]ilp.Term{{Var: y[s], Coef: 1}, {Var: r[q][s], Coef: -1}}, ilp.GE, 0)
		}
	}
	// Symmetry breaker: used slots are contiguous from the front.
	for s := 1; s < nSlots; s++ {
		m.Add([]ilp.Term{{Var: y[s-1], Coef: 1}, {Var: y[s], Coef: -1}}, ilp.GE, 0)
	}
	obj := make([]ilp.Term, nSlots)
	for s := 0; s < nSlots; s++ {
		obj[s] = ilp.Term{Var: y[s], Coef: 1}
	}
	m.Minimize(obj)

	sol, err := solveModel(ctx, sv, m, b)
	if err != nil {
		return nil, err
	}
	out := make(Schedule, 0, nSlots)
	for s := 0; s < nSlots; s++ {
		var slot Slot
		for q, it := range items {
			if sol.IsOne(r[q][s]) {
				slot = append(slot, it)
			}
		}
		if len(slot) > 0 {
			out = append(out, slot)
		}
	}
	return out, nil
}
