package schedule

import (
	"context"
	"fmt"
	"math"

	"github.com/net-stroboscope/collector/ilp"
)

// MaxFill squeezes additional query activations into the leftover
// capacity of a schedule, typically a replicated one.
//
// For each slot the remaining budget is precomputed and slots without room
// for the cheapest query are dropped from the program. An assignment
// variable only exists where the query is absent from the slot and its
// cost fits the leftover; the objective maximizes the total assigned
// weight plus Sigma times the worst per-query activation count, so no
// query is starved.
func MaxFill(ctx context.Context, sched Schedule, items []Item, b Budget, sv Solver) (Schedule, error) {
	// Cheapest non-zero cost; confinement queries cost nothing and place
	// no load, so they cannot drive the slot filter.
	minCost := math.Inf(1)
	for _, it := range items {
		if c := it.Cost(); c > 0 && c < minCost {
			minCost = c
		}
	}
	if math.IsInf(minCost, 1) {
		return nil, errNoSchedulef("no query with a non-zero cost to fill with")
	}
	minCost = math.Min(minCost, b.Using)

	type mapped struct {
		left float64
		slot int
	}
	var slots []mapped
	for idx, slot := range sched {
		left := b.Using
		for _, it := range slot {
			left -= it.Cost()
		}
		if left-minCost < 0 {
			continue // not enough space for anything
		}
		slots = append(slots, mapped{left: left, slot: idx})
	}

	out := make(Schedule, len(sched))
	for i, slot := range sched {
		out[i] = append(Slot(nil), slot...)
	}
	if len(slots) == 0 {
		return out, nil
	}

	inSlot := func(it Item, idx int) bool {
		for _, q := range sched[idx] {
			if q == it {
				return true
			}
		}
		return false
	}

	m := ilp.NewModel("max filling")
	allocMin := m.Continuous("M", 0, math.Inf(1))
	type assign struct {
		item  Item
		query int
		slot  int // mapped index
	}
	vars := make(map[assign]ilp.Var)
	for q, it := range items {
		for s, ms := range slots {
			if it.Cost() > ms.left || inSlot(it, ms.slot) {
				continue
			}
			vars[assign{item: it, query: q, slot: s}] = m.Binary(fmt.Sprintf("R_%d_%d", q, s))
		}
	}

	// Per-slot capacity over the leftover budget.
	for s, ms := range slots {
		var terms []ilp.Term
		for q, it := range items {
			if v, ok := vars[assign{item: it, query: q, slot: s}]; ok {
				terms = append(terms, ilp.Term{Var: v, Coef: it.Cost()})
			}
		}
		if len(terms) > 0 {
			m.Add(terms, ilp.LE, ms.left)
		}
	}
	// Equity: every query gets at least allocMin activations.
	for q, it := range items {
		terms := []ilp.Term{{Var: allocMin, Coef: -1}}
		for s := range slots {
			if v, ok := vars[assign{item: it, query: q, slot: s}]; ok {
				terms = append(terms, ilp.Term{Var: v, Coef: 1})
			}
		}
		m.Add(terms, ilp.GE, 0)
	}
	obj := []ilp.Term{{Var: allocMin, Coef: b.Sigma}}
	for q, it := range items {
		for s := range slots {
			if v, ok := vars[assign{item: it, query: q, slot: s}]; ok {
				obj = append(obj, ilp.Term{Var: v, Coef: it.Weight()})
			}
		}
	}
	m.Maximize(obj)

	sol, err := solveModel(ctx, sv, m, b)
	if err != nil {
		return nil, err
	}
	for q, it := range items {
		for s, ms := range slots {
			if v, ok := vars[assign{item: it, query: q, slot: s}]; ok && sol.IsOne(v) {
				out[ms.slot] = append(out[ms.slot], it)
			}
		}
	}
	return out, nil
}
