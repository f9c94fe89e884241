package schedule

import (
	"fmt"
	"sort"
)

// FirstFit finds a schedule with the first-fit-decreasing heuristic:
// queries are placed by descending cost into the first slot with enough
// remaining budget, opening a new slot when none fits.
//
// Opening more than Budget.MaxSlots slots fails with ErrNoSchedule.
func FirstFit(items []Item, b Budget) (Schedule, error) {
	type bin struct {
		queries Slot
		used    float64
	}
	slots := []*bin{{}}

	sorted := append([]Item(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Cost() > sorted[j].Cost()
	})

	for _, q := range sorted {
		cost := q.Cost()
		placed := false
		for _, s := range slots {
			if s.used+cost <= b.Using {
				s.queries = append(s.queries, q)
				s.used += cost
				placed = true
				break
			}
		}
		if placed {
			continue
		}
		if !b.unlimited() && len(slots) >= b.MaxSlots {
			return nil, fmt.Errorf("%w: first fit requires more than %d slots",
				ErrNoSchedule, b.MaxSlots)
		}
		slots = append(slots, &bin{queries: Slot{q}, used: cost})
	}

	out := make(Schedule, len(slots))
	for i, s := range slots {
		out[i] = s.queries
	}
	return out, nil
}
