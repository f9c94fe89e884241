package schedule_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/net-stroboscope/collector/schedule"
)

// fakeQuery implements schedule.Item for the solver tests.
type fakeQuery struct {
	name   string
	cost   float64
	weight float64
}

func (f *fakeQuery) Cost() float64   { return f.cost }
func (f *fakeQuery) Weight() float64 { return f.weight }

func queries(costs ...float64) []schedule.Item {
	out := make([]schedule.Item, len(costs))
	for i, c := range costs {
		out[i] = &fakeQuery{name: string(rune('a' + i)), cost: c, weight: 1}
	}
	return out
}

func slotCosts(s schedule.Slot) []float64 {
	out := make([]float64, len(s))
	for i, it := range s {
		out[i] = it.Cost()
	}
	return out
}

func requireWithinBudget(t *testing.T, sched schedule.Schedule, using float64) {
	t.Helper()
	for i, slot := range sched {
		total := 0.0
		for _, it := range slot {
			total += it.Cost()
		}
		require.LessOrEqual(t, total, using, "slot %d over budget", i)
	}
}

func TestFirstFit_Decreasing(t *testing.T) {
	b := schedule.Budget{Using: 5, MaxSlots: 10}
	sched, err := schedule.FirstFit(queries(4, 3, 2, 2, 1), b)
	require.NoError(t, err)
	require.Len(t, sched, 3)
	require.ElementsMatch(t, []float64{4, 1}, slotCosts(sched[0]))
	require.ElementsMatch(t, []float64{3, 2}, slotCosts(sched[1]))
	require.ElementsMatch(t, []float64{2}, slotCosts(sched[2]))
}

func TestFirstFit_TooManySlots(t *testing.T) {
	b := schedule.Budget{Using: 5, MaxSlots: 2}
	_, err := schedule.FirstFit(queries(4, 3, 2, 2, 1), b)
	require.ErrorIs(t, err, schedule.ErrNoSchedule)
}

func TestFirstFit_NoQueries(t *testing.T) {
	sched, err := schedule.FirstFit(nil, schedule.Budget{Using: 5, MaxSlots: 2})
	require.NoError(t, err)
	require.Len(t, sched, 1)
	require.Empty(t, sched[0])
}

func TestBinPack_BeatsFirstFit(t *testing.T) {
	// The textbook instance where first-fit-decreasing opens four bins
	// while three suffice: {4,3,3} {4,3,3} {5,5} under budget 10.
	b := schedule.DefaultBudget()
	b.Using = 10
	b.MaxSlots = 10
	items := queries(5, 5, 4, 4, 3, 3, 3, 3)

	ffd, err := schedule.FirstFit(items, b)
	require.NoError(t, err)
	require.Len(t, ffd, 4)

	opt, err := schedule.BinPack(context.Background(), items, b, schedule.ILPSolver{})
	require.NoError(t, err)
	require.Len(t, opt, 3)
	requireWithinBudget(t, opt, b.Using)

	// every query is scheduled exactly once
	count := 0
	for _, slot := range opt {
		count += len(slot)
	}
	require.Equal(t, len(items), count)
}

func TestBinPack_NilSolver(t *testing.T) {
	b := schedule.DefaultBudget()
	b.MaxSlots = 10
	_, err := schedule.BinPack(context.Background(), queries(1, 2), b, nil)
	require.ErrorIs(t, err, schedule.ErrNoSchedule)
}

func TestReplicate_TilesAndPads(t *testing.T) {
	b := schedule.Budget{Using: 5, MaxSlots: 7}
	items := queries(4, 3)
	minimum := schedule.Schedule{{items[0]}, {items[1]}, {}}

	out := schedule.Replicate(minimum, b)
	require.Len(t, out, 7)
	// slot contents repeat modulo the minimum schedule length
	for i := 0; i < 6; i++ {
		require.Equal(t, out[i%2], out[i], "slot %d differs from its replica", i)
	}
	require.Empty(t, out[6])
}

func TestReplicate_CopiesSlots(t *testing.T) {
	b := schedule.Budget{Using: 5, MaxSlots: 4}
	items := queries(4)
	out := schedule.Replicate(schedule.Schedule{{items[0]}}, b)
	out[0] = append(out[0], items[0])
	require.Len(t, out[1], 1, "replicas must not share backing storage")
}

func TestMaxFill_UsesLeftoverBudget(t *testing.T) {
	b := schedule.DefaultBudget()
	b.Using = 5
	b.MaxSlots = 4
	items := queries(3.5, 1)

	// A replicated minimum schedule with the cheap query only in half the
	// slots; the other half keeps 1.5 Mbps of leftover room.
	sched := schedule.Schedule{
		{items[0], items[1]}, {items[0]}, {items[0], items[1]}, {items[0]},
	}
	out, err := schedule.MaxFill(context.Background(), sched, items, b, schedule.ILPSolver{})
	require.NoError(t, err)
	requireWithinBudget(t, out, b.Using)
	// The leftover unit of slots 1 and 3 is now used by query b.
	for i, slot := range out {
		require.Len(t, slot, 2, "slot %d not filled", i)
	}
}

func TestMaxFill_NothingFits(t *testing.T) {
	b := schedule.DefaultBudget()
	b.Using = 5
	items := queries(5, 5)
	sched := schedule.Schedule{{items[0]}, {items[1]}}
	_, err := schedule.MaxFill(context.Background(), sched, items, b, schedule.ILPSolver{})
	require.NoError(t, err)
}

func TestMaxFill_ZeroCostOnly(t *testing.T) {
	b := schedule.DefaultBudget()
	items := queries(0)
	_, err := schedule.MaxFill(context.Background(), schedule.Schedule{{}}, items, b, schedule.ILPSolver{})
	require.ErrorIs(t, err, schedule.ErrNoSchedule)
}

func TestBalanceAndSchedule_Approximation(t *testing.T) {
	b := schedule.DefaultBudget()
	b.Using = 5
	b.MaxSlots = 6
	sched, err := schedule.BalanceAndSchedule(context.Background(),
		queries(4, 3, 2, 2, 1), b, "approximation", nil, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, sched, 6)
	requireWithinBudget(t, sched, b.Using)
	// replication property: slot i equals slot i mod 3
	for i := 0; i < 6; i++ {
		require.Equal(t, slotCosts(sched[i%3]), slotCosts(sched[i]))
	}
}

func TestBalanceAndSchedule_DegradesWithoutSolver(t *testing.T) {
	// With no solver the max-filling stage reports ErrNoSchedule and the
	// replicated schedule is kept.
	b := schedule.DefaultBudget()
	b.Using = 5
	b.MaxSlots = 6
	sched, err := schedule.BalanceAndSchedule(context.Background(),
		queries(4, 3, 2, 2, 1), b, "half-approximation", nil, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, sched, 6)
	requireWithinBudget(t, sched, b.Using)
}

func TestBalanceAndSchedule_Optimized(t *testing.T) {
	b := schedule.DefaultBudget()
	b.Using = 6
	b.MaxSlots = 5
	sched, err := schedule.BalanceAndSchedule(context.Background(),
		queries(3, 3, 2, 2, 2), b, "optimized", schedule.ILPSolver{}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, sched, 5)
	requireWithinBudget(t, sched, b.Using)

	// Each query appears at least twice: the two-slot optimum is tiled
	// twice, then max filling may add more.
	counts := map[schedule.Item]int{}
	for _, slot := range sched {
		for _, it := range slot {
			counts[it]++
		}
	}
	require.Len(t, counts, 5)
	for _, c := range counts {
		require.GreaterOrEqual(t, c, 2)
	}
}

func TestBalanceAndSchedule_InitialFailureIsFatal(t *testing.T) {
	b := schedule.DefaultBudget()
	b.Using = 5
	b.MaxSlots = 1
	_, err := schedule.BalanceAndSchedule(context.Background(),
		queries(4, 3), b, "approximation", nil, zap.NewNop())
	require.ErrorIs(t, err, schedule.ErrNoSchedule)
}

func TestBalanceAndSchedule_UnknownPipeline(t *testing.T) {
	_, err := schedule.BalanceAndSchedule(context.Background(),
		queries(1), schedule.DefaultBudget(), "nope", nil, zap.NewNop())
	require.ErrorIs(t, err, schedule.ErrUnknownPipeline)
}

func TestPipelineNames(t *testing.T) {
	require.Equal(t, []string{
		"approximation", "bin-packing", "first-fit-decreasing",
		"half-approximation", "optimized",
	}, schedule.PipelineNames())
}
