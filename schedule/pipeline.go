package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// A stage refines the schedule produced by the previous one.
type stage struct {
	name string
	run  func(ctx context.Context, sched Schedule, items []Item, b Budget, sv Solver) (Schedule, error)
}

// Pipeline is an initial scheduling step followed by optional refinement
// stages.
type Pipeline struct {
	initial func(ctx context.Context, items []Item, b Budget, sv Solver) (Schedule, error)
	stages  []stage
}

var (
	replicateStage = stage{
		name: "replication",
		run: func(_ context.Context, sched Schedule, _ []Item, b Budget, _ Solver) (Schedule, error) {
			return Replicate(sched, b), nil
		},
	}
	maxFillStage = stage{
		name: "max-filling",
		run: func(ctx context.Context, sched Schedule, items []Item, b Budget, sv Solver) (Schedule, error) {
			return MaxFill(ctx, sched, items, b, sv)
		},
	}

	firstFitInitial = func(_ context.Context, items []Item, b Budget, _ Solver) (Schedule, error) {
		return FirstFit(items, b)
	}
	binPackInitial = func(ctx context.Context, items []Item, b Budget, sv Solver) (Schedule, error) {
		return BinPack(ctx, items, b, sv)
	}
)

// pipelines maps the optimization-level names to their stage composition.
var pipelines = map[string]Pipeline{
	"first-fit-decreasing": {initial: firstFitInitial},
	"bin-packing":          {initial: binPackInitial},
	"approximation":        {initial: firstFitInitial, stages: []stage{replicateStage}},
	"half-approximation":   {initial: firstFitInitial, stages: []stage{replicateStage, maxFillStage}},
	"optimized":            {initial: binPackInitial, stages: []stage{replicateStage, maxFillStage}},
}

// PipelineNames lists the available pipelines, sorted.
func PipelineNames() []string {
	out := make([]string, 0, len(pipelines))
	for name := range pipelines {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BalanceAndSchedule packs the queries into slots with the named pipeline.
//
// A refinement stage reporting ErrNoSchedule is skipped with a warning and
// the previous schedule is kept; any failure of the initial stage, notably
// ErrNoSchedule, aborts the compilation.
func BalanceAndSchedule(ctx context.Context, items []Item, b Budget, pipeline string, sv Solver, log *zap.Logger) (Schedule, error) {
	if log == nil {
		log = zap.NewNop()
	}
	p, ok := pipelines[pipeline]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPipeline, pipeline)
	}
	log.Info("scheduling queries", zap.String("pipeline", pipeline),
		zap.Int("queries", len(items)), zap.Int("max_slots", b.MaxSlots))

	sched, err := p.initial(ctx, items, b, sv)
	if err != nil {
		return nil, err
	}
	for _, st := range p.stages {
		next, err := st.run(ctx, sched, items, b, sv)
		if errors.Is(err, ErrNoSchedule) {
			log.Warn("cannot optimize the schedule further",
				zap.String("stage", st.name), zap.Error(err))
			break
		}
		if err != nil {
			return nil, err
		}
		sched = next
	}
	return sched, nil
}
