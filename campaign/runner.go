package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gaissmai/bart"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/net-stroboscope/collector/backend"
	"github.com/net-stroboscope/collector/netdb"
	"github.com/net-stroboscope/collector/query"
	"github.com/net-stroboscope/collector/schedule"
)

const bitsPerMegabit = 1e6

// Runner executes measurement campaigns in a loop.
type Runner struct {
	Net          *netdb.DB
	Requirements *query.Requirements
	Backend      backend.Backend
	Processor    Processor
	Log          *zap.Logger
	Metrics      *Metrics

	// SleepFunc is the context-aware sleep between slots and campaigns;
	// tests replace it. Nil means a real timer.
	SleepFunc func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	activation map[string]*bart.Table[*query.Rule]
	allowance  map[*query.Query]float64 // megabits left per query
	slices     map[string][]MirroredPacket

	past *query.Compilation
}

func (r *Runner) init() {
	if r.Log == nil {
		r.Log = zap.NewNop()
	}
	if r.Metrics == nil {
		r.Metrics = NewMetrics(nil)
	}
	if r.Processor == nil {
		r.Processor = &LogProcessor{Log: r.Log}
	}
	if r.SleepFunc == nil {
		r.SleepFunc = sleep
	}
	if r.Requirements.MinSlotDuration <= 0 && r.Backend != nil {
		r.Requirements.MinSlotDuration =
			float64(r.Backend.MinSlotDuration().Milliseconds())
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes campaigns until the context is canceled or the schedule
// becomes infeasible.
func (r *Runner) Run(ctx context.Context) error {
	r.init()
	runID := uuid.NewString()
	r.Log.Info("starting measurement campaigns", zap.String("run_id", runID))
	defer r.Processor.Stop()

	for id := 0; ; id++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.RunCampaign(ctx, id); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			r.Log.Error("could not execute the measurement campaign, aborting",
				zap.Int("campaign", id), zap.Error(err))
			return err
		}
		every := time.Duration(r.Requirements.Every * float64(time.Second))
		if err := r.SleepFunc(ctx, every); err != nil {
			return err
		}
	}
}

// RunCampaign compiles and executes a single campaign.
func (r *Runner) RunCampaign(ctx context.Context, id int) error {
	r.init()
	r.Processor.Start()
	r.mu.Lock()
	r.slices = make(map[string][]MirroredPacket)
	r.mu.Unlock()

	comp, err := r.Requirements.Compile(ctx, r.Net, id)
	if err != nil {
		return err
	}
	if comp == nil {
		comp = r.past
	}
	if comp == nil {
		return fmt.Errorf("campaign: nothing to execute, no compilation available")
	}
	r.past = comp
	r.Metrics.Campaigns.Inc()

	slotLen := time.Duration(r.Requirements.SlotDuration * float64(time.Millisecond))
	interLen := time.Duration(r.Requirements.InterSlotDelay * float64(time.Millisecond))
	slotSec := slotLen.Seconds()

	// How often each query appears in the schedule bounds its allowance.
	slotCount := make(map[*query.Query]int, len(comp.Queries))
	for _, slot := range comp.Schedule {
		for _, it := range slot {
			slotCount[asQuery(it)]++
		}
	}
	r.mu.Lock()
	r.allowance = make(map[*query.Query]float64, len(comp.Queries))
	for _, q := range comp.Queries {
		if q.Kind() == query.Confine {
			r.allowance[q] = 0
			continue
		}
		r.allowance[q] = q.Cost() * slotSec * float64(slotCount[q])
	}
	r.mu.Unlock()

	activations := make(map[*query.Query]int, len(comp.Queries))
	for _, slot := range comp.Schedule {
		if err := r.executeSlot(ctx, slot, comp, slotLen, activations); err != nil {
			return err
		}
		if err := r.SleepFunc(ctx, slotLen+interLen); err != nil {
			return err
		}
	}

	r.recordDemands(comp, id, slotSec, slotCount, activations)

	r.mu.Lock()
	slices := r.slices
	r.mu.Unlock()
	r.Processor.Process(comp.Rules, comp.Queries, slices)
	return nil
}

// executeSlot activates the rules of every enabled query of the slot and
// publishes the activation tables the packet handler matches against.
func (r *Runner) executeSlot(ctx context.Context, slot schedule.Slot, comp *query.Compilation, slotLen time.Duration, activations map[*query.Query]int) error {
	byRouter := make(map[string][]*query.Rule)
	for _, it := range slot {
		q := asQuery(it)
		if q.Disabled() {
			continue // the query exhausted its budget
		}
		activations[q]++
		for _, rule := range comp.Rules[q] {
			byRouter[rule.Location.Router] = append(byRouter[rule.Location.Router], rule)
		}
	}

	tables := make(map[string]*bart.Table[*query.Rule], len(byRouter))
	for router, rules := range byRouter {
		merged := query.MergeRules(rules)
		table := new(bart.Table[*query.Rule])
		lines := make([]backend.Rule, 0, len(merged))
		for _, rule := range merged {
			table.Insert(rule.Prefix, rule)
			line := backend.Rule{Prefix: rule.Prefix}
			if rule.Location.IsInterface() {
				name, err := r.Net.InterfaceName(rule.Location.Router, rule.Location.Neighbor)
				if err != nil {
					return err
				}
				line.Interface = name
			}
			lines = append(lines, line)
		}
		tables[router] = table

		addr, err := r.Net.RouterAddress(router)
		if err != nil {
			return err
		}
		if err := r.Backend.Activate(ctx, addr, lines, slotLen); err != nil {
			return err
		}
	}

	r.mu.Lock()
	r.activation = tables
	r.mu.Unlock()
	r.Metrics.SlotsActivated.Inc()
	return nil
}

// recordDemands feeds the consumed bandwidth back into the database so
// the next campaign predicts from fresh numbers.
func (r *Runner) recordDemands(comp *query.Compilation, id int, slotSec float64, slotCount, activations map[*query.Query]int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	demands := make(map[string]float64)
	prefixes := make(map[string]*query.Query)
	for _, q := range comp.Queries {
		if activations[q] == 0 || q.Kind() == query.Confine {
			continue
		}
		original := q.Cost() * slotSec * float64(slotCount[q])
		consumed := original - r.allowance[q]
		demand := consumed / float64(activations[q]) / slotSec
		key := q.Prefix().String()
		if demand > demands[key] {
			demands[key] = demand
		}
		prefixes[key] = q
	}
	for key, demand := range demands {
		r.Net.RecordBandwidthUsage(prefixes[key].Prefix(), demand, id)
	}
}

// ResolvedQueries returns the queries of the current compilation, nil
// before the first campaign compiled.
func (r *Runner) ResolvedQueries() []*query.Query {
	if r.past == nil {
		return nil
	}
	return r.past.Queries
}

// HandlePacket accounts one mirrored packet against the rule that asked
// for it. The dissector calls it from its own goroutine.
func (r *Runner) HandlePacket(p MirroredPacket) {
	r.init()
	r.mu.Lock()
	defer r.mu.Unlock()

	table, ok := r.activation[p.Router]
	if !ok {
		r.unmatched(p)
		return
	}
	rule, ok := table.Lookup(p.Dst)
	if !ok {
		r.unmatched(p)
		return
	}

	r.slices[rule.Location.Router] = append(r.slices[rule.Location.Router], p)
	r.Metrics.Packets.WithLabelValues(p.Router).Inc()
	r.Metrics.Bytes.Add(float64(p.Length))

	megabits := float64(p.Length) * 8 / bitsPerMegabit
	slotSec := r.Requirements.SlotDuration / 1000
	for _, owner := range rule.Owners {
		if !rule.ExpectsTraffic() {
			r.Log.Warn("confined query received unexpected traffic",
				zap.String("query", owner.Name()), zap.String("router", p.Router))
			r.disable(owner)
		}
		left := r.allowance[owner] - megabits
		if left < owner.Cost()*slotSec {
			// Another slot would overdraw the budget.
			r.disable(owner)
		}
		r.allowance[owner] = left
	}
}

func (r *Runner) unmatched(p MirroredPacket) {
	r.Log.Warn("mirrored packet without a matching rule",
		zap.String("router", p.Router), zap.Stringer("dst", p.Dst))
	r.Metrics.UnmatchedPackets.Inc()
}

func (r *Runner) disable(q *query.Query) {
	if !q.Disabled() {
		q.SetDisabled(true)
		r.Metrics.DisabledQueries.Inc()
	}
}

func asQuery(it schedule.Item) *query.Query {
	q, ok := it.(*query.Query)
	if !ok {
		panic(fmt.Sprintf("campaign: schedule item %T is not a query", it))
	}
	return q
}
