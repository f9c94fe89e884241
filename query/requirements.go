package query

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/net-stroboscope/collector/schedule"
)

// DefaultMinSlotDuration is the minimal timeslot duration in ms, matching
// the floor of the Linux rule backend profile.
const DefaultMinSlotDuration = 25

// Requirements instruct a collector of the measurements to perform.
type Requirements struct {
	// Queries are the operator queries, owned by the caller.
	Queries []*Query
	// Using is the bandwidth budget in Mbps.
	Using float64
	// During is the time budget of one campaign, in seconds.
	During float64
	// Every is the spacing between campaigns, in seconds.
	Every float64
	// MinSlotDuration floors the slot duration, in ms.
	MinSlotDuration float64
	// Pipeline names the scheduling pipeline; empty means "approximation".
	Pipeline string
	// Solver backs the ILP scheduling stages; nil makes them report
	// schedule.ErrNoSchedule, so the pipelines starting with bin packing
	// fail and the first-fit based ones skip max filling.
	Solver schedule.Solver
	// Log receives compilation progress; nil silences it.
	Log *zap.Logger

	// Derived per campaign from the network delays.
	SlotCount      int
	SlotDuration   float64 // ms
	InterSlotDelay float64 // ms
}

// NewRequirements builds a requirements document with the stock budget:
// 10 Mbps for half a second, every 5 seconds.
func NewRequirements(queries []*Query) *Requirements {
	return &Requirements{
		Queries:         queries,
		Using:           10,
		During:          0.5,
		Every:           5,
		MinSlotDuration: DefaultMinSlotDuration,
		Pipeline:        "approximation",
	}
}

// Compilation is the outcome of compiling requirements against the
// network: the slot schedule, the resolved queries it schedules, and the
// mirroring rules of each of them.
type Compilation struct {
	Schedule schedule.Schedule
	Queries  []*Query
	Rules    map[*Query][]*Rule
}

// Compile turns the requirements into a mirroring schedule.
//
// It returns (nil, nil) when nothing changed since the previous campaign,
// so the caller can reuse its last compilation.
func (r *Requirements) Compile(ctx context.Context, net Network, campaign int) (*Compilation, error) {
	defined, changed, err := r.what(net, campaign)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}
	rules, err := r.where(net, defined)
	if err != nil {
		return nil, err
	}
	sched, err := r.when(ctx, defined)
	if err != nil {
		return nil, err
	}
	return &Compilation{Schedule: sched, Queries: defined, Rules: rules}, nil
}

// what resolves the loosely-defined queries and refreshes their demand
// predictions, reporting whether any input of the schedule changed since
// the previous campaign.
func (r *Requirements) what(net Network, campaign int) ([]*Query, bool, error) {
	log := r.logger()
	changed := false

	slotCount := r.SlotCount
	if err := r.DeriveSlots(net); err != nil {
		return nil, false, err
	}
	if slotCount != r.SlotCount {
		changed = true
	}

	var defined []*Query
	for _, q := range r.Queries {
		q.SetDisabled(false)
		prediction := net.UsagePrediction(q.Prefix(), campaign)
		if prediction != q.Prediction() {
			q.SetPrediction(prediction)
			changed = true
		}
		resolved, err := net.ResolveRegion(q.Region())
		if err != nil {
			return nil, false, err
		}
		if !sameRegions(q.Subregions(), resolved) {
			q.SetSubregions(resolved)
			changed = true
		}
		if len(resolved) > 0 {
			defined = append(defined, q.Resolve(resolved)...)
		} else {
			defined = append(defined, q)
		}
	}
	if !changed {
		return nil, false, nil
	}
	log.Info("queries resolved differently, rescheduling",
		zap.Int("defined", len(defined)))
	return defined, true, nil
}

// where selects the mirroring locations of every defined query and
// derives its rules.
func (r *Requirements) where(net Network, defined []*Query) (map[*Query][]*Rule, error) {
	rules := make(map[*Query][]*Rule, len(defined))
	for _, q := range defined {
		qr, err := q.CompileLocations(net)
		if err != nil {
			return nil, err
		}
		rules[q] = qr
	}
	return rules, nil
}

// when packs the defined queries into the slot schedule.
func (r *Requirements) when(ctx context.Context, defined []*Query) (schedule.Schedule, error) {
	items := make([]schedule.Item, len(defined))
	for i, q := range defined {
		items[i] = q
	}
	pipeline := r.Pipeline
	if pipeline == "" {
		pipeline = "approximation"
	}
	return schedule.BalanceAndSchedule(ctx, items, r.Budget(), pipeline, r.Solver, r.logger())
}

// DeriveSlots computes the slot duration and count from the network
// delays: a slot must cover the worst path delay, slots are separated by
// the worst router-to-collector delay, and the time budget is divided
// among them. A budget admitting no slot at all is a fatal NoSchedule.
func (r *Requirements) DeriveSlots(net Network) error {
	minSlot := r.MinSlotDuration
	if minSlot <= 0 {
		minSlot = DefaultMinSlotDuration
	}
	r.SlotDuration = max(net.MaxPathDelay(), minSlot)
	r.InterSlotDelay = net.MaxRouterToCollectorDelay()
	r.SlotCount = int(r.During * 1000 / (r.SlotDuration + r.InterSlotDelay))
	if r.SlotCount <= 0 {
		return fmt.Errorf("%w: budget admits no slots (during %gs, slot %gms)",
			schedule.ErrNoSchedule, r.During, r.SlotDuration+r.InterSlotDelay)
	}
	return nil
}

// Budget returns the scheduling budget of these requirements.
func (r *Requirements) Budget() schedule.Budget {
	b := schedule.DefaultBudget()
	b.Using = r.Using
	b.During = r.During
	b.Every = r.Every
	b.MaxSlots = r.SlotCount
	return b
}

// String renders the requirements in the requirement language.
func (r *Requirements) String() string {
	var sb strings.Builder
	for _, q := range r.Queries {
		sb.WriteString(q.String())
		sb.WriteByte('\n')
	}
	sb.WriteString(r.Budget().String())
	sb.WriteByte('\n')
	return sb.String()
}

func (r *Requirements) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func sameRegions(a, b [][]string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}
