package query

import (
	"fmt"
	"net/netip"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/net-stroboscope/collector/confine"
	"github.com/net-stroboscope/collector/core"
	"github.com/net-stroboscope/collector/keypoints"
)

// Network is what the query compiler consumes from the surrounding
// system: graph facts and the runtime estimates maintained by the network
// database.
type Network interface {
	// Graph returns the complete topology, with SPTs built.
	Graph() *core.Graph
	// ResolveRegion expands the region wildcards into concrete paths.
	ResolveRegion(tokens []string) ([][]string, error)
	// UsagePrediction estimates the bandwidth demand of a prefix in Mbps.
	UsagePrediction(prefix netip.Prefix, campaign int) float64
	// HasInterferingTraffic reports flows that would blur node-level
	// confinement around the region.
	HasInterferingTraffic(prefix netip.Prefix, region []string) bool
	// HasNoForwardingAnomalies reports that relaxed confinement is safe.
	HasNoForwardingAnomalies() bool
	// MaxPathDelay returns the worst path delay in the network, in ms.
	MaxPathDelay() float64
	// MaxRouterToCollectorDelay returns the worst mirror delay, in ms.
	MaxRouterToCollectorDelay() float64
}

var queryCount atomic.Int64

// Query is one MIRROR or CONFINE measurement query.
//
// The raw region comes from the operator and may contain wildcards; the
// subregions are its resolution against the graph, and the locations are
// the mirroring points chosen for the current campaign.
type Query struct {
	kind       Kind
	prefix     netip.Prefix
	region     []string
	subregions [][]string
	locations  []Location
	prediction float64
	weight     float64
	name       string
	disabled   bool
}

// Option tweaks a new query.
type Option func(*Query)

// WithName overrides the generated query name.
func WithName(name string) Option {
	return func(q *Query) {
		if name != "" {
			q.name = name
		}
	}
}

// WithWeight sets the scheduling weight; non-positive values keep the
// default of one.
func WithWeight(w float64) Option {
	return func(q *Query) {
		if w > 0 {
			q.weight = w
		}
	}
}

// WithPrediction seeds the demand prediction, in Mbps.
func WithPrediction(p float64) Option {
	return func(q *Query) { q.prediction = p }
}

// New builds a query for a prefix on a region.
func New(kind Kind, prefix netip.Prefix, region []string, opts ...Option) *Query {
	q := &Query{
		kind:   kind,
		prefix: prefix,
		region: region,
		weight: 1,
		name:   fmt.Sprintf("Q%d", queryCount.Add(1)),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// NewSet builds one query per (prefix, region) pair.
func NewSet(kind Kind, prefixes []netip.Prefix, regions [][]string, opts ...Option) []*Query {
	var out []*Query
	for _, p := range prefixes {
		for _, r := range regions {
			out = append(out, New(kind, p, r, opts...))
		}
	}
	return out
}

// Kind returns the query variant.
func (q *Query) Kind() Kind { return q.kind }

// Prefix returns the monitored prefix.
func (q *Query) Prefix() netip.Prefix { return q.prefix }

// Region returns the raw operator region.
func (q *Query) Region() []string { return q.region }

// Subregions returns the resolved region paths.
func (q *Query) Subregions() [][]string { return q.subregions }

// SetSubregions records the resolver output.
func (q *Query) SetSubregions(r [][]string) { q.subregions = r }

// Locations returns the mirroring locations of the current campaign.
func (q *Query) Locations() []Location { return q.locations }

// Prediction returns the current demand estimate, in Mbps.
func (q *Query) Prediction() float64 { return q.prediction }

// SetPrediction refreshes the demand estimate.
func (q *Query) SetPrediction(p float64) { q.prediction = p }

// Name returns the query name.
func (q *Query) Name() string { return q.name }

// Weight returns the scheduling weight.
func (q *Query) Weight() float64 { return q.weight }

// Disabled reports whether the campaign runner turned the query off.
func (q *Query) Disabled() bool { return q.disabled }

// SetDisabled flips the runner's kill switch.
func (q *Query) SetDisabled(d bool) { q.disabled = d }

// Cost returns the instantaneous bandwidth cost of activating the query:
// every location mirrors the predicted demand. Confinement expects no
// traffic at all, so it is free.
func (q *Query) Cost() float64 {
	if q.kind == Confine {
		return 0
	}
	return float64(len(q.locations)) * q.prediction
}

// PathEndpoints returns the first and last hop of a mirrored path.
func (q *Query) PathEndpoints() (string, string) {
	if len(q.region) == 0 {
		return "", ""
	}
	return q.region[0], q.region[len(q.region)-1]
}

// Resolve spawns the well-defined queries covering the resolved region.
// A MIRROR query yields one query per path; a CONFINE query collapses
// every path into a single region-set query.
func (q *Query) Resolve(regions [][]string) []*Query {
	opts := []Option{WithPrediction(q.prediction), WithWeight(q.weight)}
	if q.kind == Mirror {
		out := make([]*Query, 0, len(regions))
		for _, r := range regions {
			out = append(out, New(Mirror, q.prefix, r, opts...))
		}
		return out
	}
	merged := make(map[string]struct{})
	for _, r := range regions {
		for _, n := range r {
			merged[n] = struct{}{}
		}
	}
	nodes := make([]string, 0, len(merged))
	for n := range merged {
		nodes = append(nodes, n)
	}
	// Deterministic region order keeps the derived rules stable.
	sort.Strings(nodes)
	return []*Query{New(Confine, q.prefix, nodes, opts...)}
}

// ComputeLocations picks the mirroring locations for the query on the
// current graph: keypoints along the path for MIRROR, the best applicable
// confinement set for CONFINE.
func (q *Query) ComputeLocations(net Network) error {
	g := net.Graph()
	if q.kind == Mirror {
		kps, err := keypoints.Exhaustive(g, q.region)
		if err != nil {
			return err
		}
		q.locations = make([]Location, 0, len(kps))
		for _, kp := range kps {
			q.locations = append(q.locations, Location{Router: kp.Node})
		}
		return nil
	}
	level := confine.LevelEdges
	if !net.HasInterferingTraffic(q.prefix, q.region) {
		level = confine.LevelNodes
		if net.HasNoForwardingAnomalies() {
			level = confine.LevelRelaxed
		}
	}
	arcs, err := confine.ByLevel(g, q.region, level)
	if err != nil {
		return err
	}
	q.locations = make([]Location, 0, len(arcs))
	for _, a := range arcs {
		q.locations = append(q.locations, Location{Router: a.From, Neighbor: a.To})
	}
	return nil
}

// Rules derives one mirroring rule per current location.
func (q *Query) Rules() []*Rule {
	out := make([]*Rule, 0, len(q.locations))
	for _, loc := range q.locations {
		out = append(out, &Rule{
			Kind:     q.kind,
			Prefix:   q.prefix,
			Location: loc,
			Owners:   []*Query{q},
		})
	}
	return out
}

// CompileLocations runs location selection and rule derivation in one go.
func (q *Query) CompileLocations(net Network) ([]*Rule, error) {
	if err := q.ComputeLocations(net); err != nil {
		return nil, err
	}
	return q.Rules(), nil
}

// String renders the query in the requirement language.
func (q *Query) String() string {
	return fmt.Sprintf("(name:%s, weight:%f) %s %s ON [%s]",
		q.name, q.weight, q.kind, q.prefix, strings.Join(q.region, " "))
}
