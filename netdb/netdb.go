package netdb

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"go.uber.org/zap"

	"github.com/net-stroboscope/collector/core"
)

// Arrow is the region wildcard token.
const Arrow = "->"

// ErrNoNetFlowRecords indicates that NetFlow cannot estimate the demand
// of a prefix; callers fall back to the maximal admissible bandwidth.
var ErrNoNetFlowRecords = errors.New("netdb: no netflow records for prefix")

// NetFlowFunc estimates the demand of a prefix from an external NetFlow
// feed; return ErrNoNetFlowRecords when the feed has nothing.
type NetFlowFunc func(prefix netip.Prefix) (float64, error)

// InterferenceFunc reports flows for the prefix that cross the region's
// neighborhood without entering it, which rules out node-level
// confinement. Answering this requires IGP or BGP feeds.
type InterferenceFunc func(prefix netip.Prefix, region []string) bool

type sample struct {
	campaign int
	rate     float64
}

// DB is the network database: the topology plus the running estimates fed
// back by the measurement campaigns.
//
// The measurement store is guarded by a mutex because the packet listener
// records usage concurrently with the campaign loop reading predictions.
type DB struct {
	graph *core.Graph

	// MaxBW is the maximal admissible demand estimate, in Mbps.
	MaxBW float64
	// Retention is how many campaigns a bandwidth sample stays relevant.
	Retention int
	// ForwardingAnomalies should be raised by the post-processing of
	// MIRROR results when observed paths contradict the IGP.
	ForwardingAnomalies bool
	// NetFlow optionally estimates demand when no measurement exists.
	NetFlow NetFlowFunc
	// Interference optionally reports interfering flows; nil means none.
	Interference InterferenceFunc
	// PathDelay and CollectorDelay report the worst-case delays in ms;
	// zero values fall back to conservative defaults.
	PathDelay      float64
	CollectorDelay float64

	log *zap.Logger

	mu           sync.Mutex
	measurements map[netip.Prefix][]sample
	routerByAddr map[netip.Addr]string
}

const (
	defaultMaxBW          = 50
	defaultRetention      = 10
	defaultPathDelay      = 50
	defaultCollectorDelay = 25
)

// Option configures a DB.
type Option func(*DB)

// WithMaxBW caps the demand estimates at bw Mbps.
func WithMaxBW(bw float64) Option {
	return func(db *DB) { db.MaxBW = bw }
}

// WithRetention keeps bandwidth samples for n campaigns.
func WithRetention(n int) Option {
	return func(db *DB) { db.Retention = n }
}

// WithLogger routes the database warnings to l.
func WithLogger(l *zap.Logger) Option {
	return func(db *DB) { db.log = l }
}

// New returns a database over the given topology. The graph must have its
// SPTs built.
func New(g *core.Graph, opts ...Option) *DB {
	db := &DB{
		graph:        g,
		MaxBW:        defaultMaxBW,
		Retention:    defaultRetention,
		log:          zap.NewNop(),
		measurements: make(map[netip.Prefix][]sample),
		routerByAddr: make(map[netip.Addr]string),
	}
	for _, opt := range opts {
		opt(db)
	}
	db.UpdateRouterAddresses()
	return db
}

// Graph implements query.Network.
func (db *DB) Graph() *core.Graph { return db.graph }

// ResolveRegion expands the arrow wildcards of a region into the concrete
// paths it denotes. Resolution is idempotent on arrow-free regions: they
// denote themselves.
func (db *DB) ResolveRegion(region []string) ([][]string, error) {
	if len(region) == 0 {
		return nil, nil
	}
	var paths [][]string
	idx := 0
	if region[0] == Arrow {
		// A leading arrow seeds one path per egress; the arrow itself is
		// consumed by the expansion loop below.
		for _, e := range db.graph.Egresses() {
			paths = append(paths, []string{e})
		}
		if len(paths) == 0 {
			return nil, fmt.Errorf("netdb: region %v starts at an egress but none are defined", region)
		}
	} else {
		paths = [][]string{{region[0]}}
		idx = 1
	}
	for idx < len(region) {
		hop := region[idx]
		if hop != Arrow {
			for i := range paths {
				paths[i] = append(paths[i], hop)
			}
			idx++
			continue
		}
		// Skip over consecutive arrows up to the next anchor; a trailing
		// arrow fans out to every egress instead.
		for idx < len(region) && region[idx] == Arrow {
			idx++
		}
		var terminals []string
		if idx < len(region) {
			terminals = []string{region[idx]}
			idx++
		} else {
			terminals = db.graph.Egresses()
		}
		// Concatenate every SPT path from each tail to each terminal; the
		// first extension reuses the current path, its ECMP siblings clone
		// the prefix.
		var siblings [][]string
		for i := range paths {
			tail := paths[i][len(paths[i])-1]
			var extensions [][]string
			for _, terminal := range terminals {
				for _, sp := range db.graph.SPT(tail, terminal) {
					ext := make([]string, len(sp)-1)
					copy(ext, sp[1:])
					extensions = append(extensions, ext)
				}
			}
			if len(extensions) == 0 {
				return nil, fmt.Errorf("netdb: no path from %s to %v in region %v",
					tail, terminals, region)
			}
			for _, ext := range extensions[1:] {
				clone := make([]string, len(paths[i]), len(paths[i])+len(ext))
				copy(clone, paths[i])
				siblings = append(siblings, append(clone, ext...))
			}
			paths[i] = append(paths[i], extensions[0]...)
		}
		paths = append(paths, siblings...)
	}
	return paths, nil
}

// UsagePrediction implements query.Network: the largest retained
// measurement for the prefix, the NetFlow estimate as fallback, and the
// maximal admissible bandwidth when neither exists. Estimates above the
// cap are clamped with a warning.
func (db *DB) UsagePrediction(prefix netip.Prefix, campaign int) float64 {
	value := db.MaxBW
	db.mu.Lock()
	samples := db.measurements[prefix]
	db.mu.Unlock()
	if len(samples) > 0 {
		value = samples[0].rate
		for _, s := range samples[1:] {
			if s.rate > value {
				value = s.rate
			}
		}
	} else if db.NetFlow != nil {
		if v, err := db.NetFlow(prefix); err == nil {
			value = v
		}
	}
	if value > db.MaxBW {
		db.log.Warn("estimated demand greater than the maximal bandwidth",
			zap.Stringer("prefix", prefix),
			zap.Float64("estimate", value), zap.Float64("max", db.MaxBW))
		value = db.MaxBW
	}
	return value
}

// RecordBandwidthUsage registers the demand observed for a prefix during
// a campaign, expiring samples older than the retention window.
func (db *DB) RecordBandwidthUsage(prefix netip.Prefix, rate float64, campaign int) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var kept []sample
	for _, s := range db.measurements[prefix] {
		if s.campaign+db.Retention >= campaign {
			kept = append(kept, s)
		}
	}
	db.measurements[prefix] = append(kept, sample{campaign: campaign, rate: rate})
}

// HasInterferingTraffic implements query.Network.
func (db *DB) HasInterferingTraffic(prefix netip.Prefix, region []string) bool {
	if db.Interference == nil {
		return false
	}
	return db.Interference(prefix, region)
}

// HasNoForwardingAnomalies implements query.Network.
func (db *DB) HasNoForwardingAnomalies() bool { return !db.ForwardingAnomalies }

// MaxPathDelay implements query.Network, in ms.
func (db *DB) MaxPathDelay() float64 {
	if db.PathDelay > 0 {
		return db.PathDelay
	}
	return defaultPathDelay
}

// MaxRouterToCollectorDelay implements query.Network, in ms.
func (db *DB) MaxRouterToCollectorDelay() float64 {
	if db.CollectorDelay > 0 {
		return db.CollectorDelay
	}
	return defaultCollectorDelay
}

// UpdateRouterAddresses rebuilds the interface-address-to-router mapping.
// Call it again whenever the topology changes.
func (db *DB) UpdateRouterAddresses() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.routerByAddr = make(map[netip.Addr]string)
	for _, a := range db.graph.Arcs() {
		l, _ := db.graph.Edge(a.From, a.To)
		if l.Addr.Addr().IsUnspecified() {
			continue
		}
		db.routerByAddr[l.Addr.Addr()] = a.From
	}
}

// RouterByAddress maps a mirrored packet's source address back to the
// router owning the interface.
func (db *DB) RouterByAddress(addr netip.Addr) (string, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	r, ok := db.routerByAddr[addr]
	return r, ok
}

// InterfaceName returns the name of the interface on u facing v.
func (db *DB) InterfaceName(u, v string) (string, error) {
	return db.graph.InterfaceName(u, v)
}

// RouterAddress returns an address on which the router can be reached.
func (db *DB) RouterAddress(r string) (netip.Addr, error) {
	return db.graph.RouterAddress(r)
}
