package campaign

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the campaign counters.
type Metrics struct {
	Campaigns        prometheus.Counter
	SlotsActivated   prometheus.Counter
	Packets          *prometheus.CounterVec
	Bytes            prometheus.Counter
	UnmatchedPackets prometheus.Counter
	DisabledQueries  prometheus.Counter
}

// NewMetrics builds the counters and registers them when reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Campaigns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stroboscope_campaigns_total",
			Help: "Measurement campaigns executed.",
		}),
		SlotsActivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stroboscope_slots_activated_total",
			Help: "Schedule slots activated on the routers.",
		}),
		Packets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stroboscope_mirrored_packets_total",
			Help: "Mirrored packets received, per originating router.",
		}, []string{"router"}),
		Bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stroboscope_mirrored_bytes_total",
			Help: "Mirrored bytes received.",
		}),
		UnmatchedPackets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stroboscope_unmatched_packets_total",
			Help: "Mirrored packets without a matching active rule.",
		}),
		DisabledQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stroboscope_disabled_queries_total",
			Help: "Queries disabled after exhausting their budget or receiving unexpected traffic.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Campaigns, m.SlotsActivated, m.Packets, m.Bytes,
			m.UnmatchedPackets, m.DisabledQueries)
	}
	return m
}
