package campaign

import (
	"net/netip"

	"go.uber.org/zap"

	"github.com/net-stroboscope/collector/query"
)

// MirroredPacket is one decapsulated packet handed over by the dissector.
type MirroredPacket struct {
	// Router is the router that mirrored the packet.
	Router string
	// Src and Dst are the inner packet addresses.
	Src netip.Addr
	Dst netip.Addr
	// Length is the inner packet length in bytes.
	Length int
}

// Processor consumes the results of measurement campaigns.
type Processor interface {
	// Start is called when a campaign begins.
	Start()
	// Process receives the traffic slices of a finished campaign together
	// with the rules and queries they answer.
	Process(rules map[*query.Query][]*query.Rule, queries []*query.Query, slices map[string][]MirroredPacket)
	// Stop is called when the runner shuts down.
	Stop()
}

// LogProcessor summarizes every campaign into the log; it is the default
// when no real post-processing is attached.
type LogProcessor struct {
	Log *zap.Logger
}

// Start implements Processor.
func (p *LogProcessor) Start() {}

// Process implements Processor.
func (p *LogProcessor) Process(_ map[*query.Query][]*query.Rule, queries []*query.Query, slices map[string][]MirroredPacket) {
	if p.Log == nil {
		return
	}
	packets := 0
	for _, s := range slices {
		packets += len(s)
	}
	p.Log.Info("campaign results",
		zap.Int("queries", len(queries)),
		zap.Int("locations", len(slices)),
		zap.Int("packets", packets))
}

// Stop implements Processor.
func (p *LogProcessor) Stop() {}
