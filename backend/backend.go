package backend

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Rule is one activation entry: mirror traffic for the prefix seen on the
// interface. An empty interface means the whole router.
type Rule struct {
	Interface string
	Prefix    netip.Prefix
}

// Backend activates mirroring rules on routers.
type Backend interface {
	// Activate enables the rules on the router at addr for the given slot
	// duration; the router disarms them itself when it expires.
	Activate(ctx context.Context, addr netip.Addr, rules []Rule, duration time.Duration) error
	// MinSlotDuration is the shortest slot this backend can honor.
	MinSlotDuration() time.Duration
	// Close tears down every router connection.
	Close() error
}

// renderActivation builds the daemon line for one slot activation.
func renderActivation(duration time.Duration, rules []Rule) string {
	parts := make([]string, 0, len(rules)+1)
	parts = append(parts, fmt.Sprintf("%f", float64(duration.Milliseconds())))
	for _, r := range rules {
		parts = append(parts, fmt.Sprintf("%s|%s", r.Interface, r.Prefix))
	}
	return strings.Join(parts, " ") + "\n"
}

// Nop is a backend that only logs activations; it backs dry runs.
type Nop struct {
	Log *zap.Logger
	// MinSlot defaults to the Linux profile floor.
	MinSlot time.Duration
}

// Activate implements Backend.
func (n *Nop) Activate(_ context.Context, addr netip.Addr, rules []Rule, duration time.Duration) error {
	if n.Log != nil {
		n.Log.Debug("dry-run rule activation",
			zap.Stringer("router", addr),
			zap.Int("rules", len(rules)),
			zap.Duration("duration", duration))
	}
	return nil
}

// MinSlotDuration implements Backend.
func (n *Nop) MinSlotDuration() time.Duration {
	if n.MinSlot > 0 {
		return n.MinSlot
	}
	return LinuxProfile.MinSlot
}

// Close implements Backend.
func (n *Nop) Close() error { return nil }
