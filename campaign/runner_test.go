package campaign_test

import (
	"context"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/net-stroboscope/collector/backend"
	"github.com/net-stroboscope/collector/campaign"
	"github.com/net-stroboscope/collector/internal/testnet"
	"github.com/net-stroboscope/collector/netdb"
	"github.com/net-stroboscope/collector/query"
)

// recordingBackend counts every activation for inspection.
type recordingBackend struct {
	backend.Nop
	calls int
	rules int
}

func (r *recordingBackend) Activate(ctx context.Context, addr netip.Addr, rules []backend.Rule, d time.Duration) error {
	r.calls++
	r.rules += len(rules)
	return r.Nop.Activate(ctx, addr, rules, d)
}

func noSleep(context.Context, time.Duration) error { return nil }

func newRunner(t *testing.T) (*campaign.Runner, *query.Query, *query.Query, *recordingBackend) {
	t.Helper()
	db := netdb.New(testnet.Paper(), netdb.WithMaxBW(3))
	mirror := query.New(query.Mirror, netip.MustParsePrefix("10.0.0.0/24"),
		[]string{"A", "B", "C", "D"})
	conf := query.New(query.Confine, netip.MustParsePrefix("10.1.0.0/24"),
		[]string{"A", "B", "C", "D"})
	reqs := query.NewRequirements([]*query.Query{mirror, conf})

	be := &recordingBackend{}
	return &campaign.Runner{
		Net:          db,
		Requirements: reqs,
		Backend:      be,
		SleepFunc:    noSleep,
	}, mirror, conf, be
}

func TestRunCampaign_ActivatesEverySlot(t *testing.T) {
	r, _, _, be := newRunner(t)
	require.NoError(t, r.RunCampaign(context.Background(), 0))

	// 500 ms budget over 75 ms slots: six slots, and with a 9 Mbps mirror
	// cost both queries share every one of them. The mirror rules sit on
	// its 3 keypoints, the confinement rules on the 5 relaxed nodes, one
	// activation call per router and slot.
	require.Equal(t, 8*6, be.calls)
	require.Equal(t, 8*6, be.rules)
}

func TestHandlePacket_DebitsOwners(t *testing.T) {
	r, mirror, _, _ := newRunner(t)
	require.NoError(t, r.RunCampaign(context.Background(), 0))

	resolved := r.ResolvedQueries()
	require.Len(t, resolved, 2)

	r.HandlePacket(campaign.MirroredPacket{
		Router: "A",
		Dst:    netip.MustParseAddr("10.0.0.9"),
		Length: 1500,
	})
	for _, q := range resolved {
		require.False(t, q.Disabled())
	}

	// A packet far beyond the allowance kills the owning query.
	r.HandlePacket(campaign.MirroredPacket{
		Router: "A",
		Dst:    netip.MustParseAddr("10.0.0.9"),
		Length: 500_000,
	})
	disabled := 0
	for _, q := range resolved {
		if q.Disabled() {
			disabled++
			require.Equal(t, query.Mirror, q.Kind())
		}
	}
	require.Equal(t, 1, disabled)
	require.False(t, mirror.Disabled(), "only the resolved spawn is disabled")
}

func TestHandlePacket_ConfineViolation(t *testing.T) {
	r, _, _, _ := newRunner(t)
	require.NoError(t, r.RunCampaign(context.Background(), 0))

	// Any packet on a confinement location is a violation: the query is
	// disabled immediately.
	r.HandlePacket(campaign.MirroredPacket{
		Router: "P",
		Dst:    netip.MustParseAddr("10.1.0.1"),
		Length: 64,
	})
	var confined *query.Query
	for _, q := range r.ResolvedQueries() {
		if q.Kind() == query.Confine {
			confined = q
		}
	}
	require.NotNil(t, confined)
	require.True(t, confined.Disabled())
}

func TestHandlePacket_Unmatched(t *testing.T) {
	r, _, _, _ := newRunner(t)
	require.NoError(t, r.RunCampaign(context.Background(), 0))

	// Unknown router and unknown prefix are both ignored without a crash.
	r.HandlePacket(campaign.MirroredPacket{
		Router: "NOPE", Dst: netip.MustParseAddr("10.0.0.1"), Length: 64,
	})
	r.HandlePacket(campaign.MirroredPacket{
		Router: "A", Dst: netip.MustParseAddr("192.0.2.1"), Length: 64,
	})
}

func TestRunCampaign_SuccessiveCampaigns(t *testing.T) {
	r, _, _, be := newRunner(t)
	require.NoError(t, r.RunCampaign(context.Background(), 0))
	first := be.calls

	// Campaign 1 reacts to the recorded zero demand, campaign 2 sees an
	// unchanged network and replays the previous compilation; both keep
	// activating every slot.
	require.NoError(t, r.RunCampaign(context.Background(), 1))
	require.NoError(t, r.RunCampaign(context.Background(), 2))
	require.Equal(t, 3*first, be.calls)
}

func TestRun_CancellationStopsTheLoop(t *testing.T) {
	r, _, _, _ := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, r.Run(ctx), context.Canceled)
}
