package netdb_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/net-stroboscope/collector/internal/testnet"
	"github.com/net-stroboscope/collector/netdb"
)

func pfx(s string) netip.Prefix { return netip.MustParsePrefix(s) }

func TestResolveRegion_Concrete(t *testing.T) {
	db := netdb.New(testnet.Paper())
	for _, region := range [][]string{
		{"A"},
		{"A", "B"},
		{"A", "B", "C"},
	} {
		resolved, err := db.ResolveRegion(region)
		require.NoError(t, err)
		require.Equal(t, [][]string{region}, resolved)
	}
}

func TestResolveRegion_MedialArrow(t *testing.T) {
	db := netdb.New(testnet.Paper())
	resolved, err := db.ResolveRegion([]string{"A", "->", "C"})
	require.NoError(t, err)
	require.ElementsMatch(t, [][]string{
		{"A", "B", "C"}, {"A", "L", "C"}, {"A", "F", "C"},
	}, resolved)
}

func TestResolveRegion_LeadingArrow(t *testing.T) {
	db := netdb.New(testnet.Paper())
	resolved, err := db.ResolveRegion([]string{"->", "D"})
	require.NoError(t, err)
	// every egress reaches D along its ECMP shortest paths
	require.ElementsMatch(t, [][]string{
		{"E2", "I", "H", "C", "D"},
		{"E1", "P", "J", "H", "C", "D"},
		{"E1", "P", "J", "B", "C", "D"},
		{"E1", "P", "K", "B", "C", "D"},
		{"E3", "F", "C", "D"},
	}, resolved)
}

func TestResolveRegion_TrailingArrow(t *testing.T) {
	db := netdb.New(testnet.Paper())
	resolved, err := db.ResolveRegion([]string{"I", "->"})
	require.NoError(t, err)
	// every path starts at I and ends at an egress; E2 is one hop away
	for _, p := range resolved {
		require.Equal(t, "I", p[0])
		require.True(t, testnet.Paper().IsEgress(p[len(p)-1]),
			"path %v does not end at an egress", p)
	}
	require.Contains(t, resolved, []string{"I", "E2"})
}

func TestResolveRegion_Idempotent(t *testing.T) {
	db := netdb.New(testnet.Paper())
	first, err := db.ResolveRegion([]string{"A", "->", "C"})
	require.NoError(t, err)
	for _, p := range first {
		again, err := db.ResolveRegion(p)
		require.NoError(t, err)
		require.Equal(t, [][]string{p}, again)
	}
}

func TestResolveRegion_Empty(t *testing.T) {
	db := netdb.New(testnet.Paper())
	resolved, err := db.ResolveRegion(nil)
	require.NoError(t, err)
	require.Nil(t, resolved)
}

func TestResolveRegion_NoEgresses(t *testing.T) {
	db := netdb.New(testnet.Abilene())
	_, err := db.ResolveRegion([]string{"->", "KANS"})
	require.Error(t, err)
}

func TestUsagePrediction_Fallbacks(t *testing.T) {
	db := netdb.New(testnet.Paper(), netdb.WithMaxBW(50))
	p := pfx("10.0.0.0/24")

	// nothing known: the maximal admissible bandwidth
	require.Equal(t, 50.0, db.UsagePrediction(p, 0))

	// netflow feed used when no measurement exists
	db.NetFlow = func(netip.Prefix) (float64, error) { return 7, nil }
	require.Equal(t, 7.0, db.UsagePrediction(p, 0))

	// a feed without records falls back to the cap
	db.NetFlow = func(netip.Prefix) (float64, error) { return 0, netdb.ErrNoNetFlowRecords }
	require.Equal(t, 50.0, db.UsagePrediction(p, 0))

	// measurements win over the feed, the largest retained one is used
	db.RecordBandwidthUsage(p, 12, 0)
	db.RecordBandwidthUsage(p, 9, 1)
	require.Equal(t, 12.0, db.UsagePrediction(p, 2))

	// estimates are clamped at the cap
	db.RecordBandwidthUsage(p, 400, 2)
	require.Equal(t, 50.0, db.UsagePrediction(p, 3))
}

func TestRecordBandwidthUsage_Retention(t *testing.T) {
	db := netdb.New(testnet.Paper(), netdb.WithMaxBW(100), netdb.WithRetention(2))
	p := pfx("10.0.0.0/24")

	db.RecordBandwidthUsage(p, 30, 0)
	require.Equal(t, 30.0, db.UsagePrediction(p, 1))

	// campaign 3 is beyond the retention window of the first sample
	db.RecordBandwidthUsage(p, 10, 3)
	require.Equal(t, 10.0, db.UsagePrediction(p, 3))
}

func TestParseTopology(t *testing.T) {
	g, err := netdb.ParseTopology([]byte(`
routers: [A, B]
egresses: [E1]
links:
  - {a: A, b: B, cost: 2, a_if: eth0, b_if: eth1, a_addr: 10.0.0.1/30, b_addr: 10.0.0.2/30}
  - {a: B, b: E1}
`))
	require.NoError(t, err)
	require.Equal(t, []string{"E1"}, g.Egresses())
	require.True(t, g.HasEdge("A", "B"))
	require.True(t, g.HasEdge("E1", "B"))

	name, err := g.InterfaceName("A", "B")
	require.NoError(t, err)
	require.Equal(t, "eth0", name)

	l, ok := g.Edge("B", "A")
	require.True(t, ok)
	require.Equal(t, 2.0, l.Cost)
	require.Equal(t, "eth1", l.IfName)

	// SPTs are built by the loader
	require.NotEmpty(t, g.SPT("A", "E1"))

	db := netdb.New(g)
	r, ok := db.RouterByAddress(netip.MustParseAddr("10.0.0.2"))
	require.True(t, ok)
	require.Equal(t, "B", r)
}

func TestParseTopology_Invalid(t *testing.T) {
	_, err := netdb.ParseTopology([]byte(`links: [{a: A}]`))
	require.Error(t, err)

	_, err = netdb.ParseTopology([]byte(`links: [{a: A, b: B, a_addr: nonsense}]`))
	require.Error(t, err)
}
