package lang_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/net-stroboscope/collector/lang"
	"github.com/net-stroboscope/collector/query"
)

const sample = `
( name : edge_watch, weight:32
) MIRROR 1.2.3.0/24, 2001:6a8:308f::/96 ON [A B C D], [-> X]
CONFINE 1.2.3.0/24 ON [-> D ]
USING 5Mbps`

func TestParse_Sample(t *testing.T) {
	reqs, err := lang.Parse(sample)
	require.NoError(t, err)

	// 2 prefixes x 2 regions mirrored, plus one confinement
	require.Len(t, reqs.Queries, 5)

	mirrors := 0
	for _, q := range reqs.Queries[:4] {
		require.Equal(t, query.Mirror, q.Kind())
		require.Equal(t, "edge_watch", q.Name())
		require.Equal(t, 32.0, q.Weight())
		mirrors++
	}
	require.Equal(t, 4, mirrors)
	require.Equal(t, netip.MustParsePrefix("1.2.3.0/24"), reqs.Queries[0].Prefix())
	require.Equal(t, []string{"A", "B", "C", "D"}, reqs.Queries[0].Region())
	require.Equal(t, []string{"->", "X"}, reqs.Queries[1].Region())
	require.Equal(t, netip.MustParsePrefix("2001:6a8:308f::/96"), reqs.Queries[2].Prefix())

	conf := reqs.Queries[4]
	require.Equal(t, query.Confine, conf.Kind())
	require.Equal(t, []string{"->", "D"}, conf.Region())
	require.Equal(t, 1.0, conf.Weight())

	require.Equal(t, 5.0, reqs.Using)
	// unset budget lines keep their defaults
	require.Equal(t, 0.5, reqs.During)
	require.Equal(t, 5.0, reqs.Every)
}

func TestParse_BandwidthUnits(t *testing.T) {
	for _, tc := range []struct {
		text string
		mbps float64
	}{
		{"USING 5", 5},
		{"USING 5Mbps", 5},
		{"USING 5 mbps", 5},
		{"USING 5M", 5},
		{"USING 2500kb", 2.5},
		{"USING 2 Gbps", 2000},
		{"USING 1500bps", 0.0015},
	} {
		reqs, err := lang.Parse(tc.text + "\nMIRROR 10.0.0.0/8 ON [A B]")
		require.NoError(t, err, tc.text)
		require.InDelta(t, tc.mbps, reqs.Using, 1e-9, tc.text)
	}
}

func TestParse_DurationUnits(t *testing.T) {
	for _, tc := range []struct {
		text    string
		seconds float64
	}{
		{"DURING 500ms", 0.5},
		{"DURING 2s", 2},
		{"DURING 2 sec", 2},
		{"EVERY 1min", 60},
		{"EVERY 1h", 3600},
		{"EVERY 1day", 86400},
	} {
		reqs, err := lang.Parse(tc.text + "\nMIRROR 10.0.0.0/8 ON [A B]")
		require.NoError(t, err, tc.text)
		if tc.text[0] == 'D' {
			require.InDelta(t, tc.seconds, reqs.During, 1e-9, tc.text)
		} else {
			require.InDelta(t, tc.seconds, reqs.Every, 1e-9, tc.text)
		}
	}
}

func TestParse_UnknownPropertyIgnored(t *testing.T) {
	reqs, err := lang.Parse("(color: blue) MIRROR 10.0.0.0/8 ON [A B]")
	require.NoError(t, err)
	require.Len(t, reqs.Queries, 1)
}

func TestParse_Failures(t *testing.T) {
	for _, text := range []string{
		"",                                     // nothing to parse
		"OBSERVE 10.0.0.0/8 ON [A B]",          // unknown action
		"MIRROR 10.0.0.300/8 ON [A B]",         // invalid prefix
		"MIRROR 10.0.0.0/8 ON []",              // empty region
		"(weight: heavy) MIRROR 1.2.3.0/24 ON [A]", // non-numeric weight
		"USING Mbps",                           // missing amount
	} {
		_, err := lang.Parse(text)
		require.ErrorIs(t, err, lang.ErrCannotParse, "text: %q", text)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	reqs, err := lang.Parse(sample)
	require.NoError(t, err)
	reqs.SlotCount = 6 // rendered as a comment by the budget line

	again, err := lang.Parse(reqs.String())
	require.NoError(t, err)
	require.Len(t, again.Queries, len(reqs.Queries))
	require.InDelta(t, reqs.Using, again.Using, 1e-9)
	require.InDelta(t, reqs.During, again.During, 1e-9)
	require.InDelta(t, reqs.Every, again.Every, 1e-9)
	for i := range reqs.Queries {
		require.Equal(t, reqs.Queries[i].Kind(), again.Queries[i].Kind())
		require.Equal(t, reqs.Queries[i].Region(), again.Queries[i].Region())
	}
}
