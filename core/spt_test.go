package core_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/net-stroboscope/collector/core"
	"github.com/net-stroboscope/collector/internal/testnet"
)

func TestBuildSPT_ECMP(t *testing.T) {
	g := testnet.Paper()

	// A reaches C over three equal-cost two-hop paths.
	paths := g.SPT("A", "C")
	require.ElementsMatch(t, []core.Path{
		{"A", "B", "C"}, {"A", "L", "C"}, {"A", "F", "C"},
	}, paths)

	d, ok := g.Distance("A", "C")
	require.True(t, ok)
	require.Equal(t, 2.0, d)
}

func TestBuildSPT_SingleShortestPath(t *testing.T) {
	g := testnet.Abilene()

	paths := g.EdgeSPT("SEAT", "NEWY")
	require.Len(t, paths, 1)
	require.Equal(t, core.Path{"SEAT", "SALT", "KANS", "CHIC", "NEWY"}, paths[0])

	d, ok := g.EdgeDistance("SEAT", "NEWY")
	require.True(t, ok)
	require.Equal(t, 4.0, d)
}

func TestBuildSPT_SelfPath(t *testing.T) {
	g := testnet.Abilene()
	paths := g.SPT("SEAT", "SEAT")
	require.Equal(t, []core.Path{{"SEAT"}}, paths)
}

func TestBuildSPT_WeightedBreaksTies(t *testing.T) {
	// Two parallel two-hop routes; raising one middle cost leaves a single
	// weighted shortest path but two hop-count shortest paths.
	g := core.New()
	g.AddLink("A", "X", core.LinkOpts{}, core.LinkOpts{})
	g.AddLink("X", "B", core.LinkOpts{}, core.LinkOpts{})
	g.AddLink("A", "Y", core.LinkOpts{Cost: 5}, core.LinkOpts{Cost: 5})
	g.AddLink("Y", "B", core.LinkOpts{}, core.LinkOpts{})
	require.NoError(t, g.BuildSPT())

	require.Equal(t, []core.Path{{"A", "X", "B"}}, g.SPT("A", "B"))
	require.ElementsMatch(t, []core.Path{{"A", "X", "B"}, {"A", "Y", "B"}}, g.EdgeSPT("A", "B"))
}

func TestBuildSPT_RejectsNonPositiveCost(t *testing.T) {
	g := core.New()
	g.AddDirectedLink("A", "B", core.LinkOpts{Cost: -1})
	require.ErrorIs(t, g.BuildSPT(), core.ErrInvalidGraph)
}

func TestBuildSPT_UnreachableNode(t *testing.T) {
	g := core.New()
	g.AddLink("A", "B", core.LinkOpts{}, core.LinkOpts{})
	g.AddRouter("Z")
	require.NoError(t, g.BuildSPT())
	require.Empty(t, g.SPT("A", "Z"))
	_, ok := g.Distance("A", "Z")
	require.False(t, ok)
}

func TestBuildSPT_PathSetsDoNotAlias(t *testing.T) {
	g := testnet.Paper()
	// Mutating one returned path must not leak into its ECMP siblings.
	paths := g.SPT("A", "C")
	paths[0][0] = "Z"
	for _, sibling := range paths[1:] {
		require.Equal(t, "A", sibling[0])
	}
}
