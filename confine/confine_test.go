package confine_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/net-stroboscope/collector/confine"
	"github.com/net-stroboscope/collector/core"
	"github.com/net-stroboscope/collector/internal/testnet"
)

// ConfineSuite exercises the three confinement levels on the fixture
// topologies.
type ConfineSuite struct {
	suite.Suite
}

func (s *ConfineSuite) requireEdges(g *core.Graph, region []string, expect []core.Arc) {
	edges, err := confine.Edges(g, region)
	require.NoError(s.T(), err)
	require.ElementsMatch(s.T(), expect, edges)
}

func (s *ConfineSuite) requireNodes(g *core.Graph, region []string, expect []string) {
	nodes, err := confine.Nodes(g, region)
	require.NoError(s.T(), err)
	require.ElementsMatch(s.T(), expect, nodes)
}

func (s *ConfineSuite) requireRelaxed(g *core.Graph, region []string, expect []string) {
	nodes, err := confine.Relaxed(g, region)
	require.NoError(s.T(), err)
	require.ElementsMatch(s.T(), expect, nodes)
}

func (s *ConfineSuite) TestAbileneEdges() {
	region := []string{"SEAT", "SALT", "KANS", "CHIC", "NEWY"}
	s.requireEdges(testnet.Abilene(), region, []core.Arc{
		{From: "KANS", To: "HOUS"}, {From: "CHIC", To: "ATLA"},
		{From: "CHIC", To: "WASH"}, {From: "NEWY", To: "WASH"},
		{From: "SEAT", To: "LOSA"}, {From: "SALT", To: "LOSA"},
	})
}

func (s *ConfineSuite) TestAbileneNodes() {
	region := []string{"SEAT", "SALT", "KANS", "CHIC", "NEWY"}
	s.requireNodes(testnet.Abilene(), region, []string{"HOUS", "WASH", "LOSA", "ATLA"})
}

func (s *ConfineSuite) TestPaperEdges() {
	s.requireEdges(testnet.Paper(), []string{"A", "B", "C", "D"}, []core.Arc{
		{From: "A", To: "L"}, {From: "A", To: "F"}, {From: "B", To: "K"},
		{From: "B", To: "J"}, {From: "B", To: "H"}, {From: "B", To: "L"},
		{From: "C", To: "H"}, {From: "C", To: "G"}, {From: "C", To: "U"},
		{From: "C", To: "F"}, {From: "C", To: "L"}, {From: "D", To: "G"},
	})
}

func (s *ConfineSuite) TestPaperNodes() {
	s.requireNodes(testnet.Paper(), []string{"A", "B", "C", "D"},
		[]string{"K", "J", "H", "G", "L", "F", "U"})
}

func (s *ConfineSuite) TestPaperRelaxed() {
	s.requireRelaxed(testnet.Paper(), []string{"A", "B", "C", "D"},
		[]string{"P", "H", "G", "L", "F"})
}

func (s *ConfineSuite) TestDualEgressGadget() {
	g := testnet.DualEgress()
	region := []string{"A", "B", "C"}
	s.requireEdges(g, region, []core.Arc{
		{From: "A", To: `A"`}, {From: "B", To: `B"`}, {From: "C", To: `C"`},
	})
	s.requireNodes(g, region, []string{`A"`, `B"`, `C"`})
	s.requireRelaxed(g, region, []string{"E", "F"})
}

func (s *ConfineSuite) TestStubGadget() {
	g := testnet.Stub()
	region := []string{"A", "B", "C"}
	s.requireEdges(g, region, []core.Arc{{From: "B", To: "D"}})
	s.requireNodes(g, region, []string{"D"})
	// The stub region has no non-trivial cut: its one keypoint witnesses a
	// single leak, so the relaxed set is empty.
	s.requireRelaxed(g, region, nil)
}

func (s *ConfineSuite) TestDisconnectedRegionNode() {
	g := testnet.Abilene()
	_, err := confine.Edges(g, []string{"SEAT", "NEWY"})
	require.ErrorIs(s.T(), err, core.ErrMissingEdge)
}

func TestConfineSuite(t *testing.T) {
	suite.Run(t, new(ConfineSuite))
}

// Removing a relaxed confinement set must disconnect the region interior
// from every egress.
func TestRelaxed_SeparatesRegionFromEgresses(t *testing.T) {
	g := testnet.Paper()
	region := []string{"A", "B", "C", "D"}
	cut, err := confine.Relaxed(g, region)
	require.NoError(t, err)

	removed := map[string]bool{}
	for _, n := range cut {
		removed[n] = true
	}
	blocked := func(u, v string) bool { return !removed[u] && !removed[v] }
	for _, r := range region {
		for _, e := range g.Egresses() {
			require.Nil(t, core.FindPath(g, r, e, blocked),
				"%s still reaches egress %s", r, e)
		}
	}
}

func TestByLevel(t *testing.T) {
	g := testnet.Abilene()
	region := []string{"SEAT", "SALT", "KANS", "CHIC", "NEWY"}

	locs, err := confine.ByLevel(g, region, confine.LevelEdges)
	require.NoError(t, err)
	// Level-0 rules sit on the region node, pinned to the interface
	// facing the outside neighbor.
	require.Contains(t, locs, core.Arc{From: "SEAT", To: "LOSA"})
	require.Len(t, locs, 6)

	locs, err = confine.ByLevel(g, region, confine.LevelNodes)
	require.NoError(t, err)
	require.ElementsMatch(t, []core.Arc{
		{From: "ATLA"}, {From: "HOUS"}, {From: "LOSA"}, {From: "WASH"},
	}, locs)

	_, err = confine.ByLevel(g, region, confine.Level(9))
	require.ErrorIs(t, err, confine.ErrUnknownLevel)
}
