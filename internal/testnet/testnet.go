// Package testnet builds the unit-weighted fixture topologies shared by
// the algorithm test suites: the Abilene backbone, the topology from the
// Stroboscope paper, a dual-egress gadget and a stub region gadget.
package testnet

import "github.com/net-stroboscope/collector/core"

// Build assembles a graph from plain router/egress/edge lists. Every edge
// is registered in both directions with default attributes and the SPTs
// are computed.
func Build(routers, egresses []string, edges [][2]string) *core.Graph {
	g := core.New()
	for _, r := range routers {
		g.AddRouter(r)
	}
	for _, e := range egresses {
		g.AddEgress(e)
	}
	for _, uv := range edges {
		g.AddLink(uv[0], uv[1], core.LinkOpts{}, core.LinkOpts{})
	}
	if err := g.BuildSPT(); err != nil {
		panic(err)
	}
	return g
}

// Abilene returns the nine-router Abilene backbone.
func Abilene() *core.Graph {
	return Build(
		[]string{"SEAT", "LOSA", "SALT", "HOUS", "KANS", "CHIC", "ATLA", "WASH", "NEWY"},
		nil,
		[][2]string{
			{"SEAT", "LOSA"}, {"SEAT", "SALT"}, {"LOSA", "SALT"},
			{"LOSA", "HOUS"}, {"SALT", "KANS"}, {"KANS", "HOUS"},
			{"KANS", "CHIC"}, {"HOUS", "ATLA"}, {"CHIC", "ATLA"},
			{"CHIC", "WASH"}, {"CHIC", "NEWY"}, {"ATLA", "WASH"},
			{"WASH", "NEWY"},
		})
}

// Paper returns the topology used throughout the Stroboscope paper, with
// egresses E1..E3.
func Paper() *core.Graph {
	return Build(
		[]string{"A", "B", "C", "D", "F", "G", "H", "I", "J", "K", "L", "P", "U"},
		[]string{"E1", "E2", "E3"},
		[][2]string{
			{"A", "B"}, {"A", "L"}, {"A", "F"}, {"I", "E2"},
			{"B", "K"}, {"B", "J"}, {"B", "H"}, {"B", "C"}, {"B", "L"},
			{"C", "H"}, {"C", "D"}, {"C", "U"}, {"C", "F"}, {"C", "L"},
			{"C", "G"}, {"D", "G"},
			{"L", "F"}, {"F", "U"}, {"F", "E3"}, {"K", "P"}, {"J", "P"},
			{"J", "H"}, {"H", "I"}, {"P", "E1"}, {"P", "E2"},
		})
}

// DualEgress returns a gadget where a three-hop region is watched by two
// shared chokepoints in front of the egresses.
func DualEgress() *core.Graph {
	return Build(
		[]string{"A", "B", "C", `A"`, `B"`, `C"`, "E", "F"},
		[]string{"E1", "E2"},
		[][2]string{
			{"A", "B"}, {"B", "C"}, {`A"`, "A"}, {`A"`, "E"}, {`B"`, "B"},
			{`B"`, "E"}, {`B"`, "F"}, {`C"`, "C"}, {`C"`, "F"}, {"F", "E1"},
			{"E", "E2"},
		})
}

// Stub returns a gadget whose region leaks into a single stub component,
// so its relaxed confinement set is empty.
func Stub() *core.Graph {
	return Build(
		[]string{"A", "B", "C", "D", "E", "F", "G"},
		nil,
		[][2]string{
			{"A", "B"}, {"B", "C"}, {"B", "D"}, {"D", "E"}, {"E", "F"},
			{"F", "G"}, {"G", "D"},
		})
}
