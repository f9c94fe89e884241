package netdb

import (
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/net-stroboscope/collector/core"
)

// topologyFile is the YAML shape of a topology description.
//
//	routers: [A, B]
//	egresses: [E1]
//	links:
//	  - a: A
//	    b: B
//	    cost: 10
//	    a_if: eth0
//	    b_if: eth1
//	    a_addr: 10.0.0.1/30
//	    b_addr: 10.0.0.2/30
type topologyFile struct {
	Routers  []string       `yaml:"routers"`
	Egresses []string       `yaml:"egresses"`
	Links    []topologyLink `yaml:"links"`
}

type topologyLink struct {
	A     string  `yaml:"a"`
	B     string  `yaml:"b"`
	Cost  float64 `yaml:"cost"`
	AIf   string  `yaml:"a_if"`
	BIf   string  `yaml:"b_if"`
	AAddr string  `yaml:"a_addr"`
	BAddr string  `yaml:"b_addr"`
}

// ParseTopology builds a graph from a YAML topology description and
// computes its shortest-path trees.
func ParseTopology(data []byte) (*core.Graph, error) {
	var tf topologyFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("netdb: cannot parse topology: %w", err)
	}
	g := core.New()
	for _, r := range tf.Routers {
		g.AddRouter(r)
	}
	for _, e := range tf.Egresses {
		g.AddEgress(e)
	}
	for i, l := range tf.Links {
		if l.A == "" || l.B == "" {
			return nil, fmt.Errorf("netdb: link %d is missing an endpoint", i)
		}
		uv := core.LinkOpts{Cost: l.Cost, IfName: l.AIf}
		vu := core.LinkOpts{Cost: l.Cost, IfName: l.BIf}
		var err error
		if uv.Addr, err = parseAddr(l.AAddr); err != nil {
			return nil, fmt.Errorf("netdb: link %d: %w", i, err)
		}
		if vu.Addr, err = parseAddr(l.BAddr); err != nil {
			return nil, fmt.Errorf("netdb: link %d: %w", i, err)
		}
		g.AddLink(l.A, l.B, uv, vu)
	}
	if err := g.BuildSPT(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadTopology reads and parses a YAML topology file.
func LoadTopology(path string) (*core.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("netdb: cannot load topology: %w", err)
	}
	return ParseTopology(data)
}

func parseAddr(s string) (netip.Prefix, error) {
	if s == "" {
		return netip.Prefix{}, nil
	}
	p, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid interface address %q: %w", s, err)
	}
	return p, nil
}
