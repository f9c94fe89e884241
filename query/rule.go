package query

import (
	"fmt"
	"net/netip"
)

// Kind discriminates the two query and rule variants.
type Kind int

const (
	// Mirror mirrors matching traffic towards the collector.
	Mirror Kind = iota
	// Confine declares that matching traffic must never appear.
	Confine
)

// String returns the requirement-language keyword of the kind.
func (k Kind) String() string {
	if k == Confine {
		return "CONFINE"
	}
	return "MIRROR"
}

// Location identifies where a rule is installed: a router, or one of its
// directed interfaces when Neighbor is set.
type Location struct {
	Router   string
	Neighbor string
}

// IsInterface reports whether the location pins a specific interface.
func (l Location) IsInterface() bool { return l.Neighbor != "" }

// Rule is one mirroring rule: a (kind, prefix, location) triple plus the
// queries owning it. Two rules are the same rule iff their triples match;
// the owner sets of duplicate rules are merged before activation.
type Rule struct {
	Kind     Kind
	Prefix   netip.Prefix
	Location Location
	Owners   []*Query
}

// RuleKey is the identity triple of a rule.
type RuleKey struct {
	Kind     Kind
	Prefix   netip.Prefix
	Location Location
}

// Key returns the identity triple.
func (r *Rule) Key() RuleKey {
	return RuleKey{Kind: r.Kind, Prefix: r.Prefix, Location: r.Location}
}

// Equal reports whether the two rules have the same identity triple.
func (r *Rule) Equal(other *Rule) bool {
	return other != nil && r.Key() == other.Key()
}

// Merge absorbs the owners of an equal rule.
func (r *Rule) Merge(other *Rule) {
	r.Owners = append(r.Owners, other.Owners...)
}

// ExpectsTraffic reports whether packets matching this rule are normal
// (Mirror) or a protocol violation (Confine).
func (r *Rule) ExpectsTraffic() bool { return r.Kind == Mirror }

func (r *Rule) String() string {
	return fmt.Sprintf("<%sRule for %s at %s>", r.Kind, r.Prefix, r.Location.Router)
}

// MergeRules collapses duplicate rules across queries, concatenating the
// owner sets and preserving first-seen order. The input rules are left
// untouched: the result holds fresh Rule values, so callers can merge the
// same rule set once per slot.
func MergeRules(rules []*Rule) []*Rule {
	index := make(map[RuleKey]*Rule, len(rules))
	var out []*Rule
	for _, r := range rules {
		if prev, ok := index[r.Key()]; ok {
			prev.Merge(r)
			continue
		}
		c := &Rule{
			Kind:     r.Kind,
			Prefix:   r.Prefix,
			Location: r.Location,
			Owners:   append([]*Query(nil), r.Owners...),
		}
		index[c.Key()] = c
		out = append(out, c)
	}
	return out
}
