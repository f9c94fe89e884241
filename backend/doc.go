// Package backend drives the mirroring-rule daemons running on the
// routers. The collector hands a backend the set of rules to activate on
// a router for the duration of one slot; everything else (GRE
// encapsulation, hardware programming) happens router-side.
//
// The SSH backend keeps one session per router for its whole lifetime:
// the first activation dials the router, starts the per-profile daemon
// and keeps its stdin open; every subsequent activation is a single
// line "<duration-ms> <ifname>|<prefix> ..." written to it. Linux
// (iptables) and Cisco IOS daemon profiles are provided.
//
// Nop discards activations and backs dry runs and tests.
package backend
