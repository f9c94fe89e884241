// Package query models the measurement requirements of a campaign: the
// MIRROR and CONFINE queries, the mirroring rules they derive, and the
// Requirements document tying queries to a bandwidth and time budget.
//
// Compiling requirements against the network happens in three steps,
// exposed together as Requirements.Compile:
//
//   - what: resolve the loosely-defined regions against the graph and
//     refresh each query's demand prediction, detecting changes since the
//     previous campaign;
//   - where: pick the mirroring locations of every resolved query (the
//     key-point sampler for MIRROR, the confinement algorithms for
//     CONFINE) and derive its rules;
//   - when: pack the queries into a slot schedule within the budget.
//
// Queries are mutable across campaigns (prediction, subregions, locations
// and the disabled flag all evolve) but only the resolver and the campaign
// runner mutate them; the compiler treats the graph as read-only and
// returns a fresh schedule.
package query
