// Package lang parses the Stroboscope requirement language into a
// query.Requirements document.
//
// The language mixes measurement queries and budget lines, in any order:
//
//	( name : edge_watch, weight:32 )
//	MIRROR 1.2.3.0/24, 2001:6a8:308f::/96 ON [A B C D], [-> X]
//	CONFINE 1.2.3.0/24 ON [-> D]
//	USING 5Mbps
//	DURING 500ms
//	EVERY 5s
//
// Bandwidths normalize to Mbps and durations to seconds. Unknown query
// properties warn and are ignored; malformed numbers, prefixes or any
// text the grammar rejects fail with ErrCannotParse. Comments run from
// '#' to the end of the line, so a rendered Requirements round-trips
// through Parse.
package lang
