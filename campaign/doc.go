// Package campaign runs the measurement campaigns: it compiles the
// requirements against the network database, walks the resulting slot
// schedule activating rules through the configured backend, and accounts
// the bandwidth consumed by the mirrored packets flowing back.
//
// The runner is the only component mutating query state at runtime: it
// debits each owner's bandwidth allowance as packets arrive and disables
// a query once its allowance cannot cover another slot, or immediately
// when a confinement rule sees traffic at all (a protocol violation worth
// reporting, not repeating).
//
// Packet-to-rule matching is a longest-prefix lookup per router, kept in
// bart routing tables rebuilt at each slot activation. Packet ingestion
// (HandlePacket) is called by the GRE dissector from its own goroutine;
// the shared counters are mutex-guarded and every slot publishes a fresh
// activation table.
package campaign
