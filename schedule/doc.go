// Package schedule packs queries into a slot sequence so that the
// per-slot instantaneous bandwidth never exceeds the budget while the
// measurement coverage is maximized.
//
// Four primitives compose into five named pipelines:
//
//   - FirstFit: first-fit-decreasing bin packing by query cost;
//   - BinPack: optimal bin packing as a 0/1 integer program, upper-bounded
//     by the first-fit estimate so the program stays finite;
//   - Replicate: tiling of a minimum-length schedule over the available
//     slots, padded with empty slots;
//   - MaxFill: an integer program squeezing additional query activations
//     into the leftover capacity of a replicated schedule, balanced by an
//     equity term.
//
// Pipelines: "first-fit-decreasing", "bin-packing", "approximation"
// (FFD then replication), "half-approximation" (FFD, replication, max
// filling) and "optimized" (bin packing, replication, max filling). A
// stage after the first that reports ErrNoSchedule is skipped with a
// warning and the previous stage's schedule is kept; ErrNoSchedule from
// the initial stage propagates to the caller.
//
// The integer programs run behind the Solver interface so a deployment
// without a MIP solver can still use the first-fit based pipelines.
package schedule
