// Package signals produces the frame-scoped bindings an evaluation context
// is built from.
//
// The driver collects one Snapshot of external input per frame. Every Source
// updates itself from the snapshot and exports a flat name -> value list; a
// Set concatenates the exports of its sources in registration order and
// builds the frame's evalctx.Context from them. When two sources export the
// same name, the later source wins.
//
// Built-in sources:
//
//	Time     t, ti (beats), f, fi (frames), secs, bar, bar_i, beat (phase in the bar)
//	Pointer  mx, my, mdown
//	Keys     key_<name> for every key seen so far
//	Audio    a0..aN band energies
//	Values   arbitrary named numbers (CLI --signal, harness scenarios)
package signals
