// Package unitcell expands repeat blocks into indexed sequences.
//
// A repeat block declares how many items to produce (RepeatSpec) and a list
// of elements to produce for each of them. Every generated Index is pushed
// onto the context as a definition layer (x, y, z, x_i, x_total, seed, frac,
// rn0..rn5, all under a prefix that defaults to "i_"), so nested repeats see
// the bindings of the loops that enclose them.
//
// Blending: a BlendWith cursor makes the next N emitted items merge into the
// last N items already in the sequence instead of being appended. This lets
// one repeated motif cross-fade into the next without the item count jumping.
// If the cursor points past the start of the sequence it is dropped silently
// and the item is appended.
//
// Bounds: expansion is bounded by Limits (per-block count, nesting depth,
// total items). Exceeding a bound is a LIMIT_EXCEEDED configuration error,
// never a crash or an unbounded allocation.
package unitcell
