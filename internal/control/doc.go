// Package control implements the literal-or-expression values that make up a
// declarative control surface.
//
// A Value is a closed tagged union: Float, Bool, Int, or an expression. Literal
// values resolve to themselves regardless of context; expressions evaluate
// against an *evalctx.Context.
//
// Numeric resolution order:
//  1. literal bool -> +1.0 / -1.0
//  2. literal int or float -> itself
//  3. expression -> numeric, then boolean (mapped to +1.0 / -1.0), else the numeric error
//
// Boolean resolution mirrors it: booleans first, numbers fall back to > 0.
//
// Clamping is a caller-side decoration (Bounds), never part of a Value.
package control
