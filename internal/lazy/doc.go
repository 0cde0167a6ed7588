// Package lazy implements two-phase value trees: build now, evaluate later.
//
// A Lazy carries the definition layers pushed onto it with WithMoreDefs and
// applies them, in push order, on top of whatever context Eval receives. This
// lets an outer repeat push its index bindings down into a subtree before any
// leaf of that subtree is evaluated.
//
// List holds repeatable elements of lazies and expands them through the same
// unitcell.Expander used for eager resolution. Expansion does not evaluate the
// items: each returned Lazy carries the index layers it was expanded under,
// and blending produces Mix nodes instead of interpolated values.
package lazy
