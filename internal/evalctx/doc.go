// Package evalctx builds and caches the expression namespace for one frame.
//
// A Context combines three things:
//   - the process-wide built-in table (functions and the PI/ROOT2/ROOT3 constants)
//   - the frame-scoped signals supplied by the driver (t, ti, f, fi, pointer, keys, audio)
//   - an ordered list of definition Layers pushed on top by callers
//
// Contexts are immutable. WithLayer never touches the receiver, it returns a new
// logical context whose parent is the receiver. The compiled namespace of a
// context is an *hcl.EvalContext chain with one child per layer, computed at most
// once (sync.Once) the first time any reader needs it. Later layers shadow
// earlier ones by name because hcl resolves variables from the innermost child
// outwards; they never mutate them.
//
// Expressions use the hclsyntax grammar: infix arithmetic, comparisons,
// && || !, the ternary operator, tuples and calls into the built-in table.
//
// Thread-safety: a Context may be shared by any number of goroutines. The first
// reader to force compilation does the work; everyone else reuses it.
package evalctx
