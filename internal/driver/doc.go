// Package driver runs the per-frame evaluation loop for a compiled document.
//
// Each frame the driver:
//
//  1. Feeds the input Snapshot to its signal sources
//  2. Builds the frame's evaluation context from the signal exports
//  3. Pushes the document's defs and context program on top
//  4. Resolves the control tree to a record.Value
//  5. Spring-smooths the result toward the previous frame's state
//
// A frame that fails to resolve logs its first error and repeats the last
// good value, so one bad edit never blanks the output. Numeric divergence in
// a spring is not an error: the field snaps to its target and the frame is
// flagged weird.
//
// The loop is single-writer. Snapshots may be enqueued from any goroutine,
// but Run and Step must be called from one goroutine only; spring state is
// not synchronized.
package driver
