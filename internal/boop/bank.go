package boop

import (
	"sort"
)

// BoopFrom is implemented by values that know how to spring-filter
// themselves toward a new target.
type BoopFrom[T any] interface {
	BoopFrom(conf Config, now float64, target T) (T, bool)
}

// Bank holds the Fields of one record, keyed by normalized dotted path.
type Bank struct {
	fields map[string]*Field
	weird  map[string]bool
}

// NewBank creates an empty Bank.
func NewBank() *Bank {
	return &Bank{
		fields: make(map[string]*Field),
		weird:  make(map[string]bool),
	}
}

// Step smooths the field at path. See Field.Step.
func (b *Bank) Step(conf Config, path string, now, target float64) (float64, bool) {
	path = NormalizePath(path)
	f, ok := b.fields[path]
	if !ok {
		f = &Field{}
		b.fields[path] = f
	}
	y, weird := f.Step(conf, path, now, target)
	if weird {
		b.weird[path] = true
	} else {
		delete(b.weird, path)
	}
	return y, weird
}

// Forget drops every field at or beneath prefix. The next Step on those
// paths starts from Uninitialized.
func (b *Bank) Forget(prefix string) int {
	prefix = NormalizePath(prefix)
	n := 0
	for path := range b.fields {
		if hasPathPrefix(path, prefix) {
			delete(b.fields, path)
			delete(b.weird, path)
			n++
		}
	}
	return n
}

// Weird reports whether any field's most recent step diverged.
func (b *Bank) Weird() bool {
	return len(b.weird) > 0
}

// WeirdPaths returns the paths whose most recent step diverged, sorted.
func (b *Bank) WeirdPaths() []string {
	out := make([]string, 0, len(b.weird))
	for p := range b.weird {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Paths returns every tracked path, sorted.
func (b *Bank) Paths() []string {
	out := make([]string, 0, len(b.fields))
	for p := range b.fields {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Field returns the field at path, if tracked.
func (b *Bank) Field(path string) (*Field, bool) {
	f, ok := b.fields[NormalizePath(path)]
	return f, ok
}

// Len returns the number of tracked fields.
func (b *Bank) Len() int {
	return len(b.fields)
}

// Scalar is a single smoothed number. It implements BoopFrom[float64].
type Scalar struct {
	Path  string
	field Field
}

// BoopFrom smooths target.
func (s *Scalar) BoopFrom(conf Config, now float64, target float64) (float64, bool) {
	return s.field.Step(conf, s.Path, now, target)
}
