package unitcell

// BlendWith is the transient cursor that merges incoming items into the tail
// of a growing sequence.
//
// With Count = n the cursor starts at Offset = n-1. Each merge targets the
// item Offset+1 places from the end and keeps (Offset+1)/(Count+1) of the
// existing item, so the first merged slot is mostly the old motif and the
// last is mostly the new one. Offset decrements after each merge; the cursor
// is exhausted when it goes below zero.
type BlendWith struct {
	Offset int
	Count  int
}

// NewBlendWith opens a cursor for the next count items. Returns nil for
// count <= 0.
func NewBlendWith(count int) *BlendWith {
	if count <= 0 {
		return nil
	}
	return &BlendWith{Offset: count - 1, Count: count}
}

// Fraction is the weight kept from the existing item.
func (b *BlendWith) Fraction() float64 {
	return float64(b.Offset+1) / float64(b.Count+1)
}

// Target returns the index in a sequence of length n that the next merge
// writes to, and false if that index has scrolled out of the sequence.
func (b *BlendWith) Target(n int) (int, bool) {
	i := n - 1 - b.Offset
	return i, i >= 0
}

// advance consumes one merge and reports whether the cursor is still open.
func (b *BlendWith) advance() bool {
	b.Offset--
	return b.Offset >= 0
}

// Sequence accumulates emitted items and applies the open blend cursor.
type Sequence[T any] struct {
	items  []T
	cursor *BlendWith
	lerp   func(from, to T, pct float64) T
}

// NewSequence creates an empty sequence. lerp interpolates from -> to at pct.
func NewSequence[T any](lerp func(from, to T, pct float64) T) *Sequence[T] {
	return &Sequence[T]{lerp: lerp}
}

// Push emits v, either appending it or merging it into the tail.
func (s *Sequence[T]) Push(v T) {
	if s.cursor == nil || s.lerp == nil {
		s.items = append(s.items, v)
		return
	}

	target, ok := s.cursor.Target(len(s.items))
	if !ok {
		// More blends requested than items available: drop the cursor.
		s.cursor = nil
		s.items = append(s.items, v)
		return
	}

	s.items[target] = s.lerp(v, s.items[target], s.cursor.Fraction())
	if !s.cursor.advance() {
		s.cursor = nil
	}
}

// BlendNext opens a cursor over the next count pushes, replacing any open one.
func (s *Sequence[T]) BlendNext(count int) {
	s.cursor = NewBlendWith(count)
}

// Blending reports whether a cursor is open.
func (s *Sequence[T]) Blending() bool {
	return s.cursor != nil
}

// Len returns the number of items.
func (s *Sequence[T]) Len() int {
	return len(s.items)
}

// Items returns the accumulated items.
func (s *Sequence[T]) Items() []T {
	return s.items
}
