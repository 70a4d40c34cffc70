package frame

// Ring is a fixed-size ring of per-frame resources. Its index is the frame counter:
// it only moves forward, wrapping after Len items.
type Ring[T any] struct {
	items []T
	cur   int
}

// NewRing returns a ring over a copy of items. It panics if items is empty.
func NewRing[T any](items []T) *Ring[T] {
	if len(items) == 0 {
		panic("frame: ring needs at least one item")
	}
	r := &Ring[T]{items: make([]T, len(items))}
	copy(r.items, items)
	return r
}

// Len returns the number of items.
func (r *Ring[T]) Len() int { return len(r.items) }

// Index returns the position of the current item.
func (r *Ring[T]) Index() int { return r.cur }

// Current returns the current item.
func (r *Ring[T]) Current() T { return r.items[r.cur] }

// At returns the item at position i.
func (r *Ring[T]) At(i int) T { return r.items[i] }

// Advance moves to the next item.
func (r *Ring[T]) Advance() {
	r.cur = (r.cur + 1) % len(r.items)
}
