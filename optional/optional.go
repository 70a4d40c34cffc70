// Package optional implements a value that may or may not be set.
package optional

// Optional holds a value of type T together with whether it was ever set. The zero
// value is an empty Optional.
type Optional[T any] struct {
	value T
	set   bool
}

// Of returns an Optional holding v.
func Of[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Set stores v.
func (o *Optional[T]) Set(v T) {
	o.value = v
	o.set = true
}

// Get returns the stored value. It panics when nothing was set, so callers are
// expected to check HasValue first.
func (o Optional[T]) Get() T {
	if !o.set {
		panic("optional: Get called on an empty value")
	}
	return o.value
}

// HasValue reports whether a value was set.
func (o Optional[T]) HasValue() bool {
	return o.set
}
