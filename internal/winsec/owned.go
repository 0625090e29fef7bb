package winsec

// Owned holds exclusive ownership of an OS resource together with the
// function that releases it. The zero value is empty.
//
// Owned values must not be copied once they hold a resource; use Take to
// move ownership to another variable.
type Owned[T comparable] struct {
	value   T
	release func(T) error
	held    bool
}

// Own wraps value so that release is called exactly once by Close.
func Own[T comparable](value T, release func(T) error) Owned[T] {
	return Owned[T]{value: value, release: release, held: true}
}

// Get returns the wrapped value, or the zero value when empty.
func (o *Owned[T]) Get() T {
	return o.value
}

// Valid reports whether o currently owns a resource.
func (o *Owned[T]) Valid() bool {
	return o.held
}

// Take moves ownership out of o, leaving o empty.
func (o *Owned[T]) Take() Owned[T] {
	moved := *o
	*o = Owned[T]{}
	return moved
}

// Close releases the resource if o holds one and leaves o empty. Calling
// Close on an empty owner is a no-op.
func (o *Owned[T]) Close() error {
	if !o.held {
		return nil
	}
	value, release := o.value, o.release
	*o = Owned[T]{}
	if release == nil {
		return nil
	}
	return release(value)
}
