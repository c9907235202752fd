// Package ring provides a fixed capacity circular buffer. It is not safe for
// concurrent use; owners serialise access with their own lock.
package ring

// Buffer holds at most Cap() values. Pushing into a full buffer overwrites
// the oldest value.
type Buffer[T any] struct {
	data  []T
	index int // next write position
	count int
}

// New creates a buffer with the given capacity. Capacities below one are
// raised to one.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		data: make([]T, capacity),
	}
}

// Push appends a value. When the buffer was full the overwritten value is
// returned with ok set.
func (b *Buffer[T]) Push(value T) (evicted T, ok bool) {
	dataLength := len(b.data)

	// simple index wrap-around technique
	if b.index >= dataLength {
		b.index = 0
	}

	if b.count == dataLength {
		evicted, ok = b.data[b.index], true
	} else {
		b.count++
	}
	b.data[b.index] = value
	b.index++

	return evicted, ok
}

// oldest returns the slot index of the oldest value.
func (b *Buffer[T]) oldest() int {
	if b.count < len(b.data) {
		return 0
	}
	return b.index % len(b.data)
}

// Each calls fn for every value, oldest first, until fn returns false.
func (b *Buffer[T]) Each(fn func(T) bool) {
	start := b.oldest()
	for i := 0; i < b.count; i++ {
		if !fn(b.data[(start+i)%len(b.data)]) {
			return
		}
	}
}

// Items returns a copy of the values, oldest first.
func (b *Buffer[T]) Items() []T {
	items := make([]T, 0, b.count)
	b.Each(func(v T) bool {
		items = append(items, v)
		return true
	})
	return items
}

// Retain keeps only the values for which keep returns true, preserving
// their order, and returns how many values were removed.
func (b *Buffer[T]) Retain(keep func(T) bool) int {
	items := b.Items()
	b.Clear()

	removed := 0
	for _, v := range items {
		if keep(v) {
			b.Push(v)
		} else {
			removed++
		}
	}
	return removed
}

// Clear drops every value.
func (b *Buffer[T]) Clear() {
	var zero T
	for i := range b.data {
		b.data[i] = zero
	}
	b.index = 0
	b.count = 0
}

// Len returns the number of values held.
func (b *Buffer[T]) Len() int {
	return b.count
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.data)
}
