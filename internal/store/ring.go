package store

// Ring is a bounded FIFO buffer that discards the oldest element on
// overflow. Implementations are not safe for concurrent use; the store
// serializes access.
type Ring[T any] interface {
	// Append adds an element, evicting the oldest when full
	Append(v T)
	// Snapshot returns all elements oldest-first as a fresh slice
	Snapshot() []T
	// Tail returns the most recent n elements oldest-first
	Tail(n int) []T
	// Len returns the number of stored elements
	Len() int
	// Clear removes all elements
	Clear()
}

// sliceRing is a circular slice-backed Ring
type sliceRing[T any] struct {
	buf  []T
	head int // index of the oldest element
	size int
}

// NewRing creates a Ring with the given capacity
func NewRing[T any](capacity int) Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &sliceRing[T]{buf: make([]T, capacity)}
}

func (r *sliceRing[T]) Append(v T) {
	if r.size < len(r.buf) {
		r.buf[(r.head+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

func (r *sliceRing[T]) Snapshot() []T {
	return r.Tail(r.size)
}

func (r *sliceRing[T]) Tail(n int) []T {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return []T{}
	}
	out := make([]T, n)
	start := r.head + r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

func (r *sliceRing[T]) Len() int {
	return r.size
}

func (r *sliceRing[T]) Clear() {
	r.head = 0
	r.size = 0
}
