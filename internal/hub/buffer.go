package hub

// ring is a fixed capacity FIFO. Pushing onto a full ring overwrites the oldest entry.
type ring[T any] struct {
	items []T
	start int
	size  int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &ring[T]{items: make([]T, capacity)}
}

func (r *ring[T]) Cap() int {
	return len(r.items)
}

func (r *ring[T]) Len() int {
	return r.size
}

func (r *ring[T]) Push(v T) {
	if len(r.items) == 0 {
		return
	}
	if r.size < len(r.items) {
		r.items[(r.start+r.size)%len(r.items)] = v
		r.size++
		return
	}
	r.items[r.start] = v
	r.start = (r.start + 1) % len(r.items)
}

// Snapshot returns the contents oldest first.
func (r *ring[T]) Snapshot() []T {
	out := make([]T, r.size)
	for i := range r.size {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

func (r *ring[T]) Clear() {
	clear(r.items)
	r.start = 0
	r.size = 0
}
