package monitor

// ring is a fixed-capacity FIFO. Push drops the oldest item on overflow.
// It backs both the per-service ping history and the log buffer.
type ring[T any] struct {
	items    []T
	capacity int
}

func newRing[T any](capacity int) *ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &ring[T]{capacity: capacity}
}

func (r *ring[T]) push(v T) {
	r.items = append(r.items, v)
	if len(r.items) > r.capacity {
		// Reallocate instead of reslicing so dropped items can be collected.
		trimmed := make([]T, r.capacity)
		copy(trimmed, r.items[len(r.items)-r.capacity:])
		r.items = trimmed
	}
}

func (r *ring[T]) len() int {
	return len(r.items)
}

// snapshot returns a copy of the retained items, oldest first.
func (r *ring[T]) snapshot() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}
