package rolling

// Ring is a generic fixed-capacity ring buffer that overwrites the oldest
// entry once full. Snapshot returns entries oldest-first.
type Ring[T any] struct {
	buf  []T
	next int
	full bool
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Push(v T) {
	r.buf[r.next] = v
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *Ring[T]) Len() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// Snapshot copies the retained entries oldest-first.
func (r *Ring[T]) Snapshot() []T {
	n := r.Len()
	out := make([]T, 0, n)
	if r.full {
		out = append(out, r.buf[r.next:]...)
	}
	out = append(out, r.buf[:r.next]...)
	return out
}

// Tail returns up to n of the most recent entries, oldest-first.
func (r *Ring[T]) Tail(n int) []T {
	all := r.Snapshot()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
