// Package rolling provides small fixed-capacity accumulators used for
// health telemetry. Nothing here is safe for concurrent use on its own;
// callers hold their own locks.
package rolling

// Window keeps the most recent N float64 samples, overwriting the oldest
// once full.
type Window struct {
	buf  []float64
	next int
	full bool
}

func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]float64, capacity)}
}

func (w *Window) Push(v float64) {
	w.buf[w.next] = v
	w.next++
	if w.next == len(w.buf) {
		w.next = 0
		w.full = true
	}
}

func (w *Window) Len() int {
	if w.full {
		return len(w.buf)
	}
	return w.next
}

// Mean returns the average of the retained samples, 0 when empty.
func (w *Window) Mean() float64 {
	n := w.Len()
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += w.buf[i]
	}
	return sum / float64(n)
}
