package experience

// History is a fixed-capacity FIFO buffer. Appending past capacity evicts the
// oldest element. The zero value is not usable; construct with NewHistory.
//
// History is not safe for concurrent use; callers serialize access the same
// way they serialize the engine that owns it.
type History[T any] struct {
	buf  []T
	head int // index of the oldest element
	n    int
}

// NewHistory returns an empty history holding at most capacity elements.
// Capacity must be positive.
func NewHistory[T any](capacity int) *History[T] {
	if capacity <= 0 {
		panic("experience: history capacity must be positive")
	}
	return &History[T]{buf: make([]T, capacity)}
}

// Append adds v as the newest element, evicting the oldest when full.
func (h *History[T]) Append(v T) {
	if h.n < len(h.buf) {
		h.buf[(h.head+h.n)%len(h.buf)] = v
		h.n++
		return
	}
	h.buf[h.head] = v
	h.head = (h.head + 1) % len(h.buf)
}

// Len returns the number of retained elements.
func (h *History[T]) Len() int {
	return h.n
}

// Cap returns the declared capacity.
func (h *History[T]) Cap() int {
	return len(h.buf)
}

// Items returns the retained elements, oldest first.
func (h *History[T]) Items() []T {
	out := make([]T, h.n)
	for i := 0; i < h.n; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Last returns up to n of the most recent elements, oldest first.
func (h *History[T]) Last(n int) []T {
	if n > h.n {
		n = h.n
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	start := h.n - n
	for i := 0; i < n; i++ {
		out[i] = h.buf[(h.head+start+i)%len(h.buf)]
	}
	return out
}

// Latest returns the most recent element, or the zero value and false when
// the history is empty.
func (h *History[T]) Latest() (T, bool) {
	var zero T
	if h.n == 0 {
		return zero, false
	}
	return h.buf[(h.head+h.n-1)%len(h.buf)], true
}
