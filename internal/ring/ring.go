// Package ring implements a generic, growable circular-buffer FIFO.
//
// It is adapted from the mask-indexed circular buffer used by
// github.com/joeycumines/go-catrate for its sliding-window event log: a
// power-of-2 backing slice indexed with a bitmask instead of a modulo, and
// doubling growth on overflow. That implementation also supports arbitrary
// insertion; this one only needs push-back/pop-front/remove, which are the
// only operations the scheduler's ready queue and identifier pool require.
package ring

// Ring is a FIFO queue backed by a power-of-2 circular buffer.
type Ring[T any] struct {
	s    []T
	r, w uint
}

// New returns an empty Ring with the given initial capacity, rounded up to
// the next power of 2 (minimum 8).
func New[T any](capacityHint int) *Ring[T] {
	size := 8
	for size < capacityHint {
		size <<= 1
	}
	return &Ring[T]{s: make([]T, size)}
}

func (r *Ring[T]) mask(v uint) uint {
	return v & (uint(len(r.s)) - 1)
}

// Len returns the number of queued elements.
func (r *Ring[T]) Len() int {
	return int(r.w - r.r)
}

// grow doubles the backing slice, preserving FIFO order.
func (r *Ring[T]) grow() {
	newCap := len(r.s) << 1
	if newCap == 0 {
		newCap = 8
	}
	s := make([]T, newCap)
	n := r.Len()
	for i := 0; i < n; i++ {
		s[i] = r.s[r.mask(r.r+uint(i))]
	}
	r.s = s
	r.r = 0
	r.w = uint(n)
}

// PushBack appends value to the tail of the queue.
func (r *Ring[T]) PushBack(value T) {
	if r.Len() == len(r.s) {
		r.grow()
	}
	r.s[r.mask(r.w)] = value
	r.w++
}

// PopFront removes and returns the head of the queue. Panics if empty;
// callers in this module always check Len() first, matching the original
// ready-queue contract ("NOTE: Assumes at least one thread on the ready
// queue").
func (r *Ring[T]) PopFront() T {
	if r.Len() == 0 {
		panic("ring: pop from empty queue")
	}
	var zero T
	v := r.s[r.mask(r.r)]
	r.s[r.mask(r.r)] = zero
	r.r++
	return v
}

// RemoveFunc removes the first element for which match returns true,
// reports whether one was found. Used to pull a specific tid out of the
// ready queue (e.g. for Suspend of a non-running thread).
func (r *Ring[T]) RemoveFunc(match func(T) bool) (T, bool) {
	n := r.Len()
	for i := 0; i < n; i++ {
		idx := r.mask(r.r + uint(i))
		if match(r.s[idx]) {
			v := r.s[idx]
			// shift everything after i back by one, preserving order.
			for j := i; j < n-1; j++ {
				r.s[r.mask(r.r+uint(j))] = r.s[r.mask(r.r+uint(j+1))]
			}
			var zero T
			r.s[r.mask(r.r+uint(n-1))] = zero
			r.w--
			return v, true
		}
	}
	var zero T
	return zero, false
}
