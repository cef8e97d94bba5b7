package utils

// Heap is a binary min-heap ordered by a comparison function,
// the way container/heap is, minus the interface boxing.
type Heap[T any] struct {
	buf []T
	cmp func(a, b T) int
}

func NewHeap[T any](cmp func(a, b T) int) *Heap[T] {
	return &Heap[T]{cmp: cmp}
}

func (h *Heap[T]) Len() int {
	return len(h.buf)
}

func (h *Heap[T]) less(i, j int) bool {
	return h.cmp(h.buf[i], h.buf[j]) < 0
}

// Push pushes the element x onto the heap.
// The complexity is O(log n) where n = h.Len().
func (h *Heap[T]) Push(x T) {
	h.buf = append(h.buf, x)
	h.up(h.Len() - 1)
}

func (h *Heap[T]) swap(i, j int) {
	h.buf[i], h.buf[j] = h.buf[j], h.buf[i]
}

// Peek returns the minimum element without removing it.
func (h *Heap[T]) Peek() T {
	return h.buf[0]
}

// Pop removes and returns the minimum element.
// The complexity is O(log n) where n = h.Len().
func (h *Heap[T]) Pop() (min T) {
	min = h.buf[0]
	n := h.Len() - 1
	h.swap(0, n)
	h.down(0, n)
	var zero T
	h.buf[n] = zero
	h.buf = h.buf[0:n]
	return
}

// Fix re-establishes the heap ordering after the element at index i has changed its value.
func (h *Heap[T]) Fix(i int) {
	if !h.down(i, h.Len()) {
		h.up(i)
	}
}

func (h *Heap[T]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !h.less(j, i) {
			break
		}
		h.swap(i, j)
		j = i
	}
}

func (h *Heap[T]) down(i0, n int) bool {
	i := i0
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 { // j1 < 0 after int overflow
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && h.less(j2, j1) {
			j = j2 // = 2*i + 2  // right child
		}
		if !h.less(j, i) {
			break
		}
		h.swap(i, j)
		i = j
	}
	return i > i0
}
