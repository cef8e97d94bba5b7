package utils

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint64Heap_Pop(t *testing.T) {
	h := NewHeap(cmp.Compare[uint64])
	for i := uint64(0); i < 64; i++ {
		h.Push(i ^ 17)
	}
	for i := uint64(0); i < 64; i++ {
		assert.Equal(t, i, h.Peek())
		assert.Equal(t, i, h.Pop())
	}
	assert.Equal(t, 0, h.Len())
}

func TestHeap_Fix(t *testing.T) {
	type item struct{ key, val int }
	h := NewHeap(func(a, b *item) int { return cmp.Compare(a.key, b.key) })
	items := []*item{{5, 0}, {3, 1}, {9, 2}}
	for _, it := range items {
		h.Push(it)
	}
	h.Peek().key = 10
	h.Fix(0)
	assert.Equal(t, 5, h.Pop().key)
	assert.Equal(t, 9, h.Pop().key)
	assert.Equal(t, 10, h.Pop().key)
}
