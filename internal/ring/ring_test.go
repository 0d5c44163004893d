package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushPopFIFOOrder(t *testing.T) {
	r := New[int](4)
	for i := 0; i < 10; i++ {
		r.PushBack(i)
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, i, r.PopFront())
	}
	assert.Equal(t, 0, r.Len())
}

func TestGrowthPreservesOrderAcrossWrap(t *testing.T) {
	r := New[int](2) // rounded up to the minimum capacity of 8
	for i := 1; i <= 8; i++ {
		r.PushBack(i)
	}
	assert.Equal(t, 1, r.PopFront())
	r.PushBack(9)  // w wraps past the end of the backing slice
	r.PushBack(10) // full with r/w wrapped: forces growth

	var got []int
	for r.Len() > 0 {
		got = append(got, r.PopFront())
	}
	assert.Equal(t, []int{2, 3, 4, 5, 6, 7, 8, 9, 10}, got)
}

func TestPopFrontPanicsOnEmpty(t *testing.T) {
	r := New[int](4)
	assert.Panics(t, func() { r.PopFront() })
}

func TestRemoveFunc(t *testing.T) {
	r := New[int](4)
	for _, v := range []int{10, 20, 30, 40} {
		r.PushBack(v)
	}

	v, ok := r.RemoveFunc(func(x int) bool { return x == 30 })
	require.True(t, ok)
	assert.Equal(t, 30, v)
	assert.Equal(t, 3, r.Len())

	var got []int
	for r.Len() > 0 {
		got = append(got, r.PopFront())
	}
	assert.Equal(t, []int{10, 20, 40}, got)
}

func TestRemoveFuncNotFound(t *testing.T) {
	r := New[int](4)
	r.PushBack(1)
	_, ok := r.RemoveFunc(func(x int) bool { return x == 999 })
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}
