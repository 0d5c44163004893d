package gid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentIsStablePerGoroutine(t *testing.T) {
	a1 := Current()
	a2 := Current()
	assert.Equal(t, a1, a2)
}

func TestCurrentIsUniqueAcrossGoroutines(t *testing.T) {
	const n = 50
	ids := make([]uint64, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			ids[i] = Current()
		}(i)
	}
	wg.Wait()

	seen := make(map[uint64]bool, n)
	for _, id := range ids {
		assert.False(t, seen[id], "goroutine id %d reported twice among concurrently live goroutines", id)
		seen[id] = true
	}
}
