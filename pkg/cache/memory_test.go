package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keyOf(s string) Key { return Key(sha256.Sum256([]byte(s))) }

func TestMemoryRoundTrip(t *testing.T) {
	m := NewMemory(4)
	k := keyOf("a")

	_, ok := m.Get(k)
	require.False(t, ok)

	m.Insert(k, `{"id":"chatcmpl-1"}`)
	got, ok := m.Get(k)
	require.True(t, ok)
	assert.Equal(t, `{"id":"chatcmpl-1"}`, got)
}

func TestMemoryDefaultCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, NewMemory(0).Capacity())
	assert.Equal(t, DefaultCapacity, NewMemory(-3).Capacity())
	assert.Equal(t, 7, NewMemory(7).Capacity())
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	const n = 8
	m := NewMemory(n)
	for i := range n {
		assert.False(t, m.Insert(keyOf(fmt.Sprint(i)), "v"))
	}
	assert.True(t, m.Insert(keyOf("extra"), "v"))

	assert.Equal(t, n, m.Len())
	assert.False(t, m.contains(keyOf("0")), "oldest entry should be evicted")
	for i := 1; i < n; i++ {
		assert.True(t, m.contains(keyOf(fmt.Sprint(i))))
	}
	assert.True(t, m.contains(keyOf("extra")))
}

func TestMemoryGetRefreshesRecency(t *testing.T) {
	const n = 5
	m := NewMemory(n)
	touched := keyOf("touched")
	m.Insert(touched, "keep me")
	for i := range n - 1 {
		m.Insert(keyOf(fmt.Sprint(i)), "v")
	}

	_, ok := m.Get(touched)
	require.True(t, ok)

	// n new keys would flush everything, so stop one short of that.
	for i := range n - 1 {
		m.Insert(keyOf(fmt.Sprintf("new-%d", i)), "v")
	}
	assert.True(t, m.contains(touched))
	assert.Equal(t, n, m.Len())
}

func TestMemoryScenarioCapacityTwo(t *testing.T) {
	m := NewMemory(2)
	a, b, c := keyOf("A"), keyOf("B"), keyOf("C")

	m.Insert(a, "a")
	m.Insert(b, "b")
	_, ok := m.Get(a)
	require.True(t, ok)
	m.Insert(c, "c")

	assert.False(t, m.contains(b))
	assert.True(t, m.contains(a))
	assert.True(t, m.contains(c))
	assert.Equal(t, int64(1), m.Stats().Evictions)
}

func TestMemoryOverwrite(t *testing.T) {
	m := NewMemory(2)
	k := keyOf("k")
	m.Insert(k, "old")
	assert.False(t, m.Insert(k, "new"))

	got, _ := m.Get(k)
	assert.Equal(t, "new", got)
	assert.Equal(t, 1, m.Len())
}

func TestMemoryStats(t *testing.T) {
	m := NewMemory(3)
	m.Insert(keyOf("a"), "a")
	m.Get(keyOf("a"))
	m.Get(keyOf("b"))

	stats := m.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.Equal(t, 3, stats.Capacity)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)

	m.Purge()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, int64(1), m.Stats().Hits)
}

func TestMemoryConcurrentAccess(t *testing.T) {
	const (
		capacity = 16
		workers  = 8
		perG     = 500
	)
	m := NewMemory(capacity)

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perG {
				k := keyOf(fmt.Sprintf("%d-%d", w, i))
				m.Insert(k, "v")
				m.Get(k)
				m.Get(keyOf(fmt.Sprintf("%d-%d", w, i/2)))
				if n := m.Len(); n > capacity {
					t.Errorf("len %d exceeds capacity", n)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, capacity, m.Len())
	stats := m.Stats()
	assert.Equal(t, int64(workers*perG-capacity), stats.Evictions)
}
