package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, maxEntries int, ttl time.Duration) (*Store[string], *time.Time) {
	t.Helper()
	s := New[string](maxEntries, ttl)
	t.Cleanup(s.Close)
	clock := time.Now()
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestStore_GetSet(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t, 10, time.Hour)
	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Set("a", "1")
	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)

	s.Delete("a")
	_, ok = s.Get("a")
	assert.False(t, ok)
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	s, clock := newStore(t, 10, time.Minute)
	s.Set("a", "1")

	*clock = clock.Add(2 * time.Minute)
	_, ok := s.Get("a")
	assert.False(t, ok)
	assert.False(t, s.Update("a", func(v string) string { return v + "!" }))

	assert.Equal(t, 1, s.Len())
	s.evictExpired()
	assert.Zero(t, s.Len())
}

func TestStore_EvictsOldestAtCapacity(t *testing.T) {
	t.Parallel()

	s, clock := newStore(t, 2, time.Hour)
	s.Set("a", "1")
	*clock = clock.Add(time.Second)
	s.Set("b", "2")
	*clock = clock.Add(time.Second)
	s.Set("c", "3")

	_, ok := s.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")
	assert.Equal(t, 2, s.Len())

	// Overwriting an existing key does not evict.
	s.Set("b", "22")
	assert.Equal(t, 2, s.Len())
}

func TestStore_Update(t *testing.T) {
	t.Parallel()

	s := New[int](0, time.Hour)
	defer s.Close()
	s.Set("n", 0)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("n", func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()

	v, _ := s.Get("n")
	assert.Equal(t, 50, v)
	assert.False(t, s.Update("missing", func(v int) int { return v }))
	s.Close()
	s.Close()
}

func TestStore_Unbounded(t *testing.T) {
	t.Parallel()

	s := New[int](0, 0)
	defer s.Close()
	for i := range 100 {
		s.Set(strconv.Itoa(i), i)
	}
	assert.Equal(t, 100, s.Len())
}
