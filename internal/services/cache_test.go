package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailpulse/pkg/contracts/domain"
)

func TestResultCache_GetSet(t *testing.T) {
	cache := NewResultCache(0, 4)
	defer cache.Stop()

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	a := &domain.Analysis{RunID: "run-1"}
	cache.Set("k", a)
	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Same(t, a, got)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRatio, 1e-9)
}

func TestResultCache_Expiry(t *testing.T) {
	cache := NewResultCache(time.Minute, 4)
	defer cache.Stop()

	now := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }
	cache.Set("k", &domain.Analysis{})

	now = now.Add(30 * time.Second)
	_, ok := cache.Get("k")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestResultCache_EvictsOldest(t *testing.T) {
	cache := NewResultCache(0, 2)
	defer cache.Stop()

	now := time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	cache.Set("a", &domain.Analysis{RunID: "a"})
	cache.Set("b", &domain.Analysis{RunID: "b"})
	cache.Set("c", &domain.Analysis{RunID: "c"})

	_, ok := cache.Get("a")
	assert.False(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
	assert.Equal(t, 2, cache.Stats().Entries)
}

func TestResultCache_PurgeAndDisabled(t *testing.T) {
	cache := NewResultCache(0, 2)
	cache.Set("a", &domain.Analysis{})
	cache.Purge()
	assert.Equal(t, 0, cache.Stats().Entries)
	cache.Stop()
	cache.Stop()

	empty := NewResultCache(0, 0)
	empty.Set("a", &domain.Analysis{})
	_, ok := empty.Get("a")
	assert.False(t, ok)
}
