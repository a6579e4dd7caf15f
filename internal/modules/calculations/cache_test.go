package calculations

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type cachedPayload struct {
	Symbols []string  `msgpack:"symbols"`
	Values  []float64 `msgpack:"values"`
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache := NewCache(db)
	require.NoError(t, cache.InitSchema())
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t)

	in := cachedPayload{
		Symbols: []string{"AAPL", "MSFT"},
		Values:  []float64{0.04, 0.03},
	}
	require.NoError(t, cache.SetOptimizer("covariance", "abc123", in, TTLOptimizer))

	var out cachedPayload
	found, err := cache.GetOptimizer("covariance", "abc123", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, in, out)
}

func TestCacheMissOnAbsentKey(t *testing.T) {
	cache := newTestCache(t)

	var out cachedPayload
	found, err := cache.GetOptimizer("covariance", "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheMissOnExpiredEntry(t *testing.T) {
	cache := newTestCache(t)

	in := cachedPayload{Symbols: []string{"AAPL"}}
	require.NoError(t, cache.SetOptimizer("covariance", "stale", in, -time.Hour))

	var out cachedPayload
	found, err := cache.GetOptimizer("covariance", "stale", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCacheOverwrite(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.SetOptimizer("covariance", "k", cachedPayload{Symbols: []string{"OLD"}}, TTLOptimizer))
	require.NoError(t, cache.SetOptimizer("covariance", "k", cachedPayload{Symbols: []string{"NEW"}}, TTLOptimizer))

	var out cachedPayload
	found, err := cache.GetOptimizer("covariance", "k", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []string{"NEW"}, out.Symbols)
}

func TestCleanupJobDeletesOnlyExpired(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.SetOptimizer("covariance", "fresh", cachedPayload{}, TTLOptimizer))
	require.NoError(t, cache.SetOptimizer("covariance", "stale", cachedPayload{}, -time.Hour))

	job := NewCleanupJob(cache, zerolog.Nop())
	assert.Equal(t, "calculations_cleanup", job.Name())
	require.NoError(t, job.Run())

	var out cachedPayload
	found, err := cache.GetOptimizer("covariance", "fresh", &out)
	require.NoError(t, err)
	assert.True(t, found)

	deleted, err := cache.DeleteExpired()
	require.NoError(t, err)
	assert.Zero(t, deleted, "cleanup already removed the expired entry")
}
