package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infomap/infomap/internal/model"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client), mr
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testPayload() *model.NewsPayload {
	news := make([]model.NewsItem, 5)
	for i := range news {
		news[i] = model.NewsItem{Title: "headline", Date: "2026-01-24", SourceURL: "https://example.com"}
	}
	return &model.NewsPayload{
		News:   news,
		Trends: []string{"energy"},
		Stats:  &model.CountryStats{Capital: "Paris", Population: 68000000},
	}
}

func TestNewsCache_RoundTripAndTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)
	clock := &fakeClock{t: time.Date(2026, 1, 24, 8, 0, 0, 0, time.UTC)}
	news := c.NewNewsCache(NewsCacheConfig{TTL: 4 * time.Hour, Retention: 24 * time.Hour}).WithClock(clock.Now)

	require.NoError(t, news.Put(ctx, "France_24h_General", testPayload()))

	clock.Advance(time.Hour)
	got, ok, err := news.Get(ctx, "France_24h_General")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, testPayload(), got)

	clock.Advance(4 * time.Hour)
	got, ok, err = news.Get(ctx, "France_24h_General")
	require.NoError(t, err)
	assert.False(t, ok, "entry older than TTL must be absent")
	assert.Nil(t, got)
}

func TestNewsCache_PhysicallyPresentAfterTTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, mr := newTestCache(t)
	clock := &fakeClock{t: time.Now()}
	news := c.NewNewsCache(NewsCacheConfig{TTL: 4 * time.Hour, Retention: 24 * time.Hour}).WithClock(clock.Now)

	require.NoError(t, news.Put(ctx, "Japan_7d_Tech", testPayload()))
	clock.Advance(5 * time.Hour)

	_, ok, err := news.Get(ctx, "Japan_7d_Tech")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists(newsKeyPrefix+"Japan_7d_Tech"), "expired entry is still stored until retention")
	assert.Equal(t, 24*time.Hour, mr.TTL(newsKeyPrefix+"Japan_7d_Tech"))
}

func TestNewsCache_Overwrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)
	news := c.NewNewsCache(NewsCacheConfig{})

	first := testPayload()
	second := testPayload()
	second.Trends = []string{"replaced"}

	require.NoError(t, news.Put(ctx, "Chile_24h_Economy", first))
	require.NoError(t, news.Put(ctx, "Chile_24h_Economy", second))

	got, ok, err := news.Get(ctx, "Chile_24h_Economy")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"replaced"}, got.Trends)
}

func TestNewsCache_InvalidShapeIsMiss(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, mr := newTestCache(t)
	news := c.NewNewsCache(NewsCacheConfig{})

	now := float64(time.Now().Unix())
	require.NoError(t, mr.Set(newsKeyPrefix+"Peru_24h_General",
		`{"timestamp":`+formatFloat(now)+`,"data":[{"titre":"old list format"}]}`))
	require.NoError(t, mr.Set(newsKeyPrefix+"Cuba_24h_General", `not json`))

	_, ok, err := news.Get(ctx, "Peru_24h_General")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = news.Get(ctx, "Cuba_24h_General")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, news.Put(ctx, "Peru_24h_General", testPayload()))
	_, ok, err = news.Get(ctx, "Peru_24h_General")
	require.NoError(t, err)
	assert.True(t, ok, "invalid entry is replaced by the next write")
}

func TestNewsCache_LegacyFallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)
	clock := &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	deadline := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)
	news := c.NewNewsCache(NewsCacheConfig{LegacyUntil: deadline}).WithClock(clock.Now)

	// Written under the old single-field scheme.
	require.NoError(t, news.Put(ctx, "France", testPayload()))

	_, ok, err := news.Get(ctx, "France_24h_General")
	require.NoError(t, err)
	assert.True(t, ok, "legacy key is consulted before the deadline")

	// Keep the legacy entry fresh while moving past the deadline.
	clock.t = deadline.Add(time.Second)
	require.NoError(t, news.Put(ctx, "France", testPayload()))
	_, ok, err = news.Get(ctx, "France_24h_General")
	require.NoError(t, err)
	assert.False(t, ok, "legacy key is ignored after the deadline")
}

func TestNewsCache_LegacyFallbackDisabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)
	news := c.NewNewsCache(NewsCacheConfig{})

	require.NoError(t, news.Put(ctx, "France", testPayload()))
	_, ok, err := news.Get(ctx, "France_24h_General")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewsCache_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, _ := newTestCache(t)
	news := c.NewNewsCache(NewsCacheConfig{})

	require.NoError(t, news.Put(ctx, "Kenya_24h_Politics", testPayload()))
	require.NoError(t, news.Delete(ctx, "Kenya_24h_Politics"))

	_, ok, err := news.Get(ctx, "Kenya_24h_Politics")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewsCache_RedisError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c, mr := newTestCache(t)
	news := c.NewNewsCache(NewsCacheConfig{})

	mr.Close()

	_, ok, err := news.Get(ctx, "France_24h_General")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, news.Put(ctx, "France_24h_General", testPayload()))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
