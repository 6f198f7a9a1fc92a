package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	url := os.Getenv("CACHE_URL")
	if url == "" {
		t.Skip("CACHE_URL not set")
	}
	c, err := NewRedisCache(url)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKeyFormats(t *testing.T) {
	assert.Equal(t, "rl:ip:10.0.0.1:route:POST /api/bookings/", MakeRateLimitKey("rl", "10.0.0.1", "POST /api/bookings/"))
	assert.Equal(t, "idem:bookings:abc", MakeIdempotencyKey("bookings", "abc"))
}

func TestTokenBucket(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := MakeRateLimitKey("rl-test", uuid.NewString(), "POST /bookings/")
	bucket := TokenBucket{Capacity: 2, RefillTokens: 1, RefillInterval: time.Second, TTL: time.Minute}
	now := time.Now()

	first, err := c.Allow(ctx, key, bucket, now)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, int64(1), first.Remaining)

	second, err := c.Allow(ctx, key, bucket, now)
	require.NoError(t, err)
	assert.True(t, second.Allowed)

	third, err := c.Allow(ctx, key, bucket, now.Add(100*time.Millisecond))
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Equal(t, 900*time.Millisecond, third.RetryAfter)

	refilled, err := c.Allow(ctx, key, bucket, now.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, refilled.Allowed)
}

func TestIdempotencyLifecycle(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := MakeIdempotencyKey("test", uuid.NewString())

	stored, err := c.ClaimIdempotencyKey(ctx, key, "fp-1", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, stored)

	_, err = c.ClaimIdempotencyKey(ctx, key, "fp-1", time.Minute)
	assert.ErrorIs(t, err, ErrIdempotencyInFlight)

	_, err = c.ClaimIdempotencyKey(ctx, key, "fp-2", time.Minute)
	assert.ErrorIs(t, err, ErrIdempotencyKeyReuse)

	resp := StoredResponse{Status: 201, ContentType: "application/json; charset=utf-8", Body: []byte(`{"success":true}`)}
	require.NoError(t, c.StoreResponse(ctx, key, resp, time.Minute))

	replay, err := c.ClaimIdempotencyKey(ctx, key, "fp-1", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, resp, *replay)

	// a finished record is not released
	require.NoError(t, c.ReleaseIdempotencyKey(ctx, key))
	replay, err = c.ClaimIdempotencyKey(ctx, key, "fp-1", time.Minute)
	require.NoError(t, err)
	assert.NotNil(t, replay)
}

func TestIdempotencyRelease(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	key := MakeIdempotencyKey("test", uuid.NewString())

	_, err := c.ClaimIdempotencyKey(ctx, key, "fp", time.Minute)
	require.NoError(t, err)
	require.NoError(t, c.ReleaseIdempotencyKey(ctx, key))

	stored, err := c.ClaimIdempotencyKey(ctx, key, "fp", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, stored)
}
