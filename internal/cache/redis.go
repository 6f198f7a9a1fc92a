package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache accepts either host:port or a redis:// URL and checks that
// the server answers.
func NewRedisCache(url string) (*RedisCache, error) {
	opts := &redis.Options{
		Addr:     url,
		Password: "",
		DB:       0,
	}
	if strings.Contains(url, "://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisCache{Client: client}, nil
}

func (r *RedisCache) Close() error {
	return r.Client.Close()
}

/*
* rate limiting
 */

type TokenBucket struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
}

type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Allow takes one token from the bucket stored under key.
func (r *RedisCache) Allow(ctx context.Context, key string, bucket TokenBucket, now time.Time) (RateLimitResult, error) {
	vals, err := tokenBucketScript.Run(ctx, r.Client, []string{key},
		now.UnixMilli(),
		bucket.Capacity,
		bucket.RefillTokens,
		bucket.RefillInterval.Milliseconds(),
		int64(bucket.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return RateLimitResult{}, err
	}
	if len(vals) != 3 {
		return RateLimitResult{}, fmt.Errorf("unexpected token bucket result %v", vals)
	}
	return RateLimitResult{
		Allowed:    vals[0] == 1,
		Remaining:  vals[1],
		RetryAfter: time.Duration(vals[2]) * time.Millisecond,
	}, nil
}

/*
* idempotent responses
 */

type StoredResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// ClaimIdempotencyKey reserves key for the request identified by
// fingerprint. A nil response means the caller owns the key and must later
// call StoreResponse or ReleaseIdempotencyKey. A non-nil response is the
// stored result of an earlier identical request.
func (r *RedisCache) ClaimIdempotencyKey(ctx context.Context, key, fingerprint string, ttl time.Duration) (*StoredResponse, error) {
	vals, err := claimIdempotencyScript.Run(ctx, r.Client, []string{key}, fingerprint, ttl.Milliseconds()).StringSlice()
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unexpected idempotency claim result")
	}
	switch vals[0] {
	case "claimed":
		return nil, nil
	case "mismatch":
		return nil, ErrIdempotencyKeyReuse
	case idempotencyPending:
		return nil, ErrIdempotencyInFlight
	case idempotencyDone:
		if len(vals) != 4 {
			return nil, fmt.Errorf("incomplete idempotency record %q", key)
		}
		status, err := strconv.Atoi(vals[1])
		if err != nil {
			return nil, fmt.Errorf("invalid stored status %q: %w", vals[1], err)
		}
		return &StoredResponse{Status: status, ContentType: vals[2], Body: []byte(vals[3])}, nil
	}
	return nil, fmt.Errorf("unexpected idempotency claim result %q", vals[0])
}

func (r *RedisCache) StoreResponse(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	return storeIdempotencyScript.Run(ctx, r.Client, []string{key},
		resp.Status, resp.ContentType, resp.Body, ttl.Milliseconds()).Err()
}

func (r *RedisCache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	return releaseIdempotencyScript.Run(ctx, r.Client, []string{key}).Err()
}
