package cache

import (
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// key names definition
// key names in lua script should follow these formats
const (
	RateLimitKey   = "%s:ip:%s:route:%s" // token bucket of a client on a route, prefix, ip, method + path
	IdempotencyKey = "idem:%s:%s"        // stored response of an idempotent request, scope, client supplied key
)

func MakeRateLimitKey(prefix, ip, route string) string {
	return fmt.Sprintf(RateLimitKey, prefix, ip, route)
}

func MakeIdempotencyKey(scope, key string) string {
	return fmt.Sprintf(IdempotencyKey, scope, key)
}

// idempotency record states
const (
	idempotencyPending = "pending"
	idempotencyDone    = "done"
)

// errors
var (
	ErrIdempotencyInFlight = errors.New("A request with this idempotency key is still being processed")
	ErrIdempotencyKeyReuse = errors.New("Idempotency key was already used for a different request")
)

// lua scripts

// token bucket, refilled by whole intervals
var tokenBucketScript = redis.NewScript(`
	-- KEYS[1] = {prefix}:ip:{ip}:route:{route}

	-- ARGV[1] = now in ms
	-- ARGV[2] = capacity
	-- ARGV[3] = tokens added per interval
	-- ARGV[4] = interval in ms
	-- ARGV[5] = key ttl in seconds

	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call("HMGET", key, "tokens", "last_refill_ms")
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 and refill_tokens > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + (intervals * refill_tokens))
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call("HSET", key, "tokens", tokens, "last_refill_ms", last_refill)
	redis.call("EXPIRE", key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

var claimIdempotencyScript = redis.NewScript(`
	-- KEYS[1] = idem:{scope}:{key}

	-- ARGV[1] = request fingerprint
	-- ARGV[2] = ttl in ms

	local key = KEYS[1]
	local record = redis.call("HMGET", key, "state", "fingerprint", "status", "content_type", "body")
	local state = record[1]

	if not state then
		redis.call("HSET", key, "state", "pending", "fingerprint", ARGV[1])
		redis.call("PEXPIRE", key, tonumber(ARGV[2]))
		return { "claimed" }
	end

	if record[2] ~= ARGV[1] then
		return { "mismatch" }
	end

	if state == "pending" then
		return { "pending" }
	end

	return { "done", record[3], record[4], record[5] }
`)

var storeIdempotencyScript = redis.NewScript(`
	-- KEYS[1] = idem:{scope}:{key}

	-- ARGV[1] = status
	-- ARGV[2] = content type
	-- ARGV[3] = body
	-- ARGV[4] = ttl in ms

	local key = KEYS[1]
	if redis.call("HGET", key, "state") ~= "pending" then
		return 0
	end

	redis.call("HSET", key, "state", "done", "status", ARGV[1], "content_type", ARGV[2], "body", ARGV[3])
	redis.call("PEXPIRE", key, tonumber(ARGV[4]))
	return 1
`)

var releaseIdempotencyScript = redis.NewScript(`
	-- KEYS[1] = idem:{scope}:{key}

	-- only an unfinished claim can be released
	if redis.call("HGET", KEYS[1], "state") == "pending" then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)
