package handler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/qs-lzh/miccheck/config"
	"github.com/qs-lzh/miccheck/internal/cache"
)

const (
	requestIDHeader   = "X-Request-ID"
	requestIDKey      = "request_id"
	idempotencyHeader = "Idempotency-Key"
)

func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.Set(requestIDKey, id)
		ctx.Header(requestIDHeader, id)
		ctx.Next()
	}
}

func requestIDFrom(ctx *gin.Context) string {
	return ctx.GetString(requestIDKey)
}

func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path
		ctx.Next()

		fields := []zap.Field{
			zap.Int("status", ctx.Writer.Status()),
			zap.String("method", ctx.Request.Method),
			zap.String("path", path),
			zap.String("client_ip", ctx.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestIDFrom(ctx)),
		}
		if len(ctx.Errors) > 0 {
			fields = append(fields, zap.String("errors", ctx.Errors.String()))
		}
		switch status := ctx.Writer.Status(); {
		case status >= 500:
			logger.Error("request", fields...)
		case status >= 400:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(ctx *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("request_id", requestIDFrom(ctx)),
			zap.Stack("stack"),
		)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"detail": "Internal server error",
			"code":   "internal_error",
		})
	})
}

// CORS allows browser requests from the listed origins.
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		origin := ctx.GetHeader("Origin")
		if origin != "" && slices.Contains(allowedOrigins, origin) {
			ctx.Header("Access-Control-Allow-Origin", origin)
			ctx.Header("Vary", "Origin")
			ctx.Header("Access-Control-Allow-Credentials", "true")
			ctx.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			ctx.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-Request-ID")
			ctx.Header("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
		}
		if ctx.Request.Method == http.MethodOptions {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	}
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, bucket cache.TokenBucket, now time.Time) (cache.RateLimitResult, error)
}

// RateLimit applies a token bucket per client IP and route. It lets requests
// through when the limiter is unavailable.
func RateLimit(limiter RateLimiter, cfg config.RateLimitConfig, logger *zap.Logger) gin.HandlerFunc {
	if limiter == nil || !cfg.Enabled {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	bucket := cache.TokenBucket{
		Capacity:       cfg.Capacity,
		RefillTokens:   cfg.RefillTokens,
		RefillInterval: cfg.RefillInterval,
		TTL:            cfg.TTL,
	}

	return func(ctx *gin.Context) {
		ip := ctx.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		key := cache.MakeRateLimitKey(cfg.Prefix, ip, ctx.Request.Method+" "+ctx.FullPath())

		res, err := limiter.Allow(ctx.Request.Context(), key, bucket, time.Now())
		if err != nil {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			ctx.Next()
			return
		}

		ctx.Header("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		ctx.Header("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		if !res.Allowed {
			secs := int(math.Ceil(res.RetryAfter.Seconds()))
			ctx.Header("Retry-After", strconv.Itoa(secs))
			ctx.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"detail":      "Request was throttled.",
				"code":        "too_many_requests",
				"retry_after": secs,
			})
			return
		}
		ctx.Next()
	}
}

type IdempotencyStore interface {
	ClaimIdempotencyKey(ctx context.Context, key, fingerprint string, ttl time.Duration) (*cache.StoredResponse, error)
	StoreResponse(ctx context.Context, key string, resp cache.StoredResponse, ttl time.Duration) error
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

// capturingWriter keeps a copy of the response body.
type capturingWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *capturingWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response when a request repeats an
// Idempotency-Key. Only successful responses are stored; any other outcome
// frees the key for a retry.
func Idempotency(store IdempotencyStore, ttl time.Duration, scope string, logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		clientKey := strings.TrimSpace(ctx.GetHeader(idempotencyHeader))
		if store == nil || clientKey == "" {
			ctx.Next()
			return
		}
		if len(clientKey) > 255 {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"detail": "Idempotency-Key must be at most 255 characters.",
				"code":   "invalid_request",
			})
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"detail": "Could not read request body.",
				"code":   "invalid_request",
			})
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))

		key := cache.MakeIdempotencyKey(scope, clientKey)
		reqCtx := ctx.Request.Context()
		stored, err := store.ClaimIdempotencyKey(reqCtx, key, fingerprint(ctx.Request, body), ttl)
		switch {
		case errors.Is(err, cache.ErrIdempotencyInFlight):
			ctx.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"detail": err.Error(),
				"code":   "idempotency_in_flight",
			})
			return
		case errors.Is(err, cache.ErrIdempotencyKeyReuse):
			ctx.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
				"detail": err.Error(),
				"code":   "idempotency_key_reused",
			})
			return
		case err != nil:
			logger.Warn("idempotency store unavailable", zap.String("key", key), zap.Error(err))
			ctx.Next()
			return
		case stored != nil:
			ctx.Header("Idempotent-Replayed", "true")
			ctx.Data(stored.Status, stored.ContentType, stored.Body)
			ctx.Abort()
			return
		}

		writer := &capturingWriter{ResponseWriter: ctx.Writer}
		ctx.Writer = writer

		// the response is already written, so the outcome is only logged
		storeCtx := context.WithoutCancel(reqCtx)
		settled := false
		// runs on panics too, so a crashed request does not pin the key
		defer func() {
			if settled {
				return
			}
			if err := store.ReleaseIdempotencyKey(storeCtx, key); err != nil {
				logger.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
		}()

		ctx.Next()

		status := writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		settled = true
		resp := cache.StoredResponse{
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		}
		if err := store.StoreResponse(storeCtx, key, resp, ttl); err != nil {
			logger.Warn("failed to store idempotent response", zap.String("key", key), zap.Error(err))
		}
	}
}

func fingerprint(req *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(req.Method + " " + req.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
