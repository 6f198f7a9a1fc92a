package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/qs-lzh/miccheck/internal/app"
	"github.com/qs-lzh/miccheck/internal/service"
)

// NewRouter returns a gin engine with the middleware chain and all routes.
func NewRouter(app *app.App) *gin.Engine {
	registerValidatorTagNames()

	r := gin.New()
	r.Use(
		RequestID(),
		RequestLogger(app.Logger),
		Recovery(app.Logger),
		CORS(app.Config.AllowedOrigins),
	)
	RegisterRoutes(r, app)
	return r
}

func RegisterRoutes(r *gin.Engine, app *app.App) {
	health := NewHealthHandler(app)
	r.GET("/", health.HandleHealth)
	r.GET("/healthz", health.HandleHealth)

	// interfaces stay nil when redis is not configured
	var limiter RateLimiter
	var idempotency IdempotencyStore
	if app.Cache != nil {
		limiter = app.Cache
		idempotency = app.Cache
	}
	rateLimit := RateLimit(limiter, app.Config.RateLimit, app.Logger)

	api := r.Group(app.Config.APIPrefix)

	inventory := NewInventoryHandler(app)
	api.GET("/shows/", inventory.HandleListShows)
	api.GET("/spots/", inventory.HandleListSpots)

	coupon := NewCouponHandler(app)
	api.POST("/coupon/validate/", rateLimit, coupon.HandleValidate)

	booking := NewBookingHandler(app)
	api.POST("/bookings/", rateLimit,
		Idempotency(idempotency, app.Config.IdempotencyTTL, "bookings", app.Logger),
		booking.HandleCreate,
	)
}

// writeError maps service errors to status codes and response bodies.
func writeError(ctx *gin.Context, logger *zap.Logger, err error) {
	var reqErr *service.RequestError
	var fullErr *service.SpotFullError
	var minErr *service.MinSpotsError

	switch {
	case errors.As(err, &reqErr):
		body := gin.H{"code": "invalid_request"}
		for field, msgs := range reqErr.Fields {
			body[field] = msgs
		}
		ctx.JSON(http.StatusBadRequest, body)
	case errors.Is(err, service.ErrInvalidSpotIDs):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"spot_ids": []string{service.ErrInvalidSpotIDs.Error()},
			"code":     "invalid_spot_ids",
		})
	case errors.As(err, &fullErr):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"spot_ids": []string{fullErr.Error()},
			"code":     "spot_full",
		})
	case errors.Is(err, service.ErrInvalidCoupon):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"coupon_code": []string{service.ErrInvalidCoupon.Error()},
			"code":        "invalid_coupon",
		})
	case errors.As(err, &minErr):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"detail": minErr.Error(),
			"code":   "coupon_min_spots_not_met",
		})
	case errors.Is(err, service.ErrConstraintViolation):
		logger.Warn("constraint violation", zap.Error(err), zap.String("request_id", requestIDFrom(ctx)))
		ctx.JSON(http.StatusConflict, gin.H{
			"detail": "The request conflicts with the current state of the resource",
			"code":   "constraint_violation",
		})
	case errors.Is(err, service.ErrStorageUnavailable):
		logger.Error("storage unavailable", zap.Error(err), zap.String("request_id", requestIDFrom(ctx)))
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"detail": "Service temporarily unavailable, please try again later",
			"code":   "storage_unavailable",
		})
	default:
		logger.Error("unhandled error", zap.Error(err), zap.String("request_id", requestIDFrom(ctx)))
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"detail": "Internal server error",
			"code":   "internal_error",
		})
	}
}
