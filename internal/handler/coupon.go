package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/miccheck/internal/app"
)

type CouponHandler struct {
	app *app.App
}

func NewCouponHandler(app *app.App) *CouponHandler {
	return &CouponHandler{
		app: app,
	}
}

// HandleValidate reports whether a code would be accepted for spot_count
// spots. A rejected code is still a 200 response with valid set to false.
func (h *CouponHandler) HandleValidate(ctx *gin.Context) {
	var req ValidateCouponRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		writeBindError(ctx, err)
		return
	}

	result, err := h.app.CouponService.ValidateCoupon(ctx.Request.Context(), req.Code, req.SpotCount)
	if err != nil {
		writeError(ctx, h.app.Logger, err)
		return
	}

	if !result.Valid {
		ctx.JSON(http.StatusOK, gin.H{
			"valid":   false,
			"message": result.Reason,
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"valid":          true,
		"min_spots":      result.MinSpots,
		"discount_type":  result.DiscountType,
		"discount_value": result.DiscountValue.StringFixed(2),
		"description":    result.Description,
	})
}
