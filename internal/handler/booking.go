package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/miccheck/internal/app"
	"github.com/qs-lzh/miccheck/internal/service/domain"
)

type BookingHandler struct {
	app *app.App
}

func NewBookingHandler(app *app.App) *BookingHandler {
	return &BookingHandler{
		app: app,
	}
}

func (h *BookingHandler) HandleCreate(ctx *gin.Context) {
	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		writeBindError(ctx, err)
		return
	}

	result, err := h.app.BookingWorkflow.Book(ctx.Request.Context(), domain.BookingRequest{
		SpotIDs:       req.SpotIDs,
		PerformerName: req.PerformerName,
		Email:         req.Email,
		Phone:         req.Phone,
		CouponCode:    req.CouponCode,
	})
	if err != nil {
		writeError(ctx, h.app.Logger, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": fmt.Sprintf("Successfully booked %d spot(s).", len(result.Bookings)),
		"total":   result.Total.InexactFloat64(),
	})
}
