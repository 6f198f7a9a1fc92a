package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs-lzh/miccheck/internal/app"
)

type InventoryHandler struct {
	app *app.App
}

func NewInventoryHandler(app *app.App) *InventoryHandler {
	return &InventoryHandler{
		app: app,
	}
}

// HandleListShows lists shows from today on, each with its spots.
func (h *InventoryHandler) HandleListShows(ctx *gin.Context) {
	shows, err := h.app.InventoryService.ListUpcomingShows(ctx.Request.Context(), h.app.Today())
	if err != nil {
		writeError(ctx, h.app.Logger, err)
		return
	}

	resp := make([]ShowResponse, 0, len(shows))
	for _, show := range shows {
		resp = append(resp, NewShowResponse(show))
	}
	ctx.JSON(http.StatusOK, resp)
}

// HandleListSpots lists every spot from today on, ordered by date and time.
func (h *InventoryHandler) HandleListSpots(ctx *gin.Context) {
	spots, err := h.app.InventoryService.ListUpcomingSpots(ctx.Request.Context(), h.app.Today())
	if err != nil {
		writeError(ctx, h.app.Logger, err)
		return
	}

	resp := make([]SpotResponse, 0, len(spots))
	for _, spot := range spots {
		resp = append(resp, NewSpotResponse(spot))
	}
	ctx.JSON(http.StatusOK, resp)
}
