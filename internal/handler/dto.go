package handler

import (
	"github.com/qs-lzh/miccheck/internal/model"
)

type SpotResponse struct {
	ID              uint            `json:"id"`
	Show            uint            `json:"show"`
	ShowDate        string          `json:"show_date"`
	ShowLabel       string          `json:"show_label"`
	Time            model.ClockTime `json:"time"`
	DurationMinutes uint16          `json:"duration_minutes"`
	Price           string          `json:"price"`
	SpotType        string          `json:"spot_type"`
	MaxSlots        uint16          `json:"max_slots"`
	IsFull          bool            `json:"is_full"`
	SpotsRemaining  int64           `json:"spots_remaining"`
}

type ShowResponse struct {
	ID    uint           `json:"id"`
	Date  string         `json:"date"`
	Label string         `json:"label"`
	Spots []SpotResponse `json:"spots"`
}

func NewSpotResponse(spot model.Spot) SpotResponse {
	resp := SpotResponse{
		ID:              spot.ID,
		Show:            spot.ShowID,
		Time:            spot.Time,
		DurationMinutes: spot.DurationMinutes,
		Price:           spot.Price.StringFixed(2),
		SpotType:        spot.SpotType,
		MaxSlots:        spot.MaxSlots,
		IsFull:          spot.IsFull(),
		SpotsRemaining:  spot.SpotsRemaining(),
	}
	if spot.Show != nil {
		resp.ShowDate = spot.Show.Date.Format(model.DateLayout)
		resp.ShowLabel = spot.Show.Label
	}
	return resp
}

func NewShowResponse(show model.Show) ShowResponse {
	spots := make([]SpotResponse, 0, len(show.Spots))
	for _, spot := range show.Spots {
		if spot.Show == nil {
			spot.Show = &show
		}
		spots = append(spots, NewSpotResponse(spot))
	}
	return ShowResponse{
		ID:    show.ID,
		Date:  show.Date.Format(model.DateLayout),
		Label: show.Label,
		Spots: spots,
	}
}

type ValidateCouponRequest struct {
	Code      string `json:"code"`
	SpotCount int    `json:"spot_count"`
}

type CreateBookingRequest struct {
	SpotIDs       []uint `json:"spot_ids" binding:"required,min=1"`
	PerformerName string `json:"performer_name" binding:"required,max=200"`
	Email         string `json:"email" binding:"required,email,max=254"`
	Phone         string `json:"phone" binding:"required,max=20"`
	CouponCode    string `json:"coupon_code" binding:"max=50"`
}
