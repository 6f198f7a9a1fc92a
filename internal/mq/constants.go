package mq

import (
	"time"

	"github.com/shopspring/decimal"
)

// Queue names and message definitions

// immediate queue from the booking engine to the notification workflow
// deliver message to announce bookings that were committed
const (
	BookingCreatedQueue = "booking.created.immediate"
)

type BookingCreatedMessage struct {
	BookingIDs    []uint          `json:"booking_ids"`
	SpotIDs       []uint          `json:"spot_ids"`
	PerformerName string          `json:"performer_name"`
	Email         string          `json:"email"`
	Total         decimal.Decimal `json:"total"`
	CouponCode    string          `json:"coupon_code,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
