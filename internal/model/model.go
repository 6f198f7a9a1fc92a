package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Show is one calendar day of performances.
type Show struct {
	ID    uint      `gorm:"primaryKey"`
	Date  time.Time `gorm:"type:date;not null;uniqueIndex"`
	Label string    `gorm:"size:100;not null;default:''"`
	Spots []Spot    `gorm:"constraint:OnDelete:CASCADE"`
}

// DisplayName mirrors what the admin listing shows for a day.
func (s Show) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Date.Format(DateLayout)
}

// Spot is a bookable slot within a show.
type Spot struct {
	ID              uint            `gorm:"primaryKey"`
	ShowID          uint            `gorm:"not null;uniqueIndex:idx_spots_show_time"`
	Show            *Show
	Time            ClockTime       `gorm:"type:time;not null;uniqueIndex:idx_spots_show_time"`
	DurationMinutes uint16          `gorm:"not null"`
	Price           decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	SpotType        string          `gorm:"size:100;not null;default:''"`
	MaxSlots        uint16          `gorm:"not null;default:1"`
	Bookings        []Booking       `gorm:"constraint:OnDelete:CASCADE"`

	// BookedCount is filled from a COUNT over bookings whenever spots are
	// loaded. It is never persisted.
	BookedCount int64 `gorm:"-"`
}

func (s Spot) IsFull() bool {
	return s.BookedCount >= int64(s.MaxSlots)
}

func (s Spot) SpotsRemaining() int64 {
	return max(0, int64(s.MaxSlots)-s.BookedCount)
}

func (s Spot) String() string {
	date := "?"
	if s.Show != nil {
		date = s.Show.Date.Format(DateLayout)
	}
	return date + " " + s.Time.String() + " (" + strconv.Itoa(int(s.DurationMinutes)) + " mins)"
}

type DiscountType string

const (
	DiscountFixed   DiscountType = "fixed"
	DiscountPercent DiscountType = "percent"
)

func (t DiscountType) Valid() bool {
	return t == DiscountFixed || t == DiscountPercent
}

// Coupon codes are matched case-insensitively.
type Coupon struct {
	ID            uint            `gorm:"primaryKey"`
	Code          string          `gorm:"size:50;not null;uniqueIndex"`
	Description   string          `gorm:"size:200;not null;default:''"`
	MinSpots      uint16          `gorm:"not null;default:0"`
	DiscountType  DiscountType    `gorm:"type:varchar(20);not null;default:'fixed'"`
	DiscountValue decimal.Decimal `gorm:"type:numeric(8,2);not null"`
	IsActive      bool            `gorm:"not null"`
}

// Booking is one performer's reservation of one spot.
type Booking struct {
	ID            uint            `gorm:"primaryKey"`
	SpotID        uint            `gorm:"not null;index"`
	PerformerName string          `gorm:"size:200;not null"`
	Email         string          `gorm:"size:254;not null"`
	Phone         string          `gorm:"size:20;not null"`
	CouponID      *uint           `gorm:"index"`
	Coupon        *Coupon         `gorm:"constraint:OnDelete:SET NULL"`
	AmountPaid    decimal.Decimal `gorm:"type:numeric(10,2);not null;check:chk_bookings_amount_paid,amount_paid >= 0"`
	CreatedAt     time.Time       `gorm:"autoCreateTime;index"`
}

const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar date, expressed at UTC midnight so it
// round-trips through a SQL date column unchanged.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
