// Package seed loads the demo schedule: four days of shows, six spots a day
// and the iLoveVC2 coupon. Running it again changes nothing.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/repository"
)

const Days = 4

type slot struct {
	hour, minute int
	duration     uint16
	spotType     string
}

var dailySlots = []slot{
	{hour: 14, minute: 20, duration: 15},
	{hour: 16, minute: 0, duration: 12},
	{hour: 17, minute: 30, duration: 8},
	{hour: 19, minute: 0, duration: 6},
	{hour: 20, minute: 30, duration: 6},
	{hour: 22, minute: 0, duration: 10},
}

const competitiveMic = "Competitive Mic"

var spotPrice = decimal.NewFromInt(150)

func DefaultCoupon() model.Coupon {
	return model.Coupon{
		Code:          "iLoveVC2",
		Description:   "Book 6+ spots at ₹100/spot",
		MinSpots:      6,
		DiscountType:  model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(100),
		IsActive:      true,
	}
}

type Summary struct {
	ShowsCreated  int
	SpotsCreated  int
	CouponCreated bool
}

func (s Summary) String() string {
	return fmt.Sprintf("%d shows, %d spots created, coupon created: %t", s.ShowsCreated, s.SpotsCreated, s.CouponCreated)
}

// Label formats a show date the way the schedule prints it, e.g.
// "Mon, 19 October".
func Label(date time.Time) string {
	return date.Format("Mon, 2 January")
}

// Run creates whatever part of the schedule starting at today is missing,
// inside a single transaction.
func Run(ctx context.Context, uow repository.UnitOfWork, today time.Time, logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var summary Summary
	err := uow.Do(ctx, func(repos repository.Repos) error {
		summary = Summary{}
		for i := range Days {
			date := model.DateOf(today).AddDate(0, 0, i)
			show := model.Show{Date: date, Label: Label(date)}
			created, err := repos.Shows.FirstOrCreate(ctx, &show)
			if err != nil {
				return fmt.Errorf("failed to seed show %s: %w", date.Format(model.DateLayout), err)
			}
			if created {
				summary.ShowsCreated++
				logger.Info("created show", zap.String("label", show.Label))
			}

			for _, sl := range dailySlots {
				spot := model.Spot{
					ShowID:          show.ID,
					Time:            model.NewClockTime(sl.hour, sl.minute),
					DurationMinutes: sl.duration,
					Price:           spotPrice,
					MaxSlots:        1,
				}
				if i == 0 && sl.hour == 20 {
					spot.SpotType = competitiveMic
				}
				created, err := repos.Spots.FirstOrCreate(ctx, &spot)
				if err != nil {
					return fmt.Errorf("failed to seed spot %s: %w", spot.Time, err)
				}
				if created {
					summary.SpotsCreated++
				}
			}
		}

		coupon := DefaultCoupon()
		created, err := repos.Coupons.FirstOrCreate(ctx, &coupon)
		if err != nil {
			return fmt.Errorf("failed to seed coupon: %w", err)
		}
		summary.CouponCreated = created
		return nil
	})
	if err != nil {
		return Summary{}, err
	}
	return summary, nil
}
