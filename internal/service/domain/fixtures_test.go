package domain

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/repository/repotest"
)

var today = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func addShow(t *testing.T, store *repotest.Store, date time.Time) model.Show {
	t.Helper()
	show := model.Show{Date: date, Label: date.Format("Mon, 2 January")}
	require.NoError(t, store.Repos().Shows.Create(context.Background(), &show))
	return show
}

func addSpot(t *testing.T, store *repotest.Store, show model.Show, hour int, price string, maxSlots uint16) model.Spot {
	t.Helper()
	spot := model.Spot{
		ShowID:          show.ID,
		Time:            model.NewClockTime(hour, 0),
		DurationMinutes: 10,
		Price:           decimal.RequireFromString(price),
		MaxSlots:        maxSlots,
	}
	require.NoError(t, store.Repos().Spots.Create(context.Background(), &spot))
	return spot
}

func addCoupon(t *testing.T, store *repotest.Store, coupon model.Coupon) model.Coupon {
	t.Helper()
	require.NoError(t, store.Repos().Coupons.Create(context.Background(), &coupon))
	return coupon
}

func ids(spots ...model.Spot) []uint {
	out := make([]uint, 0, len(spots))
	for _, spot := range spots {
		out = append(out, spot.ID)
	}
	return out
}
