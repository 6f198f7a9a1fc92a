package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/repository/repotest"
)

func TestRunIsIdempotent(t *testing.T) {
	store := repotest.NewStore()
	ctx := context.Background()
	today := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	first, err := Run(ctx, store, today, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{ShowsCreated: 4, SpotsCreated: 24, CouponCreated: true}, first)

	second, err := Run(ctx, store, today, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, second)

	shows, err := store.Repos().Shows.ListUpcoming(ctx, today)
	require.NoError(t, err)
	require.Len(t, shows, 4)
	assert.Equal(t, "Mon, 19 October", shows[0].Label)
	assert.Equal(t, "Thu, 22 October", shows[3].Label)

	day1 := shows[0].Spots
	require.Len(t, day1, 6)
	assert.Equal(t, model.NewClockTime(14, 20), day1[0].Time)
	assert.Equal(t, uint16(15), day1[0].DurationMinutes)
	assert.Equal(t, "Competitive Mic", day1[4].SpotType)
	assert.Equal(t, "", shows[1].Spots[4].SpotType)
	for _, spot := range day1 {
		assert.Equal(t, "150.00", spot.Price.StringFixed(2))
		assert.Equal(t, uint16(1), spot.MaxSlots)
	}

	coupon, err := store.Repos().Coupons.GetActiveByCode(ctx, "ILOVEVC2")
	require.NoError(t, err)
	assert.Equal(t, uint16(6), coupon.MinSpots)
	assert.Equal(t, model.DiscountFixed, coupon.DiscountType)
}

func TestRunStartsFromToday(t *testing.T) {
	store := repotest.NewStore()
	ctx := context.Background()
	_, err := Run(ctx, store, time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)

	// two days later only the last two days are missing
	summary, err := Run(ctx, store, time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.ShowsCreated)
	assert.Equal(t, 12, summary.SpotsCreated)
	assert.False(t, summary.CouponCreated)
}
