package domain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/repository/repotest"
	"github.com/qs-lzh/miccheck/internal/service"
)

func bookingRequest(spotIDs []uint, coupon string) BookingRequest {
	return BookingRequest{
		SpotIDs:       spotIDs,
		PerformerName: "Asha",
		Email:         "asha@example.com",
		Phone:         "9999999999",
		CouponCode:    coupon,
	}
}

func TestCreateBookingFixedCoupon(t *testing.T) {
	store := repotest.NewStore()
	show := addShow(t, store, today)
	a := addSpot(t, store, show, 14, "150", 1)
	b := addSpot(t, store, show, 16, "150", 1)
	c := addSpot(t, store, show, 18, "150", 1)
	coupon := addCoupon(t, store, model.Coupon{
		Code: "iLoveVC2", MinSpots: 2, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(100), IsActive: true,
	})

	svc := NewBookingService(store)
	res, err := svc.CreateBooking(context.Background(), bookingRequest(ids(a, b, c), "ILOVEVC2"))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(300).Equal(res.Total))
	require.Len(t, res.Bookings, 3)
	paid := decimal.Zero
	for _, booking := range res.Bookings {
		paid = paid.Add(booking.AmountPaid)
		require.NotNil(t, booking.CouponID)
		assert.Equal(t, coupon.ID, *booking.CouponID)
		assert.NotZero(t, booking.ID)
	}
	assert.True(t, paid.Equal(res.Total))

	for _, spot := range res.Spots {
		assert.True(t, spot.IsFull())
		assert.Equal(t, int64(0), spot.SpotsRemaining())
	}
	assert.Len(t, store.Bookings(), 3)
}

func TestCreateBookingNoCouponSplitsExactly(t *testing.T) {
	store := repotest.NewStore()
	show := addShow(t, store, today)
	a := addSpot(t, store, show, 14, "150", 1)
	b := addSpot(t, store, show, 16, "200", 1)

	res, err := NewBookingService(store).CreateBooking(context.Background(), bookingRequest(ids(a, b), "  "))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(350).Equal(res.Total))
	assert.Nil(t, res.Coupon)
	assert.True(t, res.Bookings[0].AmountPaid.Add(res.Bookings[1].AmountPaid).Equal(res.Total))
	assert.Nil(t, res.Bookings[0].CouponID)
}

func TestCreateBookingPercentCoupon(t *testing.T) {
	store := repotest.NewStore()
	show := addShow(t, store, today)
	a := addSpot(t, store, show, 14, "200", 1)
	b := addSpot(t, store, show, 16, "200", 1)
	addCoupon(t, store, model.Coupon{
		Code: "QUARTER", DiscountType: model.DiscountPercent,
		DiscountValue: decimal.NewFromInt(25), IsActive: true,
	})

	res, err := NewBookingService(store).CreateBooking(context.Background(), bookingRequest(ids(a, b), "quarter"))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(res.Total))
}

func TestCreateBookingRejections(t *testing.T) {
	store := repotest.NewStore()
	show := addShow(t, store, today)
	free := addSpot(t, store, show, 14, "150", 1)
	taken := addSpot(t, store, show, 16, "150", 1)
	addCoupon(t, store, model.Coupon{
		Code: "SIXPACK", MinSpots: 6, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(100), IsActive: true,
	})
	addCoupon(t, store, model.Coupon{
		Code: "OLD", DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(1), IsActive: false,
	})
	addCoupon(t, store, model.Coupon{
		Code: "RETIRED", MinSpots: 6, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(100), IsActive: false,
	})
	svc := NewBookingService(store)
	_, err := svc.CreateBooking(context.Background(), bookingRequest(ids(taken), ""))
	require.NoError(t, err)
	before := len(store.Bookings())

	cases := []struct {
		name string
		req  BookingRequest
		want error
	}{
		{name: "unknown spot", req: bookingRequest([]uint{free.ID, 999}, ""), want: service.ErrInvalidSpotIDs},
		{name: "duplicate spot", req: bookingRequest([]uint{free.ID, free.ID}, ""), want: service.ErrInvalidSpotIDs},
		{name: "full spot", req: bookingRequest(ids(free, taken), ""), want: service.ErrSpotFull},
		{name: "unknown coupon", req: bookingRequest(ids(free), "NOPE"), want: service.ErrInvalidCoupon},
		{name: "inactive coupon", req: bookingRequest(ids(free), "old"), want: service.ErrInvalidCoupon},
		{name: "too few spots for coupon", req: bookingRequest(ids(free), "sixpack"), want: service.ErrCouponMinSpotsNotMet},
		{name: "no spots", req: bookingRequest(nil, ""), want: service.ErrInvalidRequest},
		{name: "unknown spot before full spot", req: bookingRequest([]uint{taken.ID, 999}, ""), want: service.ErrInvalidSpotIDs},
		{name: "full spot before unknown coupon", req: bookingRequest(ids(taken), "NOPE"), want: service.ErrSpotFull},
		{name: "full spot before coupon minimum", req: bookingRequest(ids(taken), "sixpack"), want: service.ErrSpotFull},
		{name: "inactive coupon before coupon minimum", req: bookingRequest(ids(free), "retired"), want: service.ErrInvalidCoupon},
		{name: "blank performer", req: BookingRequest{SpotIDs: ids(free), Email: "a@b.c", Phone: "1"}, want: service.ErrInvalidRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateBooking(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.Len(t, store.Bookings(), before, "a rejected request must not create bookings")
		})
	}
}

func TestCreateBookingSpotFullNamesSpot(t *testing.T) {
	store := repotest.NewStore()
	show := addShow(t, store, today)
	spot := addSpot(t, store, show, 22, "150", 1)
	svc := NewBookingService(store)
	_, err := svc.CreateBooking(context.Background(), bookingRequest(ids(spot), ""))
	require.NoError(t, err)

	_, err = svc.CreateBooking(context.Background(), bookingRequest(ids(spot), ""))
	var full *service.SpotFullError
	require.True(t, errors.As(err, &full))
	assert.Equal(t, spot.ID, full.Spot.ID)
	assert.Equal(t, "Spot 2026-10-19 22:00:00 (10 mins) is full.", err.Error())
}

func TestCreateBookingStorageFailure(t *testing.T) {
	store := repotest.NewStore()
	show := addShow(t, store, today)
	spot := addSpot(t, store, show, 14, "150", 1)
	store.Err = errors.New("connection reset by peer")

	_, err := NewBookingService(store).CreateBooking(context.Background(), bookingRequest(ids(spot), ""))
	assert.ErrorIs(t, err, service.ErrStorageUnavailable)
}

func TestCreateBookingConcurrentSingleSlot(t *testing.T) {
	store := repotest.NewStore()
	show := addShow(t, store, today)
	spot := addSpot(t, store, show, 19, "150", 1)
	svc := NewBookingService(store)

	const concurrency = 50
	var wg sync.WaitGroup
	var succeeded, full atomic.Int64
	for range concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateBooking(context.Background(), bookingRequest(ids(spot), ""))
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, service.ErrSpotFull):
				full.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), succeeded.Load())
	assert.Equal(t, int64(concurrency-1), full.Load())
	assert.Len(t, store.Bookings(), 1)
}

// Validation and booking must accept exactly the same (code, count) pairs.
func TestCouponDecisionsAgree(t *testing.T) {
	store := repotest.NewStore()
	show := addShow(t, store, today)
	var spots []model.Spot
	for hour := 10; hour < 17; hour++ {
		spots = append(spots, addSpot(t, store, show, hour, "150", 100))
	}
	addCoupon(t, store, model.Coupon{
		Code: "iLoveVC2", MinSpots: 6, DiscountType: model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(100), IsActive: true,
	})
	addCoupon(t, store, model.Coupon{
		Code: "retired", DiscountType: model.DiscountPercent,
		DiscountValue: decimal.NewFromInt(10), IsActive: false,
	})

	couponSvc := NewCouponService(store.Repos().Coupons)
	bookingSvc := NewBookingService(store)
	for _, code := range []string{"iLoveVC2", "ILOVEVC2", "ilovevc2", "retired", "unknown"} {
		for n := 1; n <= len(spots); n++ {
			v, err := couponSvc.ValidateCoupon(context.Background(), code, n)
			require.NoError(t, err)

			_, err = bookingSvc.CreateBooking(context.Background(), bookingRequest(ids(spots[:n]...), code))
			couponAccepted := err == nil ||
				!(errors.Is(err, service.ErrInvalidCoupon) || errors.Is(err, service.ErrCouponMinSpotsNotMet))
			assert.Equal(t, v.Valid, couponAccepted, "code=%q n=%d err=%v", code, n, err)
		}
	}
}
