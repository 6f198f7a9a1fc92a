package domain

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/repository"
	"github.com/qs-lzh/miccheck/internal/service"
)

type BookingRequest struct {
	SpotIDs       []uint
	PerformerName string
	Email         string
	Phone         string
	CouponCode    string
}

type BookingResult struct {
	Bookings []model.Booking
	// Spots are the booked spots in id order, with counts that include the
	// new bookings.
	Spots  []model.Spot
	Total  decimal.Decimal
	Coupon *model.Coupon
}

type BookingService interface {
	CreateBooking(ctx context.Context, req BookingRequest) (*BookingResult, error)
}

type bookingService struct {
	uow repository.UnitOfWork
}

var _ BookingService = (*bookingService)(nil)

func NewBookingService(uow repository.UnitOfWork) *bookingService {
	return &bookingService{
		uow: uow,
	}
}

// CreateBooking books every requested spot for one performer, or none of
// them. The spot rows stay locked from the capacity check until the bookings
// are written, so concurrent requests cannot overfill a spot.
func (s *bookingService) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	req = req.normalized()
	if err := req.validate(); err != nil {
		return nil, err
	}

	var result *BookingResult
	err := s.uow.Do(ctx, func(repos repository.Repos) error {
		spots, err := repos.Spots.LockByIDs(ctx, req.SpotIDs)
		if err != nil {
			return service.ClassifyStorageError(err)
		}
		if len(spots) != len(req.SpotIDs) {
			return service.ErrInvalidSpotIDs
		}
		for _, spot := range spots {
			if spot.IsFull() {
				return &service.SpotFullError{Spot: spot}
			}
		}

		coupon, err := resolveCoupon(ctx, repos.Coupons, req.CouponCode)
		if err != nil {
			return err
		}
		if err := checkCouponEligibility(coupon, len(req.SpotIDs)); err != nil {
			return err
		}

		quote := PriceSpots(spots, coupon)
		bookings := make([]model.Booking, len(spots))
		for i, spot := range spots {
			bookings[i] = model.Booking{
				SpotID:        spot.ID,
				PerformerName: req.PerformerName,
				Email:         req.Email,
				Phone:         req.Phone,
				AmountPaid:    quote.Amounts[i],
			}
			if coupon != nil {
				bookings[i].CouponID = &coupon.ID
			}
		}
		if err := repos.Bookings.CreateBatch(ctx, bookings); err != nil {
			return service.ClassifyStorageError(err)
		}

		for i := range spots {
			spots[i].BookedCount++
		}
		result = &BookingResult{
			Bookings: bookings,
			Spots:    spots,
			Total:    quote.Total,
			Coupon:   coupon,
		}
		return nil
	})
	if err != nil {
		// commit failures come back unclassified
		return nil, service.ClassifyStorageError(err)
	}
	return result, nil
}

func (r BookingRequest) normalized() BookingRequest {
	r.PerformerName = strings.TrimSpace(r.PerformerName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.CouponCode = strings.TrimSpace(r.CouponCode)
	return r
}

func (r BookingRequest) validate() error {
	reqErr := &service.RequestError{}
	if len(r.SpotIDs) == 0 {
		reqErr.Add("spot_ids", "This list may not be empty.")
	}
	if r.PerformerName == "" {
		reqErr.Add("performer_name", "This field may not be blank.")
	}
	if r.Email == "" {
		reqErr.Add("email", "This field may not be blank.")
	}
	if r.Phone == "" {
		reqErr.Add("phone", "This field may not be blank.")
	}
	if len(reqErr.Fields) > 0 {
		return reqErr
	}

	seen := make(map[uint]struct{}, len(r.SpotIDs))
	for _, id := range r.SpotIDs {
		if _, dup := seen[id]; dup {
			return service.ErrInvalidSpotIDs
		}
		seen[id] = struct{}{}
	}
	return nil
}
