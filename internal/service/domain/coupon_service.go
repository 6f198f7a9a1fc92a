package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/repository"
	"github.com/qs-lzh/miccheck/internal/service"
)

const noCouponCodeReason = "No code provided"

type CouponValidation struct {
	Valid  bool
	Reason string

	Code          string
	DiscountType  model.DiscountType
	DiscountValue decimal.Decimal
	MinSpots      uint16
	Description   string
}

type CouponService interface {
	ValidateCoupon(ctx context.Context, code string, spotCount int) (*CouponValidation, error)
}

type couponService struct {
	repo repository.CouponRepo
}

var _ CouponService = (*couponService)(nil)

func NewCouponService(couponRepo repository.CouponRepo) *couponService {
	return &couponService{
		repo: couponRepo,
	}
}

// ValidateCoupon answers whether code would be accepted for a booking of
// spotCount spots. Rejections are reported in the result; only storage
// failures are returned as errors.
func (s *couponService) ValidateCoupon(ctx context.Context, code string, spotCount int) (*CouponValidation, error) {
	if strings.TrimSpace(code) == "" {
		return &CouponValidation{Valid: false, Reason: noCouponCodeReason}, nil
	}
	coupon, err := resolveCoupon(ctx, s.repo, code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCoupon) {
			return &CouponValidation{Valid: false, Reason: err.Error()}, nil
		}
		return nil, err
	}
	if err := checkCouponEligibility(coupon, spotCount); err != nil {
		return &CouponValidation{Valid: false, Reason: err.Error()}, nil
	}
	return &CouponValidation{
		Valid:         true,
		Code:          coupon.Code,
		DiscountType:  coupon.DiscountType,
		DiscountValue: coupon.DiscountValue,
		MinSpots:      coupon.MinSpots,
		Description:   coupon.Description,
	}, nil
}

// resolveCoupon returns the active coupon matching code, or nil when code is
// blank.
func resolveCoupon(ctx context.Context, repo repository.CouponRepo, code string) (*model.Coupon, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	coupon, err := repo.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrInvalidCoupon
		}
		return nil, service.ClassifyStorageError(err)
	}
	return coupon, nil
}

func checkCouponEligibility(coupon *model.Coupon, spotCount int) error {
	if coupon == nil {
		return nil
	}
	if spotCount < int(coupon.MinSpots) {
		return &service.MinSpotsError{MinSpots: coupon.MinSpots}
	}
	return nil
}
