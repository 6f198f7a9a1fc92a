package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/qs-lzh/miccheck/internal/model"
)

type CouponRepo interface {
	WithTx(tx *gorm.DB) CouponRepo
	Create(ctx context.Context, coupon *model.Coupon) error
	FirstOrCreate(ctx context.Context, coupon *model.Coupon) (created bool, err error)
	// GetActiveByCode matches code case-insensitively and only among active
	// coupons. It returns gorm.ErrRecordNotFound when nothing matches.
	GetActiveByCode(ctx context.Context, code string) (*model.Coupon, error)
}

type couponRepoGorm struct {
	db *gorm.DB
}

var _ CouponRepo = (*couponRepoGorm)(nil)

func NewCouponRepoGorm(db *gorm.DB) *couponRepoGorm {
	return &couponRepoGorm{
		db: db,
	}
}

func (r *couponRepoGorm) WithTx(tx *gorm.DB) CouponRepo {
	return &couponRepoGorm{
		db: tx,
	}
}

func (r *couponRepoGorm) Create(ctx context.Context, coupon *model.Coupon) error {
	return gorm.G[model.Coupon](r.db).Create(ctx, coupon)
}

func (r *couponRepoGorm) FirstOrCreate(ctx context.Context, coupon *model.Coupon) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("LOWER(code) = ?", strings.ToLower(coupon.Code)).
		Attrs(model.Coupon{
			Code:          coupon.Code,
			Description:   coupon.Description,
			MinSpots:      coupon.MinSpots,
			DiscountType:  coupon.DiscountType,
			DiscountValue: coupon.DiscountValue,
			IsActive:      coupon.IsActive,
		}).
		FirstOrCreate(coupon)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *couponRepoGorm) GetActiveByCode(ctx context.Context, code string) (*model.Coupon, error) {
	coupon, err := gorm.G[model.Coupon](r.db).
		Where("LOWER(code) = ? AND is_active = ?", strings.ToLower(code), true).
		First(ctx)
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}
