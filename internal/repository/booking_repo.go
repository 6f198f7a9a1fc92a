package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs-lzh/miccheck/internal/model"
)

type BookingRepo interface {
	WithTx(tx *gorm.DB) BookingRepo
	CreateBatch(ctx context.Context, bookings []model.Booking) error
	CountBySpotIDs(ctx context.Context, spotIDs []uint) (map[uint]int64, error)
	ListBySpotID(ctx context.Context, spotID uint) ([]model.Booking, error)
}

type bookingRepoGorm struct {
	db *gorm.DB
}

var _ BookingRepo = (*bookingRepoGorm)(nil)

func NewBookingRepoGorm(db *gorm.DB) *bookingRepoGorm {
	return &bookingRepoGorm{
		db: db,
	}
}

func (r *bookingRepoGorm) WithTx(tx *gorm.DB) BookingRepo {
	return &bookingRepoGorm{
		db: tx,
	}
}

// CreateBatch inserts all bookings in one statement and fills in their IDs.
func (r *bookingRepoGorm) CreateBatch(ctx context.Context, bookings []model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Coupon").Create(&bookings).Error
}

func (r *bookingRepoGorm) CountBySpotIDs(ctx context.Context, spotIDs []uint) (map[uint]int64, error) {
	return countBookings(ctx, r.db, spotIDs)
}

func (r *bookingRepoGorm) ListBySpotID(ctx context.Context, spotID uint) ([]model.Booking, error) {
	bookings, err := gorm.G[model.Booking](r.db).
		Where("spot_id = ?", spotID).
		Order("id ASC").
		Find(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
