package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos groups the repositories bound to one database handle.
type Repos struct {
	Shows    ShowRepo
	Spots    SpotRepo
	Coupons  CouponRepo
	Bookings BookingRepo
}

func NewReposGorm(db *gorm.DB) Repos {
	return Repos{
		Shows:    NewShowRepoGorm(db),
		Spots:    NewSpotRepoGorm(db),
		Coupons:  NewCouponRepoGorm(db),
		Bookings: NewBookingRepoGorm(db),
	}
}

func (r Repos) WithTx(tx *gorm.DB) Repos {
	return Repos{
		Shows:    r.Shows.WithTx(tx),
		Spots:    r.Spots.WithTx(tx),
		Coupons:  r.Coupons.WithTx(tx),
		Bookings: r.Bookings.WithTx(tx),
	}
}

// UnitOfWork runs fn against repositories sharing one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(repos Repos) error) error
}

type unitOfWorkGorm struct {
	db    *gorm.DB
	repos Repos
}

var _ UnitOfWork = (*unitOfWorkGorm)(nil)

func NewUnitOfWorkGorm(db *gorm.DB) *unitOfWorkGorm {
	return &unitOfWorkGorm{
		db:    db,
		repos: NewReposGorm(db),
	}
}

func (u *unitOfWorkGorm) Do(ctx context.Context, fn func(repos Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(u.repos.WithTx(tx))
	})
}
