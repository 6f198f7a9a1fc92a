package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs-lzh/miccheck/internal/model"
)

type ShowRepo interface {
	WithTx(tx *gorm.DB) ShowRepo
	Create(ctx context.Context, show *model.Show) error
	FirstOrCreate(ctx context.Context, show *model.Show) (created bool, err error)
	GetByDate(ctx context.Context, date time.Time) (*model.Show, error)
	ListUpcoming(ctx context.Context, today time.Time) ([]model.Show, error)
}

type showRepoGorm struct {
	db *gorm.DB
}

var _ ShowRepo = (*showRepoGorm)(nil)

func NewShowRepoGorm(db *gorm.DB) *showRepoGorm {
	return &showRepoGorm{
		db: db,
	}
}

func (r *showRepoGorm) WithTx(tx *gorm.DB) ShowRepo {
	return &showRepoGorm{
		db: tx,
	}
}

func (r *showRepoGorm) Create(ctx context.Context, show *model.Show) error {
	show.Date = model.DateOf(show.Date)
	return gorm.G[model.Show](r.db).Create(ctx, show)
}

// FirstOrCreate looks the show up by date and inserts it when missing.
func (r *showRepoGorm) FirstOrCreate(ctx context.Context, show *model.Show) (bool, error) {
	date := model.DateOf(show.Date).Format(model.DateLayout)
	res := r.db.WithContext(ctx).
		Where("date = ?", date).
		Attrs(model.Show{Date: model.DateOf(show.Date), Label: show.Label}).
		FirstOrCreate(show)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *showRepoGorm) GetByDate(ctx context.Context, date time.Time) (*model.Show, error) {
	show, err := gorm.G[model.Show](r.db).
		Where("date = ?", model.DateOf(date).Format(model.DateLayout)).
		First(ctx)
	if err != nil {
		return nil, err
	}
	return &show, nil
}

// ListUpcoming returns shows dated today or later with their spots, ordered by
// date and then spot time. Spots carry their booked counts, read from the same
// snapshot as the spots.
func (r *showRepoGorm) ListUpcoming(ctx context.Context, today time.Time) ([]model.Show, error) {
	var shows []model.Show
	var counts map[uint]int64
	err := readSnapshot(ctx, r.db, func(tx *gorm.DB) error {
		err := tx.
			Where("date >= ?", model.DateOf(today).Format(model.DateLayout)).
			Order("date ASC").
			Preload("Spots", func(db *gorm.DB) *gorm.DB {
				return db.Order("spots.time ASC")
			}).
			Find(&shows).Error
		if err != nil {
			return err
		}

		var spotIDs []uint
		for _, show := range shows {
			for _, spot := range show.Spots {
				spotIDs = append(spotIDs, spot.ID)
			}
		}
		counts, err = countBookings(ctx, tx, spotIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	for i := range shows {
		for j := range shows[i].Spots {
			spot := &shows[i].Spots[j]
			spot.BookedCount = counts[spot.ID]
			spot.Show = &model.Show{ID: shows[i].ID, Date: shows[i].Date, Label: shows[i].Label}
		}
	}
	return shows, nil
}
