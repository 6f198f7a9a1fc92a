package repository

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs-lzh/miccheck/internal/model"
)

type SpotRepo interface {
	WithTx(tx *gorm.DB) SpotRepo
	Create(ctx context.Context, spot *model.Spot) error
	FirstOrCreate(ctx context.Context, spot *model.Spot) (created bool, err error)
	GetByIDs(ctx context.Context, ids []uint) ([]model.Spot, error)
	// LockByIDs row-locks the spots until the surrounding transaction ends.
	// It must be called through a repo bound with WithTx.
	LockByIDs(ctx context.Context, ids []uint) ([]model.Spot, error)
	ListUpcoming(ctx context.Context, today time.Time) ([]model.Spot, error)
}

type spotRepoGorm struct {
	db *gorm.DB
}

var _ SpotRepo = (*spotRepoGorm)(nil)

func NewSpotRepoGorm(db *gorm.DB) *spotRepoGorm {
	return &spotRepoGorm{
		db: db,
	}
}

func (r *spotRepoGorm) WithTx(tx *gorm.DB) SpotRepo {
	return &spotRepoGorm{
		db: tx,
	}
}

func (r *spotRepoGorm) Create(ctx context.Context, spot *model.Spot) error {
	return gorm.G[model.Spot](r.db).Create(ctx, spot)
}

// FirstOrCreate looks the spot up by (show, time) and inserts it when missing.
func (r *spotRepoGorm) FirstOrCreate(ctx context.Context, spot *model.Spot) (bool, error) {
	res := r.db.WithContext(ctx).
		Omit("Show", "Bookings").
		Where("show_id = ? AND time = ?", spot.ShowID, spot.Time.String()).
		Attrs(model.Spot{
			ShowID:          spot.ShowID,
			Time:            spot.Time,
			DurationMinutes: spot.DurationMinutes,
			Price:           spot.Price,
			SpotType:        spot.SpotType,
			MaxSlots:        spot.MaxSlots,
		}).
		FirstOrCreate(spot)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *spotRepoGorm) GetByIDs(ctx context.Context, ids []uint) ([]model.Spot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var spots []model.Spot
	err := r.db.WithContext(ctx).
		Preload("Show").
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&spots).Error
	if err != nil {
		return nil, err
	}
	return r.withCounts(ctx, spots)
}

func (r *spotRepoGorm) LockByIDs(ctx context.Context, ids []uint) ([]model.Spot, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	// Lock in id order so two requests over overlapping spot sets cannot
	// deadlock each other.
	var spots []model.Spot
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&spots).Error
	if err != nil {
		return nil, err
	}
	if err := r.attachShows(ctx, spots); err != nil {
		return nil, err
	}
	// The lock waits for competing transactions to finish, so this count
	// sees their committed bookings.
	return r.withCounts(ctx, spots)
}

// ListUpcoming returns spots of shows dated today or later, ordered by show
// date and then time. Spots and counts are read from one snapshot.
func (r *spotRepoGorm) ListUpcoming(ctx context.Context, today time.Time) ([]model.Spot, error) {
	var spots []model.Spot
	err := readSnapshot(ctx, r.db, func(tx *gorm.DB) error {
		err := tx.
			Joins("JOIN shows ON shows.id = spots.show_id").
			Where("shows.date >= ?", model.DateOf(today).Format(model.DateLayout)).
			Order("shows.date ASC").
			Order("spots.time ASC").
			Preload("Show").
			Find(&spots).Error
		if err != nil {
			return err
		}
		spots, err = (&spotRepoGorm{db: tx}).withCounts(ctx, spots)
		return err
	})
	if err != nil {
		return nil, err
	}
	return spots, nil
}

func (r *spotRepoGorm) attachShows(ctx context.Context, spots []model.Spot) error {
	if len(spots) == 0 {
		return nil
	}
	showIDs := make([]uint, 0, len(spots))
	for _, spot := range spots {
		showIDs = append(showIDs, spot.ShowID)
	}
	var shows []model.Show
	if err := r.db.WithContext(ctx).Where("id IN ?", showIDs).Find(&shows).Error; err != nil {
		return err
	}
	byID := make(map[uint]*model.Show, len(shows))
	for i := range shows {
		byID[shows[i].ID] = &shows[i]
	}
	for i := range spots {
		spots[i].Show = byID[spots[i].ShowID]
	}
	return nil
}

func (r *spotRepoGorm) withCounts(ctx context.Context, spots []model.Spot) ([]model.Spot, error) {
	ids := make([]uint, 0, len(spots))
	for _, spot := range spots {
		ids = append(ids, spot.ID)
	}
	counts, err := countBookings(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range spots {
		spots[i].BookedCount = counts[spots[i].ID]
	}
	return spots, nil
}

var snapshotTxOptions = &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}

// readSnapshot runs fn in a read-only repeatable read transaction, so every
// statement in it sees the same committed bookings.
func readSnapshot(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn, snapshotTxOptions)
}

type spotCount struct {
	SpotID uint
	Total  int64
}

// countBookings returns the number of bookings per spot. Spots without
// bookings are absent from the map.
func countBookings(ctx context.Context, db *gorm.DB, spotIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(spotIDs))
	if len(spotIDs) == 0 {
		return counts, nil
	}
	var rows []spotCount
	err := db.WithContext(ctx).
		Model(&model.Booking{}).
		Select("spot_id, COUNT(*) AS total").
		Where("spot_id IN ?", spotIDs).
		Group("spot_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.SpotID] = row.Total
	}
	return counts, nil
}
