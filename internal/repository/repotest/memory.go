// Package repotest provides an in-memory implementation of the repository
// interfaces for tests.
package repotest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/repository"
)

// Store keeps every table in memory. Do runs one unit of work at a time,
// which gives the same serialisation row locks give on spots, and restores
// the tables when the work fails.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	shows    []model.Show
	spots    []model.Spot
	coupons  []model.Coupon
	bookings []model.Booking
	nextID   uint

	// Err, when set, is returned by every repository call.
	Err error
	// Now stamps CreatedAt on bookings.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{Now: time.Now}
}

var _ repository.UnitOfWork = (*Store)(nil)

func (s *Store) Repos() repository.Repos {
	return repository.Repos{
		Shows:    showRepo{s},
		Spots:    spotRepo{s},
		Coupons:  couponRepo{s},
		Bookings: bookingRepo{s},
	}
}

func (s *Store) Do(ctx context.Context, fn func(repos repository.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.snapshot()
	s.mu.Unlock()

	if err := fn(s.Repos()); err != nil {
		s.mu.Lock()
		s.restore(snapshot)
		s.mu.Unlock()
		return err
	}
	return nil
}

// Bookings returns a copy of all stored bookings.
func (s *Store) Bookings() []model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.bookings)
}

type tables struct {
	shows    []model.Show
	spots    []model.Spot
	coupons  []model.Coupon
	bookings []model.Booking
	nextID   uint
}

func (s *Store) snapshot() tables {
	return tables{
		shows:    slices.Clone(s.shows),
		spots:    slices.Clone(s.spots),
		coupons:  slices.Clone(s.coupons),
		bookings: slices.Clone(s.bookings),
		nextID:   s.nextID,
	}
}

func (s *Store) restore(t tables) {
	s.shows, s.spots, s.coupons, s.bookings, s.nextID = t.shows, t.spots, t.coupons, t.bookings, t.nextID
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

func (s *Store) showByID(id uint) *model.Show {
	for i := range s.shows {
		if s.shows[i].ID == id {
			show := s.shows[i]
			show.Spots = nil
			return &show
		}
	}
	return nil
}

func (s *Store) count(spotID uint) int64 {
	var n int64
	for _, b := range s.bookings {
		if b.SpotID == spotID {
			n++
		}
	}
	return n
}

// annotate returns a copy of spot carrying its show and booked count.
func (s *Store) annotate(spot model.Spot) model.Spot {
	spot.Show = s.showByID(spot.ShowID)
	spot.BookedCount = s.count(spot.ID)
	return spot
}

func (s *Store) upcomingSpots(today time.Time) []model.Spot {
	from := model.DateOf(today)
	var spots []model.Spot
	for _, spot := range s.spots {
		show := s.showByID(spot.ShowID)
		if show == nil || show.Date.Before(from) {
			continue
		}
		spots = append(spots, s.annotate(spot))
	}
	slices.SortStableFunc(spots, func(a, b model.Spot) int {
		if c := a.Show.Date.Compare(b.Show.Date); c != 0 {
			return c
		}
		switch {
		case a.Time.Before(b.Time):
			return -1
		case b.Time.Before(a.Time):
			return 1
		}
		return 0
	})
	return spots
}

type showRepo struct{ s *Store }

func (r showRepo) WithTx(*gorm.DB) repository.ShowRepo { return r }

func (r showRepo) Create(_ context.Context, show *model.Show) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	show.Date = model.DateOf(show.Date)
	for _, existing := range r.s.shows {
		if existing.Date.Equal(show.Date) {
			return gorm.ErrDuplicatedKey
		}
	}
	show.ID = r.s.id()
	stored := *show
	stored.Spots = nil
	r.s.shows = append(r.s.shows, stored)
	return nil
}

func (r showRepo) FirstOrCreate(ctx context.Context, show *model.Show) (bool, error) {
	existing, err := r.GetByDate(ctx, show.Date)
	if err == nil {
		*show = *existing
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}
	return true, r.Create(ctx, show)
}

func (r showRepo) GetByDate(_ context.Context, date time.Time) (*model.Show, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	date = model.DateOf(date)
	for _, show := range r.s.shows {
		if show.Date.Equal(date) {
			return &show, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r showRepo) ListUpcoming(_ context.Context, today time.Time) ([]model.Show, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var shows []model.Show
	index := make(map[uint]int)
	for _, spot := range r.s.upcomingSpots(today) {
		i, ok := index[spot.ShowID]
		if !ok {
			i = len(shows)
			index[spot.ShowID] = i
			shows = append(shows, *spot.Show)
		}
		shows[i].Spots = append(shows[i].Spots, spot)
	}
	// shows without spots are still listed
	from := model.DateOf(today)
	for _, show := range r.s.shows {
		if _, ok := index[show.ID]; !ok && !show.Date.Before(from) {
			shows = append(shows, show)
		}
	}
	slices.SortStableFunc(shows, func(a, b model.Show) int { return a.Date.Compare(b.Date) })
	return shows, nil
}

type spotRepo struct{ s *Store }

func (r spotRepo) WithTx(*gorm.DB) repository.SpotRepo { return r }

func (r spotRepo) Create(_ context.Context, spot *model.Spot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	if r.s.showByID(spot.ShowID) == nil {
		return gorm.ErrForeignKeyViolated
	}
	for _, existing := range r.s.spots {
		if existing.ShowID == spot.ShowID && existing.Time == spot.Time {
			return gorm.ErrDuplicatedKey
		}
	}
	spot.ID = r.s.id()
	stored := *spot
	stored.Show, stored.Bookings, stored.BookedCount = nil, nil, 0
	r.s.spots = append(r.s.spots, stored)
	return nil
}

func (r spotRepo) FirstOrCreate(ctx context.Context, spot *model.Spot) (bool, error) {
	r.s.mu.Lock()
	if r.s.Err != nil {
		r.s.mu.Unlock()
		return false, r.s.Err
	}
	for _, existing := range r.s.spots {
		if existing.ShowID == spot.ShowID && existing.Time == spot.Time {
			*spot = existing
			r.s.mu.Unlock()
			return false, nil
		}
	}
	r.s.mu.Unlock()
	return true, r.Create(ctx, spot)
}

func (r spotRepo) GetByIDs(_ context.Context, ids []uint) ([]model.Spot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var spots []model.Spot
	for _, spot := range r.s.spots {
		if slices.Contains(ids, spot.ID) {
			spots = append(spots, r.s.annotate(spot))
		}
	}
	slices.SortFunc(spots, func(a, b model.Spot) int { return int(a.ID) - int(b.ID) })
	return spots, nil
}

func (r spotRepo) LockByIDs(ctx context.Context, ids []uint) ([]model.Spot, error) {
	return r.GetByIDs(ctx, ids)
}

func (r spotRepo) ListUpcoming(_ context.Context, today time.Time) ([]model.Spot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	return r.s.upcomingSpots(today), nil
}

type couponRepo struct{ s *Store }

func (r couponRepo) WithTx(*gorm.DB) repository.CouponRepo { return r }

func (r couponRepo) Create(_ context.Context, coupon *model.Coupon) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, existing := range r.s.coupons {
		if strings.EqualFold(existing.Code, coupon.Code) {
			return gorm.ErrDuplicatedKey
		}
	}
	coupon.ID = r.s.id()
	r.s.coupons = append(r.s.coupons, *coupon)
	return nil
}

func (r couponRepo) FirstOrCreate(ctx context.Context, coupon *model.Coupon) (bool, error) {
	r.s.mu.Lock()
	if r.s.Err != nil {
		r.s.mu.Unlock()
		return false, r.s.Err
	}
	for _, existing := range r.s.coupons {
		if strings.EqualFold(existing.Code, coupon.Code) {
			*coupon = existing
			r.s.mu.Unlock()
			return false, nil
		}
	}
	r.s.mu.Unlock()
	return true, r.Create(ctx, coupon)
}

func (r couponRepo) GetActiveByCode(_ context.Context, code string) (*model.Coupon, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	for _, coupon := range r.s.coupons {
		if coupon.IsActive && strings.EqualFold(coupon.Code, code) {
			return &coupon, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type bookingRepo struct{ s *Store }

func (r bookingRepo) WithTx(*gorm.DB) repository.BookingRepo { return r }

func (r bookingRepo) CreateBatch(_ context.Context, bookings []model.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return r.s.Err
	}
	for _, b := range bookings {
		if b.AmountPaid.IsNegative() {
			return gorm.ErrCheckConstraintViolated
		}
		if !slices.ContainsFunc(r.s.spots, func(spot model.Spot) bool { return spot.ID == b.SpotID }) {
			return gorm.ErrForeignKeyViolated
		}
	}
	for i := range bookings {
		bookings[i].ID = r.s.id()
		bookings[i].CreatedAt = r.s.Now()
		stored := bookings[i]
		stored.Coupon = nil
		r.s.bookings = append(r.s.bookings, stored)
	}
	return nil
}

func (r bookingRepo) CountBySpotIDs(_ context.Context, spotIDs []uint) (map[uint]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	counts := make(map[uint]int64, len(spotIDs))
	for _, id := range spotIDs {
		if n := r.s.count(id); n > 0 {
			counts[id] = n
		}
	}
	return counts, nil
}

func (r bookingRepo) ListBySpotID(_ context.Context, spotID uint) ([]model.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.Err != nil {
		return nil, r.s.Err
	}
	var bookings []model.Booking
	for _, b := range r.s.bookings {
		if b.SpotID == spotID {
			bookings = append(bookings, b)
		}
	}
	return bookings, nil
}
