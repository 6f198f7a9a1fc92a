package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs-lzh/miccheck/internal/repository/repotest"
	"github.com/qs-lzh/miccheck/internal/service"
)

func TestListUpcoming(t *testing.T) {
	store := repotest.NewStore()
	yesterday := addShow(t, store, today.AddDate(0, 0, -1))
	tomorrow := addShow(t, store, today.AddDate(0, 0, 1))
	todays := addShow(t, store, today)
	addSpot(t, store, yesterday, 14, "150", 1)
	late := addSpot(t, store, todays, 22, "150", 1)
	early := addSpot(t, store, todays, 14, "150", 2)
	next := addSpot(t, store, tomorrow, 16, "150", 1)

	_, err := NewBookingService(store).CreateBooking(context.Background(), bookingRequest(ids(early), ""))
	require.NoError(t, err)

	svc := NewInventoryService(store.Repos().Shows, store.Repos().Spots)

	shows, err := svc.ListUpcomingShows(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, todays.ID, shows[0].ID)
	assert.Equal(t, tomorrow.ID, shows[1].ID)
	assert.Equal(t, ids(early, late), ids(shows[0].Spots...))

	spots, err := svc.ListUpcomingSpots(context.Background(), today)
	require.NoError(t, err)
	assert.Equal(t, ids(early, late, next), ids(spots...))

	assert.Equal(t, int64(1), spots[0].BookedCount)
	assert.False(t, spots[0].IsFull())
	assert.Equal(t, int64(1), spots[0].SpotsRemaining())
	assert.Equal(t, int64(0), spots[1].BookedCount)
	require.NotNil(t, spots[2].Show)
	assert.Equal(t, tomorrow.Date, spots[2].Show.Date)
}

func TestListUpcomingStorageFailure(t *testing.T) {
	store := repotest.NewStore()
	store.Err = errors.New("i/o timeout")
	svc := NewInventoryService(store.Repos().Shows, store.Repos().Spots)

	_, err := svc.ListUpcomingShows(context.Background(), today)
	assert.ErrorIs(t, err, service.ErrStorageUnavailable)
	_, err = svc.ListUpcomingSpots(context.Background(), today)
	assert.ErrorIs(t, err, service.ErrStorageUnavailable)
}
