package domain

import (
	"context"
	"time"

	"github.com/qs-lzh/miccheck/internal/model"
	"github.com/qs-lzh/miccheck/internal/repository"
	"github.com/qs-lzh/miccheck/internal/service"
)

type InventoryService interface {
	ListUpcomingShows(ctx context.Context, today time.Time) ([]model.Show, error)
	ListUpcomingSpots(ctx context.Context, today time.Time) ([]model.Spot, error)
}

type inventoryService struct {
	showRepo repository.ShowRepo
	spotRepo repository.SpotRepo
}

var _ InventoryService = (*inventoryService)(nil)

func NewInventoryService(showRepo repository.ShowRepo, spotRepo repository.SpotRepo) *inventoryService {
	return &inventoryService{
		showRepo: showRepo,
		spotRepo: spotRepo,
	}
}

func (s *inventoryService) ListUpcomingShows(ctx context.Context, today time.Time) ([]model.Show, error) {
	shows, err := s.showRepo.ListUpcoming(ctx, today)
	if err != nil {
		return nil, service.ClassifyStorageError(err)
	}
	return shows, nil
}

func (s *inventoryService) ListUpcomingSpots(ctx context.Context, today time.Time) ([]model.Spot, error) {
	spots, err := s.spotRepo.ListUpcoming(ctx, today)
	if err != nil {
		return nil, service.ClassifyStorageError(err)
	}
	return spots, nil
}
