package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ostrval/carpooling/internal/common"
	"github.com/ostrval/carpooling/internal/server/models"
	"github.com/ostrval/carpooling/internal/server/repositories/trips"
)

type TripService struct {
	repo trips.Repository
}

func NewTripService(repo trips.Repository) *TripService {
	return &TripService{repo: repo}
}

func (s *TripService) CreateTrip(ctx context.Context, userID int64, companions []int64, date time.Time) (*models.Trip, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: trip date must be set", common.ErrValidation)
	}

	trip, err := s.repo.Create(ctx, &models.Trip{
		UserID:     userID,
		Companions: companions,
		Date:       date,
	})
	if err != nil {
		return nil, fmt.Errorf("creating trip: %w", err)
	}
	return trip, nil
}

func (s *TripService) GetTrip(ctx context.Context, id int64) (*models.Trip, error) {
	return s.repo.Get(ctx, id)
}

// AddCompanion joins userID to the trip. Adding a user who is already a
// companion is a no-op and returns the trip unchanged. The append itself is
// a single atomic store operation, so concurrent adds to the same trip all
// land; the service never reconstructs the companion list in memory.
func (s *TripService) AddCompanion(ctx context.Context, tripID, userID int64) (*models.Trip, error) {
	if err := s.repo.AddCompanion(ctx, tripID, userID); err != nil {
		return nil, fmt.Errorf("updating companions: %w", err)
	}

	// The guarded append is silent for absent trips; Get reports them.
	return s.repo.Get(ctx, tripID)
}
