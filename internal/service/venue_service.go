package service

import (
	"context"
	"errors"
	"fmt"

	"goeventcity/internal/config"
	"goeventcity/internal/database"
	"goeventcity/internal/domain"
	"goeventcity/internal/models"

	"github.com/rs/zerolog"
)

type VenueService struct {
	repo   domain.Repository
	logger *zerolog.Logger
}

func NewVenueService(repo domain.Repository, logger *zerolog.Logger) *VenueService {
	return &VenueService{repo: repo, logger: logger}
}

func (s *VenueService) GetActiveVenues(ctx context.Context) ([]*models.Venue, error) {
	return s.repo.GetActiveVenues(ctx)
}

// GetVenueByID returns only active venues; a deactivated venue cannot be
// booked.
func (s *VenueService) GetVenueByID(ctx context.Context, id int64) (*models.Venue, error) {
	venue, err := s.repo.GetVenueByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrVenueNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if !venue.IsActive {
		return nil, fmt.Errorf("%w: %d", ErrVenueNotFound, id)
	}
	return venue, nil
}

// Sync validates the catalog and replaces the stored one.
func (s *VenueService) Sync(ctx context.Context, venues []*models.Venue) error {
	if err := config.ValidateVenues(venues); err != nil {
		return err
	}
	if err := s.repo.SyncVenues(ctx, venues); err != nil {
		return err
	}
	s.logger.Info().Int("venues", len(venues)).Msg("Venue catalog synced")
	return nil
}
