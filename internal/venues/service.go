package venues

import (
	"context"
	"errors"
	"fmt"

	"evently/internal/shared/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Service interface {
	CreateVenue(ctx context.Context, req CreateVenueRequest) (*VenueResponse, error)
	GetVenueByID(ctx context.Context, id uuid.UUID) (*VenueResponse, error)
	GetAllVenues(ctx context.Context) ([]VenueResponse, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateVenue(ctx context.Context, req CreateVenueRequest) (*VenueResponse, error) {
	venue := &Venue{
		Name:    req.Name,
		City:    req.City,
		Address: req.Address,
	}

	if err := s.repo.Create(ctx, venue); err != nil {
		return nil, fmt.Errorf("failed to create venue: %w", err)
	}

	resp := venue.ToResponse()
	return &resp, nil
}

func (s *service) GetVenueByID(ctx context.Context, id uuid.UUID) (*VenueResponse, error) {
	venue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("venue")
		}
		return nil, fmt.Errorf("failed to get venue: %w", err)
	}

	resp := venue.ToResponse()
	return &resp, nil
}

func (s *service) GetAllVenues(ctx context.Context) ([]VenueResponse, error) {
	venues, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}

	responses := make([]VenueResponse, len(venues))
	for i, v := range venues {
		responses[i] = v.ToResponse()
	}
	return responses, nil
}
