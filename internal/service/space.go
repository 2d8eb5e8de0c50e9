package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"canopy/internal/config"
	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
	"canopy/internal/domain/services"
)

type spaceService struct {
	spaceRepo repositories.SpaceRepository
	logger    *slog.Logger
}

// NewSpaceService creates a new space service
func NewSpaceService(spaceRepo repositories.SpaceRepository, logger *slog.Logger) services.SpaceService {
	return &spaceService{
		spaceRepo: spaceRepo,
		logger:    logger,
	}
}

// CreateSpace creates a new space
func (s *spaceService) CreateSpace(ctx context.Context, req *services.CreateSpaceRequest) (*models.Space, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxSpaceNameLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	space := &models.Space{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.spaceRepo.Create(ctx, space); err != nil {
		return nil, err
	}

	s.logger.Info("space created", "id", space.ID, "name", space.Name)
	return space, nil
}

// GetSpace retrieves a space
func (s *spaceService) GetSpace(ctx context.Context, id string) (*models.Space, error) {
	return s.spaceRepo.GetByID(ctx, id)
}

// ListSpaces lists all spaces
func (s *spaceService) ListSpaces(ctx context.Context) ([]models.Space, error) {
	return s.spaceRepo.List(ctx)
}
