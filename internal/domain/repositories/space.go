package repositories

import (
	"context"

	"canopy/internal/domain/models"
)

// SpaceRepository defines data access operations for spaces
type SpaceRepository interface {
	// Create inserts a new space
	Create(ctx context.Context, space *models.Space) error

	// GetByID retrieves a space by ID
	GetByID(ctx context.Context, id string) (*models.Space, error)

	// List retrieves all spaces
	List(ctx context.Context) ([]models.Space, error)
}
