package services

import (
	"context"

	"canopy/internal/domain/models"
)

// SpaceService handles space business logic
type SpaceService interface {
	// CreateSpace creates a new space
	CreateSpace(ctx context.Context, req *CreateSpaceRequest) (*models.Space, error)

	// GetSpace retrieves a space
	GetSpace(ctx context.Context, id string) (*models.Space, error)

	// ListSpaces lists all spaces
	ListSpaces(ctx context.Context) ([]models.Space, error)
}

// CreateSpaceRequest represents a space creation request
type CreateSpaceRequest struct {
	Name string `json:"name"`
}
