package services

import (
	"context"

	"canopy/internal/domain/models"
)

// GroupService manages principal groups and their memberships
type GroupService interface {
	// CreateGroup creates a new group
	CreateGroup(ctx context.Context, req *CreateGroupRequest) (*models.Group, error)

	// AddMember adds a user to a group (idempotent)
	AddMember(ctx context.Context, groupID, userID string) error

	// RemoveMember removes a user from a group
	RemoveMember(ctx context.Context, groupID, userID string) error
}

// CreateGroupRequest represents a group creation request
type CreateGroupRequest struct {
	Name string `json:"name"`
}
