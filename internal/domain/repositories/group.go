package repositories

import (
	"context"

	"canopy/internal/domain/models"
)

// GroupRepository defines data access for groups and memberships
type GroupRepository interface {
	// Create inserts a new group
	Create(ctx context.Context, group *models.Group) error

	// AddMember adds a user to a group (idempotent)
	AddMember(ctx context.Context, groupID, userID string) error

	// RemoveMember removes a user from a group
	RemoveMember(ctx context.Context, groupID, userID string) error

	// GetUserGroupIDs expands a user into the set of groups whose grants apply
	GetUserGroupIDs(ctx context.Context, userID string) ([]string, error)
}
