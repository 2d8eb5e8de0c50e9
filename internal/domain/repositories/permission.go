package repositories

import (
	"context"

	"canopy/internal/domain/models"
)

// PermissionRepository defines data access for page permission grants.
// The resolver only reads; writes come from the grant-management surface.
type PermissionRepository interface {
	// Upsert records a grant, replacing any live grant for the same
	// page and principal
	Upsert(ctx context.Context, perm *models.PagePermission) error

	// SoftDelete revokes the live grant for a page and principal
	SoftDelete(ctx context.Context, pageID string, userID, groupID *string) error

	// ListByPage retrieves all live grants on a page
	ListByPage(ctx context.Context, pageID string) ([]models.PagePermission, error)

	// ListMatching retrieves, in one pass, every live grant on any of the
	// given pages that matches the user directly or via one of the groups
	ListMatching(ctx context.Context, pageIDs []string, userID string, groupIDs []string) ([]models.PagePermission, error)

	// ListForPrincipals retrieves every live grant anywhere that matches the
	// user directly or via one of the groups (flat, no ancestor expansion)
	ListForPrincipals(ctx context.Context, userID string, groupIDs []string) ([]models.PagePermission, error)
}
