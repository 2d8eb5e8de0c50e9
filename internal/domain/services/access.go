package services

import (
	"context"

	"canopy/internal/domain/models"
)

// AccessService resolves effective page roles for users, honoring cascading
// denial along the live ancestor chain, and manages permission grants.
//
// A nil role means "no access decision available": no grant matched anywhere
// in the chain and the caller is expected to fall back to space-level rules.
type AccessService interface {
	// ResolveAccess resolves the effective role for one page. Defined as
	// batch resolution with a one-element input so the two never diverge.
	ResolveAccess(ctx context.Context, userID, pageID string) (*models.Role, error)

	// ResolveAccessBatch resolves the effective role for many pages in one
	// pass. Every requested page has an entry in the result.
	ResolveAccessBatch(ctx context.Context, userID string, pageIDs []string) (map[string]*models.Role, error)

	// GetAccessiblePageIDs filters candidate pages of a space down to those
	// the user may access, excluding pages that resolve to an explicit denial
	GetAccessiblePageIDs(ctx context.Context, userID, spaceID string, candidatePageIDs []string) ([]string, error)

	// GetUserPageIDs lists every page the user holds any positive role on,
	// via direct or group grant, ignoring ancestor cascading
	GetUserPageIDs(ctx context.Context, userID string) ([]string, error)

	// ListGrants lists the live grants attached directly to a page
	ListGrants(ctx context.Context, pageID string) ([]models.PagePermission, error)

	// GrantRole records a grant for a page and principal
	GrantRole(ctx context.Context, req *GrantRoleRequest) (*models.PagePermission, error)

	// RevokeRole soft-deletes the grant for a page and principal
	RevokeRole(ctx context.Context, req *RevokeRoleRequest) error
}

// GrantRoleRequest represents a grant creation/update request
type GrantRoleRequest struct {
	PageID  string      `json:"page_id"`
	UserID  *string     `json:"user_id,omitempty"`
	GroupID *string     `json:"group_id,omitempty"`
	Role    models.Role `json:"role"`
}

// RevokeRoleRequest represents a grant revocation request
type RevokeRoleRequest struct {
	PageID  string  `json:"page_id"`
	UserID  *string `json:"user_id,omitempty"`
	GroupID *string `json:"group_id,omitempty"`
}
