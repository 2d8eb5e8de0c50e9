package repositories

import (
	"context"

	"canopy/internal/domain/models"
)

// HierarchyRepository owns the materialized closure relation. Rows are only
// ever written through the Replace operations, wholesale and inside one
// transaction - page mutation code paths never insert edges directly.
type HierarchyRepository interface {
	// ReplaceAll swaps the entire relation for the given edges and returns
	// the number of edges written
	ReplaceAll(ctx context.Context, edges []models.HierarchyEdge) (int, error)

	// ReplaceSpace deletes every edge whose descendant belongs to the space,
	// inserts the given edges and returns the number written
	ReplaceSpace(ctx context.Context, spaceID string, edges []models.HierarchyEdge) (int, error)

	// ListAll retrieves the stored relation
	ListAll(ctx context.Context) ([]models.HierarchyEdge, error)

	// ListAncestors retrieves a page's live ancestors ordered root-first,
	// the page itself excluded
	ListAncestors(ctx context.Context, pageID string) ([]models.Page, error)

	// ListDescendants retrieves a page's live descendants, unordered,
	// the page itself excluded
	ListDescendants(ctx context.Context, pageID string) ([]models.Page, error)
}
