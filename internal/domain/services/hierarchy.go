package services

import (
	"context"

	"canopy/internal/domain/models"
)

// HierarchyService maintains and queries the materialized closure relation
// over the live page forest.
type HierarchyService interface {
	// RebuildAll recomputes the closure relation for every live page across
	// all spaces and swaps it in atomically. Returns the number of edges
	// written and whether the global rebuild lock was acquired; acquired is
	// false with no error when another process holds it. A rebuild of an
	// empty forest is acquired=true, written=0.
	RebuildAll(ctx context.Context) (written int, acquired bool, err error)

	// RebuildSpace recomputes the closure slice for one space. Returns the
	// number of edges written and whether the space's rebuild lock was
	// acquired; acquired is false with no error when another process holds it.
	RebuildSpace(ctx context.Context, spaceID string) (written int, acquired bool, err error)

	// CheckIntegrity compares the stored relation against the closure
	// recomputed from live pages. Read-only, safe to run on a schedule.
	CheckIntegrity(ctx context.Context) (*models.IntegrityReport, error)

	// Repair runs CheckIntegrity and rebuilds each affected space whose lock
	// it can acquire. Eventually consistent across repeated invocations.
	Repair(ctx context.Context) (*models.RepairResult, error)

	// GetAncestors returns a page's live ancestors ordered root-first
	GetAncestors(ctx context.Context, pageID string) ([]models.Page, error)

	// GetDescendants returns a page's live descendants, unordered
	GetDescendants(ctx context.Context, pageID string) ([]models.Page, error)

	// GetBreadcrumbs returns the ancestor path including the page itself,
	// ordered root-first
	GetBreadcrumbs(ctx context.Context, pageID string) ([]models.Breadcrumb, error)
}
