package repositories

import (
	"context"

	"canopy/internal/domain/models"
)

// PageRepository defines data access for page records. Pages are the source
// of truth for the hierarchy; the closure relation is derived from them.
type PageRepository interface {
	// Create inserts a new page
	Create(ctx context.Context, page *models.Page) error

	// GetByID retrieves a page by ID, including soft-deleted pages
	GetByID(ctx context.Context, id string) (*models.Page, error)

	// GetLive retrieves a live (non-deleted) page by ID
	GetLive(ctx context.Context, id string) (*models.Page, error)

	// ListLive retrieves every live page across all spaces
	ListLive(ctx context.Context) ([]models.Page, error)

	// ListAll retrieves every page, soft-deleted included
	ListAll(ctx context.Context) ([]models.Page, error)

	// ListLiveBySpace retrieves all live pages in a space
	ListLiveBySpace(ctx context.Context, spaceID string) ([]models.Page, error)

	// ListLiveByIDs retrieves the live subset of the given pages
	ListLiveByIDs(ctx context.Context, ids []string) ([]models.Page, error)

	// ListLiveChildren retrieves the live direct children of a page
	ListLiveChildren(ctx context.Context, parentID string) ([]models.Page, error)

	// Move re-parents a live page and assigns the target space to the page
	// and its entire live subtree (a cross-space move carries the subtree along)
	Move(ctx context.Context, id string, parentPageID *string, spaceID string) error

	// SoftDelete marks a live page deleted
	SoftDelete(ctx context.Context, id string) error

	// Restore clears the soft-delete marker
	Restore(ctx context.Context, id string) error

	// GetAncestorChains walks live parent_page_id links for each requested
	// page and returns its chain ordered from the page itself up to the root,
	// the page included. Pages that are deleted or unknown have no entry.
	GetAncestorChains(ctx context.Context, pageIDs []string) (map[string][]string, error)
}
