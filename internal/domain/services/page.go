package services

import (
	"context"

	"canopy/internal/domain/models"
)

// PageService handles page lifecycle. Every mutation notifies the hierarchy
// service so the closure slice of the affected space(s) is rebuilt.
type PageService interface {
	// CreatePage creates a page under the given parent (or at the space root)
	CreatePage(ctx context.Context, req *CreatePageRequest) (*models.Page, error)

	// GetPage retrieves a live page
	GetPage(ctx context.Context, id string) (*models.Page, error)

	// ListSpacePages lists all live pages of a space (flat)
	ListSpacePages(ctx context.Context, spaceID string) ([]models.Page, error)

	// MovePage re-parents a page, possibly across spaces
	MovePage(ctx context.Context, id string, req *MovePageRequest) (*models.Page, error)

	// DeletePage soft-deletes a page
	DeletePage(ctx context.Context, id string) error

	// RestorePage clears a page's soft-delete marker
	RestorePage(ctx context.Context, id string) (*models.Page, error)
}

// CreatePageRequest represents a page creation request
type CreatePageRequest struct {
	SpaceID      string  `json:"space_id"`
	ParentPageID *string `json:"parent_page_id,omitempty"` // null for space root
	Title        string  `json:"title"`
	Position     int     `json:"position,omitempty"`
}

// MovePageRequest represents a re-parent request. With a nil ParentPageID the
// page moves to the root of SpaceID (or of its current space when SpaceID is
// also nil); otherwise the destination space is the parent's space.
type MovePageRequest struct {
	ParentPageID *string `json:"parent_page_id,omitempty"`
	SpaceID      *string `json:"space_id,omitempty"`
}
