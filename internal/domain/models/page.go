package models

import (
	"time"
)

type Page struct {
	ID           string     `json:"id" db:"id"`
	SpaceID      string     `json:"space_id" db:"space_id"`
	ParentPageID *string    `json:"parent_page_id" db:"parent_page_id"` // NULL = space root
	Title        string     `json:"title" db:"title"`
	Position     int        `json:"position" db:"position"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"` // soft-delete marker
}

// IsLive reports whether the page is part of the live forest.
func (p *Page) IsLive() bool {
	return p.DeletedAt == nil
}

// Breadcrumb is one step of a page's ancestor path, root first.
type Breadcrumb struct {
	PageID string `json:"page_id"`
	Title  string `json:"title"`
	Depth  int    `json:"depth"` // 0 = the page itself, counting up toward the root
}
