package models

// HierarchyEdge is one row of the materialized closure relation: the page
// ancestor_page_id is an ancestor of descendant_page_id at the given depth.
// Every live page carries the reflexive edge (id, id, 0). The relation is
// fully derived from Page rows and is rebuilt wholesale, never edited in place.
type HierarchyEdge struct {
	AncestorPageID   string `json:"ancestor_page_id" db:"ancestor_page_id"`
	DescendantPageID string `json:"descendant_page_id" db:"descendant_page_id"`
	Depth            int    `json:"depth" db:"depth"`
}

// IntegrityReport is the result of comparing the stored closure relation
// against the closure recomputed from live pages.
type IntegrityReport struct {
	Healthy          bool     `json:"healthy"`
	ExtraEntries     int      `json:"extra_entries"`   // stored but not expected (stale rows)
	MissingEntries   int      `json:"missing_entries"` // expected but not stored
	AffectedSpaceIDs []string `json:"affected_space_ids"`
}

// RepairResult reports how many spaces a repair pass actually rebuilt.
// Spaces whose rebuild lock was held by another process are skipped and
// picked up on a later pass.
type RepairResult struct {
	RebuiltSpaces int `json:"rebuilt_spaces"`
}
