package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
	"canopy/internal/domain/services"
)

type hierarchyService struct {
	pageRepo      repositories.PageRepository
	hierarchyRepo repositories.HierarchyRepository
	lockManager   repositories.LockManager
	txManager     repositories.TransactionManager
	logger        *slog.Logger
}

// NewHierarchyService creates a new hierarchy service
func NewHierarchyService(
	pageRepo repositories.PageRepository,
	hierarchyRepo repositories.HierarchyRepository,
	lockManager repositories.LockManager,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.HierarchyService {
	return &hierarchyService{
		pageRepo:      pageRepo,
		hierarchyRepo: hierarchyRepo,
		lockManager:   lockManager,
		txManager:     txManager,
		logger:        logger,
	}
}

// RebuildAll recomputes the closure relation for every live page across all
// spaces. The delete, recompute and insert happen inside one transaction
// guarded by the global rebuild lock; readers see either the old relation or
// the new one, never a mix.
func (s *hierarchyService) RebuildAll(ctx context.Context) (int, bool, error) {
	var written int
	var acquired bool

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		acquired, err = s.lockManager.TryAcquireGlobal(txCtx)
		if err != nil {
			return err
		}
		if !acquired {
			return nil
		}

		pages, err := s.pageRepo.ListLive(txCtx)
		if err != nil {
			return err
		}

		written, err = s.hierarchyRepo.ReplaceAll(txCtx, buildClosure(pages))
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("rebuild hierarchy: %w", err)
	}

	if !acquired {
		s.logger.Debug("global rebuild lock held elsewhere, skipping")
		return 0, false, nil
	}

	s.logger.Info("hierarchy rebuilt", "edges", written)
	return written, true, nil
}

// RebuildSpace recomputes the closure slice for one space. This is the
// normal-path operation after any page create, move or delete.
func (s *hierarchyService) RebuildSpace(ctx context.Context, spaceID string) (int, bool, error) {
	written, acquired, err := s.tryRebuildSpace(ctx, spaceID)
	if err != nil {
		return 0, false, err
	}
	if !acquired {
		s.logger.Debug("space rebuild lock held elsewhere, skipping", "space_id", spaceID)
		return 0, false, nil
	}

	s.logger.Info("space hierarchy rebuilt", "space_id", spaceID, "edges", written)
	return written, true, nil
}

// CheckIntegrity recomputes the expected closure from live pages and compares
// it against the stored relation, pair by pair. Read-only: discrepancies are
// reported, never raised on normal read/write paths.
func (s *hierarchyService) CheckIntegrity(ctx context.Context) (*models.IntegrityReport, error) {
	stored, err := s.hierarchyRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("check integrity: %w", err)
	}

	allPages, err := s.pageRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("check integrity: %w", err)
	}

	var live []models.Page
	pagesByID := make(map[string]models.Page, len(allPages))
	for _, page := range allPages {
		pagesByID[page.ID] = page
		if page.IsLive() {
			live = append(live, page)
		}
	}

	report := diffClosure(stored, buildClosure(live), pagesByID)

	if !report.Healthy {
		s.logger.Warn("hierarchy integrity check found discrepancies",
			"extra_entries", report.ExtraEntries,
			"missing_entries", report.MissingEntries,
			"affected_spaces", len(report.AffectedSpaceIDs),
		)
	}

	return report, nil
}

// Repair rebuilds each affected space whose lock it can acquire. Spaces under
// contention are skipped and picked up by a later pass, so repair is
// eventually consistent across repeated invocations.
func (s *hierarchyService) Repair(ctx context.Context) (*models.RepairResult, error) {
	report, err := s.CheckIntegrity(ctx)
	if err != nil {
		return nil, err
	}
	if report.Healthy {
		return &models.RepairResult{}, nil
	}

	result := &models.RepairResult{}
	for _, spaceID := range report.AffectedSpaceIDs {
		written, acquired, err := s.tryRebuildSpace(ctx, spaceID)
		if err != nil {
			return nil, err
		}
		if !acquired {
			s.logger.Debug("repair skipped space under rebuild", "space_id", spaceID)
			continue
		}

		result.RebuiltSpaces++
		s.logger.Info("repair rebuilt space", "space_id", spaceID, "edges", written)
	}

	return result, nil
}

// GetAncestors returns a page's live ancestors ordered root-first
func (s *hierarchyService) GetAncestors(ctx context.Context, pageID string) ([]models.Page, error) {
	return s.hierarchyRepo.ListAncestors(ctx, pageID)
}

// GetDescendants returns a page's live descendants, unordered
func (s *hierarchyService) GetDescendants(ctx context.Context, pageID string) ([]models.Page, error) {
	return s.hierarchyRepo.ListDescendants(ctx, pageID)
}

// GetBreadcrumbs returns the ancestor path including the page itself,
// ordered root-first
func (s *hierarchyService) GetBreadcrumbs(ctx context.Context, pageID string) ([]models.Breadcrumb, error) {
	page, err := s.pageRepo.GetLive(ctx, pageID)
	if err != nil {
		return nil, err
	}

	ancestors, err := s.hierarchyRepo.ListAncestors(ctx, pageID)
	if err != nil {
		return nil, err
	}

	crumbs := make([]models.Breadcrumb, 0, len(ancestors)+1)
	for i, ancestor := range ancestors {
		crumbs = append(crumbs, models.Breadcrumb{
			PageID: ancestor.ID,
			Title:  ancestor.Title,
			Depth:  len(ancestors) - i,
		})
	}
	crumbs = append(crumbs, models.Breadcrumb{PageID: page.ID, Title: page.Title, Depth: 0})

	return crumbs, nil
}

// tryRebuildSpace runs the delete + recompute + insert for one space inside a
// transaction guarded by the space's rebuild lock. Returns acquired=false
// (no error) when another process holds the lock; the transaction then
// commits having written nothing.
func (s *hierarchyService) tryRebuildSpace(ctx context.Context, spaceID string) (written int, acquired bool, err error) {
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		var err error
		acquired, err = s.lockManager.TryAcquireSpace(txCtx, spaceID)
		if err != nil {
			return err
		}
		if !acquired {
			return nil
		}

		pages, err := s.pageRepo.ListLiveBySpace(txCtx, spaceID)
		if err != nil {
			return err
		}

		written, err = s.hierarchyRepo.ReplaceSpace(txCtx, spaceID, buildClosure(pages))
		return err
	})
	if err != nil {
		return 0, false, fmt.Errorf("rebuild space %s: %w", spaceID, err)
	}

	return written, acquired, nil
}

// buildClosure constructs the transitive closure of the live forest: one
// edge per reachable (ancestor, descendant) pair, the reflexive (id, id, 0)
// pair included. Pages are reachable only through live parent links starting
// at a root, so the subtree under a soft-deleted page is excluded entirely
// even if its pages are still marked live. Output is sorted so identical
// input always yields identical relation contents.
func buildClosure(pages []models.Page) []models.HierarchyEdge {
	children := make(map[string][]string)
	var roots []string
	for _, page := range pages {
		if page.ParentPageID == nil {
			roots = append(roots, page.ID)
		} else {
			children[*page.ParentPageID] = append(children[*page.ParentPageID], page.ID)
		}
	}
	sort.Strings(roots)
	for _, ids := range children {
		sort.Strings(ids)
	}

	// Breadth-first over the frontier of known (ancestor, descendant, depth)
	// pairs, joining live children on at depth+1 until no new pairs appear.
	var edges []models.HierarchyEdge
	frontier := make([]models.HierarchyEdge, 0, len(roots))
	for _, id := range roots {
		frontier = append(frontier, models.HierarchyEdge{AncestorPageID: id, DescendantPageID: id, Depth: 0})
	}

	for len(frontier) > 0 {
		edges = append(edges, frontier...)

		var next []models.HierarchyEdge
		for _, edge := range frontier {
			for _, childID := range children[edge.DescendantPageID] {
				next = append(next, models.HierarchyEdge{
					AncestorPageID:   edge.AncestorPageID,
					DescendantPageID: childID,
					Depth:            edge.Depth + 1,
				})
				// A newly reached child starts its own descendant frontier
				if edge.Depth == 0 {
					next = append(next, models.HierarchyEdge{
						AncestorPageID:   childID,
						DescendantPageID: childID,
						Depth:            0,
					})
				}
			}
		}
		frontier = next
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].AncestorPageID != edges[j].AncestorPageID {
			return edges[i].AncestorPageID < edges[j].AncestorPageID
		}
		return edges[i].DescendantPageID < edges[j].DescendantPageID
	})

	return edges
}

// diffClosure full-outer-compares the stored relation against the expected
// one and attributes every discrepancy to a space via the descendant's page
// row, falling back to the ancestor's when the descendant no longer exists.
func diffClosure(stored, expected []models.HierarchyEdge, pagesByID map[string]models.Page) *models.IntegrityReport {
	key := func(e models.HierarchyEdge) string {
		return fmt.Sprintf("%s|%s|%d", e.AncestorPageID, e.DescendantPageID, e.Depth)
	}

	storedSet := make(map[string]models.HierarchyEdge, len(stored))
	for _, edge := range stored {
		storedSet[key(edge)] = edge
	}
	expectedSet := make(map[string]models.HierarchyEdge, len(expected))
	for _, edge := range expected {
		expectedSet[key(edge)] = edge
	}

	report := &models.IntegrityReport{}
	affected := make(map[string]bool)

	markAffected := func(edge models.HierarchyEdge) {
		if page, ok := pagesByID[edge.DescendantPageID]; ok {
			affected[page.SpaceID] = true
			return
		}
		if page, ok := pagesByID[edge.AncestorPageID]; ok {
			affected[page.SpaceID] = true
		}
	}

	for k, edge := range storedSet {
		if _, ok := expectedSet[k]; !ok {
			report.ExtraEntries++
			markAffected(edge)
		}
	}
	for k, edge := range expectedSet {
		if _, ok := storedSet[k]; !ok {
			report.MissingEntries++
			markAffected(edge)
		}
	}

	report.Healthy = report.ExtraEntries == 0 && report.MissingEntries == 0
	report.AffectedSpaceIDs = make([]string, 0, len(affected))
	for spaceID := range affected {
		report.AffectedSpaceIDs = append(report.AffectedSpaceIDs, spaceID)
	}
	sort.Strings(report.AffectedSpaceIDs)

	return report
}
