package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"canopy/internal/config"
	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
	"canopy/internal/domain/services"
)

type pageService struct {
	pageRepo  repositories.PageRepository
	spaceRepo repositories.SpaceRepository
	txManager repositories.TransactionManager
	hierarchy services.HierarchyService
	logger    *slog.Logger
}

// NewPageService creates a new page service. Every page mutation notifies
// the hierarchy service so the closure slice of the affected space(s) is
// rebuilt; a cross-space move rebuilds both source and destination.
func NewPageService(
	pageRepo repositories.PageRepository,
	spaceRepo repositories.SpaceRepository,
	txManager repositories.TransactionManager,
	hierarchy services.HierarchyService,
	logger *slog.Logger,
) services.PageService {
	return &pageService{
		pageRepo:  pageRepo,
		spaceRepo: spaceRepo,
		txManager: txManager,
		hierarchy: hierarchy,
		logger:    logger,
	}
}

// CreatePage creates a page under the given parent (or at the space root)
func (s *pageService) CreatePage(ctx context.Context, req *services.CreatePageRequest) (*models.Page, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.SpaceID, validation.Required),
		validation.Field(&req.Title, validation.Required, validation.Length(1, config.MaxPageTitleLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.spaceRepo.GetByID(ctx, req.SpaceID); err != nil {
		return nil, err
	}

	if req.ParentPageID != nil {
		parent, err := s.pageRepo.GetLive(ctx, *req.ParentPageID)
		if err != nil {
			return nil, err
		}
		if parent.SpaceID != req.SpaceID {
			return nil, fmt.Errorf("parent page belongs to another space: %w", domain.ErrValidation)
		}
	}

	now := time.Now()
	page := &models.Page{
		ID:           uuid.NewString(),
		SpaceID:      req.SpaceID,
		ParentPageID: req.ParentPageID,
		Title:        req.Title,
		Position:     req.Position,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.pageRepo.Create(ctx, page); err != nil {
		return nil, err
	}

	if _, _, err := s.hierarchy.RebuildSpace(ctx, page.SpaceID); err != nil {
		return nil, err
	}

	s.logger.Info("page created",
		"id", page.ID,
		"space_id", page.SpaceID,
		"parent_page_id", page.ParentPageID,
		"title", page.Title,
	)

	return page, nil
}

// GetPage retrieves a live page
func (s *pageService) GetPage(ctx context.Context, id string) (*models.Page, error) {
	return s.pageRepo.GetLive(ctx, id)
}

// ListSpacePages lists all live pages of a space (flat)
func (s *pageService) ListSpacePages(ctx context.Context, spaceID string) ([]models.Page, error) {
	if _, err := s.spaceRepo.GetByID(ctx, spaceID); err != nil {
		return nil, err
	}
	return s.pageRepo.ListLiveBySpace(ctx, spaceID)
}

// MovePage re-parents a page, possibly across spaces. The destination space
// is the new parent's space, or the requested space for a move to a root, or
// the page's current space when neither is given.
func (s *pageService) MovePage(ctx context.Context, id string, req *services.MovePageRequest) (*models.Page, error) {
	page, err := s.pageRepo.GetLive(ctx, id)
	if err != nil {
		return nil, err
	}

	destSpaceID := page.SpaceID
	if req.ParentPageID != nil {
		parent, err := s.pageRepo.GetLive(ctx, *req.ParentPageID)
		if err != nil {
			return nil, err
		}
		destSpaceID = parent.SpaceID

		if err := s.ensureNotDescendant(ctx, id, *req.ParentPageID); err != nil {
			return nil, err
		}
	} else if req.SpaceID != nil {
		if _, err := s.spaceRepo.GetByID(ctx, *req.SpaceID); err != nil {
			return nil, err
		}
		destSpaceID = *req.SpaceID
	}

	sourceSpaceID := page.SpaceID

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.pageRepo.Move(txCtx, id, req.ParentPageID, destSpaceID)
	})
	if err != nil {
		return nil, err
	}

	// A cross-space move restructures both spaces' slices of the relation
	if _, _, err := s.hierarchy.RebuildSpace(ctx, destSpaceID); err != nil {
		return nil, err
	}
	if sourceSpaceID != destSpaceID {
		if _, _, err := s.hierarchy.RebuildSpace(ctx, sourceSpaceID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("page moved",
		"id", id,
		"parent_page_id", req.ParentPageID,
		"source_space_id", sourceSpaceID,
		"dest_space_id", destSpaceID,
	)

	return s.pageRepo.GetLive(ctx, id)
}

// DeletePage soft-deletes a page. Its subtree stays marked live but drops
// out of the closure relation on rebuild (orphan-exclude policy).
func (s *pageService) DeletePage(ctx context.Context, id string) error {
	page, err := s.pageRepo.GetLive(ctx, id)
	if err != nil {
		return err
	}

	if err := s.pageRepo.SoftDelete(ctx, id); err != nil {
		return err
	}

	if _, _, err := s.hierarchy.RebuildSpace(ctx, page.SpaceID); err != nil {
		return err
	}

	s.logger.Info("page deleted", "id", id, "space_id", page.SpaceID)
	return nil
}

// RestorePage clears a page's soft-delete marker
func (s *pageService) RestorePage(ctx context.Context, id string) (*models.Page, error) {
	page, err := s.pageRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if page.IsLive() {
		return nil, domain.NewConflictError("page", id, "page %s is not deleted", id)
	}

	if err := s.pageRepo.Restore(ctx, id); err != nil {
		return nil, err
	}

	if _, _, err := s.hierarchy.RebuildSpace(ctx, page.SpaceID); err != nil {
		return nil, err
	}

	s.logger.Info("page restored", "id", id, "space_id", page.SpaceID)
	return s.pageRepo.GetLive(ctx, id)
}

// ensureNotDescendant rejects moves that would place a page under itself or
// under one of its own descendants. The check walks the destination parent's
// live ancestor chain rather than the closure table, so it holds even while
// a rebuild is pending.
func (s *pageService) ensureNotDescendant(ctx context.Context, pageID, newParentID string) error {
	if pageID == newParentID {
		return fmt.Errorf("page cannot be its own parent: %w", domain.ErrValidation)
	}

	chains, err := s.pageRepo.GetAncestorChains(ctx, []string{newParentID})
	if err != nil {
		return err
	}
	for _, ancestorID := range chains[newParentID] {
		if ancestorID == pageID {
			return fmt.Errorf("page cannot move under its own descendant: %w", domain.ErrValidation)
		}
	}

	return nil
}
