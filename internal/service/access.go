package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
	"canopy/internal/domain/services"
)

type accessService struct {
	pageRepo  repositories.PageRepository
	permRepo  repositories.PermissionRepository
	groupRepo repositories.GroupRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewAccessService creates a new access service
func NewAccessService(
	pageRepo repositories.PageRepository,
	permRepo repositories.PermissionRepository,
	groupRepo repositories.GroupRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.AccessService {
	return &accessService{
		pageRepo:  pageRepo,
		permRepo:  permRepo,
		groupRepo: groupRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// ResolveAccess resolves the effective role for one page. Single-page
// resolution is batch resolution with a one-element input, so the two can
// never diverge.
func (s *accessService) ResolveAccess(ctx context.Context, userID, pageID string) (*models.Role, error) {
	results, err := s.ResolveAccessBatch(ctx, userID, []string{pageID})
	if err != nil {
		return nil, err
	}
	return results[pageID], nil
}

// ResolveAccessBatch resolves the effective role for many pages in one pass:
// one group expansion, one ancestor-chain walk, one grant fetch over the
// union of all involved pages. Ancestor chains come from live parent links,
// not the closure table, so resolution never trusts a possibly-stale cache.
func (s *accessService) ResolveAccessBatch(ctx context.Context, userID string, pageIDs []string) (map[string]*models.Role, error) {
	results := make(map[string]*models.Role, len(pageIDs))
	if len(pageIDs) == 0 {
		return results, nil
	}

	groupIDs, err := s.groupRepo.GetUserGroupIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve access: %w", err)
	}

	chains, err := s.pageRepo.GetAncestorChains(ctx, uniqueStrings(pageIDs))
	if err != nil {
		return nil, fmt.Errorf("resolve access: %w", err)
	}

	involved := make(map[string]bool)
	for _, chain := range chains {
		for _, id := range chain {
			involved[id] = true
		}
	}

	rolesByPage := make(map[string][]models.Role)
	if len(involved) > 0 {
		ids := make([]string, 0, len(involved))
		for id := range involved {
			ids = append(ids, id)
		}

		grants, err := s.permRepo.ListMatching(ctx, ids, userID, groupIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve access: %w", err)
		}
		for _, grant := range grants {
			rolesByPage[grant.PageID] = append(rolesByPage[grant.PageID], grant.Role)
		}
	}

	for _, pageID := range pageIDs {
		chain, ok := chains[pageID]
		if !ok || len(chain) == 0 {
			// Unknown or deleted page: no decision, fail closed
			results[pageID] = nil
			continue
		}
		results[pageID] = resolveChain(chain, rolesByPage)
	}

	return results, nil
}

// resolveChain applies the cascading-denial decision table to one page.
// chain is ordered page-first up to the root.
//
// Walking root-ward ancestors toward the page, an ancestor carrying an
// explicit `none` sets the inherited denial and an ancestor carrying only
// positive grants clears it again - the most specific explicit rule wins.
// At the page itself: `none` among its matched roles is terminal; otherwise a
// positive grant wins (overriding any inherited denial); otherwise the
// inherited denial applies; otherwise there is no decision and the caller
// falls back to space-level rules.
func resolveChain(chain []string, rolesByPage map[string][]models.Role) *models.Role {
	denied := false
	for i := len(chain) - 1; i >= 1; i-- {
		roles := rolesByPage[chain[i]]
		if len(roles) == 0 {
			continue
		}
		denied = models.ContainsDenial(roles)
	}

	pageRoles := rolesByPage[chain[0]]
	switch {
	case models.ContainsDenial(pageRoles):
		return rolePtr(models.RoleNone)
	case len(pageRoles) > 0:
		role, _ := models.HighestRole(pageRoles)
		return rolePtr(role)
	case denied:
		return rolePtr(models.RoleNone)
	default:
		return nil
	}
}

// GetAccessiblePageIDs filters candidate pages of a space down to those the
// user may access. Candidates resolving to an explicit denial are dropped;
// candidates with no decision pass through, since the caller scoped them to
// a space the user can see and space-level defaults apply there.
func (s *accessService) GetAccessiblePageIDs(ctx context.Context, userID, spaceID string, candidatePageIDs []string) ([]string, error) {
	if len(candidatePageIDs) == 0 {
		return nil, nil
	}

	pages, err := s.pageRepo.ListLiveByIDs(ctx, uniqueStrings(candidatePageIDs))
	if err != nil {
		return nil, fmt.Errorf("filter accessible pages: %w", err)
	}

	inSpace := make([]string, 0, len(pages))
	for _, page := range pages {
		if page.SpaceID == spaceID {
			inSpace = append(inSpace, page.ID)
		}
	}

	results, err := s.ResolveAccessBatch(ctx, userID, inSpace)
	if err != nil {
		return nil, err
	}

	accessible := make([]string, 0, len(inSpace))
	for _, pageID := range inSpace {
		if role := results[pageID]; role != nil && *role == models.RoleNone {
			continue
		}
		accessible = append(accessible, pageID)
	}

	return accessible, nil
}

// GetUserPageIDs lists every page the user holds any positive role on, via
// direct or group grant. Deliberately flat: no ancestor cascading, because
// this feeds "my pages" listings rather than access gating.
func (s *accessService) GetUserPageIDs(ctx context.Context, userID string) ([]string, error) {
	groupIDs, err := s.groupRepo.GetUserGroupIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user pages: %w", err)
	}

	grants, err := s.permRepo.ListForPrincipals(ctx, userID, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("list user pages: %w", err)
	}

	seen := make(map[string]bool)
	for _, grant := range grants {
		if grant.Role != models.RoleNone {
			seen[grant.PageID] = true
		}
	}

	pageIDs := make([]string, 0, len(seen))
	for pageID := range seen {
		pageIDs = append(pageIDs, pageID)
	}
	sort.Strings(pageIDs)

	return pageIDs, nil
}

// ListGrants lists the live grants attached directly to a page
func (s *accessService) ListGrants(ctx context.Context, pageID string) ([]models.PagePermission, error) {
	if _, err := s.pageRepo.GetLive(ctx, pageID); err != nil {
		return nil, err
	}
	return s.permRepo.ListByPage(ctx, pageID)
}

// GrantRole records a grant for a page and principal. Grant changes never
// trigger a hierarchy rebuild; the next resolution re-walks ancestors live.
func (s *accessService) GrantRole(ctx context.Context, req *services.GrantRoleRequest) (*models.PagePermission, error) {
	if err := validateGrantRequest(req.PageID, req.UserID, req.GroupID, &req.Role); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if _, err := s.pageRepo.GetLive(ctx, req.PageID); err != nil {
		return nil, err
	}

	perm := &models.PagePermission{
		ID:        uuid.NewString(),
		PageID:    req.PageID,
		UserID:    req.UserID,
		GroupID:   req.GroupID,
		Role:      req.Role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// Upsert retires the principal's live grant before inserting the new one;
	// both statements must land in one transaction so a failed insert never
	// leaves the principal grantless and a concurrent resolution never sees
	// the gap between them.
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.permRepo.Upsert(txCtx, perm)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("role granted",
		"page_id", perm.PageID,
		"role", perm.Role,
		"user_id", perm.UserID,
		"group_id", perm.GroupID,
	)

	return perm, nil
}

// RevokeRole soft-deletes the grant for a page and principal
func (s *accessService) RevokeRole(ctx context.Context, req *services.RevokeRoleRequest) error {
	if err := validateGrantRequest(req.PageID, req.UserID, req.GroupID, nil); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.permRepo.SoftDelete(ctx, req.PageID, req.UserID, req.GroupID); err != nil {
		return err
	}

	s.logger.Info("role revoked",
		"page_id", req.PageID,
		"user_id", req.UserID,
		"group_id", req.GroupID,
	)

	return nil
}

func validateGrantRequest(pageID string, userID, groupID *string, role *models.Role) error {
	if err := validation.Validate(pageID, validation.Required); err != nil {
		return fmt.Errorf("page_id: %v", err)
	}
	if (userID == nil) == (groupID == nil) {
		return fmt.Errorf("exactly one of user_id or group_id must be set")
	}
	if role != nil {
		if err := validation.Validate(string(*role), validation.Required,
			validation.In(string(models.RoleAdmin), string(models.RoleWriter), string(models.RoleReader), string(models.RoleNone)),
		); err != nil {
			return fmt.Errorf("role: %v", err)
		}
	}
	return nil
}

func rolePtr(role models.Role) *models.Role {
	return &role
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	unique := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			unique = append(unique, v)
		}
	}
	return unique
}
