package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/domain/repositories"
)

// In-memory repository fakes backing the service tests. They mirror the
// Postgres implementations' contracts closely enough that the services under
// test cannot tell the difference: live filtering, chain walking over live
// parent links only, and wholesale closure replacement.

type fakeStore struct {
	spaces map[string]*models.Space
	pages  map[string]*models.Page
	edges  []models.HierarchyEdge
	perms  []*models.PagePermission
	groups map[string][]string // groupID -> members
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		spaces: make(map[string]*models.Space),
		pages:  make(map[string]*models.Page),
		groups: make(map[string][]string),
	}
}

func (s *fakeStore) addSpace(id string) {
	s.spaces[id] = &models.Space{ID: id, Name: id}
}

func (s *fakeStore) addPage(id, spaceID string, parentID *string) *models.Page {
	page := &models.Page{
		ID:           id,
		SpaceID:      spaceID,
		ParentPageID: parentID,
		Title:        id,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.pages[id] = page
	return page
}

func (s *fakeStore) deletePage(id string) {
	now := time.Now()
	s.pages[id].DeletedAt = &now
}

func (s *fakeStore) grant(pageID string, userID, groupID *string, role models.Role) {
	s.perms = append(s.perms, &models.PagePermission{
		ID:      fmt.Sprintf("perm-%d", len(s.perms)),
		PageID:  pageID,
		UserID:  userID,
		GroupID: groupID,
		Role:    role,
	})
}

// --- SpaceRepository ---

type fakeSpaceRepo struct{ store *fakeStore }

func (r *fakeSpaceRepo) Create(_ context.Context, space *models.Space) error {
	if _, ok := r.store.spaces[space.ID]; ok {
		return domain.NewConflictError("space", space.ID, "space exists")
	}
	r.store.spaces[space.ID] = space
	return nil
}

func (r *fakeSpaceRepo) GetByID(_ context.Context, id string) (*models.Space, error) {
	space, ok := r.store.spaces[id]
	if !ok {
		return nil, fmt.Errorf("space %s: %w", id, domain.ErrNotFound)
	}
	return space, nil
}

func (r *fakeSpaceRepo) List(_ context.Context) ([]models.Space, error) {
	var spaces []models.Space
	for _, space := range r.store.spaces {
		spaces = append(spaces, *space)
	}
	return spaces, nil
}

// --- PageRepository ---

type fakePageRepo struct{ store *fakeStore }

func (r *fakePageRepo) Create(_ context.Context, page *models.Page) error {
	r.store.pages[page.ID] = page
	return nil
}

func (r *fakePageRepo) GetByID(_ context.Context, id string) (*models.Page, error) {
	page, ok := r.store.pages[id]
	if !ok {
		return nil, fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	copied := *page
	return &copied, nil
}

func (r *fakePageRepo) GetLive(_ context.Context, id string) (*models.Page, error) {
	page, ok := r.store.pages[id]
	if !ok || !page.IsLive() {
		return nil, fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	copied := *page
	return &copied, nil
}

func (r *fakePageRepo) ListLive(_ context.Context) ([]models.Page, error) {
	var pages []models.Page
	for _, page := range r.store.pages {
		if page.IsLive() {
			pages = append(pages, *page)
		}
	}
	sortPages(pages)
	return pages, nil
}

func (r *fakePageRepo) ListAll(_ context.Context) ([]models.Page, error) {
	var pages []models.Page
	for _, page := range r.store.pages {
		pages = append(pages, *page)
	}
	sortPages(pages)
	return pages, nil
}

func (r *fakePageRepo) ListLiveBySpace(_ context.Context, spaceID string) ([]models.Page, error) {
	var pages []models.Page
	for _, page := range r.store.pages {
		if page.IsLive() && page.SpaceID == spaceID {
			pages = append(pages, *page)
		}
	}
	sortPages(pages)
	return pages, nil
}

func (r *fakePageRepo) ListLiveByIDs(_ context.Context, ids []string) ([]models.Page, error) {
	var pages []models.Page
	for _, id := range ids {
		if page, ok := r.store.pages[id]; ok && page.IsLive() {
			pages = append(pages, *page)
		}
	}
	return pages, nil
}

func (r *fakePageRepo) ListLiveChildren(_ context.Context, parentID string) ([]models.Page, error) {
	var pages []models.Page
	for _, page := range r.store.pages {
		if page.IsLive() && page.ParentPageID != nil && *page.ParentPageID == parentID {
			pages = append(pages, *page)
		}
	}
	sortPages(pages)
	return pages, nil
}

func (r *fakePageRepo) Move(_ context.Context, id string, parentPageID *string, spaceID string) error {
	page, ok := r.store.pages[id]
	if !ok || !page.IsLive() {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	page.ParentPageID = parentPageID
	// Carry the live subtree into the target space
	var cascade func(parentID string)
	cascade = func(parentID string) {
		for _, child := range r.store.pages {
			if child.IsLive() && child.ParentPageID != nil && *child.ParentPageID == parentID {
				child.SpaceID = spaceID
				cascade(child.ID)
			}
		}
	}
	page.SpaceID = spaceID
	cascade(id)
	return nil
}

func (r *fakePageRepo) SoftDelete(_ context.Context, id string) error {
	page, ok := r.store.pages[id]
	if !ok || !page.IsLive() {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	now := time.Now()
	page.DeletedAt = &now
	return nil
}

func (r *fakePageRepo) Restore(_ context.Context, id string) error {
	page, ok := r.store.pages[id]
	if !ok {
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	}
	page.DeletedAt = nil
	return nil
}

func (r *fakePageRepo) GetAncestorChains(_ context.Context, pageIDs []string) (map[string][]string, error) {
	chains := make(map[string][]string)
	for _, id := range pageIDs {
		page, ok := r.store.pages[id]
		if !ok || !page.IsLive() {
			continue
		}
		chain := []string{id}
		current := page
		for current.ParentPageID != nil {
			parent, ok := r.store.pages[*current.ParentPageID]
			if !ok || !parent.IsLive() {
				break
			}
			chain = append(chain, parent.ID)
			current = parent
		}
		chains[id] = chain
	}
	return chains, nil
}

func sortPages(pages []models.Page) {
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })
}

// --- HierarchyRepository ---

type fakeHierarchyRepo struct{ store *fakeStore }

func (r *fakeHierarchyRepo) ReplaceAll(_ context.Context, edges []models.HierarchyEdge) (int, error) {
	r.store.edges = append([]models.HierarchyEdge(nil), edges...)
	return len(edges), nil
}

func (r *fakeHierarchyRepo) ReplaceSpace(_ context.Context, spaceID string, edges []models.HierarchyEdge) (int, error) {
	var kept []models.HierarchyEdge
	for _, edge := range r.store.edges {
		page, ok := r.store.pages[edge.DescendantPageID]
		if ok && page.SpaceID == spaceID {
			continue
		}
		kept = append(kept, edge)
	}
	r.store.edges = append(kept, edges...)
	return len(edges), nil
}

func (r *fakeHierarchyRepo) ListAll(_ context.Context) ([]models.HierarchyEdge, error) {
	return append([]models.HierarchyEdge(nil), r.store.edges...), nil
}

func (r *fakeHierarchyRepo) ListAncestors(_ context.Context, pageID string) ([]models.Page, error) {
	type hop struct {
		page  models.Page
		depth int
	}
	var hops []hop
	for _, edge := range r.store.edges {
		if edge.DescendantPageID == pageID && edge.Depth > 0 {
			if page, ok := r.store.pages[edge.AncestorPageID]; ok && page.IsLive() {
				hops = append(hops, hop{page: *page, depth: edge.Depth})
			}
		}
	}
	sort.Slice(hops, func(i, j int) bool { return hops[i].depth > hops[j].depth })
	pages := make([]models.Page, 0, len(hops))
	for _, h := range hops {
		pages = append(pages, h.page)
	}
	return pages, nil
}

func (r *fakeHierarchyRepo) ListDescendants(_ context.Context, pageID string) ([]models.Page, error) {
	var pages []models.Page
	for _, edge := range r.store.edges {
		if edge.AncestorPageID == pageID && edge.Depth > 0 {
			if page, ok := r.store.pages[edge.DescendantPageID]; ok && page.IsLive() {
				pages = append(pages, *page)
			}
		}
	}
	return pages, nil
}

// --- PermissionRepository ---

type fakePermissionRepo struct{ store *fakeStore }

func (r *fakePermissionRepo) Upsert(_ context.Context, perm *models.PagePermission) error {
	for _, existing := range r.store.perms {
		if existing.DeletedAt == nil && existing.PageID == perm.PageID &&
			strPtrEq(existing.UserID, perm.UserID) && strPtrEq(existing.GroupID, perm.GroupID) {
			now := time.Now()
			existing.DeletedAt = &now
		}
	}
	r.store.perms = append(r.store.perms, perm)
	return nil
}

func (r *fakePermissionRepo) SoftDelete(_ context.Context, pageID string, userID, groupID *string) error {
	found := false
	for _, perm := range r.store.perms {
		if perm.DeletedAt == nil && perm.PageID == pageID &&
			strPtrEq(perm.UserID, userID) && strPtrEq(perm.GroupID, groupID) {
			now := time.Now()
			perm.DeletedAt = &now
			found = true
		}
	}
	if !found {
		return fmt.Errorf("grant on page %s: %w", pageID, domain.ErrNotFound)
	}
	return nil
}

func (r *fakePermissionRepo) ListByPage(_ context.Context, pageID string) ([]models.PagePermission, error) {
	var perms []models.PagePermission
	for _, perm := range r.store.perms {
		if perm.DeletedAt == nil && perm.PageID == pageID {
			perms = append(perms, *perm)
		}
	}
	return perms, nil
}

func (r *fakePermissionRepo) ListMatching(_ context.Context, pageIDs []string, userID string, groupIDs []string) ([]models.PagePermission, error) {
	wanted := make(map[string]bool, len(pageIDs))
	for _, id := range pageIDs {
		wanted[id] = true
	}
	groups := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		groups[id] = true
	}

	var perms []models.PagePermission
	for _, perm := range r.store.perms {
		if perm.DeletedAt != nil || !wanted[perm.PageID] {
			continue
		}
		if (perm.UserID != nil && *perm.UserID == userID) ||
			(perm.GroupID != nil && groups[*perm.GroupID]) {
			perms = append(perms, *perm)
		}
	}
	return perms, nil
}

func (r *fakePermissionRepo) ListForPrincipals(_ context.Context, userID string, groupIDs []string) ([]models.PagePermission, error) {
	groups := make(map[string]bool, len(groupIDs))
	for _, id := range groupIDs {
		groups[id] = true
	}

	var perms []models.PagePermission
	for _, perm := range r.store.perms {
		if perm.DeletedAt != nil {
			continue
		}
		if (perm.UserID != nil && *perm.UserID == userID) ||
			(perm.GroupID != nil && groups[*perm.GroupID]) {
			perms = append(perms, *perm)
		}
	}
	return perms, nil
}

func strPtrEq(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// --- GroupRepository ---

type fakeGroupRepo struct{ store *fakeStore }

func (r *fakeGroupRepo) Create(_ context.Context, group *models.Group) error {
	if _, ok := r.store.groups[group.ID]; ok {
		return domain.NewConflictError("group", group.ID, "group exists")
	}
	r.store.groups[group.ID] = nil
	return nil
}

func (r *fakeGroupRepo) AddMember(_ context.Context, groupID, userID string) error {
	for _, member := range r.store.groups[groupID] {
		if member == userID {
			return nil
		}
	}
	r.store.groups[groupID] = append(r.store.groups[groupID], userID)
	return nil
}

func (r *fakeGroupRepo) RemoveMember(_ context.Context, groupID, userID string) error {
	members := r.store.groups[groupID]
	for i, member := range members {
		if member == userID {
			r.store.groups[groupID] = append(members[:i], members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("member %s in group %s: %w", userID, groupID, domain.ErrNotFound)
}

func (r *fakeGroupRepo) GetUserGroupIDs(_ context.Context, userID string) ([]string, error) {
	var groupIDs []string
	for groupID, members := range r.store.groups {
		for _, member := range members {
			if member == userID {
				groupIDs = append(groupIDs, groupID)
			}
		}
	}
	sort.Strings(groupIDs)
	return groupIDs, nil
}

// insertFailPermRepo retires the principal's live grant the way the real
// repository does, then fails on the insert step. Without a surrounding
// transaction the retire would stick.
type insertFailPermRepo struct {
	fakePermissionRepo
}

func (r *insertFailPermRepo) Upsert(_ context.Context, perm *models.PagePermission) error {
	for _, existing := range r.store.perms {
		if existing.DeletedAt == nil && existing.PageID == perm.PageID &&
			strPtrEq(existing.UserID, perm.UserID) && strPtrEq(existing.GroupID, perm.GroupID) {
			now := time.Now()
			existing.DeletedAt = &now
		}
	}
	return fmt.Errorf("insert grant: connection reset")
}

// --- TransactionManager and LockManager ---

// fakeTxManager runs the function directly; the fakes have no transactions.
type fakeTxManager struct{}

func (m *fakeTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

// snapshotTxManager mirrors real rollback semantics for the grant rows: when
// fn fails, the permission table is restored to its pre-transaction state.
type snapshotTxManager struct {
	store *fakeStore
}

func (m *snapshotTxManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	snapshot := make([]*models.PagePermission, len(m.store.perms))
	for i, perm := range m.store.perms {
		copied := *perm
		snapshot[i] = &copied
	}

	if err := fn(ctx); err != nil {
		m.store.perms = snapshot
		return err
	}
	return nil
}

// fakeLockManager grants or refuses locks according to its fields and records
// the space keys requested.
type fakeLockManager struct {
	refuseGlobal bool
	refuseSpaces map[string]bool
	requested    []string
}

func (m *fakeLockManager) TryAcquireGlobal(context.Context) (bool, error) {
	m.requested = append(m.requested, "global")
	return !m.refuseGlobal, nil
}

func (m *fakeLockManager) TryAcquireSpace(_ context.Context, spaceID string) (bool, error) {
	m.requested = append(m.requested, spaceID)
	return !m.refuseSpaces[spaceID], nil
}
