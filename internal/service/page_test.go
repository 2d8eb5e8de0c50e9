package service

import (
	"context"
	"errors"
	"testing"

	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/domain/services"
)

type pageFixture struct {
	store     *fakeStore
	pages     services.PageService
	hierarchy services.HierarchyService
	locks     *fakeLockManager
}

func newPageFixture() *pageFixture {
	store := newFakeStore()
	locks := &fakeLockManager{}
	hierarchy := newHierarchyFixture(store, locks)
	pages := NewPageService(
		&fakePageRepo{store: store},
		&fakeSpaceRepo{store: store},
		&fakeTxManager{},
		hierarchy,
		testLogger(),
	)
	return &pageFixture{store: store, pages: pages, hierarchy: hierarchy, locks: locks}
}

func (f *pageFixture) mustCreate(t *testing.T, spaceID string, parentID *string, title string) *models.Page {
	t.Helper()
	page, err := f.pages.CreatePage(context.Background(), &services.CreatePageRequest{
		SpaceID:      spaceID,
		ParentPageID: parentID,
		Title:        title,
	})
	if err != nil {
		t.Fatalf("CreatePage(%s) error = %v", title, err)
	}
	return page
}

func TestCreatePage(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")

	root := f.mustCreate(t, "s1", nil, "Root")
	child := f.mustCreate(t, "s1", &root.ID, "Child")

	if child.ParentPageID == nil || *child.ParentPageID != root.ID {
		t.Errorf("child parent = %v, want %s", child.ParentPageID, root.ID)
	}

	// Each create rebuilt the space; the closure must already cover both pages
	edges, err := (&fakeHierarchyRepo{store: f.store}).ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(edges) != 3 {
		t.Errorf("closure holds %d edges after two creates, want 3", len(edges))
	}
}

func TestCreatePageValidation(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")
	root := f.mustCreate(t, "s1", nil, "Root")
	ctx := context.Background()

	tests := []struct {
		name    string
		req     services.CreatePageRequest
		wantErr error
	}{
		{
			name:    "missing title",
			req:     services.CreatePageRequest{SpaceID: "s1"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing space",
			req:     services.CreatePageRequest{Title: "Orphan"},
			wantErr: domain.ErrValidation,
		},
		{
			name:    "unknown space",
			req:     services.CreatePageRequest{SpaceID: "nope", Title: "Lost"},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "unknown parent",
			req:     services.CreatePageRequest{SpaceID: "s1", ParentPageID: strP("ghost"), Title: "Lost"},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pages.CreatePage(ctx, &tt.req)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreatePage() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Parent from another space
	f.store.addSpace("s2")
	_, err := f.pages.CreatePage(ctx, &services.CreatePageRequest{
		SpaceID:      "s2",
		ParentPageID: &root.ID,
		Title:        "Cross",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("cross-space parent error = %v, want ErrValidation", err)
	}
}

func TestMovePageWithinSpace(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")
	root := f.mustCreate(t, "s1", nil, "Root")
	a := f.mustCreate(t, "s1", &root.ID, "A")
	b := f.mustCreate(t, "s1", &root.ID, "B")
	ctx := context.Background()

	moved, err := f.pages.MovePage(ctx, b.ID, &services.MovePageRequest{ParentPageID: &a.ID})
	if err != nil {
		t.Fatalf("MovePage() error = %v", err)
	}
	if moved.ParentPageID == nil || *moved.ParentPageID != a.ID {
		t.Errorf("moved parent = %v, want %s", moved.ParentPageID, a.ID)
	}

	ancestors, err := f.hierarchy.GetAncestors(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetAncestors() error = %v", err)
	}
	got := pageIDs(ancestors)
	if len(got) != 2 || got[0] != root.ID || got[1] != a.ID {
		t.Errorf("ancestors after move = %v, want [%s %s]", got, root.ID, a.ID)
	}
}

func TestMovePageToRoot(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")
	root := f.mustCreate(t, "s1", nil, "Root")
	child := f.mustCreate(t, "s1", &root.ID, "Child")

	moved, err := f.pages.MovePage(context.Background(), child.ID, &services.MovePageRequest{})
	if err != nil {
		t.Fatalf("MovePage() error = %v", err)
	}
	if moved.ParentPageID != nil {
		t.Errorf("moved parent = %v, want nil (space root)", *moved.ParentPageID)
	}
}

func TestMovePageAcrossSpaces(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")
	f.store.addSpace("s2")
	root1 := f.mustCreate(t, "s1", nil, "Root1")
	sub := f.mustCreate(t, "s1", &root1.ID, "Sub")
	grand := f.mustCreate(t, "s1", &sub.ID, "Grand")
	root2 := f.mustCreate(t, "s2", nil, "Root2")
	ctx := context.Background()

	moved, err := f.pages.MovePage(ctx, sub.ID, &services.MovePageRequest{ParentPageID: &root2.ID})
	if err != nil {
		t.Fatalf("MovePage() error = %v", err)
	}
	if moved.SpaceID != "s2" {
		t.Errorf("moved space = %s, want s2", moved.SpaceID)
	}

	// The subtree moved with its root
	grandAfter, err := f.pages.GetPage(ctx, grand.ID)
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if grandAfter.SpaceID != "s2" {
		t.Errorf("descendant space = %s, want s2", grandAfter.SpaceID)
	}

	// Both spaces' closure slices are fresh
	ancestors, err := f.hierarchy.GetAncestors(ctx, grand.ID)
	if err != nil {
		t.Fatalf("GetAncestors() error = %v", err)
	}
	got := pageIDs(ancestors)
	if len(got) != 2 || got[0] != root2.ID || got[1] != sub.ID {
		t.Errorf("ancestors after cross-space move = %v, want [%s %s]", got, root2.ID, sub.ID)
	}

	descendants, err := f.hierarchy.GetDescendants(ctx, root1.ID)
	if err != nil {
		t.Fatalf("GetDescendants() error = %v", err)
	}
	if len(descendants) != 0 {
		t.Errorf("source root still has %d descendants, want 0", len(descendants))
	}
}

func TestMovePageCycleRejected(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")
	root := f.mustCreate(t, "s1", nil, "Root")
	mid := f.mustCreate(t, "s1", &root.ID, "Mid")
	leaf := f.mustCreate(t, "s1", &mid.ID, "Leaf")
	ctx := context.Background()

	tests := []struct {
		name     string
		pageID   string
		parentID string
	}{
		{name: "own parent", pageID: root.ID, parentID: root.ID},
		{name: "direct child", pageID: mid.ID, parentID: leaf.ID},
		{name: "deep descendant", pageID: root.ID, parentID: leaf.ID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pages.MovePage(ctx, tt.pageID, &services.MovePageRequest{ParentPageID: &tt.parentID})
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("MovePage() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestDeleteAndRestorePage(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")
	root := f.mustCreate(t, "s1", nil, "Root")
	mid := f.mustCreate(t, "s1", &root.ID, "Mid")
	leaf := f.mustCreate(t, "s1", &mid.ID, "Leaf")
	ctx := context.Background()

	if err := f.pages.DeletePage(ctx, mid.ID); err != nil {
		t.Fatalf("DeletePage() error = %v", err)
	}

	if _, err := f.pages.GetPage(ctx, mid.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetPage() after delete error = %v, want ErrNotFound", err)
	}

	// leaf is still live but orphaned: excluded from the closure entirely
	descendants, err := f.hierarchy.GetDescendants(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetDescendants() error = %v", err)
	}
	if len(descendants) != 0 {
		t.Errorf("root has %d descendants after subtree delete, want 0", len(descendants))
	}

	ancestors, err := f.hierarchy.GetAncestors(ctx, leaf.ID)
	if err != nil {
		t.Fatalf("GetAncestors() error = %v", err)
	}
	if len(ancestors) != 0 {
		t.Errorf("orphaned leaf has %d closure ancestors, want 0", len(ancestors))
	}

	// Restoring the page brings the subtree back
	restored, err := f.pages.RestorePage(ctx, mid.ID)
	if err != nil {
		t.Fatalf("RestorePage() error = %v", err)
	}
	if !restored.IsLive() {
		t.Error("restored page is not live")
	}

	descendants, err = f.hierarchy.GetDescendants(ctx, root.ID)
	if err != nil {
		t.Fatalf("GetDescendants() error = %v", err)
	}
	if len(descendants) != 2 {
		t.Errorf("root has %d descendants after restore, want 2", len(descendants))
	}
}

func TestRestoreLivePageConflicts(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")
	root := f.mustCreate(t, "s1", nil, "Root")

	_, err := f.pages.RestorePage(context.Background(), root.ID)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("RestorePage() on live page error = %v, want ErrConflict", err)
	}
}

func TestDeleteUnknownPage(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")

	err := f.pages.DeletePage(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("DeletePage() error = %v, want ErrNotFound", err)
	}
}

func TestListSpacePages(t *testing.T) {
	f := newPageFixture()
	f.store.addSpace("s1")
	f.mustCreate(t, "s1", nil, "Root")
	other := f.mustCreate(t, "s1", nil, "Other")
	ctx := context.Background()

	if err := f.pages.DeletePage(ctx, other.ID); err != nil {
		t.Fatalf("DeletePage() error = %v", err)
	}

	pages, err := f.pages.ListSpacePages(ctx, "s1")
	if err != nil {
		t.Fatalf("ListSpacePages() error = %v", err)
	}
	if len(pages) != 1 {
		t.Errorf("ListSpacePages() returned %d pages, want 1 live page", len(pages))
	}

	if _, err := f.pages.ListSpacePages(ctx, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("ListSpacePages() unknown space error = %v, want ErrNotFound", err)
	}
}
