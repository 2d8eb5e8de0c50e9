package handler

import (
	"log/slog"
	"net/http"

	"canopy/internal/domain/services"
	"canopy/internal/httputil"
)

// HierarchyHandler handles ancestry queries and closure maintenance requests
type HierarchyHandler struct {
	hierarchyService services.HierarchyService
	logger           *slog.Logger
}

// NewHierarchyHandler creates a new hierarchy handler
func NewHierarchyHandler(hierarchyService services.HierarchyService, logger *slog.Logger) *HierarchyHandler {
	return &HierarchyHandler{
		hierarchyService: hierarchyService,
		logger:           logger,
	}
}

// GetAncestors returns a page's live ancestors ordered root-first
// GET /api/pages/{id}/ancestors
func (h *HierarchyHandler) GetAncestors(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	ancestors, err := h.hierarchyService.GetAncestors(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ancestors)
}

// GetDescendants returns a page's live descendants
// GET /api/pages/{id}/descendants
func (h *HierarchyHandler) GetDescendants(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	descendants, err := h.hierarchyService.GetDescendants(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, descendants)
}

// GetBreadcrumbs returns the ancestor path including the page itself
// GET /api/pages/{id}/breadcrumbs
func (h *HierarchyHandler) GetBreadcrumbs(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	crumbs, err := h.hierarchyService.GetBreadcrumbs(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, crumbs)
}

// Rebuild recomputes the closure relation, for one space when space_id is
// given or globally otherwise. Returns 202 when the rebuild was skipped
// because another process holds the lock; an empty space rebuilds to zero
// edges and still reports 200.
// POST /api/hierarchy/rebuild
func (h *HierarchyHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	var written int
	var acquired bool
	var err error

	spaceID := r.URL.Query().Get("space_id")
	if spaceID != "" {
		written, acquired, err = h.hierarchyService.RebuildSpace(r.Context(), spaceID)
	} else {
		written, acquired, err = h.hierarchyService.RebuildAll(r.Context())
	}
	if err != nil {
		handleError(w, err)
		return
	}

	status := http.StatusOK
	if !acquired {
		status = http.StatusAccepted
	}
	httputil.RespondJSON(w, status, map[string]int{"edges_written": written})
}

// CheckIntegrity audits the stored closure relation against live pages
// GET /api/hierarchy/integrity
func (h *HierarchyHandler) CheckIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.hierarchyService.CheckIntegrity(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, report)
}

// Repair rebuilds the spaces the integrity audit flagged
// POST /api/hierarchy/repair
func (h *HierarchyHandler) Repair(w http.ResponseWriter, r *http.Request) {
	result, err := h.hierarchyService.Repair(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
