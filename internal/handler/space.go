package handler

import (
	"log/slog"
	"net/http"

	"canopy/internal/domain/services"
	"canopy/internal/httputil"
)

// SpaceHandler handles space HTTP requests
type SpaceHandler struct {
	spaceService  services.SpaceService
	pageService   services.PageService
	accessService services.AccessService
	logger        *slog.Logger
}

// NewSpaceHandler creates a new space handler
func NewSpaceHandler(
	spaceService services.SpaceService,
	pageService services.PageService,
	accessService services.AccessService,
	logger *slog.Logger,
) *SpaceHandler {
	return &SpaceHandler{
		spaceService:  spaceService,
		pageService:   pageService,
		accessService: accessService,
		logger:        logger,
	}
}

// CreateSpace creates a new space
// POST /api/spaces
func (h *SpaceHandler) CreateSpace(w http.ResponseWriter, r *http.Request) {
	var req services.CreateSpaceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	space, err := h.spaceService.CreateSpace(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, space)
}

// GetSpace retrieves a space by ID
// GET /api/spaces/{id}
func (h *SpaceHandler) GetSpace(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "space ID is required")
		return
	}

	space, err := h.spaceService.GetSpace(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, space)
}

// ListSpaces retrieves all spaces
// GET /api/spaces
func (h *SpaceHandler) ListSpaces(w http.ResponseWriter, r *http.Request) {
	spaces, err := h.spaceService.ListSpaces(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, spaces)
}

// ListSpacePages lists the live pages of a space the caller may access
// GET /api/spaces/{id}/pages
func (h *SpaceHandler) ListSpacePages(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "space ID is required")
		return
	}

	pages, err := h.pageService.ListSpacePages(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	candidateIDs := make([]string, 0, len(pages))
	for _, page := range pages {
		candidateIDs = append(candidateIDs, page.ID)
	}

	accessibleIDs, err := h.accessService.GetAccessiblePageIDs(r.Context(), userID, id, candidateIDs)
	if err != nil {
		handleError(w, err)
		return
	}

	accessible := make(map[string]bool, len(accessibleIDs))
	for _, pageID := range accessibleIDs {
		accessible[pageID] = true
	}

	visible := pages[:0]
	for _, page := range pages {
		if accessible[page.ID] {
			visible = append(visible, page)
		}
	}

	httputil.RespondJSON(w, http.StatusOK, visible)
}

// HealthCheck reports service liveness
// GET /health
func (h *SpaceHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
