package handler

import (
	"log/slog"
	"net/http"

	"canopy/internal/domain/models"
	"canopy/internal/domain/services"
	"canopy/internal/httputil"
)

// PageHandler handles page HTTP requests. Reads require the caller not be
// denied on the page; mutations require at least writer.
type PageHandler struct {
	pageService   services.PageService
	accessService services.AccessService
	logger        *slog.Logger
}

// NewPageHandler creates a new page handler
func NewPageHandler(
	pageService services.PageService,
	accessService services.AccessService,
	logger *slog.Logger,
) *PageHandler {
	return &PageHandler{
		pageService:   pageService,
		accessService: accessService,
		logger:        logger,
	}
}

// movePageRequest is the wire form of a move. OptionalString distinguishes an
// omitted parent_page_id (reject) from an explicit null (move to space root).
type movePageRequest struct {
	ParentPageID httputil.OptionalString `json:"parent_page_id"`
	SpaceID      *string                 `json:"space_id,omitempty"`
}

// CreatePage creates a new page
// POST /api/pages
func (h *PageHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	var req services.CreatePageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Creating under a parent requires writer on that parent
	if req.ParentPageID != nil {
		if !h.requireRole(w, r, userID, *req.ParentPageID, models.RoleWriter) {
			return
		}
	}

	page, err := h.pageService.CreatePage(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, page)
}

// GetPage retrieves a live page
// GET /api/pages/{id}
func (h *PageHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	if !h.requireRole(w, r, userID, id, models.RoleReader) {
		return
	}

	page, err := h.pageService.GetPage(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// MovePage re-parents a page, possibly across spaces
// POST /api/pages/{id}/move
func (h *PageHandler) MovePage(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	var req movePageRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.ParentPageID.Present {
		httputil.RespondError(w, http.StatusBadRequest, "parent_page_id is required (null moves to the space root)")
		return
	}

	if !h.requireRole(w, r, userID, id, models.RoleWriter) {
		return
	}
	if req.ParentPageID.Value != nil {
		if !h.requireRole(w, r, userID, *req.ParentPageID.Value, models.RoleWriter) {
			return
		}
	}

	page, err := h.pageService.MovePage(r.Context(), id, &services.MovePageRequest{
		ParentPageID: req.ParentPageID.Value,
		SpaceID:      req.SpaceID,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// DeletePage soft-deletes a page
// DELETE /api/pages/{id}
func (h *PageHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	if !h.requireRole(w, r, userID, id, models.RoleWriter) {
		return
	}

	if err := h.pageService.DeletePage(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RestorePage clears a page's soft-delete marker
// POST /api/pages/{id}/restore
func (h *PageHandler) RestorePage(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	page, err := h.pageService.RestorePage(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, page)
}

// requireRole resolves the caller's effective role on a page and writes a 403
// when it falls short of minimum. Returns true when the request may proceed.
func (h *PageHandler) requireRole(w http.ResponseWriter, r *http.Request, userID, pageID string, minimum models.Role) bool {
	role, err := h.accessService.ResolveAccess(r.Context(), userID, pageID)
	if err != nil {
		handleError(w, err)
		return false
	}
	if !roleAllows(role, minimum) {
		httputil.RespondError(w, http.StatusForbidden, "insufficient role for page")
		return false
	}
	return true
}
