package handler

import (
	"log/slog"
	"net/http"

	"canopy/internal/domain/models"
	"canopy/internal/domain/services"
	"canopy/internal/httputil"
)

// AccessHandler handles permission resolution and grant management
type AccessHandler struct {
	accessService services.AccessService
	logger        *slog.Logger
}

// NewAccessHandler creates a new access handler
func NewAccessHandler(accessService services.AccessService, logger *slog.Logger) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
		logger:        logger,
	}
}

type resolveAccessResponse struct {
	PageID string       `json:"page_id"`
	Role   *models.Role `json:"role"` // null when no access decision applies
}

type resolveBatchRequest struct {
	PageIDs []string `json:"page_ids"`
}

// ResolveAccess returns the caller's effective role on a page
// GET /api/pages/{id}/access
func (h *AccessHandler) ResolveAccess(w http.ResponseWriter, r *http.Request) {
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

	role, err := h.accessService.ResolveAccess(r.Context(), userID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resolveAccessResponse{PageID: id, Role: role})
}

// ResolveAccessBatch returns the caller's effective role for many pages
// POST /api/access/resolve
func (h *AccessHandler) ResolveAccessBatch(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	var req resolveBatchRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.PageIDs) == 0 {
		httputil.RespondError(w, http.StatusBadRequest, "page_ids is required")
		return
	}

	results, err := h.accessService.ResolveAccessBatch(r.Context(), userID, req.PageIDs)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, results)
}

// ListMyPages lists every page the caller holds a positive role on
// GET /api/users/me/pages
func (h *AccessHandler) ListMyPages(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	pageIDs, err := h.accessService.GetUserPageIDs(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string][]string{"page_ids": pageIDs})
}

// ListGrants lists the live grants attached directly to a page
// GET /api/pages/{id}/permissions
func (h *AccessHandler) ListGrants(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	grants, err := h.accessService.ListGrants(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, grants)
}

// GrantRole creates or replaces a grant for a page and principal
// POST /api/pages/{id}/permissions
func (h *AccessHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	var req services.GrantRoleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.PageID = id

	perm, err := h.accessService.GrantRole(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, perm)
}

// RevokeRole soft-deletes the grant for a page and principal
// DELETE /api/pages/{id}/permissions
func (h *AccessHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "page ID is required")
		return
	}

	var req services.RevokeRoleRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.PageID = id

	if err := h.accessService.RevokeRole(r.Context(), &req); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
