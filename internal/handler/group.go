package handler

import (
	"log/slog"
	"net/http"

	"canopy/internal/domain/services"
	"canopy/internal/httputil"
)

// GroupHandler handles group and membership HTTP requests
type GroupHandler struct {
	groupService services.GroupService
	logger       *slog.Logger
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService services.GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{
		groupService: groupService,
		logger:       logger,
	}
}

type memberRequest struct {
	UserID string `json:"user_id"`
}

// CreateGroup creates a new group
// POST /api/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req services.CreateGroupRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, err := h.groupService.CreateGroup(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, group)
}

// AddMember adds a user to a group
// POST /api/groups/{id}/members
func (h *GroupHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		httputil.RespondError(w, http.StatusBadRequest, "group ID is required")
		return
	}

	var req memberRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.groupService.AddMember(r.Context(), id, req.UserID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveMember removes a user from a group
// DELETE /api/groups/{id}/members/{userID}
func (h *GroupHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	userID := r.PathValue("userID")
	if id == "" || userID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "group ID and user ID are required")
		return
	}

	if err := h.groupService.RemoveMember(r.Context(), id, userID); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
