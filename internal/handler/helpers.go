package handler

import (
	"errors"
	"net/http"

	"canopy/internal/domain"
	"canopy/internal/domain/models"
	"canopy/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// roleAllows reports whether a resolved role clears the given threshold.
// A nil role is no decision: the page carries no applicable grants anywhere
// in its chain, and space-level defaults apply, which this API treats as
// permissive.
func roleAllows(role *models.Role, minimum models.Role) bool {
	if role == nil {
		return true
	}
	if *role == models.RoleNone {
		return false
	}
	roles := []models.Role{*role, minimum}
	highest, ok := models.HighestRole(roles)
	return ok && highest == *role
}
