package httpapi

import (
	"net/http"
	"strings"

	"fieldops/internal/models"
)

type roleRequest struct {
	Role string `json:"role"`
}

func (h *Handler) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	role := strings.TrimSpace(r.URL.Query().Get("role"))
	if role != "" && !models.ValidRole(role) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "role must be employee or admin")
		return
	}
	users, err := h.store.ListUsers(r.Context(), role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handler) handleUserActions(w http.ResponseWriter, r *http.Request) {
	userID, action, ok := pathID(r, "/api/users/")
	if !ok || action != "role" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	admin, ok := requireAdmin(w, r)
	if !ok {
		return
	}
	if !isValidUUID(userID) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "user id must be a UUID")
		return
	}
	var req roleRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	req.Role = strings.TrimSpace(req.Role)
	if !models.ValidRole(req.Role) {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "role must be employee or admin")
		return
	}
	if userID == admin.UserID && req.Role != models.RoleAdmin {
		writeError(w, r, http.StatusConflict, "invalid_request", "admins cannot demote themselves")
		return
	}
	user, err := h.store.UpdateUserRole(r.Context(), userID, req.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
