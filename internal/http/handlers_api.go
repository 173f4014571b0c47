package httpx

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/eelab/labdesk/internal/domain/model"
)

// APIHandlers serves the JSON API behind the gate.
type APIHandlers struct {
	Roles  RolesService
	Logger *slog.Logger
}

// Me handles GET /api/me.
func (h *APIHandlers) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required"})
		return
	}
	_, viaSession := GetSessionFromContext(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"user":       toUserJSON(u),
		"role_home":  RoleHome(u.Role),
		"via_cookie": viaSession,
	})
}

// ListRoles handles GET /api/admin/roles?limit=&offset=.
func (h *APIHandlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	limit, offset := 50, 0
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 500 {
		limit = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n >= 0 {
		offset = n
	}
	items, err := h.Roles.List(r.Context(), limit, offset)
	if err != nil {
		h.logError(r, "list role assignments", err)
		WriteAppError(w, err)
		return
	}
	if items == nil {
		items = []*model.RoleAssignment{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"items": items, "limit": limit, "offset": offset})
}

// AssignRole handles POST /api/admin/roles.
func (h *APIHandlers) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req model.AssignRoleRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if u, ok := UserFromContext(r.Context()); ok {
		req.AssignedBy = u.ID
	}
	a, err := h.Roles.Assign(r.Context(), req)
	if err != nil {
		h.logError(r, "assign role", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, a)
}

// DeleteRole handles DELETE /api/admin/roles/{user}.
func (h *APIHandlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.Roles.Remove(r.Context(), r.PathValue("user")); err != nil {
		h.logError(r, "remove role", err)
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandlers) logError(r *http.Request, op string, err error) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.DebugContext(r.Context(), op+" failed", slog.Any("error", err))
}
