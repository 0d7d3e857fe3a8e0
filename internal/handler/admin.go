package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/storycollab/internal/auth"
	"github.com/sakif/storycollab/internal/model"
	"github.com/sakif/storycollab/internal/service"
)

// defaultActivityLimit caps the dashboard's recent-activity feed.
const defaultActivityLimit = 10

// AdminHandler serves the admin API: account management and the dashboard.
type AdminHandler struct {
	admin  *service.AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admin *service.AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

type adminRegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminAuthResponse struct {
	Token string       `json:"token"`
	Admin *model.Admin `json:"admin"`
}

// HandleRegister creates an administrator account.
//
// POST /api/admin/register
func (h *AdminHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req adminRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid JSON body"})
		return
	}

	result, err := h.admin.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, adminAuthResponse{Token: result.Token, Admin: result.Admin})
}

// HandleLogin authenticates an administrator.
//
// POST /api/admin/login
func (h *AdminHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: "Invalid JSON body"})
		return
	}

	result, err := h.admin.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, adminAuthResponse{Token: result.Token, Admin: result.Admin})
}

// HandleCheckAuth confirms the presented admin token and returns the account.
//
// GET /api/admin/check-auth
func (h *AdminHandler) HandleCheckAuth(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	admin, err := h.admin.GetAdminByID(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

// HandleStats returns the dashboard counters.
//
// GET /api/admin/stats
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleListUsers returns every author with their story count.
//
// GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// HandleActivities returns the latest log entries across all stories. The
// optional limit query parameter is clamped to the default when absent or
// invalid.
//
// GET /api/admin/activities?limit=10
func (h *AdminHandler) HandleActivities(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	activities, err := h.admin.RecentActivity(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

// HandleDeleteUser removes an author and everything they own.
//
// DELETE /api/admin/users/{id}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.admin.DeleteUser(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("admin removed user", slog.String("user_id", id))
	writeSuccess(w, "User deleted")
}
