package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/equipment-checklist/internal/db"
	"github.com/ukydev/equipment-checklist/internal/inspection"
	"github.com/ukydev/equipment-checklist/internal/middleware"
	"github.com/ukydev/equipment-checklist/internal/models"
)

// UserHandler lets administrators manage operator accounts.
type UserHandler struct {
	users    db.UserCollection
	sessions *inspection.Manager
	logger   log.FieldLogger
}

// NewUserHandler creates the handler. sessions may be nil.
func NewUserHandler(users db.UserCollection, sessions *inspection.Manager, logger log.FieldLogger) *UserHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &UserHandler{users: users, sessions: sessions, logger: logger}
}

// ListUsers returns accounts ordered by username.
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.FindUsers(r.Context(), parseInt(r.URL.Query().Get("limit"), db.MaxListLimit))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	jsonOK(w, map[string]any{
		"users": users,
		"count": len(users),
	})
}

// UpdateUser changes an account's role or active flag. Deactivating an
// account ends its open inspections.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		jsonError(w, "User context not found", http.StatusUnauthorized)
		return
	}
	id := chi.URLParam(r, "id")

	var req struct {
		Role     *models.Role `json:"role"`
		IsActive *bool        `json:"is_active"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Role == nil && req.IsActive == nil {
		jsonError(w, "Nothing to update", http.StatusBadRequest)
		return
	}
	if req.Role != nil && !models.IsValidRole(*req.Role) {
		jsonError(w, "Invalid role", http.StatusBadRequest)
		return
	}
	if id == claims.UserID {
		jsonError(w, "Cannot change your own role or status", http.StatusBadRequest)
		return
	}

	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.users.UpdateUser(r.Context(), id, *user); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	ended := 0
	if !user.IsActive && h.sessions != nil {
		ended = h.sessions.EndAll(id)
	}
	middleware.LoggerFromContext(r.Context(), h.logger).WithFields(log.Fields{
		"target_user":    user.Username,
		"role":           user.Role,
		"is_active":      user.IsActive,
		"sessions_ended": ended,
	}).Info("User updated")
	jsonOK(w, user)
}
