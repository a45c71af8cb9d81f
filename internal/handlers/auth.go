package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/equipment-checklist/internal/auth"
	"github.com/ukydev/equipment-checklist/internal/db"
	"github.com/ukydev/equipment-checklist/internal/inspection"
	"github.com/ukydev/equipment-checklist/internal/middleware"
	"github.com/ukydev/equipment-checklist/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	sessions       *inspection.Manager
	logger         log.FieldLogger
}

// NewAuthHandler creates a new authentication handler. sessions may be nil,
// in which case logout only revokes the token.
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection, sessions *inspection.Manager, logger log.FieldLogger) *AuthHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		sessions:       sessions,
		logger:         logger,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decodeJSON(w, r, &loginReq); err != nil {
		jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if loginReq.Username == "" || loginReq.Password == "" {
		jsonError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), loginReq.Username)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		middleware.LoggerFromContext(r.Context(), h.logger).WithError(err).Error("User lookup failed")
		jsonError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := h.authService.VerifyCredentials(user, loginReq.Password); err != nil {
		if errors.Is(err, auth.ErrUserInactive) {
			jsonError(w, "Account is deactivated", http.StatusUnauthorized)
			return
		}
		middleware.LoggerFromContext(r.Context(), h.logger).WithError(err).WithField("username", loginReq.Username).Info("Sign-in rejected")
		jsonError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := h.userCollection.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		middleware.LoggerFromContext(r.Context(), h.logger).WithError(err).Warn("Failed to update last login")
	}
	h.respondWithTokens(w, user, http.StatusOK)
}

// Register creates an inspector or viewer account. Elevated roles are
// assigned by an administrator.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := decodeJSON(w, r, &registerReq); err != nil {
		jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	registerReq.Username = strings.TrimSpace(registerReq.Username)
	registerReq.Email = strings.TrimSpace(registerReq.Email)
	if registerReq.Role == "" {
		registerReq.Role = models.RoleInspector
	}

	if err := h.authService.ValidateRegistration(&registerReq); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if registerReq.Role != models.RoleInspector && registerReq.Role != models.RoleViewer {
		jsonError(w, "Role cannot be self-assigned", http.StatusForbidden)
		return
	}

	if _, err := h.userCollection.FindUserByUsername(r.Context(), registerReq.Username); err == nil {
		jsonError(w, "Username already exists", http.StatusConflict)
		return
	}
	if _, err := h.userCollection.FindUserByEmail(r.Context(), registerReq.Email); err == nil {
		jsonError(w, "Email already exists", http.StatusConflict)
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		jsonError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	now := time.Now().UTC()
	user := models.User{
		ID:            primitive.NewObjectID(),
		Username:      registerReq.Username,
		Email:         registerReq.Email,
		PasswordHash:  passwordHash,
		Role:          registerReq.Role,
		FirstName:     strings.TrimSpace(registerReq.FirstName),
		LastName:      strings.TrimSpace(registerReq.LastName),
		LicenseNumber: strings.TrimSpace(registerReq.LicenseNumber),
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.userCollection.InsertUser(r.Context(), user); err != nil {
		middleware.LoggerFromContext(r.Context(), h.logger).WithError(err).Error("Failed to create user")
		jsonError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	middleware.LoggerFromContext(r.Context(), h.logger).WithFields(log.Fields{
		"username": user.Username,
		"role":     user.Role,
	}).Info("User registered")
	h.respondWithTokens(w, &user, http.StatusCreated)
}

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, user *models.User, code int) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		jsonError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}
	jsonStatus(w, code, models.LoginResponse{
		Token: token,
		User:  *user,
	})
}

// Logout revokes the presented token and discards the user's open
// inspections.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		jsonError(w, "User context not found", http.StatusUnauthorized)
		return
	}

	h.authService.Revoke(claims)
	ended := 0
	if h.sessions != nil {
		ended = h.sessions.EndAll(claims.UserID)
	}

	middleware.LoggerFromContext(r.Context(), h.logger).WithField("sessions_ended", ended).Info("User signed out")
	jsonOK(w, map[string]any{
		"message":        "Signed out",
		"sessions_ended": ended,
	})
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		jsonError(w, "User context not found", http.StatusUnauthorized)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}

	jsonOK(w, user)
}

// UpdateProfile updates the current user's name, email and license number.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		jsonError(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var updateReq struct {
		FirstName     string `json:"first_name"`
		LastName      string `json:"last_name"`
		Email         string `json:"email"`
		LicenseNumber string `json:"license_number"`
	}
	if err := decodeJSON(w, r, &updateReq); err != nil {
		jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}

	if updateReq.FirstName != "" {
		user.FirstName = updateReq.FirstName
	}
	if updateReq.LastName != "" {
		user.LastName = updateReq.LastName
	}
	if updateReq.LicenseNumber != "" {
		user.LicenseNumber = updateReq.LicenseNumber
	}
	if updateReq.Email != "" {
		if err := h.authService.ValidateEmail(updateReq.Email); err != nil {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		existingUser, err := h.userCollection.FindUserByEmail(r.Context(), updateReq.Email)
		if err == nil && existingUser.ID.Hex() != claims.UserID {
			jsonError(w, "Email already exists", http.StatusConflict)
			return
		}
		user.Email = updateReq.Email
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		jsonError(w, "Failed to update user", http.StatusInternalServerError)
		return
	}

	jsonOK(w, map[string]string{"message": "Profile updated successfully"})
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		jsonError(w, "User context not found", http.StatusUnauthorized)
		return
	}

	var passwordReq struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := decodeJSON(w, r, &passwordReq); err != nil {
		jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if passwordReq.CurrentPassword == "" || passwordReq.NewPassword == "" {
		jsonError(w, "Current password and new password are required", http.StatusBadRequest)
		return
	}
	if err := h.authService.ValidatePassword(passwordReq.NewPassword); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		jsonError(w, "User not found", http.StatusNotFound)
		return
	}
	if !h.authService.CheckPassword(passwordReq.CurrentPassword, user.PasswordHash) {
		jsonError(w, "Current password is incorrect", http.StatusUnauthorized)
		return
	}

	newPasswordHash, err := h.authService.HashPassword(passwordReq.NewPassword)
	if err != nil {
		jsonError(w, "Failed to hash password", http.StatusInternalServerError)
		return
	}

	user.PasswordHash = newPasswordHash
	user.UpdatedAt = time.Now().UTC()
	if err := h.userCollection.UpdateUser(r.Context(), claims.UserID, *user); err != nil {
		jsonError(w, "Failed to update password", http.StatusInternalServerError)
		return
	}

	jsonOK(w, map[string]string{"message": "Password changed successfully"})
}
