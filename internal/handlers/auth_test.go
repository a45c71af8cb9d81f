package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/equipment-checklist/internal/db"
	"github.com/ukydev/equipment-checklist/internal/models"
)

func TestAuthHandler_Login(t *testing.T) {
	t.Run("successful login", func(t *testing.T) {
		ts := newTestServer(t)
		user := newUser(models.RoleInspector)
		hash, err := ts.auth.HashPassword("password123")
		require.NoError(t, err)
		user.PasswordHash = hash

		ts.users.On("FindUserByUsername", mock.Anything, "jdoe").Return(user, nil)
		ts.users.On("UpdateLastLogin", mock.Anything, user.ID.Hex()).Return(nil)

		w := ts.do("POST", "/api/auth/login", "", models.LoginRequest{Username: "jdoe", Password: "password123"})
		assert.Equal(t, http.StatusOK, w.Code)

		body := decode(t, w)
		assert.NotEmpty(t, body["token"])
		assert.NotContains(t, body, "refresh_token")
		assert.NotContains(t, w.Body.String(), hash)

		claims, err := ts.auth.ValidateToken(body["token"].(string))
		require.NoError(t, err)
		assert.Equal(t, user.ID.Hex(), claims.UserID)
		ts.users.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		ts := newTestServer(t)
		user := newUser(models.RoleInspector)
		user.PasswordHash, _ = ts.auth.HashPassword("password123")
		ts.users.On("FindUserByUsername", mock.Anything, "jdoe").Return(user, nil)

		w := ts.do("POST", "/api/auth/login", "", models.LoginRequest{Username: "jdoe", Password: "wrongpassword"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		ts.users.AssertNotCalled(t, "UpdateLastLogin", mock.Anything, mock.Anything)
	})

	t.Run("unknown user", func(t *testing.T) {
		ts := newTestServer(t)
		ts.users.On("FindUserByUsername", mock.Anything, "ghost").Return(nil, db.ErrNotFound)

		w := ts.do("POST", "/api/auth/login", "", models.LoginRequest{Username: "ghost", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())
	})

	t.Run("inactive user", func(t *testing.T) {
		ts := newTestServer(t)
		user := newUser(models.RoleInspector)
		user.IsActive = false
		ts.users.On("FindUserByUsername", mock.Anything, "jdoe").Return(user, nil)

		w := ts.do("POST", "/api/auth/login", "", models.LoginRequest{Username: "jdoe", Password: "password123"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "deactivated")
	})

	t.Run("missing fields", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do("POST", "/api/auth/login", "", models.LoginRequest{Username: "jdoe"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAuthHandler_Register(t *testing.T) {
	valid := models.RegisterRequest{
		Username:      "newuser",
		Email:         "new@example.com",
		Password:      "password123",
		FirstName:     "New",
		LastName:      "User",
		LicenseNumber: "LIC-7",
	}

	t.Run("successful registration defaults to inspector", func(t *testing.T) {
		ts := newTestServer(t)
		ts.users.On("FindUserByUsername", mock.Anything, "newuser").Return(nil, db.ErrNotFound)
		ts.users.On("FindUserByEmail", mock.Anything, "new@example.com").Return(nil, db.ErrNotFound)
		ts.users.On("InsertUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
			return u.Role == models.RoleInspector && u.LicenseNumber == "LIC-7" && u.IsActive && u.PasswordHash != "password123"
		})).Return(nil)

		w := ts.do("POST", "/api/auth/register", "", valid)
		assert.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.NotEmpty(t, body["token"])
		ts.users.AssertExpectations(t)
	})

	t.Run("username already exists", func(t *testing.T) {
		ts := newTestServer(t)
		ts.users.On("FindUserByUsername", mock.Anything, "newuser").Return(newUser(models.RoleInspector), nil)

		w := ts.do("POST", "/api/auth/register", "", valid)
		assert.Equal(t, http.StatusConflict, w.Code)
		ts.users.AssertNotCalled(t, "InsertUser", mock.Anything, mock.Anything)
	})

	t.Run("invalid role", func(t *testing.T) {
		ts := newTestServer(t)
		req := valid
		req.Role = "operator"
		w := ts.do("POST", "/api/auth/register", "", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("elevated role cannot be self-assigned", func(t *testing.T) {
		ts := newTestServer(t)
		req := valid
		req.Role = models.RoleAdmin
		w := ts.do("POST", "/api/auth/register", "", req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("weak password", func(t *testing.T) {
		ts := newTestServer(t)
		req := valid
		req.Password = "short"
		w := ts.do("POST", "/api/auth/register", "", req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "at least 8 characters")
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	ts := newTestServer(t)
	user := newUser(models.RoleInspector)
	token := ts.token(t, user)
	ts.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)

	require.Equal(t, http.StatusOK, ts.do("GET", "/api/inspections/general", token, nil).Code)
	require.Equal(t, http.StatusOK, ts.do("GET", "/api/inspections/crane", token, nil).Code)
	require.Equal(t, 2, ts.sessions.Count())

	w := ts.do("POST", "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["sessions_ended"])
	assert.Equal(t, 0, ts.sessions.Count())

	w = ts.do("GET", "/api/inspections/general", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "token revoked by logout")
}

func TestAuthHandler_GetProfile(t *testing.T) {
	t.Run("successful profile retrieval", func(t *testing.T) {
		ts := newTestServer(t)
		user := newUser(models.RoleSupervisor)
		ts.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)

		w := ts.do("GET", "/api/auth/profile", ts.token(t, user), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "jdoe", body["username"])
		assert.Equal(t, "LIC-42", body["license_number"])
	})

	t.Run("user not found", func(t *testing.T) {
		ts := newTestServer(t)
		user := newUser(models.RoleSupervisor)
		ts.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(nil, db.ErrNotFound)

		w := ts.do("GET", "/api/auth/profile", ts.token(t, user), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("no token", func(t *testing.T) {
		ts := newTestServer(t)
		w := ts.do("GET", "/api/auth/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	ts := newTestServer(t)
	user := newUser(models.RoleInspector)
	ts.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
	ts.users.On("UpdateUser", mock.Anything, user.ID.Hex(), mock.MatchedBy(func(u models.User) bool {
		return u.FirstName == "Janet" && u.LicenseNumber == "LIC-99" && u.LastName == "Doe"
	})).Return(nil)

	w := ts.do("PUT", "/api/auth/profile", ts.token(t, user), map[string]string{
		"first_name":     "Janet",
		"license_number": "LIC-99",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	ts.users.AssertExpectations(t)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	t.Run("successful password change", func(t *testing.T) {
		ts := newTestServer(t)
		user := newUser(models.RoleInspector)
		user.PasswordHash, _ = ts.auth.HashPassword("oldpassword")
		ts.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)
		ts.users.On("UpdateUser", mock.Anything, user.ID.Hex(), mock.Anything).Return(nil)

		w := ts.do("POST", "/api/auth/password", ts.token(t, user), map[string]string{
			"current_password": "oldpassword",
			"new_password":     "newpassword123",
		})
		assert.Equal(t, http.StatusOK, w.Code)

		updated := ts.users.Calls[len(ts.users.Calls)-1].Arguments.Get(2).(models.User)
		assert.True(t, ts.auth.CheckPassword("newpassword123", updated.PasswordHash))
	})

	t.Run("incorrect current password", func(t *testing.T) {
		ts := newTestServer(t)
		user := newUser(models.RoleInspector)
		user.PasswordHash, _ = ts.auth.HashPassword("oldpassword")
		ts.users.On("FindUserByID", mock.Anything, user.ID.Hex()).Return(user, nil)

		w := ts.do("POST", "/api/auth/password", ts.token(t, user), map[string]string{
			"current_password": "wrongpassword",
			"new_password":     "newpassword123",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		ts.users.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})
}
