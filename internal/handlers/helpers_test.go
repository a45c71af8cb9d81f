package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/equipment-checklist/internal/auth"
	"github.com/ukydev/equipment-checklist/internal/checklist"
	"github.com/ukydev/equipment-checklist/internal/inspection"
	"github.com/ukydev/equipment-checklist/internal/models"
	"github.com/ukydev/equipment-checklist/internal/storage"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testServer struct {
	handler  http.Handler
	auth     *auth.Service
	users    *MockUserCollection
	records  *MockChecklistCollection
	store    *storage.MemoryStore
	sessions *inspection.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	ts := &testServer{
		auth:    auth.NewService("handler-test-secret", time.Hour),
		users:   new(MockUserCollection),
		records: new(MockChecklistCollection),
		store:   storage.NewMemoryStore(),
	}
	images := storage.NewImageService(ts.store, "http://checklists.test", 1024)
	ts.sessions = inspection.NewManager(inspection.Deps{
		Checklists: ts.records,
		Images:     images,
		Assembler:  checklist.NewAssembler(checklist.PolicyDecided),
		Logger:     logger,
		Now:        func() time.Time { return time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC) },
	})
	ts.handler = NewRouter(RouterConfig{
		Auth:            ts.auth,
		Users:           ts.users,
		Checklists:      ts.records,
		Images:          images,
		Sessions:        ts.sessions,
		Logger:          logger,
		SubmitRateLimit: 100,
	})
	return ts
}

func (ts *testServer) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := ts.auth.GenerateToken(user)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func newUser(role models.Role) *models.User {
	return &models.User{
		ID:            primitive.NewObjectID(),
		Username:      "jdoe",
		Email:         "jdoe@example.com",
		Role:          role,
		FirstName:     "Jane",
		LastName:      "Doe",
		LicenseNumber: "LIC-42",
		IsActive:      true,
	}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
