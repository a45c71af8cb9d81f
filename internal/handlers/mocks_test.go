package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/ukydev/equipment-checklist/internal/db"
	"github.com/ukydev/equipment-checklist/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MockUserCollection is a mock implementation of UserCollection
type MockUserCollection struct {
	mock.Mock
}

func (m *MockUserCollection) InsertUser(ctx context.Context, user models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	args := m.Called(ctx, id, user)
	return args.Error(0)
}

func (m *MockUserCollection) UpdateLastLogin(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserCollection) FindUsers(ctx context.Context, limit int) ([]models.User, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

// MockChecklistCollection is a mock implementation of ChecklistCollection
type MockChecklistCollection struct {
	mock.Mock
}

func (m *MockChecklistCollection) InsertChecklist(ctx context.Context, record models.Checklist) (*models.Checklist, error) {
	args := m.Called(ctx, record)
	if fn, ok := args.Get(0).(func(models.Checklist) *models.Checklist); ok {
		return fn(record), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Checklist), args.Error(1)
}

func (m *MockChecklistCollection) InsertChecklistItems(ctx context.Context, checklistID primitive.ObjectID, items []models.ChecklistItem) error {
	args := m.Called(ctx, checklistID, items)
	return args.Error(0)
}

func (m *MockChecklistCollection) ListChecklists(ctx context.Context, opts db.ListOptions) ([]models.Checklist, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Checklist), args.Error(1)
}

func (m *MockChecklistCollection) FindChecklistByID(ctx context.Context, id string) (*models.Checklist, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Checklist), args.Error(1)
}

func (m *MockChecklistCollection) FindChecklistItems(ctx context.Context, checklistID primitive.ObjectID) ([]models.ChecklistItem, error) {
	args := m.Called(ctx, checklistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ChecklistItem), args.Error(1)
}
