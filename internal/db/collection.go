package db

import (
	"context"

	"github.com/ukydev/equipment-checklist/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Default and maximum page sizes for ListChecklists.
const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

// ListOptions narrows a checklist listing.
type ListOptions struct {
	Limit  int    // <= 0 means DefaultListLimit
	UserID string // empty lists every user's checklists
}

// ChecklistCollection defines the interface for checklist data operations.
type ChecklistCollection interface {
	InsertChecklist(ctx context.Context, record models.Checklist) (*models.Checklist, error)
	InsertChecklistItems(ctx context.Context, checklistID primitive.ObjectID, items []models.ChecklistItem) error
	ListChecklists(ctx context.Context, opts ListOptions) ([]models.Checklist, error)
	FindChecklistByID(ctx context.Context, id string) (*models.Checklist, error)
	FindChecklistItems(ctx context.Context, checklistID primitive.ObjectID) ([]models.ChecklistItem, error)
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
