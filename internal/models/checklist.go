package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CheckStatus is the tri-state result of a single inspection point.
type CheckStatus string

const (
	StatusUnchecked CheckStatus = "unchecked"
	StatusPassed    CheckStatus = "passed"
	StatusFailed    CheckStatus = "failed"
)

// IsValid checks if a status is one of the known values
func (s CheckStatus) IsValid() bool {
	switch s {
	case StatusUnchecked, StatusPassed, StatusFailed:
		return true
	default:
		return false
	}
}

// ChecklistType selects which checklist catalog an inspection uses.
type ChecklistType string

const (
	ChecklistGeneral ChecklistType = "general"
	ChecklistCrane   ChecklistType = "crane"
)

// Checklist is a submitted inspection record: header fields plus aggregate counts.
// ID and CreatedAt are assigned by the store.
type Checklist struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          string             `bson:"user_id" json:"user_id"`
	ChecklistType   ChecklistType      `bson:"checklist_type" json:"checklist_type"`
	InspectionDate  string             `bson:"inspection_date" json:"inspection_date"` // YYYY-MM-DD
	OperatorName    string             `bson:"operator_name" json:"operator_name"`
	LicenseNumber   string             `bson:"license_number" json:"license_number"`
	EquipmentType   string             `bson:"equipment_type" json:"equipment_type"`
	EquipmentNumber string             `bson:"equipment_number" json:"equipment_number"`
	Score           int                `bson:"score" json:"score"` // percent, 0-100
	ScorePolicy     string             `bson:"score_policy" json:"score_policy"`
	PassedItems     int                `bson:"passed_items" json:"passed_items"`
	FailedItems     int                `bson:"failed_items" json:"failed_items"`
	TotalItems      int                `bson:"total_items" json:"total_items"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
}

// ChecklistItem is one flattened item of a submitted checklist. It has no
// lifecycle of its own; ChecklistID ties it to the owning record.
type ChecklistItem struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChecklistID   primitive.ObjectID `bson:"checklist_id" json:"checklist_id"`
	UserID        string             `bson:"user_id" json:"user_id"`
	Position      int                `bson:"position" json:"position"`
	CategoryTitle string             `bson:"category_title" json:"category_title"`
	ItemID        string             `bson:"item_id" json:"item_id"`
	ItemText      string             `bson:"item_text" json:"item_text"`
	Status        CheckStatus        `bson:"status" json:"status"`
	ImageURL      string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
}

// InspectionHeader holds the identifying fields an operator fills in before submitting.
type InspectionHeader struct {
	OperatorName    string `json:"operator_name"`
	LicenseNumber   string `json:"license_number"`
	EquipmentType   string `json:"equipment_type"`
	EquipmentNumber string `json:"equipment_number"`
	InspectionDate  string `json:"inspection_date"`
}
