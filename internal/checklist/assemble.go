package checklist

import (
	"strings"

	"github.com/ukydev/equipment-checklist/internal/models"
)

// Header field names reported in ValidationError.
const (
	FieldOperatorName    = "operatorName"
	FieldLicenseNumber   = "licenseNumber"
	FieldEquipmentType   = "equipmentType"
	FieldEquipmentNumber = "equipmentNumber"
	FieldInspectionDate  = "inspectionDate"
)

// AllHeaderFields is the default required set, in form order.
var AllHeaderFields = []string{
	FieldOperatorName,
	FieldLicenseNumber,
	FieldEquipmentType,
	FieldEquipmentNumber,
	FieldInspectionDate,
}

func headerValue(h models.InspectionHeader, field string) string {
	switch field {
	case FieldOperatorName:
		return h.OperatorName
	case FieldLicenseNumber:
		return h.LicenseNumber
	case FieldEquipmentType:
		return h.EquipmentType
	case FieldEquipmentNumber:
		return h.EquipmentNumber
	case FieldInspectionDate:
		return h.InspectionDate
	}
	return ""
}

// TrimHeader trims surrounding whitespace from every header field.
func TrimHeader(h models.InspectionHeader) models.InspectionHeader {
	return models.InspectionHeader{
		OperatorName:    strings.TrimSpace(h.OperatorName),
		LicenseNumber:   strings.TrimSpace(h.LicenseNumber),
		EquipmentType:   strings.TrimSpace(h.EquipmentType),
		EquipmentNumber: strings.TrimSpace(h.EquipmentNumber),
		InspectionDate:  strings.TrimSpace(h.InspectionDate),
	}
}

// Assembler turns a finished state plus header into persistable records.
type Assembler struct {
	Policy   ScorePolicy
	Required []string // nil means AllHeaderFields
}

// NewAssembler creates an assembler requiring every header field.
func NewAssembler(policy ScorePolicy) *Assembler {
	return &Assembler{Policy: policy}
}

// Validate returns a *ValidationError naming every empty required field.
func (a *Assembler) Validate(h models.InspectionHeader) error {
	required := a.Required
	if required == nil {
		required = AllHeaderFields
	}
	h = TrimHeader(h)
	var missing []string
	for _, f := range required {
		if headerValue(h, f) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Assemble validates h and flattens s. The returned record has no ID or
// CreatedAt, and the items have no ChecklistID; the store assigns those.
func (a *Assembler) Assemble(t models.ChecklistType, h models.InspectionHeader, s *State) (models.Checklist, []models.ChecklistItem, error) {
	if err := a.Validate(h); err != nil {
		return models.Checklist{}, nil, err
	}
	h = TrimHeader(h)
	sc := Calculate(s, a.Policy)

	record := models.Checklist{
		ChecklistType:   t,
		InspectionDate:  h.InspectionDate,
		OperatorName:    h.OperatorName,
		LicenseNumber:   h.LicenseNumber,
		EquipmentType:   h.EquipmentType,
		EquipmentNumber: h.EquipmentNumber,
		Score:           sc.Percent,
		ScorePolicy:     string(sc.Policy),
		PassedItems:     sc.Passed,
		FailedItems:     sc.Failed,
		TotalItems:      sc.Total,
	}
	return record, Flatten(s), nil
}

// Flatten lists every item of s in display order.
func Flatten(s *State) []models.ChecklistItem {
	items := make([]models.ChecklistItem, 0, Definition(s.categories).TotalItems())
	for _, c := range s.categories {
		for _, it := range c.Items {
			items = append(items, models.ChecklistItem{
				Position:      len(items),
				CategoryTitle: c.Title,
				ItemID:        it.ID,
				ItemText:      it.Text,
				Status:        it.Status,
				ImageURL:      it.ImageURL,
			})
		}
	}
	return items
}

// Regroup rebuilds categories from flattened items. Categories appear in the
// order of their first item; items keep their relative order.
func Regroup(items []models.ChecklistItem) []Category {
	var out []Category
	index := make(map[string]int)
	for _, it := range items {
		ci, ok := index[it.CategoryTitle]
		if !ok {
			ci = len(out)
			index[it.CategoryTitle] = ci
			out = append(out, Category{Title: it.CategoryTitle})
		}
		out[ci].Items = append(out[ci].Items, Item{
			ID:       it.ItemID,
			Text:     it.ItemText,
			Status:   it.Status,
			ImageURL: it.ImageURL,
		})
	}
	return out
}
