// Package checklist holds the inspection checklist catalog, the mutable
// per-inspection state, scoring and submission assembly.
package checklist

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/ukydev/equipment-checklist/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed definitions.yaml
var definitionsYAML []byte

// Item is one inspection point.
type Item struct {
	ID       string             `yaml:"id" json:"id"`
	Text     string             `yaml:"text" json:"text"`
	Status   models.CheckStatus `yaml:"-" json:"status"`
	ImageURL string             `yaml:"-" json:"image_url,omitempty"`
}

// Category is a titled, ordered group of items.
type Category struct {
	Title string `yaml:"title" json:"title"`
	Items []Item `yaml:"items" json:"items"`
}

// Definition is the immutable template for one checklist type.
type Definition []Category

// TotalItems counts items across all categories.
func (d Definition) TotalItems() int {
	n := 0
	for _, c := range d {
		n += len(c.Items)
	}
	return n
}

func (d Definition) clone() Definition {
	out := make(Definition, len(d))
	for i, c := range d {
		items := make([]Item, len(c.Items))
		copy(items, c.Items)
		out[i] = Category{Title: c.Title, Items: items}
	}
	return out
}

var (
	catalogOnce sync.Once
	catalog     map[models.ChecklistType]Definition
	catalogErr  error
)

func loadCatalog() {
	catalog, catalogErr = parseCatalog(definitionsYAML)
}

func parseCatalog(data []byte) (map[models.ChecklistType]Definition, error) {
	var raw map[string]Definition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse checklist definitions: %w", err)
	}

	out := make(map[models.ChecklistType]Definition, len(raw))
	for _, t := range Types() {
		def, ok := raw[string(t)]
		if !ok {
			return nil, fmt.Errorf("checklist definitions: missing %q", t)
		}
		if err := validateDefinition(def); err != nil {
			return nil, fmt.Errorf("checklist definitions: %s: %w", t, err)
		}
		for ci := range def {
			for ii := range def[ci].Items {
				def[ci].Items[ii].Status = models.StatusUnchecked
				def[ci].Items[ii].ImageURL = ""
			}
		}
		out[t] = def
	}
	return out, nil
}

func validateDefinition(def Definition) error {
	titles := make(map[string]bool, len(def))
	for _, c := range def {
		if c.Title == "" {
			return fmt.Errorf("category without title")
		}
		if titles[c.Title] {
			return fmt.Errorf("duplicate category %q", c.Title)
		}
		titles[c.Title] = true

		ids := make(map[string]bool, len(c.Items))
		for _, it := range c.Items {
			if it.ID == "" || it.Text == "" {
				return fmt.Errorf("category %q: item without id or text", c.Title)
			}
			if ids[it.ID] {
				return fmt.Errorf("category %q: duplicate item %q", c.Title, it.ID)
			}
			ids[it.ID] = true
		}
	}
	return nil
}

// Types lists the supported checklist types in display order.
func Types() []models.ChecklistType {
	return []models.ChecklistType{models.ChecklistGeneral, models.ChecklistCrane}
}

// ParseChecklistType accepts the canonical names plus the legacy "mobile_crane".
func ParseChecklistType(s string) (models.ChecklistType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "general":
		return models.ChecklistGeneral, nil
	case "crane", "mobile_crane":
		return models.ChecklistCrane, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownChecklistType, s)
	}
}

// GetDefinition returns a fresh copy of the template for t.
func GetDefinition(t models.ChecklistType) (Definition, error) {
	catalogOnce.Do(loadCatalog)
	if catalogErr != nil {
		return nil, catalogErr
	}
	def, ok := catalog[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChecklistType, t)
	}
	return def.clone(), nil
}

// MustDefinition is GetDefinition for callers that already validated t.
func MustDefinition(t models.ChecklistType) Definition {
	def, err := GetDefinition(t)
	if err != nil {
		panic(err)
	}
	return def
}
