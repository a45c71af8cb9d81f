package checklist

import (
	"fmt"

	"github.com/ukydev/equipment-checklist/internal/models"
)

// Control is one of the two buttons an operator presses on an item.
type Control string

const (
	ControlPass Control = "pass"
	ControlFail Control = "fail"
)

// ParseControl validates a control name from a request.
func ParseControl(s string) (Control, error) {
	switch Control(s) {
	case ControlPass, ControlFail:
		return Control(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidControl, s)
	}
}

// State is the working copy of a Definition for one inspection. Only item
// status and image change; the set of (category, item) pairs is fixed at Clone.
// A State is not safe for concurrent use.
type State struct {
	def        Definition
	categories []Category
}

// Clone creates a state with every item unchecked and no images. The state
// never shares storage with def.
func Clone(def Definition) *State {
	base := def.clone()
	for ci := range base {
		for ii := range base[ci].Items {
			base[ci].Items[ii].Status = models.StatusUnchecked
			base[ci].Items[ii].ImageURL = ""
		}
	}
	return &State{def: base, categories: base.clone()}
}

// Reset discards all progress and returns to the unchecked baseline.
func (s *State) Reset() {
	s.categories = s.def.clone()
}

func (s *State) item(c, i int) (*Item, error) {
	if c < 0 || c >= len(s.categories) {
		return nil, &IndexError{Category: c, Item: i, Reason: fmt.Sprintf("%d categories", len(s.categories))}
	}
	items := s.categories[c].Items
	if i < 0 || i >= len(items) {
		return nil, &IndexError{Category: c, Item: i, Reason: fmt.Sprintf("category %q has %d items", s.categories[c].Title, len(items))}
	}
	return &items[i], nil
}

// Item returns a copy of one item.
func (s *State) Item(c, i int) (Item, error) {
	it, err := s.item(c, i)
	if err != nil {
		return Item{}, err
	}
	return *it, nil
}

// SetStatus replaces the status of exactly one item. The image is untouched.
func (s *State) SetStatus(c, i int, status models.CheckStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	it, err := s.item(c, i)
	if err != nil {
		return err
	}
	it.Status = status
	return nil
}

// SetImage sets the image of one item, or clears it when url is empty.
func (s *State) SetImage(c, i int, url string) error {
	it, err := s.item(c, i)
	if err != nil {
		return err
	}
	it.ImageURL = url
	return nil
}

// Press applies an operator pressing the pass or fail control. Pressing the
// active control clears the item; pressing the other one switches directly.
// It returns the resulting status.
func (s *State) Press(c, i int, ctl Control) (models.CheckStatus, error) {
	it, err := s.item(c, i)
	if err != nil {
		return "", err
	}
	var target models.CheckStatus
	switch ctl {
	case ControlPass:
		target = models.StatusPassed
	case ControlFail:
		target = models.StatusFailed
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidControl, ctl)
	}
	if it.Status == target {
		it.Status = models.StatusUnchecked
	} else {
		it.Status = target
	}
	return it.Status, nil
}

// Categories returns a deep copy of the current categories.
func (s *State) Categories() []Category {
	return Definition(s.categories).clone()
}

// Counts tallies items by status.
func (s *State) Counts() map[models.CheckStatus]int {
	counts := map[models.CheckStatus]int{
		models.StatusUnchecked: 0,
		models.StatusPassed:    0,
		models.StatusFailed:    0,
	}
	for _, c := range s.categories {
		for _, it := range c.Items {
			counts[it.Status]++
		}
	}
	return counts
}
