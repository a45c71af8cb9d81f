package checklist

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownChecklistType = errors.New("unknown checklist type")
	ErrInvalidStatus        = errors.New("invalid check status")
	ErrInvalidControl       = errors.New("invalid control")
	ErrUnknownScorePolicy   = errors.New("unknown score policy")
)

// IndexError reports a category/item position that does not exist in a state.
// It means the caller and the definition disagree on shape.
type IndexError struct {
	Category int
	Item     int
	Reason   string
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("checklist index out of range: category %d, item %d: %s", e.Category, e.Item, e.Reason)
}

// ValidationError lists the required header fields that were empty.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// Has reports whether field is among the missing fields.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f == field {
			return true
		}
	}
	return false
}
