package inspection

import (
	"errors"
	"fmt"
)

var (
	ErrSubmitInProgress  = errors.New("a submission is already in progress")
	ErrItemsNotPersisted = errors.New("checklist saved but its items were not")
	ErrNothingToRetry    = errors.New("no pending item insert to retry")
	ErrItemsPending      = errors.New("a stored checklist is still waiting for its items")
	ErrInspectionReset   = errors.New("inspection was reset while the photo uploaded")
)

// Stage names the persistence step that failed.
type Stage string

const (
	StageChecklist Stage = "checklist"
	StageItems     Stage = "items"
)

// PersistenceError reports a failed write during submission. Stage items means
// the checklist record exists (ChecklistID) but its items do not.
type PersistenceError struct {
	Stage       Stage
	ChecklistID string
	Err         error
}

func (e *PersistenceError) Error() string {
	if e.Stage == StageItems {
		return fmt.Sprintf("checklist %s saved but items failed: %v", e.ChecklistID, e.Err)
	}
	return fmt.Sprintf("saving checklist failed: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrItemsNotPersisted) true for item-stage failures.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrItemsNotPersisted && e.Stage == StageItems
}

// PendingError rejects a new submission while an earlier record still lacks
// its items.
type PendingError struct {
	ChecklistID string
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("checklist %s is still waiting for its items; retry or discard it first", e.ChecklistID)
}

func (e *PendingError) Is(target error) bool {
	return target == ErrItemsPending
}
