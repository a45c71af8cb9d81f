// Package inspection runs one operator's in-progress inspections: header
// fields, checklist state, photo attachment and submission.
package inspection

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/equipment-checklist/internal/checklist"
	"github.com/ukydev/equipment-checklist/internal/db"
	"github.com/ukydev/equipment-checklist/internal/models"
	"github.com/ukydev/equipment-checklist/internal/notify"
	"github.com/ukydev/equipment-checklist/internal/storage"
)

// DateLayout is the inspection date format.
const DateLayout = "2006-01-02"

// Deps are the collaborators shared by every session.
type Deps struct {
	Checklists db.ChecklistCollection
	Images     *storage.ImageService
	Notifier   notify.Notifier
	Assembler  *checklist.Assembler
	Logger     log.FieldLogger
	Now        func() time.Time
}

func (d *Deps) withDefaults() *Deps {
	out := *d
	if out.Notifier == nil {
		out.Notifier = notify.Nop{}
	}
	if out.Assembler == nil {
		out.Assembler = checklist.NewAssembler(checklist.DefaultScorePolicy)
	}
	if out.Logger == nil {
		out.Logger = log.StandardLogger()
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return &out
}

type pendingItems struct {
	record *models.Checklist
	items  []models.ChecklistItem
}

// Session is one operator's inspection of one checklist type. State mutations
// are serialized; at most one submission runs at a time.
type Session struct {
	deps   *Deps
	userID string
	typ    models.ChecklistType

	submitting atomic.Bool

	mu      sync.Mutex
	header  models.InspectionHeader
	state   *checklist.State
	pending *pendingItems
	// generation counts resets; an upload started in an older generation
	// must not land on the fresh form.
	generation uint64
}

// NewSession starts an inspection with a fresh state and today's date.
func NewSession(deps Deps, userID string, typ models.ChecklistType) (*Session, error) {
	def, err := checklist.GetDefinition(typ)
	if err != nil {
		return nil, err
	}
	return newSession(deps.withDefaults(), userID, typ, def), nil
}

func newSession(deps *Deps, userID string, typ models.ChecklistType, def checklist.Definition) *Session {
	s := &Session{
		deps:   deps,
		userID: userID,
		typ:    typ,
		state:  checklist.Clone(def),
	}
	s.header.InspectionDate = deps.Now().Format(DateLayout)
	return s
}

// Type is the checklist type of the session.
func (s *Session) Type() models.ChecklistType {
	return s.typ
}

// Header returns the current header fields.
func (s *Session) Header() models.InspectionHeader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

// SetHeader replaces the header fields.
func (s *Session) SetHeader(h models.InspectionHeader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.header = h
}

// Prefill fills only the header fields that are still empty.
func (s *Session) Prefill(h models.InspectionHeader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&s.header.OperatorName, h.OperatorName)
	fill(&s.header.LicenseNumber, h.LicenseNumber)
	fill(&s.header.EquipmentType, h.EquipmentType)
	fill(&s.header.EquipmentNumber, h.EquipmentNumber)
	fill(&s.header.InspectionDate, h.InspectionDate)
}

// SetStatus sets one item's status.
func (s *Session) SetStatus(c, i int, status models.CheckStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetStatus(c, i, status)
}

// Press applies the pass/fail toggle to one item.
func (s *Session) Press(c, i int, ctl checklist.Control) (models.CheckStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Press(c, i, ctl)
}

// SetImage sets or clears one item's photo URL.
func (s *Session) SetImage(c, i int, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetImage(c, i, url)
}

// Upload is a photo file received from the operator.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AttachImage uploads a photo and assigns its URL to one item. The upload runs
// without holding the session lock, so status changes are not blocked; the
// URL assignment is last-write-wins. If the form is reset or submitted while
// the upload runs, the photo is not assigned and ErrInspectionReset is
// returned.
func (s *Session) AttachImage(ctx context.Context, c, i int, up Upload) (string, error) {
	s.mu.Lock()
	it, err := s.state.Item(c, i)
	gen := s.generation
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	if s.deps.Images == nil {
		return "", &storage.UploadError{Reason: "image storage is not configured"}
	}

	url, err := s.deps.Images.Upload(ctx, it.ID, up.Filename, up.ContentType, up.Data)
	if err != nil {
		s.notify(ctx, notify.Event{
			Kind:    notify.KindUploadFailed,
			Title:   "Upload failed",
			Message: err.Error(),
		})
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.deps.Logger.WithFields(log.Fields{
			"user_id": s.userID,
			"item_id": it.ID,
			"url":     url,
		}).Warn("Inspection was reset during upload; photo not attached")
		return "", ErrInspectionReset
	}
	if err := s.state.SetImage(c, i, url); err != nil {
		return "", err
	}
	return url, nil
}

// Reset discards progress and header fields, keeping a fresh inspection date.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.generation++
	s.state.Reset()
	s.header = models.InspectionHeader{InspectionDate: s.deps.Now().Format(DateLayout)}
	s.pending = nil
}

// Submitting reports whether a submission is in flight.
func (s *Session) Submitting() bool {
	return s.submitting.Load()
}

// Submit validates and persists the inspection. Concurrent calls fail with
// ErrSubmitInProgress. On success the session is reset. If the checklist
// record is stored but its items are not, the stored record is returned with
// a *PersistenceError at StageItems, and RetryItems can finish the write.
// While such a record is pending, Submit fails with a *PendingError until
// RetryItems succeeds or DiscardPending drops it.
func (s *Session) Submit(ctx context.Context) (*models.Checklist, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer s.submitting.Store(false)

	s.mu.Lock()
	if s.pending != nil {
		id := s.pending.record.ID.Hex()
		s.mu.Unlock()
		return nil, &PendingError{ChecklistID: id}
	}
	record, items, err := s.deps.Assembler.Assemble(s.typ, s.header, s.state)
	s.mu.Unlock()
	if err != nil {
		s.notifyFailure(ctx, "", err)
		return nil, err
	}

	record.UserID = s.userID
	for i := range items {
		items[i].UserID = s.userID
	}

	stored, err := s.deps.Checklists.InsertChecklist(ctx, record)
	if err != nil {
		perr := &PersistenceError{Stage: StageChecklist, Err: err}
		s.notifyFailure(ctx, "", perr)
		return nil, perr
	}

	if err := s.deps.Checklists.InsertChecklistItems(ctx, stored.ID, items); err != nil {
		s.mu.Lock()
		s.pending = &pendingItems{record: stored, items: items}
		s.mu.Unlock()
		perr := &PersistenceError{Stage: StageItems, ChecklistID: stored.ID.Hex(), Err: err}
		s.notifyFailure(ctx, stored.ID.Hex(), perr)
		return stored, perr
	}

	s.complete(ctx, stored)
	return stored, nil
}

// RetryItems re-attempts the item insert left over by a partial submission.
func (s *Session) RetryItems(ctx context.Context) (*models.Checklist, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer s.submitting.Store(false)

	s.mu.Lock()
	pending := s.pending
	s.mu.Unlock()
	if pending == nil {
		return nil, ErrNothingToRetry
	}

	if err := s.deps.Checklists.InsertChecklistItems(ctx, pending.record.ID, pending.items); err != nil {
		perr := &PersistenceError{Stage: StageItems, ChecklistID: pending.record.ID.Hex(), Err: err}
		s.notifyFailure(ctx, pending.record.ID.Hex(), perr)
		return pending.record, perr
	}

	s.complete(ctx, pending.record)
	return pending.record, nil
}

// DiscardPending drops the item batch left by a partial submission, keeping
// the form so it can be submitted again as a new record. It returns the ID of
// the record left without items.
func (s *Session) DiscardPending() (string, error) {
	if s.submitting.Load() {
		return "", ErrSubmitInProgress
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return "", ErrNothingToRetry
	}
	id := s.pending.record.ID.Hex()
	s.pending = nil
	s.deps.Logger.WithFields(log.Fields{
		"user_id":      s.userID,
		"checklist_id": id,
	}).Warn("Discarded pending checklist items; record is left without items")
	return id, nil
}

// PendingChecklistID is the ID of a record whose items still need inserting.
func (s *Session) PendingChecklistID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return ""
	}
	return s.pending.record.ID.Hex()
}

func (s *Session) complete(ctx context.Context, stored *models.Checklist) {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	s.deps.Logger.WithFields(log.Fields{
		"user_id":        s.userID,
		"checklist_id":   stored.ID.Hex(),
		"checklist_type": s.typ,
		"score":          stored.Score,
	}).Info("Checklist submitted")

	s.notify(ctx, notify.Event{
		Kind:        notify.KindSubmitted,
		ChecklistID: stored.ID.Hex(),
		Title:       "Checklist submitted successfully!",
		Message:     fmt.Sprintf("Inspection score: %d%%", stored.Score),
		Score:       stored.Score,
	})
}

func (s *Session) notifyFailure(ctx context.Context, checklistID string, err error) {
	s.notify(ctx, notify.Event{
		Kind:        notify.KindSubmitFailed,
		ChecklistID: checklistID,
		Title:       "Error submitting checklist",
		Message:     err.Error(),
	})
}

// notify fills the session fields of ev and delivers it. Delivery failures are
// logged only.
func (s *Session) notify(ctx context.Context, ev notify.Event) {
	ev.UserID = s.userID
	ev.ChecklistType = string(s.typ)
	ev.At = s.deps.Now()
	if err := s.deps.Notifier.Notify(ctx, ev); err != nil {
		s.deps.Logger.WithError(err).WithField("kind", ev.Kind).Warn("Failed to deliver notification")
	}
}
