// Package notify delivers user-facing inspection events (submitted, failed)
// to whatever channels the deployment wires in.
package notify

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Kind classifies an event.
type Kind string

const (
	KindSubmitted    Kind = "submitted"
	KindSubmitFailed Kind = "submit_failed"
	KindUploadFailed Kind = "upload_failed"
)

// Event is one notification.
type Event struct {
	Kind          Kind      `json:"kind"`
	ChecklistType string    `json:"checklist_type"`
	ChecklistID   string    `json:"checklist_id,omitempty"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Message       string    `json:"message"`
	Score         int       `json:"score,omitempty"`
	At            time.Time `json:"at"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// LogNotifier writes events to a logrus logger.
type LogNotifier struct {
	Logger log.FieldLogger
}

// Notify logs ev at info level, or warning level for failures.
func (n LogNotifier) Notify(_ context.Context, ev Event) error {
	logger := n.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	entry := logger.WithFields(log.Fields{
		"kind":           ev.Kind,
		"checklist_type": ev.ChecklistType,
		"checklist_id":   ev.ChecklistID,
		"user_id":        ev.UserID,
	})
	if ev.Kind == KindSubmitted {
		entry.WithField("score", ev.Score).Info(ev.Title)
	} else {
		entry.WithField("detail", ev.Message).Warn(ev.Title)
	}
	return nil
}

// Multi fans an event out to several notifiers. Every notifier is called even
// when an earlier one fails.
type Multi []Notifier

// Notify calls each notifier and joins their errors.
func (m Multi) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop discards events.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
