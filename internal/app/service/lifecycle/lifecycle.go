// Package lifecycle holds the document and payment-session state machines.
//
// Every status write in the service is a conditional update whose WHERE clause is
// derived from this table, so replays and racing deliveries commute: a write either
// finds the row in an allowed prior state and moves it, or does nothing.
//
// EventTranslationCompleted and EventPaymentFailed are reserved. Translation runs in the
// external automation service and a failed payment leaves the draft for the sweeper, so
// no code path in this service applies either event yet. They stay in the table so the
// completed and failed states keep a defined entry edge.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/fatflowers/docpay/internal/models"
)

type DocumentEvent string

const (
	EventPaymentConfirmed     DocumentEvent = "payment_confirmed"
	EventFileStored           DocumentEvent = "file_stored"
	EventUploadFailed         DocumentEvent = "upload_failed"
	EventRetrySucceeded       DocumentEvent = "retry_succeeded"
	EventTranslationCompleted DocumentEvent = "translation_completed"
	EventPaymentFailed        DocumentEvent = "payment_failed"
	EventAbandoned            DocumentEvent = "abandoned"
)

var (
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrUnknownEvent      = errors.New("unknown lifecycle event")
)

type transition struct {
	from []models.DocumentStatus
	// to is empty when the event flags the document without moving it.
	to models.DocumentStatus
}

var documentTransitions = map[DocumentEvent]transition{
	EventPaymentConfirmed: {
		from: []models.DocumentStatus{models.DocumentStatusDraft},
		to:   models.DocumentStatusPending,
	},
	EventFileStored: {
		from: []models.DocumentStatus{models.DocumentStatusPending},
		to:   models.DocumentStatusProcessing,
	},
	EventUploadFailed: {
		from: []models.DocumentStatus{models.DocumentStatusPending, models.DocumentStatusProcessing},
	},
	EventRetrySucceeded: {
		from: []models.DocumentStatus{models.DocumentStatusPending, models.DocumentStatusProcessing},
		to:   models.DocumentStatusPending,
	},
	EventTranslationCompleted: {
		from: []models.DocumentStatus{models.DocumentStatusProcessing},
		to:   models.DocumentStatusCompleted,
	},
	EventPaymentFailed: {
		from: []models.DocumentStatus{models.DocumentStatusDraft},
		to:   models.DocumentStatusFailed,
	},
	EventAbandoned: {
		from: []models.DocumentStatus{models.DocumentStatusDraft},
		to:   models.DocumentStatusDeleted,
	},
}

// attachesFile lists the events whose update also writes file_url.
var attachesFile = map[DocumentEvent]bool{
	EventFileStored:     true,
	EventRetrySucceeded: true,
}

var knownStatuses = map[models.DocumentStatus]bool{
	models.DocumentStatusDraft:      true,
	models.DocumentStatusPending:    true,
	models.DocumentStatusProcessing: true,
	models.DocumentStatusCompleted:  true,
	models.DocumentStatusFailed:     true,
	models.DocumentStatusDeleted:    true,
}

func init() {
	if err := validateTable(); err != nil {
		panic(err)
	}
}

func validateTable() error {
	for ev, tr := range documentTransitions {
		if len(tr.from) == 0 {
			return fmt.Errorf("lifecycle: event %s has no source state", ev)
		}
		for _, s := range tr.from {
			if !knownStatuses[s] {
				return fmt.Errorf("lifecycle: event %s has unknown source %q", ev, s)
			}
		}
		if tr.to != "" && !knownStatuses[tr.to] {
			return fmt.Errorf("lifecycle: event %s has unknown target %q", ev, tr.to)
		}
		if attachesFile[ev] && !CanHoldFile(tr.to) {
			return fmt.Errorf("lifecycle: %s must land in a state that can hold a file", ev)
		}
	}
	return nil
}

// Next returns the status a document in from moves to on ev. Events that only flag
// the document return from unchanged.
func Next(from models.DocumentStatus, ev DocumentEvent) (models.DocumentStatus, error) {
	tr, ok := documentTransitions[ev]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownEvent, ev)
	}
	for _, s := range tr.from {
		if s == from {
			if tr.to == "" {
				return from, nil
			}
			return tr.to, nil
		}
	}
	return "", fmt.Errorf("%w: %s on %s", ErrInvalidTransition, ev, from)
}

// Sources returns the statuses ev may be applied to. Callers use it as the
// WHERE status IN (...) guard of the conditional update.
func Sources(ev DocumentEvent) []models.DocumentStatus {
	tr, ok := documentTransitions[ev]
	if !ok {
		return nil
	}
	out := make([]models.DocumentStatus, len(tr.from))
	copy(out, tr.from)
	return out
}

// Target returns the status ev moves a document to, or "" for flag-only events.
func Target(ev DocumentEvent) models.DocumentStatus {
	return documentTransitions[ev].to
}

// AttachesFile reports whether ev is allowed to write file_url.
func AttachesFile(ev DocumentEvent) bool {
	return attachesFile[ev]
}

// CanHoldFile reports whether a document in s may carry a file_url.
func CanHoldFile(s models.DocumentStatus) bool {
	switch s {
	case models.DocumentStatusPending, models.DocumentStatusProcessing, models.DocumentStatusCompleted:
		return true
	}
	return false
}

// SessionTerminal reports whether a session status is absorbing.
func SessionTerminal(s models.PaymentSessionStatus) bool {
	switch s {
	case models.PaymentSessionStatusCompleted, models.PaymentSessionStatusExpired, models.PaymentSessionStatusFailed:
		return true
	}
	return false
}

// NextSession validates a session move. Only pending may move, and only forward.
func NextSession(from, to models.PaymentSessionStatus) error {
	if from != models.PaymentSessionStatusPending || !SessionTerminal(to) {
		return fmt.Errorf("%w: session %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
