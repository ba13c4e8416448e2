// Package notify fans incident lifecycle events out to chat and event-bus
// sinks. Delivery is best-effort: sink failures are logged and never reach the
// reconciliation loop.
package notify

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/devonelson50/Monarch/internal/models"
	"github.com/devonelson50/Monarch/internal/severity"
)

type EventKind string

const (
	KindOpened    EventKind = "opened"
	KindEscalated EventKind = "escalated"
	KindResolved  EventKind = "resolved"
)

// Event describes one incident lifecycle transition for outbound delivery.
type Event struct {
	CycleID    string            `json:"cycle_id"`
	IncidentID uint              `json:"incident_id"`
	AppID      string            `json:"app_id"`
	AppName    string            `json:"app_name"`
	Previous   severity.Severity `json:"previous"`
	Current    severity.Severity `json:"current"`
	Kind       EventKind         `json:"kind"`
	At         time.Time         `json:"at"`
}

// Message renders the one-line human summary used by chat sinks and the
// delivery log.
func (e Event) Message() string {
	switch e.Kind {
	case KindResolved:
		return fmt.Sprintf("%s has recovered and is now Operational", e.AppName)
	case KindEscalated:
		return fmt.Sprintf("%s has worsened from %s to %s", e.AppName, e.Previous, e.Current)
	default:
		return fmt.Sprintf("%s has changed status to %s", e.AppName, e.Current)
	}
}

// Notifier delivers one rendered event to a single channel.
type Notifier interface {
	Channel() string
	Notify(ctx context.Context, event Event) error
}

// Nop is a no-op notifier useful in tests.
type Nop struct{}

func (Nop) Channel() string                         { return "nop" }
func (Nop) Notify(_ context.Context, _ Event) error { return nil }

// Fanout delivers an event to every configured sink and records each attempt
// in the delivery log when a database is attached.
type Fanout struct {
	sinks []Notifier
	db    *gorm.DB // optional delivery log
}

func NewFanout(db *gorm.DB, sinks ...Notifier) *Fanout {
	return &Fanout{sinks: sinks, db: db}
}

// Notify never returns an error: a missed chat message is acceptable, a
// blocked reconciliation is not.
func (f *Fanout) Notify(ctx context.Context, event Event) {
	for _, sink := range f.sinks {
		status := "sent"

		if err := sink.Notify(ctx, event); err != nil {
			status = "failed"
			log.Printf("Notification via %s failed for %s: %v", sink.Channel(), event.AppName, err)
		}

		f.record(event, sink.Channel(), status)
	}
}

func (f *Fanout) record(event Event, channel, status string) {
	if f.db == nil {
		return
	}

	now := time.Now()
	entry := models.Notification{
		IncidentID: event.IncidentID,
		Channel:    channel,
		Status:     status,
		Message:    event.Message(),
		SentAt:     &now,
	}

	if err := f.db.Create(&entry).Error; err != nil {
		log.Printf("Failed to store notification log entry: %v", err)
	}
}
