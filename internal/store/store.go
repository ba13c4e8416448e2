// Package store is the narrow persistence adapter for incidents, ticket
// references, and the app fleet. It is the durable source of truth for the
// reconciler; the reconciler's severity cache is only an optimization over it.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/devonelson50/Monarch/internal/models"
	"github.com/devonelson50/Monarch/internal/severity"
)

// ErrConflict is returned when a write would violate a uniqueness invariant,
// such as a second ticket reference for one incident. It signals a logic
// error in the caller, not a transient condition worth retrying.
var ErrConflict = errors.New("store: conflict with existing record")

// IncidentStore is the persistence contract the reconciliation loop and the
// ticket synchronizer operate against.
//
// FindOpenIncident and GetTicketReference return (nil, nil) when no record
// exists; absence is an answer, not an error.
type IncidentStore interface {
	// FindOpenIncident returns the single open incident for an app, if any.
	FindOpenIncident(ctx context.Context, appID string) (*models.Incident, error)

	// OpenIncident atomically opens an incident for an app. If another writer
	// opened one concurrently, the surviving open incident is returned instead
	// of an error, so racing openers converge on one row.
	OpenIncident(ctx context.Context, appID string, sev severity.Severity, title string, openedAt time.Time) (*models.Incident, error)

	// UpdateSeverity records an escalation on an open incident.
	UpdateSeverity(ctx context.Context, incidentID uint, sev severity.Severity) error

	// CloseIncident closes an incident. Closing an already-closed incident is
	// a no-op.
	CloseIncident(ctx context.Context, incidentID uint, closedAt time.Time) error

	// GetTicketReference returns the ticket reference bound to an incident.
	GetTicketReference(ctx context.Context, incidentID uint) (*models.TicketReference, error)

	// SetTicketReference binds a remote ticket to an incident. A reference
	// that already exists yields ErrConflict and is never overwritten.
	SetTicketReference(ctx context.Context, incidentID uint, ticketKey, summary, description string, ticketedAt time.Time) error

	// UpsertApp creates or refreshes the fleet record for a polled app.
	UpsertApp(ctx context.Context, appID, name string, sev severity.Severity, sourceName string, seenAt time.Time) error
}
