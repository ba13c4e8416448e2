package ticketing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/devonelson50/Monarch/internal/models"
	"github.com/devonelson50/Monarch/internal/severity"
	"github.com/devonelson50/Monarch/internal/store"
)

// Synchronizer translates incident lifecycle events into ticket-system calls.
// Remote failures are logged and absorbed; they never roll back a local
// incident transition. A failed ticket creation leaves the incident without a
// reference, and the next cycle in which the incident is still open repairs it.
type Synchronizer struct {
	connector TicketConnector
	store     store.IncidentStore
}

func NewSynchronizer(connector TicketConnector, incidentStore store.IncidentStore) *Synchronizer {
	return &Synchronizer{connector: connector, store: incidentStore}
}

// OnIncidentOpened creates the remote ticket for a freshly opened incident.
func (s *Synchronizer) OnIncidentOpened(ctx context.Context, incident *models.Incident, appName string, sev severity.Severity) {
	s.EnsureTicket(ctx, incident, appName, sev)
}

// OnIncidentEscalated comments the new severity onto the ticket. If ticket
// creation failed on an earlier cycle there is nothing to comment on, so the
// escalation repairs the missing ticket instead.
func (s *Synchronizer) OnIncidentEscalated(ctx context.Context, incident *models.Incident, appName string, newSev severity.Severity) {
	if s.connector == nil {
		return
	}

	ref, err := s.store.GetTicketReference(ctx, incident.ID)

	if err != nil {
		log.Printf("Ticket lookup failed for incident %d: %v", incident.ID, err)
		return
	}

	if ref == nil {
		s.EnsureTicket(ctx, incident, appName, newSev)
		return
	}

	comment := fmt.Sprintf("Status update: Application %s is now %s at %s UTC",
		appName, newSev, time.Now().UTC().Format("2006-01-02 15:04:05"))

	if err := s.connector.AddComment(ctx, ref.TicketKey, comment); err != nil {
		log.Printf("Failed to comment escalation on %s: %v", ref.TicketKey, err)
	}
}

// OnIncidentClosed comments the recovery onto the ticket and moves it to Done.
// With no reference there is nothing to close remotely, and the local close
// stands regardless.
func (s *Synchronizer) OnIncidentClosed(ctx context.Context, incident *models.Incident, appName string) {
	if s.connector == nil {
		return
	}

	ref, err := s.store.GetTicketReference(ctx, incident.ID)

	if err != nil {
		log.Printf("Ticket lookup failed for incident %d: %v", incident.ID, err)
		return
	}

	if ref == nil {
		return
	}

	comment := fmt.Sprintf("✅ RESOLVED: Application %s has recovered and is now Operational at %s UTC",
		appName, time.Now().UTC().Format("2006-01-02 15:04:05"))

	if err := s.connector.AddComment(ctx, ref.TicketKey, comment); err != nil {
		log.Printf("Failed to comment recovery on %s: %v", ref.TicketKey, err)
	}

	if err := s.connector.TransitionIssue(ctx, ref.TicketKey, "Done"); err != nil {
		log.Printf("Failed to transition %s to Done: %v", ref.TicketKey, err)
	}
}

// EnsureTicket creates the remote ticket for an open incident that has none
// yet, then records the reference. No-op when a reference already exists, so
// it is safe to call on every cycle while the incident stays open.
func (s *Synchronizer) EnsureTicket(ctx context.Context, incident *models.Incident, appName string, sev severity.Severity) {
	if s.connector == nil {
		// Ticketing not configured; incidents live locally only.
		return
	}

	ref, err := s.store.GetTicketReference(ctx, incident.ID)

	if err != nil {
		log.Printf("Ticket lookup failed for incident %d: %v", incident.ID, err)
		return
	}

	if ref != nil {
		return
	}

	summary := fmt.Sprintf("%s %s - %s", severity.Icon(sev), appName, sev)
	description := fmt.Sprintf("Application %s has changed status to %s.\n\nIncident ID: %d\nOpened: %s UTC\nStatus: %s",
		appName, sev, incident.ID, incident.OpenedAt.UTC().Format("2006-01-02 15:04:05"), sev)

	ticketKey, err := s.connector.CreateIssue(ctx, summary, description, severity.TicketPriority(sev))

	if err != nil {
		// No in-cycle retry: the incident stays referenceless and the next
		// cycle re-attempts creation.
		log.Printf("Failed to create ticket for incident %d: %v", incident.ID, err)
		return
	}

	log.Printf("Created ticket %s for incident %d", ticketKey, incident.ID)

	if err := s.store.SetTicketReference(ctx, incident.ID, ticketKey, summary, description, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Two writers created tickets for one incident. The first
			// reference stands; this duplicate ticket is orphaned remotely.
			log.Printf("INVARIANT: duplicate ticket %s for incident %d: %v", ticketKey, incident.ID, err)
			return
		}

		log.Printf("Failed to record ticket %s for incident %d: %v", ticketKey, incident.ID, err)
	}
}
