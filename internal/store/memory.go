package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/devonelson50/Monarch/internal/models"
	"github.com/devonelson50/Monarch/internal/severity"
)

// MemoryStore is an in-process IncidentStore holding the same invariants as
// the Postgres store. The worker falls back to it when no database DSN is
// configured, and the reconciler tests run against it.
type MemoryStore struct {
	mu        sync.Mutex
	nextID    uint
	incidents map[uint]*models.Incident
	tickets   map[uint]*models.TicketReference // keyed by incident ID
	apps      map[string]*models.App
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:    1,
		incidents: make(map[uint]*models.Incident),
		tickets:   make(map[uint]*models.TicketReference),
		apps:      make(map[string]*models.App),
	}
}

func (s *MemoryStore) FindOpenIncident(ctx context.Context, appID string) (*models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, incident := range s.incidents {
		if incident.AppID == appID && incident.ClosedAt == nil {
			copied := *incident
			return &copied, nil
		}
	}

	return nil, nil
}

func (s *MemoryStore) OpenIncident(ctx context.Context, appID string, sev severity.Severity, title string, openedAt time.Time) (*models.Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Insert-if-not-exists under the lock: a racing opener gets the row that
	// already won, never a second open incident.
	for _, incident := range s.incidents {
		if incident.AppID == appID && incident.ClosedAt == nil {
			copied := *incident
			return &copied, nil
		}
	}

	incident := &models.Incident{
		AppID:    appID,
		Severity: string(sev),
		Title:    title,
		OpenedAt: openedAt,
	}
	incident.ID = s.nextID
	s.nextID++
	s.incidents[incident.ID] = incident

	copied := *incident
	return &copied, nil
}

func (s *MemoryStore) UpdateSeverity(ctx context.Context, incidentID uint, sev severity.Severity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.incidents[incidentID]

	if !ok || incident.ClosedAt != nil {
		return nil
	}

	incident.Severity = string(sev)
	return nil
}

func (s *MemoryStore) CloseIncident(ctx context.Context, incidentID uint, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.incidents[incidentID]

	if !ok || incident.ClosedAt != nil {
		return nil
	}

	at := closedAt
	incident.ClosedAt = &at
	return nil
}

func (s *MemoryStore) GetTicketReference(ctx context.Context, incidentID uint) (*models.TicketReference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, ok := s.tickets[incidentID]

	if !ok {
		return nil, nil
	}

	copied := *ref
	return &copied, nil
}

func (s *MemoryStore) SetTicketReference(ctx context.Context, incidentID uint, ticketKey, summary, description string, ticketedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tickets[incidentID]; exists {
		return fmt.Errorf("set ticket reference for incident %d: %w", incidentID, ErrConflict)
	}

	ref := &models.TicketReference{
		IncidentID:  incidentID,
		TicketKey:   ticketKey,
		Summary:     summary,
		Description: description,
		TicketedAt:  ticketedAt,
	}
	ref.ID = s.nextID
	s.nextID++
	s.tickets[incidentID] = ref

	return nil
}

func (s *MemoryStore) UpsertApp(ctx context.Context, appID, name string, sev severity.Severity, sourceName string, seenAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[appID]

	if !ok {
		app = &models.App{AppID: appID}
		app.ID = s.nextID
		s.nextID++
		s.apps[appID] = app
	}

	app.Name = name
	app.Status = string(sev)
	app.SourceName = sourceName
	app.LastSeenAt = seenAt

	return nil
}

// OpenIncidentCount reports how many incidents are currently open for an app.
// Exposed for invariant checks in tests.
func (s *MemoryStore) OpenIncidentCount(appID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0

	for _, incident := range s.incidents {
		if incident.AppID == appID && incident.ClosedAt == nil {
			count++
		}
	}

	return count
}

// Incident returns a snapshot of one incident by ID, or nil.
func (s *MemoryStore) Incident(incidentID uint) *models.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, ok := s.incidents[incidentID]

	if !ok {
		return nil
	}

	copied := *incident
	return &copied
}
