package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devonelson50/Monarch/internal/connectors"
	"github.com/devonelson50/Monarch/internal/models"
	"github.com/devonelson50/Monarch/internal/notify"
	"github.com/devonelson50/Monarch/internal/severity"
	"github.com/devonelson50/Monarch/internal/store"
	"github.com/devonelson50/Monarch/internal/ticketing"
)

type fakeTickets struct {
	mu        sync.Mutex
	createErr error
	nextKey   int
	created   int
	comments  []string
}

func (f *fakeTickets) CreateIssue(ctx context.Context, summary, description, priority string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return "", f.createErr
	}

	f.nextKey++
	f.created++
	return fmt.Sprintf("MON-%d", f.nextKey), nil
}

func (f *fakeTickets) AddComment(ctx context.Context, issueKey, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.comments = append(f.comments, comment)
	return nil
}

func (f *fakeTickets) TransitionIssue(ctx context.Context, issueKey, transitionName string) error {
	return nil
}

func (f *fakeTickets) setCreateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.createErr = err
}

type harness struct {
	reconciler *Reconciler
	memory     *store.MemoryStore
	tickets    *fakeTickets
}

func newHarness() *harness {
	memory := store.NewMemoryStore()
	tickets := &fakeTickets{}
	ticketSync := ticketing.NewSynchronizer(tickets, memory)
	fanout := notify.NewFanout(nil, notify.Nop{})

	return &harness{
		reconciler: New(memory, ticketSync, fanout),
		memory:     memory,
		tickets:    tickets,
	}
}

func (h *harness) cycle(t *testing.T, statuses ...connectors.StatusRecord) CycleResult {
	t.Helper()
	return h.reconciler.RunCycle(context.Background(), "test", statuses)
}

func app1(status string) connectors.StatusRecord {
	return connectors.StatusRecord{AppID: "a1", AppName: "EC2-WEB-01", RawStatus: status}
}

func TestReconcilerSingleOutage(t *testing.T) {
	// Operational, Operational, Down, Down, Operational: one open, one ticket,
	// no escalations, one close.
	h := newHarness()

	totals := CycleResult{}

	for _, status := range []string{"Operational", "Operational", "Down", "Down", "Operational"} {
		result := h.cycle(t, app1(status))
		totals.Opened += result.Opened
		totals.Escalated += result.Escalated
		totals.Closed += result.Closed
	}

	assert.Equal(t, 1, totals.Opened)
	assert.Equal(t, 0, totals.Escalated)
	assert.Equal(t, 1, totals.Closed)
	assert.Equal(t, 1, h.tickets.created)
	require.Len(t, h.tickets.comments, 1)
	assert.Contains(t, h.tickets.comments[0], "RESOLVED")
	assert.Equal(t, 0, h.memory.OpenIncidentCount("a1"))
}

func TestReconcilerEscalation(t *testing.T) {
	// Operational, Degraded, Down, Operational: one incident opened at
	// Degraded, escalated (not reopened) at Down, closed at Operational.
	h := newHarness()

	h.cycle(t, app1("Operational"))

	opened := h.cycle(t, app1("Degraded"))
	assert.Equal(t, 1, opened.Opened)

	escalated := h.cycle(t, app1("Down"))
	assert.Equal(t, 0, escalated.Opened)
	assert.Equal(t, 1, escalated.Escalated)

	closed := h.cycle(t, app1("Operational"))
	assert.Equal(t, 1, closed.Closed)

	assert.Equal(t, 1, h.tickets.created)
	require.Len(t, h.tickets.comments, 2)
	assert.Contains(t, h.tickets.comments[0], "Down")
	assert.Contains(t, h.tickets.comments[1], "RESOLVED")
}

func TestReconcilerTicketCreationRetry(t *testing.T) {
	// A failed remote create leaves the incident without a reference; the
	// next cycle repairs it without duplicating the incident.
	h := newHarness()
	h.tickets.setCreateErr(errors.New("jira returned status 503"))

	result := h.cycle(t, app1("Down"))
	assert.Equal(t, 1, result.Opened)
	assert.Equal(t, 0, h.tickets.created)

	incident, err := h.memory.FindOpenIncident(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, incident)

	ref, err := h.memory.GetTicketReference(context.Background(), incident.ID)
	require.NoError(t, err)
	assert.Nil(t, ref)

	h.tickets.setCreateErr(nil)

	result = h.cycle(t, app1("Down"))
	assert.Equal(t, 0, result.Opened, "incident must not be duplicated")
	assert.Equal(t, 1, h.tickets.created)

	ref, err = h.memory.GetTicketReference(context.Background(), incident.ID)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, 1, h.memory.OpenIncidentCount("a1"))
}

func TestReconcilerAbsentAppStaysOpen(t *testing.T) {
	// An app missing from a snapshot is not reconciled: no false recovery
	// while the upstream source is flaky.
	h := newHarness()

	h.cycle(t, app1("Down"))
	assert.Equal(t, 1, h.memory.OpenIncidentCount("a1"))

	h.cycle(t) // app vanished this cycle
	assert.Equal(t, 1, h.memory.OpenIncidentCount("a1"))

	result := h.cycle(t, app1("Down")) // reappears still down
	assert.Equal(t, 0, result.Opened)
	assert.Equal(t, 0, result.Closed)
	assert.Equal(t, 1, h.memory.OpenIncidentCount("a1"))
}

func TestReconcilerFirstObservation(t *testing.T) {
	t.Run("first reading at Degraded opens an incident", func(t *testing.T) {
		h := newHarness()

		result := h.cycle(t, app1("Degraded"))
		assert.Equal(t, 1, result.Opened)
	})

	t.Run("first reading at Operational opens nothing", func(t *testing.T) {
		h := newHarness()

		result := h.cycle(t, app1("Operational"))
		assert.Equal(t, 0, result.Opened)
		assert.Equal(t, 0, h.memory.OpenIncidentCount("a1"))
	})

	t.Run("skipping Degraded entirely is still one worsening", func(t *testing.T) {
		h := newHarness()

		h.cycle(t, app1("Operational"))

		result := h.cycle(t, app1("Down"))
		assert.Equal(t, 1, result.Opened)
		assert.Equal(t, 0, result.Escalated)
	})
}

func TestReconcilerUnknownStatuses(t *testing.T) {
	t.Run("unknown never closes an open incident", func(t *testing.T) {
		h := newHarness()

		h.cycle(t, app1("Down"))
		result := h.cycle(t, app1("some-new-code"))

		assert.Equal(t, 0, result.Closed)
		assert.Equal(t, 1, h.memory.OpenIncidentCount("a1"))
	})

	t.Run("unknown never opens an incident", func(t *testing.T) {
		h := newHarness()

		result := h.cycle(t, app1("some-new-code"))
		assert.Equal(t, 0, result.Opened)
		assert.Equal(t, 0, h.memory.OpenIncidentCount("a1"))
	})

	t.Run("recovery still requires a real Operational reading", func(t *testing.T) {
		h := newHarness()

		h.cycle(t, app1("Down"))
		h.cycle(t, app1("some-new-code"))

		result := h.cycle(t, app1("Operational"))
		assert.Equal(t, 1, result.Closed)
	})
}

func TestReconcilerLateralRepeats(t *testing.T) {
	h := newHarness()

	h.cycle(t, app1("Down"))

	for i := 0; i < 5; i++ {
		result := h.cycle(t, app1("Down"))
		assert.Equal(t, CycleResult{CycleID: result.CycleID, Apps: 1}, result)
	}

	assert.Equal(t, 1, h.memory.OpenIncidentCount("a1"))
	assert.Equal(t, 1, h.tickets.created)
}

func TestReconcilerCacheRebuild(t *testing.T) {
	// Dropping the cache must not change decisions: state is rebuilt from the
	// store's open incident.
	h := newHarness()

	h.cycle(t, app1("Down"))
	h.reconciler.DropCache()

	result := h.cycle(t, app1("Down"))
	assert.Equal(t, 0, result.Opened, "rebuilt previous severity must match the open incident")
	assert.Equal(t, 0, result.Escalated)

	h.reconciler.DropCache()

	result = h.cycle(t, app1("Operational"))
	assert.Equal(t, 1, result.Closed)
}

func TestReconcilerDuplicateRecordsCollapse(t *testing.T) {
	h := newHarness()

	// Same app twice in one snapshot: the last value wins, one decision made.
	result := h.cycle(t,
		connectors.StatusRecord{AppID: "a1", AppName: "EC2-WEB-01", RawStatus: "Down"},
		connectors.StatusRecord{AppID: "a1", AppName: "EC2-WEB-01", RawStatus: "Operational"},
	)

	assert.Equal(t, 1, result.Apps)
	assert.Equal(t, 0, result.Opened)
	assert.Equal(t, 0, h.memory.OpenIncidentCount("a1"))
}

func TestReconcilerOpenInvariantAcrossSequences(t *testing.T) {
	// For arbitrary per-app status sequences, at most one incident is ever
	// open per app.
	sequences := [][]string{
		{"Down", "Down", "Degraded", "Down", "Operational", "Down"},
		{"Degraded", "Operational", "Degraded", "Operational", "Degraded"},
		{"Operational", "weird", "Down", "weird", "Operational"},
		{"Down", "Operational", "Down", "Operational", "Down", "Operational"},
	}

	for i, sequence := range sequences {
		t.Run(fmt.Sprintf("sequence_%d", i), func(t *testing.T) {
			h := newHarness()

			for _, status := range sequence {
				h.cycle(t, app1(status))
				assert.LessOrEqual(t, h.memory.OpenIncidentCount("a1"), 1)
			}
		})
	}
}

func TestReconcilerManyAppsConcurrently(t *testing.T) {
	h := newHarness()

	var snapshot []connectors.StatusRecord

	for i := 0; i < 100; i++ {
		snapshot = append(snapshot, connectors.StatusRecord{
			AppID:     fmt.Sprintf("app-%d", i),
			AppName:   fmt.Sprintf("APP-%d", i),
			RawStatus: "Down",
		})
	}

	result := h.cycle(t, snapshot...)

	assert.Equal(t, 100, result.Apps)
	assert.Equal(t, 100, result.Opened)

	for i := 0; i < 100; i++ {
		assert.Equal(t, 1, h.memory.OpenIncidentCount(fmt.Sprintf("app-%d", i)))
	}
}

func TestReconcilerPerAppFailureIsolation(t *testing.T) {
	// A store read failure for one app must not abort the cycle for others.
	memory := store.NewMemoryStore()
	failing := &failingReadStore{IncidentStore: memory, failFor: "a1"}
	tickets := &fakeTickets{}
	fanout := notify.NewFanout(nil, notify.Nop{})
	r := New(failing, ticketing.NewSynchronizer(tickets, memory), fanout)

	result := r.RunCycle(context.Background(), "test", []connectors.StatusRecord{
		{AppID: "a1", AppName: "BROKEN", RawStatus: "Down"},
		{AppID: "a2", AppName: "FINE", RawStatus: "Down"},
	})

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Opened)
	assert.Equal(t, 0, memory.OpenIncidentCount("a1"))
	assert.Equal(t, 1, memory.OpenIncidentCount("a2"))
}

func TestReconcilerStoreMutationRetry(t *testing.T) {
	// A failed open or close leaves the cache untouched, so the same
	// transition is re-derived and the mutation retried on the next cycle.
	memory := store.NewMemoryStore()
	flaky := &flakyWriteStore{IncidentStore: memory}
	tickets := &fakeTickets{}
	fanout := notify.NewFanout(nil, notify.Nop{})
	r := New(flaky, ticketing.NewSynchronizer(tickets, memory), fanout)

	cycle := func(status string) CycleResult {
		return r.RunCycle(context.Background(), "test",
			[]connectors.StatusRecord{{AppID: "a1", AppName: "EC2-WEB-01", RawStatus: status}})
	}

	flaky.failOpen = true
	result := cycle("Down")
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Opened)
	assert.Equal(t, 0, memory.OpenIncidentCount("a1"))

	flaky.failOpen = false
	result = cycle("Down")
	assert.Equal(t, 1, result.Opened, "open must be retried once the store recovers")
	assert.Equal(t, 0, result.Failed)
	assert.Equal(t, 1, memory.OpenIncidentCount("a1"))

	flaky.failClose = true
	result = cycle("Operational")
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 0, result.Closed)
	assert.Equal(t, 1, memory.OpenIncidentCount("a1"))

	flaky.failClose = false
	result = cycle("Operational")
	assert.Equal(t, 1, result.Closed, "close must be retried once the store recovers")
	assert.Equal(t, 0, memory.OpenIncidentCount("a1"))
}

type flakyWriteStore struct {
	store.IncidentStore
	failOpen  bool
	failClose bool
}

func (f *flakyWriteStore) OpenIncident(ctx context.Context, appID string, sev severity.Severity, title string, openedAt time.Time) (*models.Incident, error) {
	if f.failOpen {
		return nil, errors.New("connection reset")
	}

	return f.IncidentStore.OpenIncident(ctx, appID, sev, title, openedAt)
}

func (f *flakyWriteStore) CloseIncident(ctx context.Context, incidentID uint, closedAt time.Time) error {
	if f.failClose {
		return errors.New("connection reset")
	}

	return f.IncidentStore.CloseIncident(ctx, incidentID, closedAt)
}

type failingReadStore struct {
	store.IncidentStore
	failFor string
}

func (f *failingReadStore) FindOpenIncident(ctx context.Context, appID string) (*models.Incident, error) {
	if appID == f.failFor {
		return nil, errors.New("connection refused")
	}

	return f.IncidentStore.FindOpenIncident(ctx, appID)
}
