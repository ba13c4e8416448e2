// Package reconciler turns raw per-cycle status snapshots into incident
// lifecycle decisions. The incident store is the durable source of truth; the
// in-memory last-observed cache only short-circuits repeat readings and can be
// dropped and rebuilt from the store at any time.
package reconciler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/devonelson50/Monarch/internal/connectors"
	"github.com/devonelson50/Monarch/internal/models"
	"github.com/devonelson50/Monarch/internal/notify"
	"github.com/devonelson50/Monarch/internal/severity"
	"github.com/devonelson50/Monarch/internal/store"
	"github.com/devonelson50/Monarch/internal/ticketing"
)

const (
	defaultWorkers     = 8
	defaultCallTimeout = 10 * time.Second
)

type Reconciler struct {
	store   store.IncidentStore
	tickets *ticketing.Synchronizer
	fanout  *notify.Fanout

	workers     int
	callTimeout time.Duration

	cacheMu sync.Mutex
	cache   map[string]severity.Severity // advisory last-observed severity

	gates sync.Map // app ID -> *sync.Mutex, serializes the same app across overlapping cycles
}

type Option func(*Reconciler)

// WithWorkers bounds how many apps are reconciled concurrently per cycle.
func WithWorkers(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithCallTimeout bounds each store and ticket-system call.
func WithCallTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.callTimeout = d
		}
	}
}

func New(incidentStore store.IncidentStore, tickets *ticketing.Synchronizer, fanout *notify.Fanout, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:       incidentStore,
		tickets:     tickets,
		fanout:      fanout,
		workers:     defaultWorkers,
		callTimeout: defaultCallTimeout,
		cache:       make(map[string]severity.Severity),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// CycleResult summarizes one reconciliation pass over a snapshot.
type CycleResult struct {
	CycleID   string
	Apps      int
	Opened    int
	Escalated int
	Closed    int
	Failed    int
}

// RunCycle reconciles one source snapshot. Apps absent from the snapshot are
// left untouched: an upstream outage must not look like a fleet-wide
// recovery. One app's failure never aborts the cycle for the others.
func (r *Reconciler) RunCycle(ctx context.Context, sourceName string, records []connectors.StatusRecord) CycleResult {
	cycleID := uuid.NewString()
	snapshot := collapse(records)

	result := CycleResult{CycleID: cycleID, Apps: len(snapshot)}

	var resultMu sync.Mutex

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)

	for _, rec := range snapshot {
		rec := rec

		group.Go(func() error {
			outcome := r.reconcileApp(groupCtx, cycleID, sourceName, rec)

			resultMu.Lock()
			switch outcome {
			case outcomeOpened:
				result.Opened++
			case outcomeEscalated:
				result.Escalated++
			case outcomeClosed:
				result.Closed++
			case outcomeFailed:
				result.Failed++
			}
			resultMu.Unlock()

			return nil
		})
	}

	group.Wait()

	return result
}

// collapse deduplicates records by app ID, last value wins.
func collapse(records []connectors.StatusRecord) []connectors.StatusRecord {
	latest := make(map[string]int, len(records))
	collapsed := make([]connectors.StatusRecord, 0, len(records))

	for _, rec := range records {
		if i, seen := latest[rec.AppID]; seen {
			collapsed[i] = rec
			continue
		}

		latest[rec.AppID] = len(collapsed)
		collapsed = append(collapsed, rec)
	}

	return collapsed
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeOpened
	outcomeEscalated
	outcomeClosed
	outcomeFailed
)

func (r *Reconciler) reconcileApp(ctx context.Context, cycleID, sourceName string, rec connectors.StatusRecord) outcome {
	// One app is never reconciled by two cycles at once, so a slow cycle N
	// cannot interleave with cycle N+1 for the same app.
	gate := r.gate(rec.AppID)
	gate.Lock()
	defer gate.Unlock()

	observed := severity.FromRaw(rec.RawStatus)
	now := time.Now().UTC()

	if err := r.upsertApp(ctx, rec, observed, sourceName, now); err != nil {
		// The fleet record is descriptive, not load-bearing; keep going.
		log.Printf("[%s] Failed to upsert app %s: %v", cycleID, rec.AppID, err)
	}

	incident, err := r.findOpenIncident(ctx, rec.AppID)

	if err != nil {
		// Read failure aborts this app for the cycle only.
		log.Printf("[%s] Failed to look up open incident for %s: %v", cycleID, rec.AppID, err)
		return outcomeFailed
	}

	previous := r.previousSeverity(rec.AppID, incident)
	classification := severity.Classify(previous, observed)

	var result outcome

	switch classification {
	case severity.Worsening:
		if incident == nil {
			result = r.openIncident(ctx, cycleID, rec, previous, observed, now)
		} else {
			result = r.escalateIncident(ctx, cycleID, rec, incident, previous, observed)
		}
	case severity.Improving:
		if incident != nil {
			result = r.closeIncident(ctx, cycleID, rec, incident, previous, now)
		}
	case severity.Lateral:
		// While an outage persists, repair a ticket creation that failed on
		// an earlier cycle.
		if incident != nil && severity.Rank(observed) >= severity.Rank(severity.Degraded) {
			callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
			r.tickets.EnsureTicket(callCtx, incident, rec.AppName, severity.Severity(incident.Severity))
			cancel()
		}
	}

	if result == outcomeFailed {
		// The store mutation did not apply; leave the cache behind so the
		// same transition is re-derived and retried next cycle.
		return result
	}

	r.setCached(rec.AppID, observed)

	return result
}

func (r *Reconciler) openIncident(ctx context.Context, cycleID string, rec connectors.StatusRecord, previous, observed severity.Severity, now time.Time) outcome {
	title := fmt.Sprintf("%s - %s", rec.AppName, observed)

	incident, err := r.storeOpenIncident(ctx, rec.AppID, observed, title, now)

	if err != nil {
		log.Printf("[%s] Failed to open incident for %s: %v", cycleID, rec.AppID, err)
		return outcomeFailed
	}

	log.Printf("[%s] Opened incident %d for %s (%s)", cycleID, incident.ID, rec.AppName, observed)

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	r.tickets.OnIncidentOpened(callCtx, incident, rec.AppName, observed)
	cancel()

	r.fanout.Notify(ctx, notify.Event{
		CycleID:    cycleID,
		IncidentID: incident.ID,
		AppID:      rec.AppID,
		AppName:    rec.AppName,
		Previous:   previous,
		Current:    observed,
		Kind:       notify.KindOpened,
		At:         now,
	})

	return outcomeOpened
}

func (r *Reconciler) escalateIncident(ctx context.Context, cycleID string, rec connectors.StatusRecord, incident *models.Incident, previous, observed severity.Severity) outcome {
	if err := r.storeUpdateSeverity(ctx, incident.ID, observed); err != nil {
		log.Printf("[%s] Failed to record escalation on incident %d: %v", cycleID, incident.ID, err)
		return outcomeFailed
	}

	log.Printf("[%s] Incident %d for %s escalated to %s", cycleID, incident.ID, rec.AppName, observed)

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	r.tickets.OnIncidentEscalated(callCtx, incident, rec.AppName, observed)
	cancel()

	r.fanout.Notify(ctx, notify.Event{
		CycleID:    cycleID,
		IncidentID: incident.ID,
		AppID:      rec.AppID,
		AppName:    rec.AppName,
		Previous:   previous,
		Current:    observed,
		Kind:       notify.KindEscalated,
		At:         time.Now().UTC(),
	})

	return outcomeEscalated
}

func (r *Reconciler) closeIncident(ctx context.Context, cycleID string, rec connectors.StatusRecord, incident *models.Incident, previous severity.Severity, now time.Time) outcome {
	if err := r.storeCloseIncident(ctx, incident.ID, now); err != nil {
		log.Printf("[%s] Failed to close incident %d: %v", cycleID, incident.ID, err)
		return outcomeFailed
	}

	log.Printf("[%s] Closed incident %d for %s", cycleID, incident.ID, rec.AppName)

	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	r.tickets.OnIncidentClosed(callCtx, incident, rec.AppName)
	cancel()

	r.fanout.Notify(ctx, notify.Event{
		CycleID:    cycleID,
		IncidentID: incident.ID,
		AppID:      rec.AppID,
		AppName:    rec.AppName,
		Previous:   previous,
		Current:    severity.Operational,
		Kind:       notify.KindResolved,
		At:         now,
	})

	return outcomeClosed
}

// previousSeverity prefers the cache and falls back to rebuilding from the
// store: an open incident carries its current severity, and with neither a
// cache entry nor an incident the app counts as never observed.
func (r *Reconciler) previousSeverity(appID string, incident *models.Incident) severity.Severity {
	if cached, ok := r.getCached(appID); ok {
		return cached
	}

	if incident != nil {
		return severity.Severity(incident.Severity)
	}

	return severity.Unknown
}

func (r *Reconciler) getCached(appID string) (severity.Severity, bool) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	cached, ok := r.cache[appID]
	return cached, ok
}

func (r *Reconciler) setCached(appID string, sev severity.Severity) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache[appID] = sev
}

// DropCache discards the advisory cache; the next cycle rebuilds state from
// the store.
func (r *Reconciler) DropCache() {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]severity.Severity)
}

func (r *Reconciler) gate(appID string) *sync.Mutex {
	gate, _ := r.gates.LoadOrStore(appID, &sync.Mutex{})
	return gate.(*sync.Mutex)
}

func (r *Reconciler) upsertApp(ctx context.Context, rec connectors.StatusRecord, sev severity.Severity, sourceName string, now time.Time) error {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	return r.store.UpsertApp(callCtx, rec.AppID, rec.AppName, sev, sourceName, now)
}

func (r *Reconciler) findOpenIncident(ctx context.Context, appID string) (*models.Incident, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	return r.store.FindOpenIncident(callCtx, appID)
}

func (r *Reconciler) storeOpenIncident(ctx context.Context, appID string, sev severity.Severity, title string, now time.Time) (*models.Incident, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	return r.store.OpenIncident(callCtx, appID, sev, title, now)
}

func (r *Reconciler) storeUpdateSeverity(ctx context.Context, incidentID uint, sev severity.Severity) error {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	return r.store.UpdateSeverity(callCtx, incidentID, sev)
}

func (r *Reconciler) storeCloseIncident(ctx context.Context, incidentID uint, now time.Time) error {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	return r.store.CloseIncident(callCtx, incidentID, now)
}
