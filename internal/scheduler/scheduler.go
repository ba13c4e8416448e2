package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/devonelson50/Monarch/db"
	"github.com/devonelson50/Monarch/internal/connectors"
	"github.com/devonelson50/Monarch/internal/models"
	"github.com/devonelson50/Monarch/internal/reconciler"
)

type Scheduler struct {
	reconciler *reconciler.Reconciler
	sources    map[uint]*SourceJob // source ID -> job
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

type SourceJob struct {
	source    models.Source
	connector connectors.Connector
	ticker    *time.Ticker
	cancel    context.CancelFunc
}

// NewScheduler initializes a new Scheduler instance
func NewScheduler(r *reconciler.Reconciler) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		reconciler: r,
		sources:    make(map[uint]*SourceJob),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start loads all active sources and begins polling them
func (s *Scheduler) Start() error {
	log.Println("Starting scheduler...")

	if db.DB == nil {
		log.Println("Scheduler started with no database; add sources manually")
		return nil
	}

	var sourcesList []models.Source
	if err := db.DB.Where("status = ?", "active").Find(&sourcesList).Error; err != nil {
		return err
	}

	for _, source := range sourcesList {
		s.AddSource(source)
	}

	log.Printf("Scheduler started with %d sources", len(sourcesList))
	return nil
}

// Stop gracefully shuts down all source jobs and waits for in-flight cycles.
// Each store mutation is individually atomic, so abandoning a cycle midway
// only delays reconciliation, never corrupts it.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	s.cancel() // Cancel main context

	s.mu.Lock()

	for _, job := range s.sources {
		job.ticker.Stop()
		job.cancel()
	}

	s.sources = make(map[uint]*SourceJob)
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("Scheduler stopped")
}

// AddSource starts polling a source
func (s *Scheduler) AddSource(source models.Source) {
	connector, err := connectors.New(source)

	if err != nil {
		log.Printf("Cannot schedule source %s: %v", source.Name, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stop existing job if it exists
	if existingJob, exists := s.sources[source.ID]; exists {
		existingJob.ticker.Stop()
		existingJob.cancel()
	}

	interval := source.Interval

	if interval <= 0 {
		interval = 30
	}

	jobCtx, jobCancel := context.WithCancel(s.ctx)
	ticker := time.NewTicker(time.Duration(interval) * time.Second)

	job := &SourceJob{
		source:    source,
		connector: connector,
		ticker:    ticker,
		cancel:    jobCancel,
	}

	s.sources[source.ID] = job

	// Start the polling goroutine with an immediate first cycle
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.executeCycle(jobCtx, job)
		s.runSource(jobCtx, job)
	}()

	log.Printf("Added source %s (%s) polling every %ds", source.Name, source.Type, interval)
}

// RemoveSource stops polling a source
func (s *Scheduler) RemoveSource(sourceID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.sources[sourceID]; exists {
		job.ticker.Stop()
		job.cancel()
		delete(s.sources, sourceID)
		log.Printf("Removed source %d", sourceID)
	}
}

// runSource drives the recurring poll cycles for one source
func (s *Scheduler) runSource(ctx context.Context, job *SourceJob) {
	defer job.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-job.ticker.C:
			s.executeCycle(ctx, job)
		}
	}
}

// executeCycle fetches a snapshot from the source and reconciles it
func (s *Scheduler) executeCycle(ctx context.Context, job *SourceJob) {
	start := time.Now()

	records, err := job.connector.FetchStatuses(ctx)

	if err != nil {
		log.Printf("Source %s snapshot failed: %v", job.source.Name, err)
		s.storeCycleResult(job.source.ID, reconciler.CycleResult{}, time.Since(start), err)
		return
	}

	result := s.reconciler.RunCycle(ctx, job.source.Name, records)
	duration := time.Since(start)

	s.storeCycleResult(job.source.ID, result, duration, nil)

	log.Printf("[%s] Source %s reconciled %d apps in %v (opened %d, escalated %d, closed %d, failed %d)",
		result.CycleID, job.source.Name, result.Apps, duration,
		result.Opened, result.Escalated, result.Closed, result.Failed)
}

// storeCycleResult saves the cycle outcome to the database
func (s *Scheduler) storeCycleResult(sourceID uint, result reconciler.CycleResult, duration time.Duration, err error) {
	if db.DB == nil {
		return
	}

	status := "success"
	message := ""

	if err != nil {
		status = "failure"
		message = err.Error()
	}

	cycle := models.PollCycle{
		SourceID: sourceID,
		CycleID:  result.CycleID,
		Status:   status,
		AppCount: result.Apps,
		Duration: int(duration.Milliseconds()),
		Message:  message,
		RanAt:    time.Now(),
	}

	if dbErr := db.DB.Create(&cycle).Error; dbErr != nil {
		log.Printf("Failed to store cycle result for source %d: %v", sourceID, dbErr)
	}
}

// Simulator returns the simulator connector if one is scheduled, for runtime
// status overrides through the ops API.
func (s *Scheduler) Simulator() *connectors.Simulator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, job := range s.sources {
		if sim, ok := job.connector.(*connectors.Simulator); ok {
			return sim
		}
	}

	return nil
}

// GetStatus returns current scheduler status
func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"active_sources": len(s.sources),
		"running":        s.ctx.Err() == nil,
	}
}

// Global scheduler instance
var globalScheduler *Scheduler

// Initialize creates and starts the global scheduler
func Initialize(r *reconciler.Reconciler) error {
	globalScheduler = NewScheduler(r)
	return globalScheduler.Start()
}

// Shutdown stops the global scheduler
func Shutdown() {
	if globalScheduler != nil {
		globalScheduler.Stop()
	}
}

// AddSource adds a source to the global scheduler
func AddSource(source models.Source) {
	if globalScheduler != nil {
		globalScheduler.AddSource(source)
	}
}

// Simulator exposes the global scheduler's simulator connector, if any
func Simulator() *connectors.Simulator {
	if globalScheduler != nil {
		return globalScheduler.Simulator()
	}

	return nil
}

// Status exposes the global scheduler's status
func Status() map[string]interface{} {
	if globalScheduler != nil {
		return globalScheduler.GetStatus()
	}

	return map[string]interface{}{"running": false}
}
