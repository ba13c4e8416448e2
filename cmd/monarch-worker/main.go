package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/devonelson50/Monarch/db"
	"github.com/devonelson50/Monarch/internal/config"
	"github.com/devonelson50/Monarch/internal/models"
	"github.com/devonelson50/Monarch/internal/notify"
	"github.com/devonelson50/Monarch/internal/reconciler"
	"github.com/devonelson50/Monarch/internal/router"
	"github.com/devonelson50/Monarch/internal/scheduler"
	"github.com/devonelson50/Monarch/internal/store"
	"github.com/devonelson50/Monarch/internal/ticketing"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg := config.Load()

	var incidentStore store.IncidentStore

	if cfg.DatabaseDSN != "" {
		if err := db.ConnectDatabase(cfg.DatabaseDSN); err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		if err := db.MigrateDatabase(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}

		seedSources()

		incidentStore = store.NewGormStore(db.DB)
	} else {
		log.Println("DATABASE_DSN not set, using in-memory store (state is lost on restart)")
		incidentStore = store.NewMemoryStore()
	}

	var tickets *ticketing.JiraConnector

	if cfg.JiraBaseURL != "" && cfg.JiraCredentials != "" {
		tickets = ticketing.NewJiraConnector(ticketing.JiraConfig{
			BaseURL:       cfg.JiraBaseURL,
			ProjectKey:    cfg.JiraProjectKey,
			IssueType:     cfg.JiraIssueType,
			EmailAndToken: cfg.JiraCredentials,
			Timeout:       cfg.CallTimeout,
		})
	} else {
		log.Println("Jira not configured, ticketing disabled")
	}

	var sinks []notify.Notifier
	var bus *notify.BusNotifier

	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, notify.NewSlackNotifier(cfg.SlackWebhookURL))
	}

	if cfg.NATSURL != "" {
		var err error
		bus, err = notify.NewBusNotifier(notify.BusConfig{URL: cfg.NATSURL})

		if err != nil {
			log.Printf("Event bus unavailable, continuing without it: %v", err)
		} else {
			sinks = append(sinks, bus)
		}
	}

	var ticketConnector ticketing.TicketConnector

	if tickets != nil {
		ticketConnector = tickets
	}

	synchronizer := ticketing.NewSynchronizer(ticketConnector, incidentStore)
	fanout := notify.NewFanout(db.DB, sinks...)

	r := reconciler.New(incidentStore, synchronizer, fanout,
		reconciler.WithWorkers(cfg.Workers),
		reconciler.WithCallTimeout(time.Duration(cfg.CallTimeout)*time.Second),
	)

	if err := scheduler.Initialize(r); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	if cfg.DatabaseDSN == "" {
		// Nothing to load from a database; poll the simulator fleet.
		scheduler.AddSource(models.Source{
			Name:     "simulator",
			Type:     "simulator",
			Status:   "active",
			Interval: 30,
		})
	}

	engine := router.NewRouter()

	go func() {
		if err := engine.Run(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutting down...")
	scheduler.Shutdown()

	if bus != nil {
		bus.Close()
	}
}

// seedSources installs the simulator feed on a fresh database so the worker
// produces data before any real source is configured.
func seedSources() {
	var count int64

	if err := db.DB.Model(&models.Source{}).Count(&count).Error; err != nil {
		log.Printf("Failed to count sources: %v", err)
		return
	}

	if count > 0 {
		return
	}

	source := models.Source{
		Name:     "simulator",
		Type:     "simulator",
		Status:   "active",
		Interval: 30,
	}

	if err := db.DB.Create(&source).Error; err != nil {
		log.Printf("Failed to seed simulator source: %v", err)
		return
	}

	log.Println("Seeded default simulator source")
}
