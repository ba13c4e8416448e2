package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/devonelson50/Monarch/internal/models"
	"github.com/devonelson50/Monarch/internal/severity"
)

// GormStore implements IncidentStore on the worker's Postgres database.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) FindOpenIncident(ctx context.Context, appID string) (*models.Incident, error) {
	var open []models.Incident

	err := s.db.WithContext(ctx).
		Where("app_id = ? AND closed_at IS NULL", appID).
		Order("opened_at DESC").
		Limit(2).
		Find(&open).Error

	if err != nil {
		return nil, fmt.Errorf("find open incident for %s: %w", appID, err)
	}

	return newestOpen(appID, open), nil
}

// newestOpen picks the open incident to act on. The partial unique index keeps
// this to at most one row; seeing more means the database constraint has been
// bypassed, which is logged rather than acted on.
func newestOpen(appID string, open []models.Incident) *models.Incident {
	if len(open) == 0 {
		return nil
	}

	if len(open) > 1 {
		log.Printf("INVARIANT: app %s has multiple open incidents, using newest (incident %d)", appID, open[0].ID)
	}

	return &open[0]
}

func (s *GormStore) OpenIncident(ctx context.Context, appID string, sev severity.Severity, title string, openedAt time.Time) (*models.Incident, error) {
	incident := models.Incident{
		AppID:    appID,
		Severity: string(sev),
		Title:    title,
		OpenedAt: openedAt,
	}

	err := s.db.WithContext(ctx).Create(&incident).Error

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another writer opened one first; the partial unique index kept the
		// invariant, so return the row that won.
		existing, findErr := s.FindOpenIncident(ctx, appID)

		if findErr != nil {
			return nil, findErr
		}

		if existing == nil {
			return nil, fmt.Errorf("open incident for %s: conflicting writer vanished", appID)
		}

		return existing, nil
	}

	if err != nil {
		return nil, fmt.Errorf("open incident for %s: %w", appID, err)
	}

	return &incident, nil
}

func (s *GormStore) UpdateSeverity(ctx context.Context, incidentID uint, sev severity.Severity) error {
	err := s.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("id = ? AND closed_at IS NULL", incidentID).
		Update("severity", string(sev)).Error

	if err != nil {
		return fmt.Errorf("update severity of incident %d: %w", incidentID, err)
	}

	return nil
}

func (s *GormStore) CloseIncident(ctx context.Context, incidentID uint, closedAt time.Time) error {
	// The closed_at IS NULL guard makes closing an already-closed incident a
	// no-op instead of moving its close time.
	err := s.db.WithContext(ctx).
		Model(&models.Incident{}).
		Where("id = ? AND closed_at IS NULL", incidentID).
		Update("closed_at", closedAt).Error

	if err != nil {
		return fmt.Errorf("close incident %d: %w", incidentID, err)
	}

	return nil
}

func (s *GormStore) GetTicketReference(ctx context.Context, incidentID uint) (*models.TicketReference, error) {
	var ref models.TicketReference

	err := s.db.WithContext(ctx).
		Where("incident_id = ?", incidentID).
		First(&ref).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("get ticket reference for incident %d: %w", incidentID, err)
	}

	return &ref, nil
}

func (s *GormStore) SetTicketReference(ctx context.Context, incidentID uint, ticketKey, summary, description string, ticketedAt time.Time) error {
	ref := models.TicketReference{
		IncidentID:  incidentID,
		TicketKey:   ticketKey,
		Summary:     summary,
		Description: description,
		TicketedAt:  ticketedAt,
	}

	err := s.db.WithContext(ctx).Create(&ref).Error

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("set ticket reference for incident %d: %w", incidentID, ErrConflict)
	}

	if err != nil {
		return fmt.Errorf("set ticket reference for incident %d: %w", incidentID, err)
	}

	return nil
}

func (s *GormStore) UpsertApp(ctx context.Context, appID, name string, sev severity.Severity, sourceName string, seenAt time.Time) error {
	app := models.App{
		AppID:      appID,
		Name:       name,
		Status:     string(sev),
		SourceName: sourceName,
		LastSeenAt: seenAt,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "app_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "status", "source_name", "last_seen_at", "updated_at"}),
	}).Create(&app).Error

	if err != nil {
		return fmt.Errorf("upsert app %s: %w", appID, err)
	}

	return nil
}
