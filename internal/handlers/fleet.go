package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devonelson50/Monarch/db"
	"github.com/devonelson50/Monarch/internal/models"
)

type AppSummary struct {
	AppID      string    `json:"app_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	SourceName string    `json:"source_name"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type IncidentSummary struct {
	ID        uint       `json:"id"`
	AppID     string     `json:"app_id"`
	Severity  string     `json:"severity"`
	Title     string     `json:"title"`
	OpenedAt  time.Time  `json:"opened_at"`
	ClosedAt  *time.Time `json:"closed_at"`
	TicketKey string     `json:"ticket_key,omitempty"`
}

// ListApps returns the fleet with each app's last observed status.
func ListApps(c *gin.Context) {
	if db.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No database configured"})
		return
	}

	var apps []models.App

	if err := db.DB.Order("name").Find(&apps).Error; err != nil {
		log.Printf("Failed to list apps: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list apps"})
		return
	}

	summaries := make([]AppSummary, 0, len(apps))

	for _, app := range apps {
		summaries = append(summaries, AppSummary{
			AppID:      app.AppID,
			Name:       app.Name,
			Status:     app.Status,
			SourceName: app.SourceName,
			LastSeenAt: app.LastSeenAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{"apps": summaries})
}

// ListIncidents returns recent incidents, newest first. ?status=open limits
// the listing to incidents that have not closed yet.
func ListIncidents(c *gin.Context) {
	if db.DB == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "No database configured"})
		return
	}

	query := db.DB.Preload("TicketReference").Order("opened_at DESC").Limit(100)

	if c.Query("status") == "open" {
		query = query.Where("closed_at IS NULL")
	}

	var incidents []models.Incident

	if err := query.Find(&incidents).Error; err != nil {
		log.Printf("Failed to list incidents: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list incidents"})
		return
	}

	summaries := make([]IncidentSummary, 0, len(incidents))

	for _, incident := range incidents {
		summary := IncidentSummary{
			ID:       incident.ID,
			AppID:    incident.AppID,
			Severity: incident.Severity,
			Title:    incident.Title,
			OpenedAt: incident.OpenedAt,
			ClosedAt: incident.ClosedAt,
		}

		if incident.TicketReference != nil {
			summary.TicketKey = incident.TicketReference.TicketKey
		}

		summaries = append(summaries, summary)
	}

	c.JSON(http.StatusOK, gin.H{"incidents": summaries})
}
