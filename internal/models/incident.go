package models

import (
	"time"

	"gorm.io/gorm"
)

// Incident is one continuous period during which an app's severity was at or
// above Degraded. The partial unique index on AppID enforces at most one open
// incident per app, even across concurrent worker instances.
type Incident struct {
	gorm.Model

	AppID    string `gorm:"not null;index;index:idx_incidents_one_open,unique,where:closed_at IS NULL"`
	Severity string `gorm:"not null"` // current severity of the outage
	Title    string `gorm:"not null"`
	OpenedAt time.Time
	ClosedAt *time.Time

	// Relationships
	TicketReference *TicketReference `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Notifications   []Notification   `gorm:"foreignKey:IncidentID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// Open reports whether the incident has not been closed yet.
func (i *Incident) Open() bool {
	return i.ClosedAt == nil
}
