package models

import (
	"time"

	"gorm.io/gorm"
)

// App is a monitored application reported by a source connector. Rows are
// created or refreshed on every poll cycle and never deleted by the worker.
type App struct {
	gorm.Model

	AppID      string `gorm:"uniqueIndex;not null"` // identifier from the source system
	Name       string `gorm:"not null"`
	Status     string `gorm:"not null"` // "Operational", "Degraded", "Down", "Unknown"
	SourceName string
	LastSeenAt time.Time

	// Relationships
	Incidents []Incident `gorm:"foreignKey:AppID;references:AppID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
