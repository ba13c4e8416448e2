package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Source is a configured monitoring feed the scheduler polls for status
// snapshots. Config carries the connector-specific settings (API endpoint,
// pagination, fleet definition for the simulator).
type Source struct {
	gorm.Model

	Name     string         `gorm:"uniqueIndex;not null"`
	Type     string         `gorm:"not null"` // "newrelic", "nagios", "simulator"
	Status   string         `gorm:"not null"` // "active", "inactive"
	Interval int            `gorm:"not null"` // seconds between poll cycles
	Config   datatypes.JSON `gorm:"type:jsonb"`

	// Relationships
	PollCycles []PollCycle `gorm:"foreignKey:SourceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}
