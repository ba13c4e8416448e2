package models

import (
	"time"

	"gorm.io/gorm"
)

// PollCycle records the outcome of one reconciliation cycle for a source.
type PollCycle struct {
	gorm.Model

	SourceID uint   `gorm:"not null;index"`
	CycleID  string `gorm:"not null"`
	Status   string `gorm:"not null"` // "success", "failure"
	AppCount int    `gorm:"not null"`
	Duration int    `gorm:"not null"` // milliseconds
	Message  string
	RanAt    time.Time `gorm:"not null"`

	// Relationships
	Source Source `gorm:"foreignKey:SourceID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
