package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification is a best-effort delivery log entry for one outbound message
// about an incident. Failures to write it never affect incident state.
type Notification struct {
	gorm.Model

	IncidentID uint   `gorm:"not null;index"`
	Channel    string `gorm:"not null"` // "slack", "bus"
	Status     string `gorm:"not null"` // "sent", "failed"
	Message    string
	SentAt     *time.Time
}
