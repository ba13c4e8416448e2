package models

import (
	"time"

	"gorm.io/gorm"
)

// TicketReference binds an incident to the remote ticket opened for it.
// The unique index on IncidentID allows at most one reference per incident;
// a second insert is a logic error surfaced by the store as a conflict.
type TicketReference struct {
	gorm.Model

	IncidentID  uint   `gorm:"uniqueIndex;not null"`
	TicketKey   string `gorm:"not null"` // e.g. "MON-123"
	Summary     string
	Description string
	TicketedAt  time.Time
}
