package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus represents calendar event status values
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventMissed    EventStatus = "missed"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// CalendarEvent is an appointment on a user's calendar, optionally linked to a lead
type CalendarEvent struct {
	ID        uuid.UUID   `json:"id" db:"id"`
	OrgID     string      `json:"org_id" db:"org_id"`
	UserID    string      `json:"user_id" db:"user_id"`
	LeadID    *uuid.UUID  `json:"lead_id,omitempty" db:"lead_id"`
	Title     string      `json:"title" db:"title"`
	StartAt   time.Time   `json:"start_at" db:"start_at"`
	EndAt     time.Time   `json:"end_at" db:"end_at"`
	Status    EventStatus `json:"status" db:"status"`
	MissedAt  *time.Time  `json:"missed_at" db:"missed_at"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt time.Time   `json:"updated_at" db:"updated_at"`
}
