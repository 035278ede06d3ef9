package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ReminderStatus represents reminder status values
type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "pending"
	ReminderScheduled ReminderStatus = "scheduled" // legacy alias of pending
	ReminderSent      ReminderStatus = "sent"
	ReminderMissed    ReminderStatus = "missed"
	ReminderDelivered ReminderStatus = "delivered"
	ReminderCancelled ReminderStatus = "cancelled"
)

// DueStatuses are the statuses the scanner may transition
var DueStatuses = []ReminderStatus{ReminderPending, ReminderScheduled}

// IsDue reports whether the status is still waiting for the scanner
func (s ReminderStatus) IsDue() bool {
	return s == ReminderPending || s == ReminderScheduled
}

// TargetType identifies what a reminder is attached to
type TargetType string

const (
	TargetCalendarEvent TargetType = "calendar_event"
	TargetTask          TargetType = "task"
)

// IsValid checks if a target type is recognized
func (t TargetType) IsValid() bool {
	return t == TargetCalendarEvent || t == TargetTask
}

// Channel is how a reminder reaches the user
type Channel string

const (
	ChannelInApp Channel = "in_app"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// IsValid checks if a channel is recognized
func (c Channel) IsValid() bool {
	switch c {
	case ChannelInApp, ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// Reminder is a scheduled notification tied to a calendar event or task
type Reminder struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	OrgID          string         `json:"org_id" db:"org_id"`
	UserID         string         `json:"user_id" db:"user_id"`
	TargetType     TargetType     `json:"target_type" db:"target_type"`
	TargetID       string         `json:"target_id" db:"target_id"`
	RemindAt       time.Time      `json:"remind_at" db:"remind_at"`
	OffsetMinutes  int            `json:"offset_minutes" db:"offset_minutes"`
	Channel        Channel        `json:"channel" db:"channel"`
	Status         ReminderStatus `json:"status" db:"status"`
	IdempotencyKey string         `json:"idempotency_key" db:"idempotency_key"`
	SentAt         *time.Time     `json:"sent_at" db:"sent_at"`
	DeliveredAt    *time.Time     `json:"delivered_at" db:"delivered_at"`
	MissedAt       *time.Time     `json:"missed_at" db:"missed_at"`
	CancelledAt    *time.Time     `json:"cancelled_at" db:"cancelled_at"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// ReminderKey builds the idempotency key that collapses duplicate schedules of one logical reminder
func ReminderKey(orgID, userID string, targetType TargetType, targetID string, offsetMinutes int, channel Channel) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d:%s", orgID, userID, targetType, targetID, offsetMinutes, channel)
}
