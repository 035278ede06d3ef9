package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a row does not exist in the caller's org
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique key is already taken
	ErrConflict = errors.New("conflict")
	// ErrInvalidState is returned when a conditional update finds the row in another state
	ErrInvalidState = errors.New("invalid state")
)

// LeadRepository defines the interface for lead data access
type LeadRepository interface {
	GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.Lead, error)
	GetByAddressHash(ctx context.Context, orgID, addressHash string) (*models.Lead, error)
	// Create inserts a lead and returns ErrConflict if (org_id, address_hash) exists.
	Create(ctx context.Context, lead *models.Lead) error
	// UpsertFromBatch inserts the lead or, on an (org_id, address_hash) conflict, updates
	// only property_type and land_signals. It returns the stored row and whether it was inserted.
	UpsertFromBatch(ctx context.Context, lead *models.Lead) (*models.Lead, bool, error)
	Update(ctx context.Context, lead *models.Lead) error
	List(ctx context.Context, filters LeadFilters) ([]models.Lead, error)
}

// DealRepository defines the interface for deal data access
type DealRepository interface {
	GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.Deal, error)
	GetByLead(ctx context.Context, orgID string, leadID uuid.UUID) (*models.Deal, error)
	// CreateIfAbsent inserts the deal unless one exists for (org_id, lead_id).
	// It returns the stored deal and whether it was inserted.
	CreateIfAbsent(ctx context.Context, deal *models.Deal) (*models.Deal, bool, error)
	// ApplyStageUpdate performs the stage transition as one conditional write.
	ApplyStageUpdate(ctx context.Context, orgID string, id uuid.UUID, update models.StageUpdate) (*models.Deal, error)
	List(ctx context.Context, filters DealFilters) ([]models.Deal, error)
	CountByStage(ctx context.Context, orgID string) (map[models.Stage]int, error)
}

// ReminderRepository defines the interface for reminder data access
type ReminderRepository interface {
	// Upsert inserts or re-arms a reminder by idempotency key: remind_at is replaced,
	// status resets to pending and sent/delivered/missed/cancelled timestamps are cleared.
	Upsert(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error)
	GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.Reminder, error)
	// ListDue returns pending or scheduled reminders with remind_at <= now, oldest first.
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	// TransitionDue moves the given reminders to status, skipping any no longer pending or scheduled.
	TransitionDue(ctx context.Context, ids []uuid.UUID, status models.ReminderStatus, at time.Time) (int, error)
	ListByStatus(ctx context.Context, filters ReminderFilters) ([]models.Reminder, error)
	ListForTarget(ctx context.Context, orgID string, targetType models.TargetType, targetID string) ([]models.Reminder, error)
	// MarkDelivered acknowledges a sent or missed reminder. Other states give ErrInvalidState.
	MarkDelivered(ctx context.Context, orgID, userID string, id uuid.UUID, at time.Time) (*models.Reminder, error)
	// CancelForTarget cancels every undelivered reminder of a target.
	CancelForTarget(ctx context.Context, orgID string, targetType models.TargetType, targetID string, at time.Time) (int, error)
}

// EventRepository defines the interface for calendar event data access
type EventRepository interface {
	Create(ctx context.Context, event *models.CalendarEvent) error
	GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.CalendarEvent, error)
	Update(ctx context.Context, event *models.CalendarEvent) error
	// MarkMissedEndedBefore moves scheduled events ending before cutoff to missed.
	MarkMissedEndedBefore(ctx context.Context, cutoff, at time.Time) (int, error)
	ListForUser(ctx context.Context, orgID, userID string, from, to time.Time) ([]models.CalendarEvent, error)
}

// TransactionManager defines the interface for database transaction management
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(repos *Repositories) error) error
}

// Repositories groups all repository interfaces
type Repositories struct {
	Lead     LeadRepository
	Deal     DealRepository
	Reminder ReminderRepository
	Event    EventRepository
	Tx       TransactionManager
}

// LeadFilters defines filters for querying leads
type LeadFilters struct {
	OrgID           string
	Status          string
	Qualified       *bool
	PropertyType    string
	MinDealScore    *float64
	IncludeArchived bool
	Limit           int
	Offset          int
}

// DealFilters defines filters for querying deals
type DealFilters struct {
	OrgID  string
	Stage  models.Stage
	Limit  int
	Offset int
}

// ReminderFilters defines filters for querying a user's reminders
type ReminderFilters struct {
	OrgID    string
	UserID   string
	Statuses []models.ReminderStatus
	Limit    int
}
