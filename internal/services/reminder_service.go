package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/errors"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/google/uuid"
)

// ScheduleRequest describes one logical reminder.
// The reminder fires at TargetAt shifted by OffsetMinutes (negative means before).
type ScheduleRequest struct {
	OrgID         string
	UserID        string
	TargetType    models.TargetType
	TargetID      string
	TargetAt      time.Time
	OffsetMinutes int
	Channel       models.Channel
}

// reminderServiceImpl implements ReminderService
type reminderServiceImpl struct {
	repos  *repository.Repositories
	clock  clock.Clock
	logger logger.Logger
}

// newReminderService creates a new reminder service implementation
func newReminderService(repos *repository.Repositories, clk clock.Clock, log logger.Logger) *reminderServiceImpl {
	return &reminderServiceImpl{
		repos:  repos,
		clock:  clk,
		logger: log,
	}
}

func validateSchedule(req *ScheduleRequest) *errors.AppError {
	if strings.TrimSpace(req.OrgID) == "" || strings.TrimSpace(req.UserID) == "" {
		return errors.InvalidInput("org and user are required", nil)
	}
	if !req.TargetType.IsValid() {
		return errors.InvalidInput("invalid target type: "+string(req.TargetType), nil)
	}
	if strings.TrimSpace(req.TargetID) == "" {
		return errors.InvalidInput("target id is required", nil)
	}
	if req.TargetAt.IsZero() {
		return errors.InvalidInput("target time is required", nil)
	}
	if req.Channel == "" {
		req.Channel = models.ChannelInApp
	}
	if !req.Channel.IsValid() {
		return errors.InvalidInput("invalid channel: "+string(req.Channel), nil)
	}
	return nil
}

// Schedule creates the reminder or re-arms the existing one with the same idempotency key
func (s *reminderServiceImpl) Schedule(ctx context.Context, req ScheduleRequest) (*models.Reminder, error) {
	return s.schedule(ctx, s.repos.Reminder, req)
}

// schedule runs against the given repository so callers can enlist it in a transaction
func (s *reminderServiceImpl) schedule(ctx context.Context, reminders repository.ReminderRepository, req ScheduleRequest) (*models.Reminder, error) {
	if err := validateSchedule(&req); err != nil {
		return nil, err.WithOperation("Schedule")
	}

	now := s.clock.Now()
	reminder := &models.Reminder{
		ID:             uuid.New(),
		OrgID:          req.OrgID,
		UserID:         req.UserID,
		TargetType:     req.TargetType,
		TargetID:       req.TargetID,
		RemindAt:       req.TargetAt.Add(time.Duration(req.OffsetMinutes) * time.Minute),
		OffsetMinutes:  req.OffsetMinutes,
		Channel:        req.Channel,
		Status:         models.ReminderPending,
		IdempotencyKey: models.ReminderKey(req.OrgID, req.UserID, req.TargetType, req.TargetID, req.OffsetMinutes, req.Channel),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	stored, err := reminders.Upsert(ctx, reminder)
	if err != nil {
		s.logger.Error("Failed to schedule reminder", err, "idempotency_key", reminder.IdempotencyKey)
		return nil, errors.DatabaseError("failed to schedule reminder", err).WithOperation("Schedule")
	}

	s.logger.Debug("Reminder scheduled", "reminder_id", stored.ID, "remind_at", stored.RemindAt)
	return stored, nil
}

func (s *reminderServiceImpl) listByStatus(ctx context.Context, orgID, userID string, statuses []models.ReminderStatus, operation string) ([]models.Reminder, error) {
	reminders, err := s.repos.Reminder.ListByStatus(ctx, repository.ReminderFilters{
		OrgID:    orgID,
		UserID:   userID,
		Statuses: statuses,
	})
	if err != nil {
		return nil, errors.DatabaseError("failed to list reminders", err).WithOperation(operation)
	}
	return reminders, nil
}

// ListActive returns sent reminders the client has not acknowledged yet
func (s *reminderServiceImpl) ListActive(ctx context.Context, orgID, userID string) ([]models.Reminder, error) {
	return s.listByStatus(ctx, orgID, userID, []models.ReminderStatus{models.ReminderSent}, "ListActive")
}

// ListMissed returns reminders that fired past the grace window
func (s *reminderServiceImpl) ListMissed(ctx context.Context, orgID, userID string) ([]models.Reminder, error) {
	return s.listByStatus(ctx, orgID, userID, []models.ReminderStatus{models.ReminderMissed}, "ListMissed")
}

// MarkDelivered acknowledges a sent or missed reminder
func (s *reminderServiceImpl) MarkDelivered(ctx context.Context, orgID, userID string, id uuid.UUID) (*models.Reminder, error) {
	reminder, err := s.repos.Reminder.MarkDelivered(ctx, orgID, userID, id, s.clock.Now())
	if err != nil {
		switch {
		case stderrors.Is(err, repository.ErrNotFound):
			return nil, errors.NotFound("reminder not found", err).WithOperation("MarkDelivered")
		case stderrors.Is(err, repository.ErrInvalidState):
			return nil, errors.InvalidInput("reminder has not been sent", err).WithOperation("MarkDelivered")
		default:
			return nil, errors.DatabaseError("failed to mark reminder delivered", err).WithOperation("MarkDelivered")
		}
	}
	return reminder, nil
}

// CancelForTarget cancels the undelivered reminders of a target
func (s *reminderServiceImpl) CancelForTarget(ctx context.Context, orgID string, targetType models.TargetType, targetID string) (int, error) {
	return s.cancelForTarget(ctx, s.repos.Reminder, orgID, targetType, targetID)
}

func (s *reminderServiceImpl) cancelForTarget(ctx context.Context, reminders repository.ReminderRepository, orgID string, targetType models.TargetType, targetID string) (int, error) {
	n, err := reminders.CancelForTarget(ctx, orgID, targetType, targetID, s.clock.Now())
	if err != nil {
		return 0, errors.DatabaseError("failed to cancel reminders", err).WithOperation("CancelForTarget")
	}
	if n > 0 {
		s.logger.Info("Reminders cancelled", "org_id", orgID, "target_type", targetType, "target_id", targetID, "count", n)
	}
	return n, nil
}
