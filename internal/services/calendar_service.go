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

// CreateEventInput describes a new calendar event.
// A nil ReminderOffsets uses the configured defaults; an empty slice schedules none.
type CreateEventInput struct {
	OrgID           string
	UserID          string
	LeadID          *uuid.UUID
	Title           string
	StartAt         time.Time
	EndAt           time.Time
	ReminderOffsets []int
	Channel         models.Channel
}

// calendarServiceImpl implements CalendarService
type calendarServiceImpl struct {
	repos          *repository.Repositories
	reminders      *reminderServiceImpl
	defaultOffsets []int
	clock          clock.Clock
	logger         logger.Logger
}

// newCalendarService creates a new calendar service implementation
func newCalendarService(repos *repository.Repositories, reminders *reminderServiceImpl, defaultOffsets []int,
	clk clock.Clock, log logger.Logger) CalendarService {
	return &calendarServiceImpl{
		repos:          repos,
		reminders:      reminders,
		defaultOffsets: defaultOffsets,
		clock:          clk,
		logger:         log,
	}
}

func validateWindow(startAt, endAt time.Time) *errors.AppError {
	if startAt.IsZero() || endAt.IsZero() {
		return errors.InvalidInput("start and end are required", nil)
	}
	if endAt.Before(startAt) {
		return errors.InvalidInput("end must not be before start", nil)
	}
	return nil
}

// CreateEvent stores an event and schedules one reminder per offset, atomically
func (s *calendarServiceImpl) CreateEvent(ctx context.Context, input CreateEventInput) (*models.CalendarEvent, []models.Reminder, error) {
	if strings.TrimSpace(input.OrgID) == "" || strings.TrimSpace(input.UserID) == "" {
		return nil, nil, errors.InvalidInput("org and user are required", nil).WithOperation("CreateEvent")
	}
	if err := validateWindow(input.StartAt, input.EndAt); err != nil {
		return nil, nil, err.WithOperation("CreateEvent")
	}

	offsets := input.ReminderOffsets
	if offsets == nil {
		offsets = s.defaultOffsets
	}

	now := s.clock.Now()
	event := &models.CalendarEvent{
		ID:        uuid.New(),
		OrgID:     input.OrgID,
		UserID:    input.UserID,
		LeadID:    input.LeadID,
		Title:     strings.TrimSpace(input.Title),
		StartAt:   input.StartAt.UTC(),
		EndAt:     input.EndAt.UTC(),
		Status:    models.EventScheduled,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var scheduled []models.Reminder
	err := s.repos.Tx.WithTransaction(ctx, func(tx *repository.Repositories) error {
		if input.LeadID != nil {
			if _, err := tx.Lead.GetByID(ctx, input.OrgID, *input.LeadID); err != nil {
				if stderrors.Is(err, repository.ErrNotFound) {
					return errors.NotFound("lead not found", err).WithOperation("CreateEvent")
				}
				return errors.DatabaseError("failed to get lead", err).WithOperation("CreateEvent")
			}
		}

		if err := tx.Event.Create(ctx, event); err != nil {
			return errors.DatabaseError("failed to create event", err).WithOperation("CreateEvent")
		}

		for _, offset := range offsets {
			reminder, err := s.reminders.schedule(ctx, tx.Reminder, ScheduleRequest{
				OrgID:         event.OrgID,
				UserID:        event.UserID,
				TargetType:    models.TargetCalendarEvent,
				TargetID:      event.ID.String(),
				TargetAt:      event.StartAt,
				OffsetMinutes: offset,
				Channel:       input.Channel,
			})
			if err != nil {
				return err
			}
			scheduled = append(scheduled, *reminder)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create event", err, "org_id", input.OrgID, "user_id", input.UserID)
		return nil, nil, err
	}

	s.logger.Info("Event created", "org_id", event.OrgID, "event_id", event.ID, "reminders", len(scheduled))
	return event, scheduled, nil
}

func (s *calendarServiceImpl) getEvent(ctx context.Context, events repository.EventRepository, orgID string, id uuid.UUID, operation string) (*models.CalendarEvent, error) {
	event, err := events.GetByID(ctx, orgID, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("event not found", err).WithOperation(operation)
		}
		return nil, errors.DatabaseError("failed to get event", err).WithOperation(operation)
	}
	return event, nil
}

// GetEvent retrieves an event by ID
func (s *calendarServiceImpl) GetEvent(ctx context.Context, orgID string, id uuid.UUID) (*models.CalendarEvent, error) {
	return s.getEvent(ctx, s.repos.Event, orgID, id, "GetEvent")
}

// ListEvents retrieves a user's events starting within [from, to)
func (s *calendarServiceImpl) ListEvents(ctx context.Context, orgID, userID string, from, to time.Time) ([]models.CalendarEvent, error) {
	if !to.After(from) {
		return nil, errors.InvalidInput("to must be after from", nil).WithOperation("ListEvents")
	}

	events, err := s.repos.Event.ListForUser(ctx, orgID, userID, from, to)
	if err != nil {
		return nil, errors.DatabaseError("failed to list events", err).WithOperation("ListEvents")
	}
	return events, nil
}

// RescheduleEvent moves an event, re-arms its reminders and revives it if it was missed
func (s *calendarServiceImpl) RescheduleEvent(ctx context.Context, orgID string, id uuid.UUID, startAt, endAt time.Time) (*models.CalendarEvent, []models.Reminder, error) {
	if err := validateWindow(startAt, endAt); err != nil {
		return nil, nil, err.WithOperation("RescheduleEvent")
	}

	var (
		event    *models.CalendarEvent
		rearmed  []models.Reminder
		targetID = id.String()
	)
	err := s.repos.Tx.WithTransaction(ctx, func(tx *repository.Repositories) error {
		var err error
		event, err = s.getEvent(ctx, tx.Event, orgID, id, "RescheduleEvent")
		if err != nil {
			return err
		}
		if event.Status == models.EventCompleted || event.Status == models.EventCancelled {
			return errors.InvalidInput("cannot reschedule a "+string(event.Status)+" event", nil).WithOperation("RescheduleEvent")
		}

		event.StartAt = startAt.UTC()
		event.EndAt = endAt.UTC()
		event.Status = models.EventScheduled
		event.MissedAt = nil
		if err := tx.Event.Update(ctx, event); err != nil {
			return errors.DatabaseError("failed to update event", err).WithOperation("RescheduleEvent")
		}

		existing, err := tx.Reminder.ListForTarget(ctx, orgID, models.TargetCalendarEvent, targetID)
		if err != nil {
			return errors.DatabaseError("failed to list reminders", err).WithOperation("RescheduleEvent")
		}

		for _, r := range existing {
			reminder, err := s.reminders.schedule(ctx, tx.Reminder, ScheduleRequest{
				OrgID:         r.OrgID,
				UserID:        r.UserID,
				TargetType:    r.TargetType,
				TargetID:      r.TargetID,
				TargetAt:      event.StartAt,
				OffsetMinutes: r.OffsetMinutes,
				Channel:       r.Channel,
			})
			if err != nil {
				return err
			}
			rearmed = append(rearmed, *reminder)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("Event rescheduled", "org_id", orgID, "event_id", id, "start_at", event.StartAt, "reminders", len(rearmed))
	return event, rearmed, nil
}

// finish moves an event to a terminal status and cancels its outstanding reminders
func (s *calendarServiceImpl) finish(ctx context.Context, orgID string, id uuid.UUID, status models.EventStatus, operation string) (*models.CalendarEvent, error) {
	var event *models.CalendarEvent
	err := s.repos.Tx.WithTransaction(ctx, func(tx *repository.Repositories) error {
		var err error
		event, err = s.getEvent(ctx, tx.Event, orgID, id, operation)
		if err != nil {
			return err
		}
		if event.Status == status {
			return nil
		}
		if event.Status == models.EventCompleted || event.Status == models.EventCancelled {
			return errors.InvalidInput("event is already "+string(event.Status), nil).WithOperation(operation)
		}

		event.Status = status
		if err := tx.Event.Update(ctx, event); err != nil {
			return errors.DatabaseError("failed to update event", err).WithOperation(operation)
		}

		_, err = s.reminders.cancelForTarget(ctx, tx.Reminder, orgID, models.TargetCalendarEvent, id.String())
		return err
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// CompleteEvent marks an event as held
func (s *calendarServiceImpl) CompleteEvent(ctx context.Context, orgID string, id uuid.UUID) (*models.CalendarEvent, error) {
	return s.finish(ctx, orgID, id, models.EventCompleted, "CompleteEvent")
}

// CancelEvent cancels an event together with its reminders
func (s *calendarServiceImpl) CancelEvent(ctx context.Context, orgID string, id uuid.UUID) (*models.CalendarEvent, error) {
	return s.finish(ctx, orgID, id, models.EventCancelled, "CancelEvent")
}
