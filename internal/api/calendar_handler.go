package api

import (
	"net/http"
	"time"

	"github.com/ajharbinger/dealflowos/internal/auth"
	"github.com/ajharbinger/dealflowos/internal/errors"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/ajharbinger/dealflowos/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CalendarHandler handles calendar events and reminders
type CalendarHandler struct {
	calendar  services.CalendarService
	reminders services.ReminderService
	logger    logger.Logger
}

// NewCalendarHandler creates a new calendar handler
func NewCalendarHandler(calendar services.CalendarService, reminders services.ReminderService, log logger.Logger) *CalendarHandler {
	return &CalendarHandler{calendar: calendar, reminders: reminders, logger: log}
}

// CreateEventRequest creates an event. A missing reminder_offsets uses the
// org defaults; an empty list schedules none.
type CreateEventRequest struct {
	LeadID          *uuid.UUID `json:"lead_id"`
	Title           string     `json:"title" validate:"max=255"`
	StartAt         time.Time  `json:"start_at" validate:"required"`
	EndAt           time.Time  `json:"end_at" validate:"required"`
	ReminderOffsets []int      `json:"reminder_offsets"`
	Channel         string     `json:"channel" validate:"omitempty,oneof=in_app email sms push"`
}

// RescheduleRequest moves an event
type RescheduleRequest struct {
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required"`
}

// ScheduleReminderRequest schedules one reminder against a target
type ScheduleReminderRequest struct {
	TargetType    string    `json:"target_type" validate:"required,oneof=calendar_event task"`
	TargetID      string    `json:"target_id" validate:"required"`
	TargetAt      time.Time `json:"target_at" validate:"required"`
	OffsetMinutes int       `json:"offset_minutes"`
	Channel       string    `json:"channel" validate:"omitempty,oneof=in_app email sms push"`
}

// CreateEvent creates an event and its reminders
func (h *CalendarHandler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	event, reminders, err := h.calendar.CreateEvent(ctx, services.CreateEventInput{
		OrgID:           auth.OrgID(c),
		UserID:          auth.UserID(c),
		LeadID:          req.LeadID,
		Title:           req.Title,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		ReminderOffsets: req.ReminderOffsets,
		Channel:         models.Channel(req.Channel),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": event, "reminders": reminders})
}

// GetEvent returns one event
func (h *CalendarHandler) GetEvent(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	event, err := h.calendar.GetEvent(ctx, auth.OrgID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// ListEvents lists the caller's events starting in [from, to). Defaults to the next 7 days.
func (h *CalendarHandler) ListEvents(c *gin.Context) {
	from := time.Now().UTC()
	to := from.Add(7 * 24 * time.Hour)

	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(c, h.logger, errors.InvalidInput("from must be RFC3339", err))
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(c, h.logger, errors.InvalidInput("to must be RFC3339", err))
			return
		}
		to = t
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	events, err := h.calendar.ListEvents(ctx, auth.OrgID(c), auth.UserID(c), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
}

// RescheduleEvent moves an event and re-arms its reminders
func (h *CalendarHandler) RescheduleEvent(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req RescheduleRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	event, reminders, err := h.calendar.RescheduleEvent(ctx, auth.OrgID(c), id, req.StartAt, req.EndAt)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event, "reminders": reminders})
}

// CompleteEvent marks an event completed
func (h *CalendarHandler) CompleteEvent(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	event, err := h.calendar.CompleteEvent(ctx, auth.OrgID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// CancelEvent cancels an event and its reminders
func (h *CalendarHandler) CancelEvent(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	event, err := h.calendar.CancelEvent(ctx, auth.OrgID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": event})
}

// ScheduleReminder schedules or re-arms one reminder for the caller
func (h *CalendarHandler) ScheduleReminder(c *gin.Context) {
	var req ScheduleReminderRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reminder, err := h.reminders.Schedule(ctx, services.ScheduleRequest{
		OrgID:         auth.OrgID(c),
		UserID:        auth.UserID(c),
		TargetType:    models.TargetType(req.TargetType),
		TargetID:      req.TargetID,
		TargetAt:      req.TargetAt,
		OffsetMinutes: req.OffsetMinutes,
		Channel:       models.Channel(req.Channel),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reminder": reminder})
}

// ActiveReminders lists the caller's sent, unacknowledged reminders
func (h *CalendarHandler) ActiveReminders(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	reminders, err := h.reminders.ListActive(ctx, auth.OrgID(c), auth.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders, "count": len(reminders)})
}

// MissedReminders lists the caller's missed reminders
func (h *CalendarHandler) MissedReminders(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	reminders, err := h.reminders.ListMissed(ctx, auth.OrgID(c), auth.UserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders, "count": len(reminders)})
}

// MarkDelivered acknowledges a reminder
func (h *CalendarHandler) MarkDelivered(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	reminder, err := h.reminders.MarkDelivered(ctx, auth.OrgID(c), auth.UserID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reminder": reminder})
}
