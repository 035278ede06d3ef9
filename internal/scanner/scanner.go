// Package scanner moves due reminders to sent or missed and flags calendar
// events that ended unattended.
package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/google/uuid"
)

// Phase names used in results and health records
const (
	PhaseReminders = "reminders"
	PhaseEvents    = "events"
)

// Config contains configuration for the due-scanner
type Config struct {
	Interval    time.Duration `json:"interval"`
	GracePeriod time.Duration `json:"grace_period"`
	BatchLimit  int           `json:"batch_limit"`
}

// DefaultConfig returns the scanner defaults
func DefaultConfig() Config {
	return Config{
		Interval:    60 * time.Second,
		GracePeriod: 15 * time.Minute,
		BatchLimit:  200,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Interval <= 0 {
		c.Interval = d.Interval
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = d.GracePeriod
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = d.BatchLimit
	}
	return c
}

// SweepResult reports what one sweep did. Phase errors are recorded here, never returned.
type SweepResult struct {
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
	RemindersScanned int           `json:"reminders_scanned"`
	RemindersSent    int           `json:"reminders_sent"`
	RemindersMissed  int           `json:"reminders_missed"`
	EventsMissed     int           `json:"events_missed"`
	ReminderError    string        `json:"reminder_error,omitempty"`
	EventError       string        `json:"event_error,omitempty"`
	Skipped          bool          `json:"skipped,omitempty"`
	SkipReason       string        `json:"skip_reason,omitempty"`
}

// OK reports whether both phases completed
func (r SweepResult) OK() bool {
	return r.ReminderError == "" && r.EventError == ""
}

// Summary returns a one-line description for logs
func (r SweepResult) Summary() string {
	if r.Skipped {
		return "skipped: " + r.SkipReason
	}
	return fmt.Sprintf("scanned=%d, sent=%d, missed=%d, events_missed=%d, duration=%v",
		r.RemindersScanned, r.RemindersSent, r.RemindersMissed, r.EventsMissed, r.Duration)
}

// Scanner performs sweeps against the reminder and event stores
type Scanner struct {
	reminders repository.ReminderRepository
	events    repository.EventRepository
	clock     clock.Clock
	logger    logger.Logger
	config    Config
}

// New creates a scanner. Zero config fields take the defaults.
func New(reminders repository.ReminderRepository, events repository.EventRepository, clk clock.Clock, log logger.Logger, cfg Config) *Scanner {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Scanner{
		reminders: reminders,
		events:    events,
		clock:     clk,
		logger:    log,
		config:    cfg.withDefaults(),
	}
}

// Config returns the effective configuration
func (s *Scanner) Config() Config {
	return s.config
}

// Sweep runs both phases once. A failure, including a panic, in one phase does not stop the other.
func (s *Scanner) Sweep(ctx context.Context) SweepResult {
	now := s.clock.Now()
	result := SweepResult{StartedAt: now}

	if err := s.guard(PhaseReminders, func() error { return s.sweepReminders(ctx, now, &result) }); err != nil {
		result.ReminderError = err.Error()
	}
	if err := s.guard(PhaseEvents, func() error { return s.sweepEvents(ctx, now, &result) }); err != nil {
		result.EventError = err.Error()
	}

	result.Duration = s.clock.Now().Sub(now)
	return result
}

// guard runs a phase and turns errors and panics into a logged error value
func (s *Scanner) guard(phase string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s phase: %v", phase, r)
		}
		if err != nil {
			s.logger.Error("Scanner phase failed", err, "phase", phase)
		}
	}()
	return fn()
}

func (s *Scanner) sweepReminders(ctx context.Context, now time.Time, result *SweepResult) error {
	due, err := s.reminders.ListDue(ctx, now, s.config.BatchLimit)
	if err != nil {
		return fmt.Errorf("failed to load due reminders: %w", err)
	}
	result.RemindersScanned = len(due)
	if len(due) == 0 {
		return nil
	}

	var sent, missed []uuid.UUID
	for _, r := range due {
		if now.Sub(r.RemindAt) <= s.config.GracePeriod {
			sent = append(sent, r.ID)
		} else {
			missed = append(missed, r.ID)
		}
	}

	if result.RemindersSent, err = s.reminders.TransitionDue(ctx, sent, models.ReminderSent, now); err != nil {
		return fmt.Errorf("failed to mark reminders sent: %w", err)
	}
	if result.RemindersMissed, err = s.reminders.TransitionDue(ctx, missed, models.ReminderMissed, now); err != nil {
		return fmt.Errorf("failed to mark reminders missed: %w", err)
	}

	s.logger.Debug("Reminders swept", "scanned", len(due), "sent", result.RemindersSent, "missed", result.RemindersMissed)
	return nil
}

func (s *Scanner) sweepEvents(ctx context.Context, now time.Time, result *SweepResult) error {
	n, err := s.events.MarkMissedEndedBefore(ctx, now.Add(-s.config.GracePeriod), now)
	if err != nil {
		return fmt.Errorf("failed to mark missed events: %w", err)
	}
	result.EventsMissed = n
	return nil
}
