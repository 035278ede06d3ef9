package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/google/uuid"
)

const eventColumns = `
	id, org_id, user_id, lead_id, title, start_at, end_at, status, missed_at,
	created_at, updated_at`

// eventRepository implements EventRepository
type eventRepository struct {
	db dbExecutor
}

// NewEventRepository creates a new calendar event repository
func NewEventRepository(db dbExecutor) EventRepository {
	return &eventRepository{db: db}
}

func scanEvent(row rowScanner, e *models.CalendarEvent) error {
	return row.Scan(
		&e.ID, &e.OrgID, &e.UserID, &e.LeadID, &e.Title, &e.StartAt, &e.EndAt,
		&e.Status, &e.MissedAt, &e.CreatedAt, &e.UpdatedAt,
	)
}

// Create creates a new calendar event
func (r *eventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	if event.Status == "" {
		event.Status = models.EventScheduled
	}

	query := `
		INSERT INTO calendar_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.OrgID, event.UserID, event.LeadID, event.Title,
		event.StartAt, event.EndAt, string(event.Status), event.MissedAt,
		event.CreatedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create calendar event: %w", err)
	}
	return nil
}

// GetByID retrieves a calendar event by ID within an org
func (r *eventRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE org_id = $1 AND id = $2`

	event := &models.CalendarEvent{}
	if err := scanEvent(r.db.QueryRowContext(ctx, query, orgID, id), event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get calendar event: %w", err)
	}
	return event, nil
}

// Update updates an existing calendar event
func (r *eventRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	event.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE calendar_events SET
			lead_id = $3, title = $4, start_at = $5, end_at = $6, status = $7,
			missed_at = $8, updated_at = $9
		WHERE org_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		event.OrgID, event.ID, event.LeadID, event.Title, event.StartAt,
		event.EndAt, string(event.Status), event.MissedAt, event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update calendar event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkMissedEndedBefore flags scheduled events that ended before cutoff
func (r *eventRepository) MarkMissedEndedBefore(ctx context.Context, cutoff, at time.Time) (int, error) {
	query := `
		UPDATE calendar_events SET status = 'missed', missed_at = $2, updated_at = $2
		WHERE status = 'scheduled' AND end_at < $1
	`

	result, err := r.db.ExecContext(ctx, query, cutoff, at)
	if err != nil {
		return 0, fmt.Errorf("failed to mark missed events: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// ListForUser retrieves a user's events starting within [from, to)
func (r *eventRepository) ListForUser(ctx context.Context, orgID, userID string, from, to time.Time) ([]models.CalendarEvent, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM calendar_events
		WHERE org_id = $1 AND user_id = $2 AND start_at >= $3 AND start_at < $4
		ORDER BY start_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar events: %w", err)
	}
	defer rows.Close()

	var events []models.CalendarEvent
	for rows.Next() {
		var event models.CalendarEvent
		if err := scanEvent(rows, &event); err != nil {
			return nil, fmt.Errorf("failed to scan calendar event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
