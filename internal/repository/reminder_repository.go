package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const reminderColumns = `
	id, org_id, user_id, target_type, target_id, remind_at, offset_minutes,
	channel, status, idempotency_key, sent_at, delivered_at, missed_at,
	cancelled_at, created_at, updated_at`

// reminderRepository implements ReminderRepository
type reminderRepository struct {
	db dbExecutor
}

// NewReminderRepository creates a new reminder repository
func NewReminderRepository(db dbExecutor) ReminderRepository {
	return &reminderRepository{db: db}
}

func scanReminder(row rowScanner, r *models.Reminder) error {
	return row.Scan(
		&r.ID, &r.OrgID, &r.UserID, &r.TargetType, &r.TargetID, &r.RemindAt,
		&r.OffsetMinutes, &r.Channel, &r.Status, &r.IdempotencyKey, &r.SentAt,
		&r.DeliveredAt, &r.MissedAt, &r.CancelledAt, &r.CreatedAt, &r.UpdatedAt,
	)
}

func statusStrings(statuses []models.ReminderStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// Upsert inserts a reminder or re-arms the one sharing its idempotency key
func (r *reminderRepository) Upsert(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	if reminder.ID == uuid.Nil {
		reminder.ID = uuid.New()
	}
	now := time.Now().UTC()
	if reminder.CreatedAt.IsZero() {
		reminder.CreatedAt = now
	}
	if reminder.UpdatedAt.IsZero() {
		reminder.UpdatedAt = reminder.CreatedAt
	}

	query := `
		INSERT INTO reminders (` + reminderColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, 'pending', $9, NULL, NULL, NULL, NULL, $10, $11
		)
		ON CONFLICT (idempotency_key) DO UPDATE SET
			remind_at = EXCLUDED.remind_at,
			status = 'pending',
			sent_at = NULL,
			delivered_at = NULL,
			missed_at = NULL,
			cancelled_at = NULL,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + reminderColumns

	stored := &models.Reminder{}
	err := scanReminder(r.db.QueryRowContext(ctx, query,
		reminder.ID, reminder.OrgID, reminder.UserID, string(reminder.TargetType),
		reminder.TargetID, reminder.RemindAt, reminder.OffsetMinutes,
		string(reminder.Channel), reminder.IdempotencyKey,
		reminder.CreatedAt, reminder.UpdatedAt,
	), stored)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert reminder: %w", err)
	}
	return stored, nil
}

// GetByID retrieves a reminder by ID within an org
func (r *reminderRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE org_id = $1 AND id = $2`

	reminder := &models.Reminder{}
	if err := scanReminder(r.db.QueryRowContext(ctx, query, orgID, id), reminder); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reminder: %w", err)
	}
	return reminder, nil
}

// ListDue retrieves pending reminders whose time has come, oldest first
func (r *reminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE status = ANY($1) AND remind_at <= $2
		ORDER BY remind_at ASC
		LIMIT $3
	`
	return r.list(ctx, query, pq.Array(statusStrings(models.DueStatuses)), now, limit)
}

// TransitionDue moves reminders that are still pending or scheduled
func (r *reminderRepository) TransitionDue(ctx context.Context, ids []uuid.UUID, status models.ReminderStatus, at time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `
		UPDATE reminders SET
			status = $1::text,
			sent_at = CASE WHEN $1::text = 'sent' THEN $2::timestamptz ELSE sent_at END,
			missed_at = CASE WHEN $1::text = 'missed' THEN $2::timestamptz ELSE missed_at END,
			updated_at = $2::timestamptz
		WHERE id = ANY($3::uuid[]) AND status = ANY($4)
	`

	result, err := r.db.ExecContext(ctx, query,
		string(status), at, pq.Array(idStrings), pq.Array(statusStrings(models.DueStatuses)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to transition reminders: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

// ListByStatus retrieves a user's reminders in the given statuses, newest first
func (r *reminderRepository) ListByStatus(ctx context.Context, filters ReminderFilters) ([]models.Reminder, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE org_id = $1 AND user_id = $2 AND status = ANY($3)
		ORDER BY remind_at DESC
		LIMIT $4
	`
	return r.list(ctx, query, filters.OrgID, filters.UserID, pq.Array(statusStrings(filters.Statuses)), limit)
}

// ListForTarget retrieves every reminder attached to a target
func (r *reminderRepository) ListForTarget(ctx context.Context, orgID string, targetType models.TargetType, targetID string) ([]models.Reminder, error) {
	query := `
		SELECT ` + reminderColumns + `
		FROM reminders
		WHERE org_id = $1 AND target_type = $2 AND target_id = $3
		ORDER BY offset_minutes ASC, channel ASC
	`
	return r.list(ctx, query, orgID, string(targetType), targetID)
}

// MarkDelivered records the client acknowledgment of a reminder
func (r *reminderRepository) MarkDelivered(ctx context.Context, orgID, userID string, id uuid.UUID, at time.Time) (*models.Reminder, error) {
	query := `
		UPDATE reminders SET status = 'delivered', delivered_at = $4, updated_at = $4
		WHERE org_id = $1 AND user_id = $2 AND id = $3 AND status IN ('sent', 'missed')
		RETURNING ` + reminderColumns

	reminder := &models.Reminder{}
	err := scanReminder(r.db.QueryRowContext(ctx, query, orgID, userID, id, at), reminder)
	if err == nil {
		return reminder, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to mark reminder delivered: %w", err)
	}

	existing, err := r.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, ErrNotFound
	}
	return nil, ErrInvalidState
}

// CancelForTarget cancels every reminder of a target that has not been delivered
func (r *reminderRepository) CancelForTarget(ctx context.Context, orgID string, targetType models.TargetType, targetID string, at time.Time) (int, error) {
	query := `
		UPDATE reminders SET status = 'cancelled', cancelled_at = $4, updated_at = $4
		WHERE org_id = $1 AND target_type = $2 AND target_id = $3
		  AND status IN ('pending', 'scheduled', 'sent', 'missed')
	`

	result, err := r.db.ExecContext(ctx, query, orgID, string(targetType), targetID, at)
	if err != nil {
		return 0, fmt.Errorf("failed to cancel reminders: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (r *reminderRepository) list(ctx context.Context, query string, args ...interface{}) ([]models.Reminder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		var reminder models.Reminder
		if err := scanReminder(rows, &reminder); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
