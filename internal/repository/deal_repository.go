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

const dealColumns = `
	id, org_id, lead_id, stage, stage_updated_at, qualified_at, contract_at,
	escrow_at, closed_at, assignment_fee_expected, assignment_fee_actual,
	created_at, updated_at`

// dealRepository implements DealRepository
type dealRepository struct {
	db dbExecutor
}

// NewDealRepository creates a new deal repository
func NewDealRepository(db dbExecutor) DealRepository {
	return &dealRepository{db: db}
}

func scanDeal(row rowScanner, deal *models.Deal) error {
	return row.Scan(
		&deal.ID, &deal.OrgID, &deal.LeadID, &deal.Stage, &deal.StageUpdatedAt,
		&deal.QualifiedAt, &deal.ContractAt, &deal.EscrowAt, &deal.ClosedAt,
		&deal.AssignmentFeeExpected, &deal.AssignmentFeeActual,
		&deal.CreatedAt, &deal.UpdatedAt,
	)
}

func (r *dealRepository) getOne(ctx context.Context, query string, args ...interface{}) (*models.Deal, error) {
	deal := &models.Deal{}
	if err := scanDeal(r.db.QueryRowContext(ctx, query, args...), deal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal: %w", err)
	}
	return deal, nil
}

// GetByID retrieves a deal by ID within an org
func (r *dealRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.Deal, error) {
	return r.getOne(ctx, `SELECT `+dealColumns+` FROM deals WHERE org_id = $1 AND id = $2`, orgID, id)
}

// GetByLead retrieves the deal of a lead
func (r *dealRepository) GetByLead(ctx context.Context, orgID string, leadID uuid.UUID) (*models.Deal, error) {
	return r.getOne(ctx, `SELECT `+dealColumns+` FROM deals WHERE org_id = $1 AND lead_id = $2`, orgID, leadID)
}

// CreateIfAbsent inserts a deal unless the lead already has one
func (r *dealRepository) CreateIfAbsent(ctx context.Context, deal *models.Deal) (*models.Deal, bool, error) {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = time.Now().UTC()
	}
	if deal.UpdatedAt.IsZero() {
		deal.UpdatedAt = deal.CreatedAt
	}
	if deal.StageUpdatedAt.IsZero() {
		deal.StageUpdatedAt = deal.CreatedAt
	}

	query := `
		INSERT INTO deals (` + dealColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (org_id, lead_id) DO NOTHING
		RETURNING ` + dealColumns

	stored := &models.Deal{}
	err := scanDeal(r.db.QueryRowContext(ctx, query,
		deal.ID, deal.OrgID, deal.LeadID, deal.Stage, deal.StageUpdatedAt,
		deal.QualifiedAt, deal.ContractAt, deal.EscrowAt, deal.ClosedAt,
		deal.AssignmentFeeExpected, deal.AssignmentFeeActual,
		deal.CreatedAt, deal.UpdatedAt,
	), stored)
	if err == nil {
		return stored, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create deal: %w", err)
	}

	// DO NOTHING returns no row: another writer got there first
	existing, err := r.GetByLead(ctx, deal.OrgID, deal.LeadID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ApplyStageUpdate records a stage transition with first-enter-wins timestamps
func (r *dealRepository) ApplyStageUpdate(ctx context.Context, orgID string, id uuid.UUID, update models.StageUpdate) (*models.Deal, error) {
	query := `
		UPDATE deals SET
			stage = $3::text,
			stage_updated_at = $4::timestamptz,
			updated_at = $4::timestamptz,
			qualified_at = CASE WHEN $3::text = 'QUALIFIED' THEN COALESCE(qualified_at, $4::timestamptz) ELSE qualified_at END,
			contract_at = CASE WHEN $3::text = 'UNDER_CONTRACT' THEN COALESCE(contract_at, $4::timestamptz) ELSE contract_at END,
			escrow_at = CASE WHEN $3::text = 'IN_ESCROW' THEN COALESCE(escrow_at, $4::timestamptz) ELSE escrow_at END,
			closed_at = CASE WHEN $3::text IN ('CLOSED_WON', 'CLOSED_LOST') THEN COALESCE(closed_at, $4::timestamptz) ELSE closed_at END,
			assignment_fee_expected = COALESCE($5::double precision, assignment_fee_expected),
			assignment_fee_actual = COALESCE($6::double precision, assignment_fee_actual)
		WHERE org_id = $1 AND id = $2
		RETURNING ` + dealColumns

	return r.getOne(ctx, query,
		orgID, id, string(update.Stage), update.At,
		update.AssignmentFeeExpected, update.AssignmentFeeActual,
	)
}

// List retrieves deals of an org, optionally filtered by stage
func (r *dealRepository) List(ctx context.Context, filters DealFilters) ([]models.Deal, error) {
	query := `SELECT ` + dealColumns + ` FROM deals WHERE org_id = $1`
	args := []interface{}{filters.OrgID}
	argIndex := 2

	if filters.Stage != "" {
		query += fmt.Sprintf(" AND stage = $%d", argIndex)
		args = append(args, string(filters.Stage))
		argIndex++
	}

	query += " ORDER BY stage_updated_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, filters.Limit)
		argIndex++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIndex)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query deals: %w", err)
	}
	defer rows.Close()

	var deals []models.Deal
	for rows.Next() {
		var deal models.Deal
		if err := scanDeal(rows, &deal); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, deal)
	}
	return deals, rows.Err()
}

// CountByStage counts the deals of an org per stage
func (r *dealRepository) CountByStage(ctx context.Context, orgID string) (map[models.Stage]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT stage, COUNT(*) FROM deals WHERE org_id = $1 GROUP BY stage`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to count deals: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Stage]int)
	for rows.Next() {
		var stage models.Stage
		var count int
		if err := rows.Scan(&stage, &count); err != nil {
			return nil, fmt.Errorf("failed to scan deal count: %w", err)
		}
		counts[stage] = count
	}
	return counts, rows.Err()
}
