package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/google/uuid"
)

const leadColumns = `
	id, org_id, address, address_hash, line1, city, state, zip,
	owner_name, phone, email, source, status, qualified,
	arv, estimated_repairs, investor_multiplier, desired_assignment_fee, offer_price,
	moa, deal_score, property_type, land_signals, archived_at, created_at, updated_at`

// leadRepository implements LeadRepository
type leadRepository struct {
	db dbExecutor
}

// NewLeadRepository creates a new lead repository
func NewLeadRepository(db dbExecutor) LeadRepository {
	return &leadRepository{db: db}
}

func scanLead(row rowScanner, lead *models.Lead) error {
	return row.Scan(
		&lead.ID, &lead.OrgID, &lead.Address, &lead.AddressHash, &lead.Line1,
		&lead.City, &lead.State, &lead.Zip, &lead.OwnerName, &lead.Phone,
		&lead.Email, &lead.Source, &lead.Status, &lead.Qualified,
		&lead.ARV, &lead.EstimatedRepairs, &lead.InvestorMultiplier,
		&lead.DesiredAssignmentFee, &lead.OfferPrice, &lead.MOA, &lead.DealScore,
		&lead.PropertyType, &lead.LandSignals, &lead.ArchivedAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
}

// GetByID retrieves a lead by ID within an org
func (r *leadRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE org_id = $1 AND id = $2`

	lead := &models.Lead{}
	if err := scanLead(r.db.QueryRowContext(ctx, query, orgID, id), lead); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// GetByAddressHash retrieves a lead by its org-scoped address hash
func (r *leadRepository) GetByAddressHash(ctx context.Context, orgID, addressHash string) (*models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE org_id = $1 AND address_hash = $2`

	lead := &models.Lead{}
	if err := scanLead(r.db.QueryRowContext(ctx, query, orgID, addressHash), lead); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lead by address: %w", err)
	}
	return lead, nil
}

func leadInsertArgs(lead *models.Lead) []interface{} {
	return []interface{}{
		lead.ID, lead.OrgID, lead.Address, lead.AddressHash, lead.Line1,
		lead.City, lead.State, lead.Zip, lead.OwnerName, lead.Phone,
		lead.Email, lead.Source, lead.Status, lead.Qualified,
		lead.ARV, lead.EstimatedRepairs, lead.InvestorMultiplier,
		lead.DesiredAssignmentFee, lead.OfferPrice, lead.MOA, lead.DealScore,
		lead.PropertyType, lead.LandSignals, lead.ArchivedAt,
		lead.CreatedAt, lead.UpdatedAt,
	}
}

const leadInsert = `
	INSERT INTO leads (` + leadColumns + `) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26
	)`

func prepareLead(lead *models.Lead) {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	if lead.UpdatedAt.IsZero() {
		lead.UpdatedAt = lead.CreatedAt
	}
	if lead.Status == "" {
		lead.Status = models.DefaultLeadStatus
	}
	if lead.PropertyType == "" {
		lead.PropertyType = models.PropertyUnknown
	}
	if lead.LandSignals == nil {
		lead.LandSignals = models.LandSignals{}
	}
}

// Create creates a new lead
func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) error {
	prepareLead(lead)

	if _, err := r.db.ExecContext(ctx, leadInsert, leadInsertArgs(lead)...); err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// UpsertFromBatch inserts a lead or refreshes the classification of the existing one
func (r *leadRepository) UpsertFromBatch(ctx context.Context, lead *models.Lead) (*models.Lead, bool, error) {
	prepareLead(lead)

	// xmax is zero only for a freshly inserted row version
	query := leadInsert + `
		ON CONFLICT (org_id, address_hash) DO UPDATE SET
			property_type = EXCLUDED.property_type,
			land_signals = EXCLUDED.land_signals,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + leadColumns + `, (xmax = 0) AS inserted`

	stored := &models.Lead{}
	var inserted bool
	row := r.db.QueryRowContext(ctx, query, leadInsertArgs(lead)...)
	err := row.Scan(
		&stored.ID, &stored.OrgID, &stored.Address, &stored.AddressHash, &stored.Line1,
		&stored.City, &stored.State, &stored.Zip, &stored.OwnerName, &stored.Phone,
		&stored.Email, &stored.Source, &stored.Status, &stored.Qualified,
		&stored.ARV, &stored.EstimatedRepairs, &stored.InvestorMultiplier,
		&stored.DesiredAssignmentFee, &stored.OfferPrice, &stored.MOA, &stored.DealScore,
		&stored.PropertyType, &stored.LandSignals, &stored.ArchivedAt,
		&stored.CreatedAt, &stored.UpdatedAt, &inserted,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert lead: %w", err)
	}
	return stored, inserted, nil
}

// Update updates the mutable fields of an existing lead
func (r *leadRepository) Update(ctx context.Context, lead *models.Lead) error {
	lead.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE leads SET
			owner_name = $3, phone = $4, email = $5, source = $6, status = $7,
			qualified = $8, arv = $9, estimated_repairs = $10, investor_multiplier = $11,
			desired_assignment_fee = $12, offer_price = $13, moa = $14, deal_score = $15,
			property_type = $16, land_signals = $17, archived_at = $18, updated_at = $19
		WHERE org_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		lead.OrgID, lead.ID, lead.OwnerName, lead.Phone, lead.Email, lead.Source,
		lead.Status, lead.Qualified, lead.ARV, lead.EstimatedRepairs,
		lead.InvestorMultiplier, lead.DesiredAssignmentFee, lead.OfferPrice,
		lead.MOA, lead.DealScore, lead.PropertyType, lead.LandSignals,
		lead.ArchivedAt, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
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

// List retrieves leads with filters
func (r *leadRepository) List(ctx context.Context, filters LeadFilters) ([]models.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`

	whereClauses := []string{"org_id = $1"}
	args := []interface{}{filters.OrgID}
	argIndex := 2

	if filters.Status != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filters.Status)
		argIndex++
	}

	if filters.Qualified != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("qualified = $%d", argIndex))
		args = append(args, *filters.Qualified)
		argIndex++
	}

	if filters.PropertyType != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("property_type = $%d", argIndex))
		args = append(args, filters.PropertyType)
		argIndex++
	}

	if filters.MinDealScore != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("deal_score >= $%d", argIndex))
		args = append(args, *filters.MinDealScore)
		argIndex++
	}

	if !filters.IncludeArchived {
		whereClauses = append(whereClauses, "archived_at IS NULL")
	}

	query += " WHERE " + strings.Join(whereClauses, " AND ")
	query += " ORDER BY updated_at DESC"

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
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var lead models.Lead
		if err := scanLead(rows, &lead); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}

	return leads, rows.Err()
}
