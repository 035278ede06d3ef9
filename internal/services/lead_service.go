package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"strings"

	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/errors"
	"github.com/ajharbinger/dealflowos/internal/ingest"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/ajharbinger/dealflowos/internal/underwriting"
	"github.com/google/uuid"
)

// UpsertResult is the outcome of ingesting one row
type UpsertResult struct {
	Lead    *models.Lead `json:"lead"`
	Created bool         `json:"created"`
}

// RowError records why one row of a batch failed
type RowError struct {
	Row     int    `json:"row"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResult summarizes an ingestion batch
type BatchResult struct {
	Total   int        `json:"total"`
	Created int        `json:"created"`
	Updated int        `json:"updated"`
	Failed  int        `json:"failed"`
	Errors  []RowError `json:"errors,omitempty"`
}

// FinancialsInput carries a partial update of the underwriting inputs. Nil fields are unchanged.
type FinancialsInput struct {
	ARV                  *float64 `json:"arv"`
	EstimatedRepairs     *float64 `json:"estimated_repairs"`
	InvestorMultiplier   *float64 `json:"investor_multiplier"`
	DesiredAssignmentFee *float64 `json:"desired_assignment_fee"`
	OfferPrice           *float64 `json:"offer_price"`
}

// CreateLeadInput is a manually entered lead
type CreateLeadInput struct {
	Address      string
	Line1        string
	City         string
	State        string
	Zip          string
	OwnerName    string
	Phone        string
	Email        string
	Source       string
	PropertyType string
	Description  string
	Financials   FinancialsInput
}

// AddressHash is the org-scoped dedup key of an address
func AddressHash(orgID, key string) string {
	sum := sha256.Sum256([]byte(orgID + "|" + key))
	return hex.EncodeToString(sum[:])
}

// leadServiceImpl implements LeadService
type leadServiceImpl struct {
	repos      *repository.Repositories
	normalizer AddressNormalizer
	classifier PropertyClassifier
	engine     *underwriting.Engine
	clock      clock.Clock
	logger     logger.Logger
}

// newLeadService creates a new lead service implementation
func newLeadService(repos *repository.Repositories, normalizer AddressNormalizer, classifier PropertyClassifier,
	engine *underwriting.Engine, clk clock.Clock, log logger.Logger) LeadService {
	return &leadServiceImpl{
		repos:      repos,
		normalizer: normalizer,
		classifier: classifier,
		engine:     engine,
		clock:      clk,
		logger:     log,
	}
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

// resolvedAddress is the address identity of a row
type resolvedAddress struct {
	canonical string
	line1     string
	city      string
	state     string
	zip       string
	hash      string
}

func (s *leadServiceImpl) resolveAddress(orgID string, row ingest.RawLeadRow, operation string) (*resolvedAddress, error) {
	norm := s.normalizer.Normalize(row)

	addr := &resolvedAddress{
		line1: firstNonBlank(norm.Line1, row.Line1),
		city:  firstNonBlank(norm.City, row.City),
		state: firstNonBlank(norm.State, row.State),
		zip:   firstNonBlank(norm.Zip, row.Zip),
	}

	addr.canonical = strings.TrimSpace(norm.Canonical)
	if addr.canonical == "" {
		addr.canonical = ingest.JoinCanonical(addr.line1, addr.city, addr.state, addr.zip)
	}
	if addr.canonical == "" {
		return nil, errors.InvalidInput("address is required", nil).WithOperation(operation)
	}

	addr.hash = AddressHash(orgID, firstNonBlank(norm.AddressHash, addr.canonical))
	return addr, nil
}

func parseRaw(value string) *float64 {
	if f, ok := underwriting.ParseFiniteNumber(value); ok {
		return &f
	}
	return nil
}

func (s *leadServiceImpl) applyDerived(lead *models.Lead) {
	result := s.engine.Recalculate(underwriting.Inputs{
		ARV:                  lead.ARV,
		EstimatedRepairs:     lead.EstimatedRepairs,
		InvestorMultiplier:   lead.InvestorMultiplier,
		DesiredAssignmentFee: lead.DesiredAssignmentFee,
		OfferPrice:           lead.OfferPrice,
	})
	lead.MOA = result.MOA
	lead.DealScore = result.DealScore
}

func (s *leadServiceImpl) newLead(orgID string, row ingest.RawLeadRow, addr *resolvedAddress) *models.Lead {
	class := s.classifier.Classify(row)
	propertyType := class.Type
	if propertyType == "" {
		propertyType = models.PropertyUnknown
	}

	now := s.clock.Now()
	lead := &models.Lead{
		ID:           uuid.New(),
		OrgID:        orgID,
		Address:      addr.canonical,
		AddressHash:  addr.hash,
		Line1:        addr.line1,
		City:         addr.city,
		State:        addr.state,
		Zip:          addr.zip,
		OwnerName:    strings.TrimSpace(row.OwnerName),
		Phone:        strings.TrimSpace(row.Phone),
		Email:        strings.TrimSpace(row.Email),
		Source:       strings.TrimSpace(row.Source),
		Status:       models.DefaultLeadStatus,
		PropertyType: propertyType,
		LandSignals:  append(models.LandSignals{}, class.Signals...),
		CreatedAt:    now,
		UpdatedAt:    now,

		ARV:              parseRaw(row.ARV),
		EstimatedRepairs: parseRaw(row.EstimatedRepairs),
		OfferPrice:       parseRaw(row.OfferPrice),
	}
	s.applyDerived(lead)
	return lead
}

// UpsertLeadFromBatch inserts a lead or refreshes the classification of the one at the same address
func (s *leadServiceImpl) UpsertLeadFromBatch(ctx context.Context, orgID string, row ingest.RawLeadRow) (*UpsertResult, error) {
	addr, err := s.resolveAddress(orgID, row, "UpsertLeadFromBatch")
	if err != nil {
		return nil, err
	}

	lead := s.newLead(orgID, row, addr)
	stored, inserted, err := s.repos.Lead.UpsertFromBatch(ctx, lead)
	if err != nil {
		s.logger.Error("Failed to upsert lead", err, "org_id", orgID, "address_hash", addr.hash)
		return nil, errors.DatabaseError("failed to upsert lead", err).WithOperation("UpsertLeadFromBatch")
	}

	s.logger.Debug("Lead upserted", "org_id", orgID, "lead_id", stored.ID, "created", inserted)
	return &UpsertResult{Lead: stored, Created: inserted}, nil
}

// IngestBatch upserts rows one by one; a failing row does not stop the batch
func (s *leadServiceImpl) IngestBatch(ctx context.Context, orgID string, rows []ingest.RawLeadRow) *BatchResult {
	result := &BatchResult{Total: len(rows)}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(rows); j++ {
				result.Failed++
				result.Errors = append(result.Errors, RowError{Row: j + 1, Code: errors.ErrCodeInternalError, Message: err.Error()})
			}
			break
		}

		res, err := s.UpsertLeadFromBatch(ctx, orgID, row)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RowError{Row: i + 1, Code: errors.CodeOf(err), Message: err.Error()})
			continue
		}
		if res.Created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	s.logger.Info("Lead batch ingested", "org_id", orgID, "total", result.Total,
		"created", result.Created, "updated", result.Updated, "failed", result.Failed)
	return result
}

func validateFinancials(in FinancialsInput, operation string) error {
	checks := []struct {
		name  string
		value *float64
	}{
		{"arv", in.ARV},
		{"estimated_repairs", in.EstimatedRepairs},
		{"desired_assignment_fee", in.DesiredAssignmentFee},
		{"offer_price", in.OfferPrice},
	}
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		if _, ok := underwriting.ParseFiniteNumber(*c.value); !ok || *c.value < 0 {
			return errors.InvalidInput(c.name+" must be a non-negative number", nil).WithOperation(operation)
		}
	}
	if in.InvestorMultiplier != nil {
		if m, ok := underwriting.ParseFiniteNumber(*in.InvestorMultiplier); !ok || m <= 0 || m > 1 {
			return errors.InvalidInput("investor_multiplier must be in (0, 1]", nil).WithOperation(operation)
		}
	}
	return nil
}

func mergeFinancials(lead *models.Lead, in FinancialsInput) {
	if in.ARV != nil {
		lead.ARV = underwriting.Float(*in.ARV)
	}
	if in.EstimatedRepairs != nil {
		lead.EstimatedRepairs = underwriting.Float(*in.EstimatedRepairs)
	}
	if in.InvestorMultiplier != nil {
		lead.InvestorMultiplier = underwriting.Float(*in.InvestorMultiplier)
	}
	if in.DesiredAssignmentFee != nil {
		lead.DesiredAssignmentFee = underwriting.Float(*in.DesiredAssignmentFee)
	}
	if in.OfferPrice != nil {
		lead.OfferPrice = underwriting.Float(*in.OfferPrice)
	}
}

// CreateLead stores a manually entered lead. An address already on file is a conflict.
func (s *leadServiceImpl) CreateLead(ctx context.Context, orgID string, input CreateLeadInput) (*models.Lead, error) {
	if err := validateFinancials(input.Financials, "CreateLead"); err != nil {
		return nil, err
	}

	row := ingest.RawLeadRow{
		Address:      input.Address,
		Line1:        input.Line1,
		City:         input.City,
		State:        input.State,
		Zip:          input.Zip,
		OwnerName:    input.OwnerName,
		Phone:        input.Phone,
		Email:        input.Email,
		Source:       input.Source,
		PropertyType: input.PropertyType,
		Description:  input.Description,
	}

	addr, err := s.resolveAddress(orgID, row, "CreateLead")
	if err != nil {
		return nil, err
	}

	lead := s.newLead(orgID, row, addr)
	mergeFinancials(lead, input.Financials)
	s.applyDerived(lead)

	if err := s.repos.Lead.Create(ctx, lead); err != nil {
		if stderrors.Is(err, repository.ErrConflict) {
			return nil, errors.Conflict("a lead with this address already exists", err).WithOperation("CreateLead")
		}
		s.logger.Error("Failed to create lead", err, "org_id", orgID)
		return nil, errors.DatabaseError("failed to create lead", err).WithOperation("CreateLead")
	}

	s.logger.Info("Lead created", "org_id", orgID, "lead_id", lead.ID)
	return lead, nil
}

func (s *leadServiceImpl) getLead(ctx context.Context, orgID string, id uuid.UUID, operation string) (*models.Lead, error) {
	lead, err := s.repos.Lead.GetByID(ctx, orgID, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("lead not found", err).WithOperation(operation)
		}
		return nil, errors.DatabaseError("failed to get lead", err).WithOperation(operation)
	}
	return lead, nil
}

func (s *leadServiceImpl) saveLead(ctx context.Context, lead *models.Lead, operation string) error {
	if err := s.repos.Lead.Update(ctx, lead); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return errors.NotFound("lead not found", err).WithOperation(operation)
		}
		s.logger.Error("Failed to update lead", err, "lead_id", lead.ID)
		return errors.DatabaseError("failed to update lead", err).WithOperation(operation)
	}
	return nil
}

// GetLead retrieves a lead by ID
func (s *leadServiceImpl) GetLead(ctx context.Context, orgID string, id uuid.UUID) (*models.Lead, error) {
	return s.getLead(ctx, orgID, id, "GetLead")
}

// ListLeads retrieves the leads of an org
func (s *leadServiceImpl) ListLeads(ctx context.Context, filters repository.LeadFilters) ([]models.Lead, error) {
	leads, err := s.repos.Lead.List(ctx, filters)
	if err != nil {
		return nil, errors.DatabaseError("failed to list leads", err).WithOperation("ListLeads")
	}
	return leads, nil
}

// UpdateFinancials merges new underwriting inputs and recomputes MOA and deal score
func (s *leadServiceImpl) UpdateFinancials(ctx context.Context, orgID string, id uuid.UUID, input FinancialsInput) (*models.Lead, error) {
	if err := validateFinancials(input, "UpdateFinancials"); err != nil {
		return nil, err
	}

	lead, err := s.getLead(ctx, orgID, id, "UpdateFinancials")
	if err != nil {
		return nil, err
	}

	mergeFinancials(lead, input)
	s.applyDerived(lead)

	if err := s.saveLead(ctx, lead, "UpdateFinancials"); err != nil {
		return nil, err
	}
	return lead, nil
}

// UpdateStatus sets the free-text pipeline status and, optionally, the qualified flag
func (s *leadServiceImpl) UpdateStatus(ctx context.Context, orgID string, id uuid.UUID, status string, qualified *bool) (*models.Lead, error) {
	status = strings.TrimSpace(status)
	if status == "" && qualified == nil {
		return nil, errors.InvalidInput("status or qualified is required", nil).WithOperation("UpdateStatus")
	}

	lead, err := s.getLead(ctx, orgID, id, "UpdateStatus")
	if err != nil {
		return nil, err
	}

	if status != "" {
		lead.Status = status
	}
	if qualified != nil {
		lead.Qualified = *qualified
	}

	if err := s.saveLead(ctx, lead, "UpdateStatus"); err != nil {
		return nil, err
	}
	return lead, nil
}

// ArchiveLead hides a lead from default listings; archiving twice keeps the first timestamp
func (s *leadServiceImpl) ArchiveLead(ctx context.Context, orgID string, id uuid.UUID) (*models.Lead, error) {
	lead, err := s.getLead(ctx, orgID, id, "ArchiveLead")
	if err != nil {
		return nil, err
	}
	if lead.ArchivedAt != nil {
		return lead, nil
	}

	now := s.clock.Now()
	lead.ArchivedAt = &now
	if err := s.saveLead(ctx, lead, "ArchiveLead"); err != nil {
		return nil, err
	}

	s.logger.Info("Lead archived", "org_id", orgID, "lead_id", id)
	return lead, nil
}
