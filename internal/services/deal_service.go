package services

import (
	"context"
	stderrors "errors"

	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/errors"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/ajharbinger/dealflowos/internal/underwriting"
	"github.com/google/uuid"
)

// StageOptions carries the optional fee values of a transition as decoded from the request.
// Values that are not finite numbers are ignored.
type StageOptions struct {
	AssignmentFeeExpected interface{} `json:"assignment_fee_expected"`
	AssignmentFeeActual   interface{} `json:"assignment_fee_actual"`
}

// dealServiceImpl implements DealService
type dealServiceImpl struct {
	repos  *repository.Repositories
	clock  clock.Clock
	logger logger.Logger
}

// newDealService creates a new deal service implementation
func newDealService(repos *repository.Repositories, clk clock.Clock, log logger.Logger) DealService {
	return &dealServiceImpl{
		repos:  repos,
		clock:  clk,
		logger: log,
	}
}

// CreateOrGetDeal returns the deal of a lead, creating it at NEW on first call
func (s *dealServiceImpl) CreateOrGetDeal(ctx context.Context, orgID string, leadID uuid.UUID) (*models.Deal, bool, error) {
	if _, err := s.repos.Lead.GetByID(ctx, orgID, leadID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, false, errors.NotFound("lead not found", err).WithOperation("CreateOrGetDeal")
		}
		return nil, false, errors.DatabaseError("failed to get lead", err).WithOperation("CreateOrGetDeal")
	}

	now := s.clock.Now()
	deal, created, err := s.repos.Deal.CreateIfAbsent(ctx, &models.Deal{
		ID:             uuid.New(),
		OrgID:          orgID,
		LeadID:         leadID,
		Stage:          models.StageNew,
		StageUpdatedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		s.logger.Error("Failed to create deal", err, "org_id", orgID, "lead_id", leadID)
		return nil, false, errors.DatabaseError("failed to create deal", err).WithOperation("CreateOrGetDeal")
	}

	if created {
		s.logger.Info("Deal created", "org_id", orgID, "deal_id", deal.ID, "lead_id", leadID)
	}
	return deal, created, nil
}

// TransitionStage moves a deal to target. Any valid stage is accepted, including backward moves.
func (s *dealServiceImpl) TransitionStage(ctx context.Context, orgID string, dealID uuid.UUID, target string, opts StageOptions) (*models.Deal, error) {
	stage := models.Stage(target)
	if !stage.IsValid() {
		return nil, errors.InvalidStage("invalid stage: "+target, nil).WithOperation("TransitionStage")
	}

	current, err := s.repos.Deal.GetByID(ctx, orgID, dealID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("deal not found", err).WithOperation("TransitionStage")
		}
		return nil, errors.DatabaseError("failed to get deal", err).WithOperation("TransitionStage")
	}

	update := models.StageUpdate{Stage: stage, At: s.clock.Now()}
	if fee, ok := underwriting.ParseFiniteNumber(opts.AssignmentFeeExpected); ok {
		update.AssignmentFeeExpected = &fee
	}
	if stage == models.StageClosedWon {
		if fee, ok := underwriting.ParseFiniteNumber(opts.AssignmentFeeActual); ok && fee >= 0 {
			update.AssignmentFeeActual = &fee
		}
	}

	deal, err := s.repos.Deal.ApplyStageUpdate(ctx, orgID, dealID, update)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("deal not found", err).WithOperation("TransitionStage")
		}
		s.logger.Error("Failed to update deal stage", err, "deal_id", dealID, "stage", stage)
		return nil, errors.DatabaseError("failed to update deal stage", err).WithOperation("TransitionStage")
	}

	s.logger.Info("Deal stage changed", "org_id", orgID, "deal_id", dealID, "from", current.Stage, "to", stage)
	return deal, nil
}

// GetDeal retrieves a deal by ID
func (s *dealServiceImpl) GetDeal(ctx context.Context, orgID string, id uuid.UUID) (*models.Deal, error) {
	deal, err := s.repos.Deal.GetByID(ctx, orgID, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.NotFound("deal not found", err).WithOperation("GetDeal")
		}
		return nil, errors.DatabaseError("failed to get deal", err).WithOperation("GetDeal")
	}
	return deal, nil
}

// ListDeals retrieves the deals of an org
func (s *dealServiceImpl) ListDeals(ctx context.Context, filters repository.DealFilters) ([]models.Deal, error) {
	if filters.Stage != "" && !filters.Stage.IsValid() {
		return nil, errors.InvalidStage("invalid stage: "+string(filters.Stage), nil).WithOperation("ListDeals")
	}

	deals, err := s.repos.Deal.List(ctx, filters)
	if err != nil {
		return nil, errors.DatabaseError("failed to list deals", err).WithOperation("ListDeals")
	}
	return deals, nil
}

// PipelineSummary counts deals per stage, in pipeline order, including empty stages
func (s *dealServiceImpl) PipelineSummary(ctx context.Context, orgID string) ([]models.StageCount, error) {
	counts, err := s.repos.Deal.CountByStage(ctx, orgID)
	if err != nil {
		return nil, errors.DatabaseError("failed to count deals", err).WithOperation("PipelineSummary")
	}

	summary := make([]models.StageCount, 0, len(models.Stages))
	for _, stage := range models.Stages {
		summary = append(summary, models.StageCount{Stage: stage, Label: stage.Label(), Count: counts[stage]})
	}
	return summary, nil
}
