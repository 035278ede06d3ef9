package api

import (
	"net/http"
	"strconv"

	"github.com/ajharbinger/dealflowos/internal/auth"
	"github.com/ajharbinger/dealflowos/internal/errors"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/ajharbinger/dealflowos/internal/services"
	"github.com/gin-gonic/gin"
)

// DealsHandler handles the deal pipeline endpoints
type DealsHandler struct {
	deals  services.DealService
	logger logger.Logger
}

// NewDealsHandler creates a new deals handler
func NewDealsHandler(deals services.DealService, log logger.Logger) *DealsHandler {
	return &DealsHandler{deals: deals, logger: log}
}

// StageRequest moves a deal. Fees are taken loosely typed and silently
// ignored when they are not acceptable numbers.
type StageRequest struct {
	Stage                 string      `json:"stage" validate:"required"`
	AssignmentFeeExpected interface{} `json:"assignment_fee_expected"`
	AssignmentFeeActual   interface{} `json:"assignment_fee_actual"`
}

// CreateDeal opens the deal of a lead, returning the existing one if present
func (h *DealsHandler) CreateDeal(c *gin.Context) {
	leadID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	deal, created, err := h.deals.CreateOrGetDeal(ctx, auth.OrgID(c), leadID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"deal": deal, "created": created})
}

// TransitionStage moves a deal to another stage
func (h *DealsHandler) TransitionStage(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req StageRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	deal, err := h.deals.TransitionStage(ctx, auth.OrgID(c), id, req.Stage, services.StageOptions{
		AssignmentFeeExpected: req.AssignmentFeeExpected,
		AssignmentFeeActual:   req.AssignmentFeeActual,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deal": deal})
}

// GetDeal returns a deal of the caller's org
func (h *DealsHandler) GetDeal(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	deal, err := h.deals.GetDeal(ctx, auth.OrgID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deal": deal})
}

// ListDeals lists deals, optionally of one stage
func (h *DealsHandler) ListDeals(c *gin.Context) {
	filters := repository.DealFilters{
		OrgID: auth.OrgID(c),
		Stage: models.Stage(c.Query("stage")),
		Limit: 50,
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(c, h.logger, errors.InvalidInput("limit must be a positive integer", err))
			return
		}
		filters.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filters.Offset = n
		}
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	deals, err := h.deals.ListDeals(ctx, filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deals": deals, "count": len(deals)})
}

// PipelineSummary returns the deal count of every stage
func (h *DealsHandler) PipelineSummary(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	summary, err := h.deals.PipelineSummary(ctx, auth.OrgID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stages": summary})
}
