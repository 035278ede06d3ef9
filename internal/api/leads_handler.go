package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ajharbinger/dealflowos/internal/auth"
	"github.com/ajharbinger/dealflowos/internal/ingest"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/ajharbinger/dealflowos/internal/services"
	"github.com/ajharbinger/dealflowos/internal/underwriting"
	"github.com/gin-gonic/gin"
)

// maxBatchRows bounds a single ingestion request
const maxBatchRows = 10000

// LeadsHandler handles lead ingestion and underwriting endpoints
type LeadsHandler struct {
	leads  services.LeadService
	engine *underwriting.Engine
	logger logger.Logger
}

// NewLeadsHandler creates a new leads handler
func NewLeadsHandler(leads services.LeadService, engine *underwriting.Engine, log logger.Logger) *LeadsHandler {
	return &LeadsHandler{leads: leads, engine: engine, logger: log}
}

// CreateLeadRequest is a manually entered lead
type CreateLeadRequest struct {
	Address      string                   `json:"address" validate:"required_without=Line1"`
	Line1        string                   `json:"line1"`
	City         string                   `json:"city"`
	State        string                   `json:"state" validate:"omitempty,max=32"`
	Zip          string                   `json:"zip" validate:"omitempty,max=10"`
	OwnerName    string                   `json:"owner_name"`
	Phone        string                   `json:"phone"`
	Email        string                   `json:"email" validate:"omitempty,email"`
	Source       string                   `json:"source"`
	PropertyType string                   `json:"property_type"`
	Description  string                   `json:"description"`
	Financials   services.FinancialsInput `json:"financials"`
}

// BatchRequest carries raw rows for ingestion
type BatchRequest struct {
	Rows []ingest.RawLeadRow `json:"rows" validate:"required,min=1"`
}

// StatusRequest updates the pipeline label of a lead
type StatusRequest struct {
	Status    string `json:"status" validate:"required,max=64"`
	Qualified *bool  `json:"qualified"`
}

// CreateLead creates a single lead, rejecting duplicates
func (h *LeadsHandler) CreateLead(c *gin.Context) {
	var req CreateLeadRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	lead, err := h.leads.CreateLead(ctx, auth.OrgID(c), services.CreateLeadInput{
		Address:      req.Address,
		Line1:        req.Line1,
		City:         req.City,
		State:        req.State,
		Zip:          req.Zip,
		OwnerName:    req.OwnerName,
		Phone:        req.Phone,
		Email:        req.Email,
		Source:       req.Source,
		PropertyType: req.PropertyType,
		Description:  req.Description,
		Financials:   req.Financials,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"lead": lead})
}

// IngestBatch upserts raw rows and reports per-row outcomes
func (h *LeadsHandler) IngestBatch(c *gin.Context) {
	var req BatchRequest
	if !bindJSON(c, &req) {
		return
	}
	h.ingest(c, req.Rows)
}

// ImportCSV ingests a CSV upload, either multipart ("file") or a raw text/csv body
func (h *LeadsHandler) ImportCSV(c *gin.Context) {
	var body io.Reader = c.Request.Body

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No CSV file provided"})
			return
		}
		defer file.Close()

		if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File must be a CSV"})
			return
		}
		body = file
	}

	rows, err := ingest.ReadCSV(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse CSV: " + err.Error()})
		return
	}
	if len(rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file contains no rows"})
		return
	}
	h.ingest(c, rows)
}

func (h *LeadsHandler) ingest(c *gin.Context, rows []ingest.RawLeadRow) {
	if len(rows) > maxBatchRows {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many rows. Maximum 10,000 allowed per batch"})
		return
	}

	result := h.leads.IngestBatch(c.Request.Context(), auth.OrgID(c), rows)
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ListLeads lists leads with optional filters
func (h *LeadsHandler) ListLeads(c *gin.Context) {
	filters, ok := leadFilters(c, 50)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	leads, err := h.leads.ListLeads(ctx, filters)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"leads": leads, "count": len(leads)})
}

// GetLead returns a lead of the caller's org
func (h *LeadsHandler) GetLead(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	lead, err := h.leads.GetLead(ctx, auth.OrgID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// UpdateFinancials merges financial inputs and recomputes MOA and deal score
func (h *LeadsHandler) UpdateFinancials(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req services.FinancialsInput
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	lead, err := h.leads.UpdateFinancials(ctx, auth.OrgID(c), id, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// UpdateStatus changes the lead's pipeline label
func (h *LeadsHandler) UpdateStatus(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	lead, err := h.leads.UpdateStatus(ctx, auth.OrgID(c), id, req.Status, req.Qualified)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// ArchiveLead archives a lead
func (h *LeadsHandler) ArchiveLead(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	lead, err := h.leads.ArchiveLead(ctx, auth.OrgID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lead": lead})
}

// PreviewUnderwriting computes MOA and deal score without storing anything
func (h *LeadsHandler) PreviewUnderwriting(c *gin.Context) {
	var req underwriting.Inputs
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": h.engine.Recalculate(req)})
}

// leadFilters reads the list query parameters, answering 400 on a malformed value
func leadFilters(c *gin.Context, defaultLimit int) (repository.LeadFilters, bool) {
	filters := repository.LeadFilters{
		OrgID:           auth.OrgID(c),
		Status:          c.Query("status"),
		PropertyType:    c.Query("property_type"),
		IncludeArchived: c.Query("include_archived") == "true",
		Limit:           defaultLimit,
	}

	if v := c.Query("qualified"); v != "" {
		q, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid qualified"})
			return filters, false
		}
		filters.Qualified = &q
	}
	if v := c.Query("min_deal_score"); v != "" {
		score, ok := underwriting.ParseFiniteNumber(v)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid min_deal_score"})
			return filters, false
		}
		filters.MinDealScore = &score
	}
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			filters.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filters.Offset = n
		}
	}

	return filters, true
}
