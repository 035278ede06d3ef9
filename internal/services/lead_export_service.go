package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/errors"
	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/ajharbinger/dealflowos/internal/repository"
)

// ExportFormat specifies the format for exporting leads
type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// maxExportRows caps a single export
const maxExportRows = 10000

// exportHeaders are the CSV columns, in order
var exportHeaders = []string{
	"id", "address", "line1", "city", "state", "zip", "owner_name", "phone",
	"email", "source", "status", "qualified", "property_type", "land_signals",
	"arv", "estimated_repairs", "investor_multiplier", "desired_assignment_fee",
	"offer_price", "moa", "deal_score", "created_at", "updated_at",
}

// LeadExportService writes an org's leads as CSV or JSON
type LeadExportService struct {
	leads repository.LeadRepository
	clock clock.Clock
}

// NewLeadExportService creates a new lead export service
func NewLeadExportService(leads repository.LeadRepository, clk clock.Clock) *LeadExportService {
	if clk == nil {
		clk = clock.New()
	}
	return &LeadExportService{leads: leads, clock: clk}
}

// ParseExportFormat maps a query value to a format; empty means CSV
func ParseExportFormat(v string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(v))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", errors.InvalidInput(fmt.Sprintf("unsupported export format: %s", v), nil).WithOperation("ParseExportFormat")
}

// Export writes the leads matching filters to w and returns how many were written
func (s *LeadExportService) Export(ctx context.Context, filters repository.LeadFilters, format ExportFormat, w io.Writer) (int, error) {
	if filters.OrgID == "" {
		return 0, errors.InvalidInput("org is required", nil).WithOperation("ExportLeads")
	}
	if filters.Limit <= 0 || filters.Limit > maxExportRows {
		filters.Limit = maxExportRows
	}

	leads, err := s.leads.List(ctx, filters)
	if err != nil {
		return 0, errors.DatabaseError("failed to list leads", err).WithOperation("ExportLeads")
	}

	switch format {
	case FormatJSON:
		return len(leads), s.exportToJSON(leads, w)
	case FormatCSV:
		return len(leads), s.exportToCSV(leads, w)
	default:
		return 0, errors.InvalidInput(fmt.Sprintf("unsupported export format: %s", format), nil).WithOperation("ExportLeads")
	}
}

func (s *LeadExportService) exportToJSON(leads []models.Lead, w io.Writer) error {
	if leads == nil {
		leads = []models.Lead{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"leads":       leads,
		"count":       len(leads),
		"exported_at": s.clock.Now().UTC(),
	})
}

func (s *LeadExportService) exportToCSV(leads []models.Lead, w io.Writer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(exportHeaders); err != nil {
		return err
	}

	for _, lead := range leads {
		row := []string{
			lead.ID.String(),
			lead.Address,
			lead.Line1,
			lead.City,
			lead.State,
			lead.Zip,
			lead.OwnerName,
			lead.Phone,
			lead.Email,
			lead.Source,
			lead.Status,
			strconv.FormatBool(lead.Qualified),
			lead.PropertyType,
			strings.Join(lead.LandSignals, "; "),
			formatNullFloat(lead.ARV),
			formatNullFloat(lead.EstimatedRepairs),
			formatNullFloat(lead.InvestorMultiplier),
			formatNullFloat(lead.DesiredAssignmentFee),
			formatNullFloat(lead.OfferPrice),
			formatNullFloat(lead.MOA),
			formatNullFloat(lead.DealScore),
			lead.CreatedAt.UTC().Format(time.RFC3339),
			lead.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatNullFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
