package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/services"
	"github.com/gin-gonic/gin"
)

// ExportHandler serves lead exports
type ExportHandler struct {
	exporter *services.LeadExportService
	logger   logger.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(exporter *services.LeadExportService, log logger.Logger) *ExportHandler {
	return &ExportHandler{exporter: exporter, logger: log}
}

// ExportLeads downloads the caller's leads as CSV (default) or JSON.
// It accepts the same filters as ListLeads.
func (h *ExportHandler) ExportLeads(c *gin.Context) {
	format, err := services.ParseExportFormat(c.Query("format"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	filters, ok := leadFilters(c, 0)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	var buf bytes.Buffer
	count, err := h.exporter.Export(ctx, filters, format, &buf)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == services.FormatJSON {
		contentType = "application/json; charset=utf-8"
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="leads.%s"`, format))
	c.Header("X-Export-Count", fmt.Sprint(count))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
