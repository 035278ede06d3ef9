package api

import (
	"net/http"
	"time"

	"github.com/ajharbinger/dealflowos/internal/scanner"
	"github.com/gin-gonic/gin"
)

// ScannerHandler exposes the due-scanner to operators
type ScannerHandler struct {
	runner *scanner.Runner
	health *scanner.HealthMonitor
	config scanner.Config
}

// NewScannerHandler creates a new scanner handler
func NewScannerHandler(runner *scanner.Runner, health *scanner.HealthMonitor, cfg scanner.Config) *ScannerHandler {
	return &ScannerHandler{runner: runner, health: health, config: cfg}
}

// GetStatus returns the runner state, the last sweep and health
func (h *ScannerHandler) GetStatus(c *gin.Context) {
	resp := gin.H{
		"running":       h.runner.IsRunning(),
		"skipped_ticks": h.runner.Skipped(),
		"last_result":   h.runner.LastResult(),
		"config": gin.H{
			"interval":     h.config.Interval.String(),
			"grace_period": h.config.GracePeriod.String(),
			"batch_limit":  h.config.BatchLimit,
		},
		"timestamp": time.Now().UTC(),
	}
	if h.health != nil {
		resp["health"] = h.health.GetHealthStatus()
	}
	c.JSON(http.StatusOK, resp)
}

// RunOnce triggers a sweep now (Admin only)
func (h *ScannerHandler) RunOnce(c *gin.Context) {
	result := h.runner.RunOnce(c.Request.Context())
	if result.Skipped {
		c.JSON(http.StatusConflict, gin.H{"error": "Sweep skipped: " + result.SkipReason, "result": result})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

// ResetHealth clears scanner health counters (Admin only)
func (h *ScannerHandler) ResetHealth(c *gin.Context) {
	if h.health != nil {
		h.health.Reset()
	}
	c.JSON(http.StatusOK, gin.H{"message": "Scanner health reset"})
}
