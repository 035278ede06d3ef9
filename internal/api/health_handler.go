package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	HealthCheck() error
}

// HealthHandler serves the public liveness endpoint
type HealthHandler struct {
	store  Pinger
	driver string
}

// NewHealthHandler creates a health handler; store may be nil for the memory driver
func NewHealthHandler(store Pinger, driver string) *HealthHandler {
	return &HealthHandler{store: store, driver: driver}
}

// Healthz reports service and store health
func (h *HealthHandler) Healthz(c *gin.Context) {
	resp := gin.H{
		"status":    "ok",
		"store":     h.driver,
		"timestamp": time.Now().UTC(),
	}

	if h.store != nil {
		if err := h.store.HealthCheck(); err != nil {
			resp["status"] = "degraded"
			resp["error"] = "database unreachable"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}
