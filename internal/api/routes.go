package api

import (
	"github.com/ajharbinger/dealflowos/internal/auth"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/scanner"
	"github.com/ajharbinger/dealflowos/internal/services"
	"github.com/ajharbinger/dealflowos/internal/underwriting"
	"github.com/ajharbinger/dealflowos/pkg/config"
	"github.com/gin-gonic/gin"
)

// Dependencies are what the routes are built from
type Dependencies struct {
	Config   *config.Config
	Logger   logger.Logger
	Services *services.Services
	Engine   *underwriting.Engine
	Runner   *scanner.Runner
	Health   *scanner.HealthMonitor
	Scanner  scanner.Config
	Store    Pinger
}

// SetupRoutes configures all API routes
func SetupRoutes(r *gin.Engine, deps Dependencies) {
	log := deps.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	engine := deps.Engine
	if engine == nil {
		engine = underwriting.NewEngine(deps.Config.DefaultInvestorMultiplier)
	}

	leadsHandler := NewLeadsHandler(deps.Services.Lead, engine, log)
	exportHandler := NewExportHandler(deps.Services.Export, log)
	dealsHandler := NewDealsHandler(deps.Services.Deal, log)
	calendarHandler := NewCalendarHandler(deps.Services.Calendar, deps.Services.Reminder, log)
	scannerHandler := NewScannerHandler(deps.Runner, deps.Health, deps.Scanner)
	healthHandler := NewHealthHandler(deps.Store, deps.Config.StoreDriver)

	// Public routes
	r.GET("/healthz", healthHandler.Healthz)

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(auth.JWTMiddleware(deps.Config.JWTSecret))
	protected.Use(auth.CSRFMiddleware())
	{
		// Lead ingestion and underwriting
		protected.POST("/leads", leadsHandler.CreateLead)
		protected.POST("/leads/batch", leadsHandler.IngestBatch)
		protected.POST("/leads/import", leadsHandler.ImportCSV)
		protected.GET("/leads", leadsHandler.ListLeads)
		protected.GET("/leads/export", exportHandler.ExportLeads)
		protected.GET("/leads/:id", leadsHandler.GetLead)
		protected.PATCH("/leads/:id/financials", leadsHandler.UpdateFinancials)
		protected.PATCH("/leads/:id/status", leadsHandler.UpdateStatus)
		protected.POST("/leads/:id/archive", leadsHandler.ArchiveLead)
		protected.POST("/underwriting/preview", leadsHandler.PreviewUnderwriting)

		// Deal pipeline
		protected.POST("/leads/:id/deal", dealsHandler.CreateDeal)
		protected.GET("/deals", dealsHandler.ListDeals)
		protected.GET("/deals/summary", dealsHandler.PipelineSummary)
		protected.GET("/deals/:id", dealsHandler.GetDeal)
		protected.POST("/deals/:id/stage", dealsHandler.TransitionStage)

		// Calendar
		protected.POST("/events", calendarHandler.CreateEvent)
		protected.GET("/events", calendarHandler.ListEvents)
		protected.GET("/events/:id", calendarHandler.GetEvent)
		protected.PUT("/events/:id", calendarHandler.RescheduleEvent)
		protected.POST("/events/:id/complete", calendarHandler.CompleteEvent)
		protected.DELETE("/events/:id", calendarHandler.CancelEvent)

		// Reminders
		protected.POST("/reminders", calendarHandler.ScheduleReminder)
		protected.GET("/reminders/active", calendarHandler.ActiveReminders)
		protected.GET("/reminders/missed", calendarHandler.MissedReminders)
		protected.POST("/reminders/:id/delivered", calendarHandler.MarkDelivered)

		// Due-scanner
		protected.GET("/scanner/status", scannerHandler.GetStatus)
		admin := protected.Group("/scanner")
		admin.Use(auth.RequireRole(auth.RoleAdmin))
		admin.POST("/run-once", scannerHandler.RunOnce)
		admin.POST("/health/reset", scannerHandler.ResetHealth)
	}
}
