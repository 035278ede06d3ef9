package services

import (
	"context"
	"time"

	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/ingest"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/ajharbinger/dealflowos/internal/underwriting"
	"github.com/google/uuid"
)

// Services contains all application services
type Services struct {
	Lead     LeadService
	Deal     DealService
	Reminder ReminderService
	Calendar CalendarService
	Export   *LeadExportService
}

// AddressNormalizer turns a raw row into canonical address parts
type AddressNormalizer interface {
	Normalize(row ingest.RawLeadRow) ingest.NormalizedAddress
}

// PropertyClassifier derives the property type and land signals of a row
type PropertyClassifier interface {
	Classify(row ingest.RawLeadRow) ingest.Classification
}

// LeadService defines the interface for lead ingestion and underwriting updates
type LeadService interface {
	UpsertLeadFromBatch(ctx context.Context, orgID string, row ingest.RawLeadRow) (*UpsertResult, error)
	IngestBatch(ctx context.Context, orgID string, rows []ingest.RawLeadRow) *BatchResult
	CreateLead(ctx context.Context, orgID string, input CreateLeadInput) (*models.Lead, error)
	GetLead(ctx context.Context, orgID string, id uuid.UUID) (*models.Lead, error)
	ListLeads(ctx context.Context, filters repository.LeadFilters) ([]models.Lead, error)
	UpdateFinancials(ctx context.Context, orgID string, id uuid.UUID, input FinancialsInput) (*models.Lead, error)
	UpdateStatus(ctx context.Context, orgID string, id uuid.UUID, status string, qualified *bool) (*models.Lead, error)
	ArchiveLead(ctx context.Context, orgID string, id uuid.UUID) (*models.Lead, error)
}

// DealService defines the interface for the deal pipeline
type DealService interface {
	CreateOrGetDeal(ctx context.Context, orgID string, leadID uuid.UUID) (*models.Deal, bool, error)
	TransitionStage(ctx context.Context, orgID string, dealID uuid.UUID, target string, opts StageOptions) (*models.Deal, error)
	GetDeal(ctx context.Context, orgID string, id uuid.UUID) (*models.Deal, error)
	ListDeals(ctx context.Context, filters repository.DealFilters) ([]models.Deal, error)
	PipelineSummary(ctx context.Context, orgID string) ([]models.StageCount, error)
}

// ReminderService defines the interface for scheduling and acknowledging reminders
type ReminderService interface {
	Schedule(ctx context.Context, req ScheduleRequest) (*models.Reminder, error)
	ListActive(ctx context.Context, orgID, userID string) ([]models.Reminder, error)
	ListMissed(ctx context.Context, orgID, userID string) ([]models.Reminder, error)
	MarkDelivered(ctx context.Context, orgID, userID string, id uuid.UUID) (*models.Reminder, error)
	CancelForTarget(ctx context.Context, orgID string, targetType models.TargetType, targetID string) (int, error)
}

// CalendarService defines the interface for calendar events and their reminders
type CalendarService interface {
	CreateEvent(ctx context.Context, input CreateEventInput) (*models.CalendarEvent, []models.Reminder, error)
	GetEvent(ctx context.Context, orgID string, id uuid.UUID) (*models.CalendarEvent, error)
	ListEvents(ctx context.Context, orgID, userID string, from, to time.Time) ([]models.CalendarEvent, error)
	RescheduleEvent(ctx context.Context, orgID string, id uuid.UUID, startAt, endAt time.Time) (*models.CalendarEvent, []models.Reminder, error)
	CompleteEvent(ctx context.Context, orgID string, id uuid.UUID) (*models.CalendarEvent, error)
	CancelEvent(ctx context.Context, orgID string, id uuid.UUID) (*models.CalendarEvent, error)
}

// Dependencies are the collaborators shared by the services.
// Nil fields fall back to the defaults.
type Dependencies struct {
	Repos           *repository.Repositories
	Clock           clock.Clock
	Logger          logger.Logger
	Normalizer      AddressNormalizer
	Classifier      PropertyClassifier
	Engine          *underwriting.Engine
	ReminderOffsets []int
}

// NewServices creates a new Services instance with all dependencies
func NewServices(deps Dependencies) *Services {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if deps.Normalizer == nil {
		deps.Normalizer = ingest.NewStandardNormalizer()
	}
	if deps.Classifier == nil {
		deps.Classifier = ingest.NewKeywordClassifier()
	}
	if deps.Engine == nil {
		deps.Engine = underwriting.NewEngine(underwriting.DefaultInvestorMultiplier)
	}

	reminders := newReminderService(deps.Repos, deps.Clock, deps.Logger)
	return &Services{
		Lead:     newLeadService(deps.Repos, deps.Normalizer, deps.Classifier, deps.Engine, deps.Clock, deps.Logger),
		Deal:     newDealService(deps.Repos, deps.Clock, deps.Logger),
		Reminder: reminders,
		Calendar: newCalendarService(deps.Repos, reminders, deps.ReminderOffsets, deps.Clock, deps.Logger),
		Export:   NewLeadExportService(deps.Repos.Lead, deps.Clock),
	}
}
