package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/google/uuid"
)

// memoryStore holds the rows shared by the in-memory repositories
type memoryStore struct {
	mu        sync.RWMutex
	leads     map[uuid.UUID]*models.Lead
	deals     map[uuid.UUID]*models.Deal
	reminders map[uuid.UUID]*models.Reminder
	events    map[uuid.UUID]*models.CalendarEvent
}

// NewMemoryRepositories creates a repository collection backed by process memory.
// It mirrors the PostgreSQL predicates and is used for development and tests.
func NewMemoryRepositories() *Repositories {
	store := &memoryStore{
		leads:     make(map[uuid.UUID]*models.Lead),
		deals:     make(map[uuid.UUID]*models.Deal),
		reminders: make(map[uuid.UUID]*models.Reminder),
		events:    make(map[uuid.UUID]*models.CalendarEvent),
	}

	repos := &Repositories{
		Lead:     &memoryLeadRepository{store: store},
		Deal:     &memoryDealRepository{store: store},
		Reminder: &memoryReminderRepository{store: store},
		Event:    &memoryEventRepository{store: store},
	}
	repos.Tx = &memoryTransactionManager{repos: repos}
	return repos
}

// memoryTransactionManager runs fn against the same repositories; there is no rollback
type memoryTransactionManager struct {
	repos *Repositories
}

func (tm *memoryTransactionManager) WithTransaction(ctx context.Context, fn func(repos *Repositories) error) error {
	return fn(tm.repos)
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneLead(l *models.Lead) *models.Lead {
	c := *l
	c.ARV = cloneFloat(l.ARV)
	c.EstimatedRepairs = cloneFloat(l.EstimatedRepairs)
	c.InvestorMultiplier = cloneFloat(l.InvestorMultiplier)
	c.DesiredAssignmentFee = cloneFloat(l.DesiredAssignmentFee)
	c.OfferPrice = cloneFloat(l.OfferPrice)
	c.MOA = cloneFloat(l.MOA)
	c.DealScore = cloneFloat(l.DealScore)
	c.LandSignals = append(models.LandSignals{}, l.LandSignals...)
	c.ArchivedAt = cloneTime(l.ArchivedAt)
	return &c
}

func cloneDeal(d *models.Deal) *models.Deal {
	c := *d
	c.QualifiedAt = cloneTime(d.QualifiedAt)
	c.ContractAt = cloneTime(d.ContractAt)
	c.EscrowAt = cloneTime(d.EscrowAt)
	c.ClosedAt = cloneTime(d.ClosedAt)
	c.AssignmentFeeExpected = cloneFloat(d.AssignmentFeeExpected)
	c.AssignmentFeeActual = cloneFloat(d.AssignmentFeeActual)
	return &c
}

func cloneReminder(r *models.Reminder) *models.Reminder {
	c := *r
	c.SentAt = cloneTime(r.SentAt)
	c.DeliveredAt = cloneTime(r.DeliveredAt)
	c.MissedAt = cloneTime(r.MissedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

func cloneEvent(e *models.CalendarEvent) *models.CalendarEvent {
	c := *e
	if e.LeadID != nil {
		id := *e.LeadID
		c.LeadID = &id
	}
	c.MissedAt = cloneTime(e.MissedAt)
	return &c
}

// memoryLeadRepository implements LeadRepository
type memoryLeadRepository struct {
	store *memoryStore
}

func (r *memoryLeadRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.Lead, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	lead, ok := r.store.leads[id]
	if !ok || lead.OrgID != orgID {
		return nil, ErrNotFound
	}
	return cloneLead(lead), nil
}

func (r *memoryLeadRepository) GetByAddressHash(ctx context.Context, orgID, addressHash string) (*models.Lead, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if lead := r.findByHash(orgID, addressHash); lead != nil {
		return cloneLead(lead), nil
	}
	return nil, ErrNotFound
}

// findByHash must be called with the lock held
func (r *memoryLeadRepository) findByHash(orgID, addressHash string) *models.Lead {
	for _, lead := range r.store.leads {
		if lead.OrgID == orgID && lead.AddressHash == addressHash {
			return lead
		}
	}
	return nil
}

func (r *memoryLeadRepository) Create(ctx context.Context, lead *models.Lead) error {
	prepareLead(lead)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.findByHash(lead.OrgID, lead.AddressHash) != nil {
		return ErrConflict
	}
	r.store.leads[lead.ID] = cloneLead(lead)
	return nil
}

func (r *memoryLeadRepository) UpsertFromBatch(ctx context.Context, lead *models.Lead) (*models.Lead, bool, error) {
	prepareLead(lead)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existing := r.findByHash(lead.OrgID, lead.AddressHash); existing != nil {
		existing.PropertyType = lead.PropertyType
		existing.LandSignals = append(models.LandSignals{}, lead.LandSignals...)
		existing.UpdatedAt = lead.UpdatedAt
		return cloneLead(existing), false, nil
	}

	r.store.leads[lead.ID] = cloneLead(lead)
	return cloneLead(lead), true, nil
}

func (r *memoryLeadRepository) Update(ctx context.Context, lead *models.Lead) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.leads[lead.ID]
	if !ok || existing.OrgID != lead.OrgID {
		return ErrNotFound
	}

	lead.UpdatedAt = time.Now().UTC()
	updated := cloneLead(lead)
	// identity and address columns are immutable
	updated.Address = existing.Address
	updated.AddressHash = existing.AddressHash
	updated.Line1 = existing.Line1
	updated.City = existing.City
	updated.State = existing.State
	updated.Zip = existing.Zip
	updated.CreatedAt = existing.CreatedAt
	r.store.leads[lead.ID] = updated
	return nil
}

func (r *memoryLeadRepository) List(ctx context.Context, filters LeadFilters) ([]models.Lead, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var leads []models.Lead
	for _, lead := range r.store.leads {
		if lead.OrgID != filters.OrgID {
			continue
		}
		if filters.Status != "" && lead.Status != filters.Status {
			continue
		}
		if filters.Qualified != nil && lead.Qualified != *filters.Qualified {
			continue
		}
		if filters.PropertyType != "" && lead.PropertyType != filters.PropertyType {
			continue
		}
		if filters.MinDealScore != nil && (lead.DealScore == nil || *lead.DealScore < *filters.MinDealScore) {
			continue
		}
		if !filters.IncludeArchived && lead.ArchivedAt != nil {
			continue
		}
		leads = append(leads, *cloneLead(lead))
	}

	sort.SliceStable(leads, func(i, j int) bool {
		return leads[i].UpdatedAt.After(leads[j].UpdatedAt)
	})
	return paginate(leads, filters.Offset, filters.Limit), nil
}

// memoryDealRepository implements DealRepository
type memoryDealRepository struct {
	store *memoryStore
}

func (r *memoryDealRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.Deal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	deal, ok := r.store.deals[id]
	if !ok || deal.OrgID != orgID {
		return nil, ErrNotFound
	}
	return cloneDeal(deal), nil
}

func (r *memoryDealRepository) GetByLead(ctx context.Context, orgID string, leadID uuid.UUID) (*models.Deal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if deal := r.findByLead(orgID, leadID); deal != nil {
		return cloneDeal(deal), nil
	}
	return nil, ErrNotFound
}

func (r *memoryDealRepository) findByLead(orgID string, leadID uuid.UUID) *models.Deal {
	for _, deal := range r.store.deals {
		if deal.OrgID == orgID && deal.LeadID == leadID {
			return deal
		}
	}
	return nil
}

func (r *memoryDealRepository) CreateIfAbsent(ctx context.Context, deal *models.Deal) (*models.Deal, bool, error) {
	if deal.ID == uuid.Nil {
		deal.ID = uuid.New()
	}
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = time.Now().UTC()
	}
	if deal.UpdatedAt.IsZero() {
		deal.UpdatedAt = deal.CreatedAt
	}
	if deal.StageUpdatedAt.IsZero() {
		deal.StageUpdatedAt = deal.CreatedAt
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existing := r.findByLead(deal.OrgID, deal.LeadID); existing != nil {
		return cloneDeal(existing), false, nil
	}
	r.store.deals[deal.ID] = cloneDeal(deal)
	return cloneDeal(deal), true, nil
}

func (r *memoryDealRepository) ApplyStageUpdate(ctx context.Context, orgID string, id uuid.UUID, update models.StageUpdate) (*models.Deal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	deal, ok := r.store.deals[id]
	if !ok || deal.OrgID != orgID {
		return nil, ErrNotFound
	}
	update.Apply(deal)
	return cloneDeal(deal), nil
}

func (r *memoryDealRepository) List(ctx context.Context, filters DealFilters) ([]models.Deal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var deals []models.Deal
	for _, deal := range r.store.deals {
		if deal.OrgID != filters.OrgID {
			continue
		}
		if filters.Stage != "" && deal.Stage != filters.Stage {
			continue
		}
		deals = append(deals, *cloneDeal(deal))
	}

	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].StageUpdatedAt.After(deals[j].StageUpdatedAt)
	})
	return paginate(deals, filters.Offset, filters.Limit), nil
}

func (r *memoryDealRepository) CountByStage(ctx context.Context, orgID string) (map[models.Stage]int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	counts := make(map[models.Stage]int)
	for _, deal := range r.store.deals {
		if deal.OrgID == orgID {
			counts[deal.Stage]++
		}
	}
	return counts, nil
}

// memoryReminderRepository implements ReminderRepository
type memoryReminderRepository struct {
	store *memoryStore
}

func (r *memoryReminderRepository) Upsert(ctx context.Context, reminder *models.Reminder) (*models.Reminder, error) {
	now := time.Now().UTC()

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.reminders {
		if existing.IdempotencyKey != reminder.IdempotencyKey {
			continue
		}
		existing.RemindAt = reminder.RemindAt
		existing.Status = models.ReminderPending
		existing.SentAt = nil
		existing.DeliveredAt = nil
		existing.MissedAt = nil
		existing.CancelledAt = nil
		if reminder.UpdatedAt.IsZero() {
			existing.UpdatedAt = now
		} else {
			existing.UpdatedAt = reminder.UpdatedAt
		}
		return cloneReminder(existing), nil
	}

	stored := cloneReminder(reminder)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	stored.Status = models.ReminderPending
	stored.SentAt, stored.DeliveredAt, stored.MissedAt, stored.CancelledAt = nil, nil, nil, nil
	r.store.reminders[stored.ID] = stored
	return cloneReminder(stored), nil
}

func (r *memoryReminderRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.Reminder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	reminder, ok := r.store.reminders[id]
	if !ok || reminder.OrgID != orgID {
		return nil, ErrNotFound
	}
	return cloneReminder(reminder), nil
}

func (r *memoryReminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var due []models.Reminder
	for _, reminder := range r.store.reminders {
		if reminder.Status.IsDue() && !reminder.RemindAt.After(now) {
			due = append(due, *cloneReminder(reminder))
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].RemindAt.Before(due[j].RemindAt)
	})
	return paginate(due, 0, limit), nil
}

func (r *memoryReminderRepository) TransitionDue(ctx context.Context, ids []uuid.UUID, status models.ReminderStatus, at time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	changed := 0
	for _, id := range ids {
		reminder, ok := r.store.reminders[id]
		if !ok || !reminder.Status.IsDue() {
			continue
		}
		ts := at
		reminder.Status = status
		reminder.UpdatedAt = at
		switch status {
		case models.ReminderSent:
			reminder.SentAt = &ts
		case models.ReminderMissed:
			reminder.MissedAt = &ts
		}
		changed++
	}
	return changed, nil
}

func (r *memoryReminderRepository) ListByStatus(ctx context.Context, filters ReminderFilters) ([]models.Reminder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	wanted := make(map[models.ReminderStatus]bool, len(filters.Statuses))
	for _, s := range filters.Statuses {
		wanted[s] = true
	}

	var out []models.Reminder
	for _, reminder := range r.store.reminders {
		if reminder.OrgID == filters.OrgID && reminder.UserID == filters.UserID && wanted[reminder.Status] {
			out = append(out, *cloneReminder(reminder))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RemindAt.After(out[j].RemindAt)
	})
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	return paginate(out, 0, limit), nil
}

func (r *memoryReminderRepository) ListForTarget(ctx context.Context, orgID string, targetType models.TargetType, targetID string) ([]models.Reminder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []models.Reminder
	for _, reminder := range r.store.reminders {
		if reminder.OrgID == orgID && reminder.TargetType == targetType && reminder.TargetID == targetID {
			out = append(out, *cloneReminder(reminder))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OffsetMinutes != out[j].OffsetMinutes {
			return out[i].OffsetMinutes < out[j].OffsetMinutes
		}
		return out[i].Channel < out[j].Channel
	})
	return out, nil
}

func (r *memoryReminderRepository) MarkDelivered(ctx context.Context, orgID, userID string, id uuid.UUID, at time.Time) (*models.Reminder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	reminder, ok := r.store.reminders[id]
	if !ok || reminder.OrgID != orgID || reminder.UserID != userID {
		return nil, ErrNotFound
	}
	if reminder.Status != models.ReminderSent && reminder.Status != models.ReminderMissed {
		return nil, ErrInvalidState
	}

	ts := at
	reminder.Status = models.ReminderDelivered
	reminder.DeliveredAt = &ts
	reminder.UpdatedAt = at
	return cloneReminder(reminder), nil
}

func (r *memoryReminderRepository) CancelForTarget(ctx context.Context, orgID string, targetType models.TargetType, targetID string, at time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	cancelled := 0
	for _, reminder := range r.store.reminders {
		if reminder.OrgID != orgID || reminder.TargetType != targetType || reminder.TargetID != targetID {
			continue
		}
		if reminder.Status == models.ReminderDelivered || reminder.Status == models.ReminderCancelled {
			continue
		}
		ts := at
		reminder.Status = models.ReminderCancelled
		reminder.CancelledAt = &ts
		reminder.UpdatedAt = at
		cancelled++
	}
	return cancelled, nil
}

// memoryEventRepository implements EventRepository
type memoryEventRepository struct {
	store *memoryStore
}

func (r *memoryEventRepository) Create(ctx context.Context, event *models.CalendarEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.UpdatedAt.IsZero() {
		event.UpdatedAt = event.CreatedAt
	}
	if event.Status == "" {
		event.Status = models.EventScheduled
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.events[event.ID]; exists {
		return ErrConflict
	}
	r.store.events[event.ID] = cloneEvent(event)
	return nil
}

func (r *memoryEventRepository) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*models.CalendarEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	event, ok := r.store.events[id]
	if !ok || event.OrgID != orgID {
		return nil, ErrNotFound
	}
	return cloneEvent(event), nil
}

func (r *memoryEventRepository) Update(ctx context.Context, event *models.CalendarEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.events[event.ID]
	if !ok || existing.OrgID != event.OrgID {
		return ErrNotFound
	}

	event.UpdatedAt = time.Now().UTC()
	updated := cloneEvent(event)
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt
	r.store.events[event.ID] = updated
	return nil
}

func (r *memoryEventRepository) MarkMissedEndedBefore(ctx context.Context, cutoff, at time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	marked := 0
	for _, event := range r.store.events {
		if event.Status != models.EventScheduled || !event.EndAt.Before(cutoff) {
			continue
		}
		ts := at
		event.Status = models.EventMissed
		event.MissedAt = &ts
		event.UpdatedAt = at
		marked++
	}
	return marked, nil
}

func (r *memoryEventRepository) ListForUser(ctx context.Context, orgID, userID string, from, to time.Time) ([]models.CalendarEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var events []models.CalendarEvent
	for _, event := range r.store.events {
		if event.OrgID != orgID || event.UserID != userID {
			continue
		}
		if event.StartAt.Before(from) || !event.StartAt.Before(to) {
			continue
		}
		events = append(events, *cloneEvent(event))
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartAt.Before(events[j].StartAt)
	})
	return events, nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
