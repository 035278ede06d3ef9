package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajharbinger/dealflowos/internal/models"
)

func fptr(v float64) *float64 { return &v }

func TestMemoryLeadUpsertUpdatesOnlyClassification(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()

	lead := &models.Lead{
		OrgID:        "org-1",
		Address:      "1 Main St, Austin, TX 78701",
		AddressHash:  "hash-1",
		OwnerName:    "Original Owner",
		ARV:          fptr(200000),
		PropertyType: models.PropertySingleFamily,
	}
	stored, inserted, err := repos.Lead.UpsertFromBatch(ctx, lead)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, models.DefaultLeadStatus, stored.Status)

	again := &models.Lead{
		OrgID:        "org-1",
		Address:      "1 Main St, Austin, TX 78701",
		AddressHash:  "hash-1",
		OwnerName:    "Someone Else",
		ARV:          fptr(1),
		PropertyType: models.PropertyLand,
		LandSignals:  models.LandSignals{"acre"},
	}
	updated, inserted, err := repos.Lead.UpsertFromBatch(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, stored.ID, updated.ID)
	assert.Equal(t, models.PropertyLand, updated.PropertyType)
	assert.Equal(t, models.LandSignals{"acre"}, updated.LandSignals)
	assert.Equal(t, "Original Owner", updated.OwnerName)
	require.NotNil(t, updated.ARV)
	assert.Equal(t, 200000.0, *updated.ARV)

	// same hash in another org is a different lead
	other := &models.Lead{OrgID: "org-2", AddressHash: "hash-1"}
	_, inserted, err = repos.Lead.UpsertFromBatch(ctx, other)
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestMemoryLeadCreateConflictAndScope(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()

	lead := &models.Lead{OrgID: "org-1", AddressHash: "h"}
	require.NoError(t, repos.Lead.Create(ctx, lead))
	assert.ErrorIs(t, repos.Lead.Create(ctx, &models.Lead{OrgID: "org-1", AddressHash: "h"}), ErrConflict)

	_, err := repos.Lead.GetByID(ctx, "org-2", lead.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := repos.Lead.GetByAddressHash(ctx, "org-1", "h")
	require.NoError(t, err)
	assert.Equal(t, lead.ID, got.ID)
}

func TestMemoryLeadListFilters(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	archived := time.Now().UTC()

	require.NoError(t, repos.Lead.Create(ctx, &models.Lead{OrgID: "o", AddressHash: "a", DealScore: fptr(80)}))
	require.NoError(t, repos.Lead.Create(ctx, &models.Lead{OrgID: "o", AddressHash: "b", DealScore: fptr(20)}))
	require.NoError(t, repos.Lead.Create(ctx, &models.Lead{OrgID: "o", AddressHash: "c", ArchivedAt: &archived}))

	all, err := repos.Lead.List(ctx, LeadFilters{OrgID: "o"})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	withArchived, err := repos.Lead.List(ctx, LeadFilters{OrgID: "o", IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, withArchived, 3)

	high, err := repos.Lead.List(ctx, LeadFilters{OrgID: "o", MinDealScore: fptr(50)})
	require.NoError(t, err)
	require.Len(t, high, 1)
	assert.Equal(t, "a", high[0].AddressHash)
}

func TestMemoryDealCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	leadID := uuid.New()

	first, created, err := repos.Deal.CreateIfAbsent(ctx, &models.Deal{OrgID: "o", LeadID: leadID, Stage: models.StageNew})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := repos.Deal.CreateIfAbsent(ctx, &models.Deal{OrgID: "o", LeadID: leadID, Stage: models.StageNew})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestMemoryDealStageUpdate(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()

	deal, _, err := repos.Deal.CreateIfAbsent(ctx, &models.Deal{OrgID: "o", LeadID: uuid.New(), Stage: models.StageNew})
	require.NoError(t, err)

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	updated, err := repos.Deal.ApplyStageUpdate(ctx, "o", deal.ID, models.StageUpdate{Stage: models.StageQualified, At: t1})
	require.NoError(t, err)
	require.NotNil(t, updated.QualifiedAt)

	updated, err = repos.Deal.ApplyStageUpdate(ctx, "o", deal.ID, models.StageUpdate{Stage: models.StageQualified, At: t2})
	require.NoError(t, err)
	assert.Equal(t, t1, *updated.QualifiedAt)
	assert.Equal(t, t2, updated.StageUpdatedAt)

	_, err = repos.Deal.ApplyStageUpdate(ctx, "other", deal.ID, models.StageUpdate{Stage: models.StageContacted, At: t2})
	assert.ErrorIs(t, err, ErrNotFound)

	counts, err := repos.Deal.CountByStage(ctx, "o")
	require.NoError(t, err)
	assert.Equal(t, 1, counts[models.StageQualified])
}

func newReminder(remindAt time.Time) *models.Reminder {
	key := models.ReminderKey("o", "u", models.TargetCalendarEvent, "evt-1", -15, models.ChannelInApp)
	return &models.Reminder{
		OrgID:          "o",
		UserID:         "u",
		TargetType:     models.TargetCalendarEvent,
		TargetID:       "evt-1",
		RemindAt:       remindAt,
		OffsetMinutes:  -15,
		Channel:        models.ChannelInApp,
		IdempotencyKey: key,
	}
}

func TestMemoryReminderUpsertRearms(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	first, err := repos.Reminder.Upsert(ctx, newReminder(at))
	require.NoError(t, err)

	n, err := repos.Reminder.TransitionDue(ctx, []uuid.UUID{first.ID}, models.ReminderSent, at)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	later := at.Add(2 * time.Hour)
	second, err := repos.Reminder.Upsert(ctx, newReminder(later))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.ReminderPending, second.Status)
	assert.Equal(t, later, second.RemindAt)
	assert.Nil(t, second.SentAt)
}

func TestMemoryReminderDueAndTransitions(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	due, err := repos.Reminder.Upsert(ctx, newReminder(now))
	require.NoError(t, err)

	future := newReminder(now.Add(time.Minute))
	future.IdempotencyKey = "future"
	_, err = repos.Reminder.Upsert(ctx, future)
	require.NoError(t, err)

	list, err := repos.Reminder.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, due.ID, list[0].ID)

	n, err := repos.Reminder.TransitionDue(ctx, []uuid.UUID{due.ID}, models.ReminderMissed, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// second transition is a no-op
	n, err = repos.Reminder.TransitionDue(ctx, []uuid.UUID{due.ID}, models.ReminderSent, now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	delivered, err := repos.Reminder.MarkDelivered(ctx, "o", "u", due.ID, now)
	require.NoError(t, err)
	assert.Equal(t, models.ReminderDelivered, delivered.Status)

	_, err = repos.Reminder.MarkDelivered(ctx, "o", "u", due.ID, now)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = repos.Reminder.MarkDelivered(ctx, "o", "someone-else", due.ID, now)
	assert.ErrorIs(t, err, ErrNotFound)

	cancelled, err := repos.Reminder.CancelForTarget(ctx, "o", models.TargetCalendarEvent, "evt-1", now)
	require.NoError(t, err)
	assert.Equal(t, 1, cancelled)
}

func TestMemoryEventMarkMissed(t *testing.T) {
	ctx := context.Background()
	repos := NewMemoryRepositories()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	past := &models.CalendarEvent{OrgID: "o", UserID: "u", Title: "walkthrough", StartAt: now.Add(-2 * time.Hour), EndAt: now.Add(-time.Hour)}
	upcoming := &models.CalendarEvent{OrgID: "o", UserID: "u", Title: "call", StartAt: now.Add(time.Hour), EndAt: now.Add(2 * time.Hour)}
	require.NoError(t, repos.Event.Create(ctx, past))
	require.NoError(t, repos.Event.Create(ctx, upcoming))

	n, err := repos.Event.MarkMissedEndedBefore(ctx, now.Add(-15*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repos.Event.GetByID(ctx, "o", past.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventMissed, got.Status)

	n, err = repos.Event.MarkMissedEndedBefore(ctx, now.Add(-15*time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	events, err := repos.Event.ListForUser(ctx, "o", "u", now.Add(-24*time.Hour), now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, past.ID, events[0].ID)
}
