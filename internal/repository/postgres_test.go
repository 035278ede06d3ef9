package repository

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajharbinger/dealflowos/internal/models"
)

// openTestDB connects to TEST_DATABASE_URL, which must already be migrated
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping postgres repository test - TEST_DATABASE_URL not set")
	}
	db, err := sql.Open("postgres", url)
	require.NoError(t, err)
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skip("Skipping postgres repository test - database not reachable")
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPostgresLeadUpsert(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repos := NewRepositories(db)
	orgID := "test-" + uuid.NewString()

	lead := &models.Lead{OrgID: orgID, Address: "9 Elm St", AddressHash: uuid.NewString(), OwnerName: "A"}
	stored, inserted, err := repos.Lead.UpsertFromBatch(ctx, lead)
	require.NoError(t, err)
	assert.True(t, inserted)

	again := &models.Lead{OrgID: orgID, Address: "9 Elm St", AddressHash: lead.AddressHash, OwnerName: "B", PropertyType: models.PropertyLand}
	updated, inserted, err := repos.Lead.UpsertFromBatch(ctx, again)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, stored.ID, updated.ID)
	assert.Equal(t, "A", updated.OwnerName)
	assert.Equal(t, models.PropertyLand, updated.PropertyType)
}

func TestPostgresDealStageUpdate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repos := NewRepositories(db)
	orgID := "test-" + uuid.NewString()

	lead := &models.Lead{OrgID: orgID, Address: "1 Oak Ave", AddressHash: uuid.NewString()}
	require.NoError(t, repos.Lead.Create(ctx, lead))

	deal, created, err := repos.Deal.CreateIfAbsent(ctx, &models.Deal{OrgID: orgID, LeadID: lead.ID, Stage: models.StageNew})
	require.NoError(t, err)
	assert.True(t, created)

	t1 := time.Now().UTC().Truncate(time.Millisecond)
	t2 := t1.Add(time.Hour)
	_, err = repos.Deal.ApplyStageUpdate(ctx, orgID, deal.ID, models.StageUpdate{Stage: models.StageQualified, At: t1, AssignmentFeeExpected: fptr(10000)})
	require.NoError(t, err)

	updated, err := repos.Deal.ApplyStageUpdate(ctx, orgID, deal.ID, models.StageUpdate{Stage: models.StageQualified, At: t2})
	require.NoError(t, err)
	require.NotNil(t, updated.QualifiedAt)
	assert.True(t, updated.QualifiedAt.Equal(t1))
	require.NotNil(t, updated.AssignmentFeeExpected)
	assert.Equal(t, 10000.0, *updated.AssignmentFeeExpected)
}
