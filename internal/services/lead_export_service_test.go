package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/ajharbinger/dealflowos/internal/errors"
	"github.com/ajharbinger/dealflowos/internal/models"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/ajharbinger/dealflowos/internal/underwriting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedExportLeads(t *testing.T, repos *repository.Repositories) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, repos.Lead.Create(ctx, &models.Lead{
		OrgID:       "org-1",
		Address:     "1 Elm St, Austin, TX 78701",
		AddressHash: "hash-1",
		Qualified:   true,
		ARV:         underwriting.Float(300000),
		MOA:         underwriting.Float(145000),
		LandSignals: models.LandSignals{"acreage", "vacant"},
	}))
	require.NoError(t, repos.Lead.Create(ctx, &models.Lead{
		OrgID:       "org-1",
		Address:     "2 Elm St, Austin, TX 78701",
		AddressHash: "hash-2",
	}))
	require.NoError(t, repos.Lead.Create(ctx, &models.Lead{
		OrgID:       "org-2",
		Address:     "3 Elm St, Austin, TX 78701",
		AddressHash: "hash-3",
	}))
}

func TestLeadExport_CSV(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	seedExportLeads(t, repos)
	exporter := NewLeadExportService(repos.Lead, nil)

	var buf bytes.Buffer
	count, err := exporter.Export(context.Background(), repository.LeadFilters{OrgID: "org-1"}, FormatCSV, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, exportHeaders, records[0])

	byAddress := map[string][]string{}
	for _, rec := range records[1:] {
		byAddress[rec[1]] = rec
	}
	first := byAddress["1 Elm St, Austin, TX 78701"]
	require.NotNil(t, first)
	assert.Equal(t, "true", first[11])
	assert.Equal(t, "acreage; vacant", first[13])
	assert.Equal(t, "300000", first[14])
	assert.Equal(t, "145000", first[19])

	second := byAddress["2 Elm St, Austin, TX 78701"]
	require.NotNil(t, second)
	assert.Equal(t, "", second[14])
}

func TestLeadExport_JSONFilters(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	seedExportLeads(t, repos)
	exporter := NewLeadExportService(repos.Lead, nil)

	qualified := true
	var buf bytes.Buffer
	count, err := exporter.Export(context.Background(), repository.LeadFilters{OrgID: "org-1", Qualified: &qualified}, FormatJSON, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var out struct {
		Leads []models.Lead `json:"leads"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "hash-1", out.Leads[0].AddressHash)
}

func TestLeadExport_Errors(t *testing.T) {
	exporter := NewLeadExportService(repository.NewMemoryRepositories().Lead, nil)

	_, err := exporter.Export(context.Background(), repository.LeadFilters{}, FormatCSV, &bytes.Buffer{})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	_, err = ParseExportFormat("xml")
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	f, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
}
