package services

import (
	"testing"
	"time"

	"github.com/ajharbinger/dealflowos/internal/clock"
	"github.com/ajharbinger/dealflowos/internal/errors"
	"github.com/ajharbinger/dealflowos/internal/ingest"
	"github.com/ajharbinger/dealflowos/internal/repository"
	"github.com/stretchr/testify/assert"
)

var testNow = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

type testEnv struct {
	svc   *Services
	repos *repository.Repositories
	clock *clock.Manual
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	clk := clock.NewManual(testNow)
	return &testEnv{
		svc: NewServices(Dependencies{
			Repos:           repos,
			Clock:           clk,
			ReminderOffsets: []int{-60, -15},
		}),
		repos: repos,
		clock: clk,
	}
}

// stubNormalizer returns a fixed result regardless of the row
type stubNormalizer struct {
	out ingest.NormalizedAddress
}

func (s stubNormalizer) Normalize(ingest.RawLeadRow) ingest.NormalizedAddress {
	return s.out
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.Equal(t, code, errors.CodeOf(err), "unexpected error: %v", err)
	}
}

func ptr(v float64) *float64 { return &v }
