package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_IsValid(t *testing.T) {
	for _, s := range Stages {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, Stage("ARCHIVED").IsValid())
	assert.False(t, Stage("qualified").IsValid(), "stages are case sensitive")
	assert.False(t, Stage("").IsValid())
}

func TestStageUpdate_FirstEnterWins(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	deal := &Deal{Stage: StageNew}

	StageUpdate{Stage: StageQualified, At: t0}.Apply(deal)
	StageUpdate{Stage: StageContacted, At: t0.Add(time.Hour)}.Apply(deal)
	StageUpdate{Stage: StageQualified, At: t0.Add(2 * time.Hour)}.Apply(deal)

	require.NotNil(t, deal.QualifiedAt)
	assert.Equal(t, t0, *deal.QualifiedAt)
	assert.Equal(t, t0.Add(2*time.Hour), deal.StageUpdatedAt)
	assert.Equal(t, StageQualified, deal.Stage)
	assert.Nil(t, deal.ContractAt)
}

func TestStageUpdate_ClosedStagesShareClosedAt(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	deal := &Deal{Stage: StageInEscrow}

	StageUpdate{Stage: StageClosedLost, At: t0}.Apply(deal)
	StageUpdate{Stage: StageClosedWon, At: t0.Add(time.Hour), AssignmentFeeActual: ptr(12000)}.Apply(deal)

	require.NotNil(t, deal.ClosedAt)
	assert.Equal(t, t0, *deal.ClosedAt)
	require.NotNil(t, deal.AssignmentFeeActual)
	assert.Equal(t, 12000.0, *deal.AssignmentFeeActual)
}

func TestStageUpdate_NilFeesPreserveValues(t *testing.T) {
	deal := &Deal{AssignmentFeeExpected: ptr(9000), AssignmentFeeActual: ptr(8500)}

	StageUpdate{Stage: StageContacted, At: time.Now()}.Apply(deal)

	assert.Equal(t, 9000.0, *deal.AssignmentFeeExpected)
	assert.Equal(t, 8500.0, *deal.AssignmentFeeActual)
}

func TestReminderKey_Deterministic(t *testing.T) {
	a := ReminderKey("org1", "user1", TargetCalendarEvent, "evt1", -60, ChannelInApp)
	b := ReminderKey("org1", "user1", TargetCalendarEvent, "evt1", -60, ChannelInApp)
	c := ReminderKey("org1", "user1", TargetCalendarEvent, "evt1", -15, ChannelInApp)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "org1:user1:calendar_event:evt1:-60:in_app", a)
}

func TestLandSignals_ValueScan(t *testing.T) {
	v, err := LandSignals(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var s LandSignals
	require.NoError(t, s.Scan([]byte(`["acreage","no_structure"]`)))
	assert.Equal(t, LandSignals{"acreage", "no_structure"}, s)

	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s)

	assert.Error(t, s.Scan(42))
}

func ptr(v float64) *float64 {
	return &v
}
