package underwriting

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMOA_Formula(t *testing.T) {
	cases := []struct {
		arv, multiplier, repairs, fee float64
	}{
		{250000, 0.70, 35000, 10000},
		{100000, 0.65, 20000, 5000},
		{1, 1, 1, 0},
		{480000, 0.80, 60000, 25000},
	}

	for _, c := range cases {
		got := CalculateMOA(Float(c.arv), c.multiplier, Float(c.repairs), c.fee)
		require.NotNil(t, got)
		assert.Equal(t, c.arv*c.multiplier-c.repairs-c.fee, *got)
	}
}

func TestCalculateMOA_ZeroAndMissingAreNil(t *testing.T) {
	assert.Nil(t, CalculateMOA(Float(250000), 0.7, Float(0), 10000), "zero repairs counts as missing")
	assert.Nil(t, CalculateMOA(Float(0), 0.7, Float(35000), 10000), "zero arv counts as missing")
	assert.Nil(t, CalculateMOA(nil, 0.7, Float(35000), 10000))
	assert.Nil(t, CalculateMOA(Float(250000), 0.7, nil, 10000))
	assert.Nil(t, CalculateMOA(Float(math.NaN()), 0.7, Float(35000), 0))
	assert.Nil(t, CalculateMOA(Float(250000), math.Inf(1), Float(35000), 0))
}

func TestCalculateDealScore_Scenario(t *testing.T) {
	arv, repairs := Float(250000), Float(35000)
	moa := CalculateMOA(arv, 0.70, repairs, 10000)
	require.NotNil(t, moa)
	assert.InDelta(t, 130000, *moa, 1e-6)

	score := CalculateDealScore(DealScoreInput{ARV: arv, EstimatedRepairs: repairs, MOA: moa, OfferPrice: Float(90000)})
	require.NotNil(t, score)
	assert.Equal(t, 80.0, *score)

	penalized := CalculateDealScore(DealScoreInput{ARV: arv, EstimatedRepairs: repairs, MOA: moa, OfferPrice: Float(140000)})
	require.NotNil(t, penalized)
	assert.Equal(t, 60.0, *penalized)
}

func TestCalculateDealScore_NilInputs(t *testing.T) {
	assert.Nil(t, CalculateDealScore(DealScoreInput{MOA: Float(1000)}))
	assert.Nil(t, CalculateDealScore(DealScoreInput{ARV: Float(1000)}))
	assert.Nil(t, CalculateDealScore(DealScoreInput{ARV: Float(0), MOA: Float(1000)}))
}

func TestCalculateDealScore_PenaltyFlooredAtZero(t *testing.T) {
	// Negative MOA earns no band points, the penalty would push the raw score below zero.
	b := ScoreDeal(DealScoreInput{
		ARV:              Float(100000),
		EstimatedRepairs: Float(90000),
		MOA:              Float(-20000),
		OfferPrice:       Float(50000),
	})
	require.NotNil(t, b)
	assert.Equal(t, 0, b.RepairPoints)
	assert.Equal(t, 0, b.MOAPoints)
	assert.Equal(t, 20, b.Penalty)
	assert.Equal(t, -20, b.Raw)
	assert.Equal(t, 0, b.Score)
}

func TestCalculateDealScore_Bands(t *testing.T) {
	tests := []struct {
		name    string
		repairs *float64
		moa     float64
		want    float64
	}{
		{"best bands", Float(10000), 60000, 80},
		{"repair boundary 0.15", Float(15000), 50000, 80},
		{"second repair band", Float(20000), 45000, 60},
		{"third bands", Float(30000), 35000, 40},
		{"fourth bands", Float(45000), 25000, 20},
		{"no bands", Float(70000), 10000, 0},
		{"unknown repairs", nil, 50000, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateDealScore(DealScoreInput{ARV: Float(100000), EstimatedRepairs: tt.repairs, MOA: Float(tt.moa)})
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestCalculateDealScore_AlwaysInRange(t *testing.T) {
	values := []float64{-1e9, -50000, -1, 0.5, 1, 1000, 35000, 130000, 250000, 1e9}
	for _, arv := range values {
		if arv == 0 {
			continue
		}
		for _, repairs := range values {
			for _, moa := range values {
				for _, offer := range values {
					score := CalculateDealScore(DealScoreInput{
						ARV: Float(arv), EstimatedRepairs: Float(repairs), MOA: Float(moa), OfferPrice: Float(offer),
					})
					require.NotNil(t, score)
					assert.GreaterOrEqual(t, *score, 0.0)
					assert.LessOrEqual(t, *score, 100.0)
				}
			}
		}
	}
}

func TestEngine_RecalculateAppliesDefaults(t *testing.T) {
	engine := NewEngine(0)

	result := engine.Recalculate(Inputs{
		ARV:              Float(250000),
		EstimatedRepairs: Float(35000),
		OfferPrice:       Float(90000),
	})
	require.NotNil(t, result.MOA)
	assert.InDelta(t, 140000, *result.MOA, 1e-6, "default multiplier 0.70 with no fee")
	require.NotNil(t, result.DealScore)
	assert.Equal(t, 80.0, *result.DealScore)

	// Identical inputs give identical outputs.
	again := engine.Recalculate(Inputs{ARV: Float(250000), EstimatedRepairs: Float(35000), OfferPrice: Float(90000)})
	assert.Equal(t, result, again)
}

func TestEngine_RecalculateMissingInputs(t *testing.T) {
	engine := NewEngine(0.75)

	result := engine.Recalculate(Inputs{ARV: Float(250000)})
	assert.Nil(t, result.MOA)
	assert.Nil(t, result.DealScore)
	assert.Nil(t, result.Breakdown)
}

func TestParseFiniteNumber(t *testing.T) {
	tests := []struct {
		name  string
		in    interface{}
		want  float64
		valid bool
	}{
		{"float", 12500.5, 12500.5, true},
		{"int", 10000, 10000, true},
		{"json number", json.Number("7500"), 7500, true},
		{"numeric string", " 8000 ", 8000, true},
		{"negative", -5.0, -5, true},
		{"nil", nil, 0, false},
		{"empty string", "", 0, false},
		{"garbage", "ten grand", 0, false},
		{"nan string", "NaN", 0, false},
		{"infinite", math.Inf(-1), 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFiniteNumber(tt.in)
			assert.Equal(t, tt.valid, ok)
			if tt.valid {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
