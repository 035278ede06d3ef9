package underwriting

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultInvestorMultiplier is the share of ARV an investor will pay before repairs and fees.
	DefaultInvestorMultiplier = 0.70

	maxBandPoints    = 40
	overOfferPenalty = 20
	minScore         = 0
	maxScore         = 100
)

// band maps a ratio threshold to the points it earns
type band struct {
	limit  float64
	points int
}

// Lower repair ratio is better: first band whose limit is >= ratio wins.
var repairBands = []band{
	{0.15, 40},
	{0.25, 30},
	{0.35, 20},
	{0.50, 10},
}

// Higher MOA ratio is better: first band whose limit is <= ratio wins.
var moaBands = []band{
	{0.50, 40},
	{0.40, 30},
	{0.30, 20},
	{0.20, 10},
}

// CalculateMOA returns arv*investorMultiplier - estimatedRepairs - assignmentFee.
// A nil, zero or non-finite arv or estimatedRepairs counts as missing and yields nil.
func CalculateMOA(arv *float64, investorMultiplier float64, estimatedRepairs *float64, assignmentFee float64) *float64 {
	if !present(arv) || !present(estimatedRepairs) {
		return nil
	}
	moa := *arv*investorMultiplier - *estimatedRepairs - assignmentFee
	if !isFinite(moa) {
		return nil
	}
	return &moa
}

// DealScoreInput holds the values the deal score is computed from
type DealScoreInput struct {
	ARV              *float64
	EstimatedRepairs *float64
	MOA              *float64
	OfferPrice       *float64
}

// ScoreBreakdown explains how a deal score was reached
type ScoreBreakdown struct {
	RepairRatio  *float64 `json:"repair_ratio,omitempty"`
	RepairPoints int      `json:"repair_points"`
	MOARatio     float64  `json:"moa_ratio"`
	MOAPoints    int      `json:"moa_points"`
	Penalty      int      `json:"penalty"`
	Raw          int      `json:"raw"`
	Score        int      `json:"score"`
}

// CalculateDealScore returns a 0-100 rating, or nil when ARV or MOA is missing.
func CalculateDealScore(in DealScoreInput) *float64 {
	breakdown := ScoreDeal(in)
	if breakdown == nil {
		return nil
	}
	score := float64(breakdown.Score)
	return &score
}

// ScoreDeal computes the deal score with its per-band detail.
func ScoreDeal(in DealScoreInput) *ScoreBreakdown {
	if in.ARV == nil || in.MOA == nil {
		return nil
	}
	arv, moa := *in.ARV, *in.MOA
	if arv == 0 || !isFinite(arv) || !isFinite(moa) {
		return nil
	}

	b := &ScoreBreakdown{}

	if in.EstimatedRepairs != nil && isFinite(*in.EstimatedRepairs) {
		ratio := *in.EstimatedRepairs / arv
		b.RepairRatio = &ratio
		for _, rb := range repairBands {
			if ratio <= rb.limit {
				b.RepairPoints = rb.points
				break
			}
		}
	}

	b.MOARatio = moa / arv
	for _, mb := range moaBands {
		if b.MOARatio >= mb.limit {
			b.MOAPoints = mb.points
			break
		}
	}

	if in.OfferPrice != nil && isFinite(*in.OfferPrice) && *in.OfferPrice > moa {
		b.Penalty = overOfferPenalty
	}

	b.Raw = b.RepairPoints + b.MOAPoints - b.Penalty
	b.Score = clamp(b.Raw, minScore, maxScore)
	return b
}

// Inputs are the financial fields of a lead
type Inputs struct {
	ARV                  *float64 `json:"arv"`
	EstimatedRepairs     *float64 `json:"estimated_repairs"`
	InvestorMultiplier   *float64 `json:"investor_multiplier"`
	DesiredAssignmentFee *float64 `json:"desired_assignment_fee"`
	OfferPrice           *float64 `json:"offer_price"`
}

// Result holds the derived outputs
type Result struct {
	MOA       *float64        `json:"moa"`
	DealScore *float64        `json:"deal_score"`
	Breakdown *ScoreBreakdown `json:"breakdown,omitempty"`
}

// Engine applies lead defaults on top of the formulas
type Engine struct {
	defaultMultiplier float64
}

// NewEngine creates an engine. A non-positive multiplier falls back to DefaultInvestorMultiplier.
func NewEngine(defaultMultiplier float64) *Engine {
	if defaultMultiplier <= 0 || !isFinite(defaultMultiplier) {
		defaultMultiplier = DefaultInvestorMultiplier
	}
	return &Engine{defaultMultiplier: defaultMultiplier}
}

// Recalculate derives MOA and deal score from a lead's inputs. Safe to call on every mutation.
func (e *Engine) Recalculate(in Inputs) Result {
	multiplier := e.defaultMultiplier
	if in.InvestorMultiplier != nil && isFinite(*in.InvestorMultiplier) {
		multiplier = *in.InvestorMultiplier
	}
	fee := 0.0
	if in.DesiredAssignmentFee != nil && isFinite(*in.DesiredAssignmentFee) {
		fee = *in.DesiredAssignmentFee
	}

	moa := CalculateMOA(in.ARV, multiplier, in.EstimatedRepairs, fee)
	breakdown := ScoreDeal(DealScoreInput{
		ARV:              in.ARV,
		EstimatedRepairs: in.EstimatedRepairs,
		MOA:              moa,
		OfferPrice:       in.OfferPrice,
	})

	result := Result{MOA: moa, Breakdown: breakdown}
	if breakdown != nil {
		score := float64(breakdown.Score)
		result.DealScore = &score
	}
	return result
}

// ParseFiniteNumber reads a loosely typed numeric value as decoded from JSON or a form.
// It reports false for anything that is not a finite number.
func ParseFiniteNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case int32:
		f = float64(n)
	case *float64:
		if n == nil {
			return 0, false
		}
		f = *n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if !isFinite(f) {
		return 0, false
	}
	return f, true
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

func present(v *float64) bool {
	return v != nil && *v != 0 && isFinite(*v)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
