package models

import (
	"time"

	"github.com/google/uuid"
)

// Stage is a deal pipeline stage
type Stage string

const (
	StageNew           Stage = "NEW"
	StageContacted     Stage = "CONTACTED"
	StageQualified     Stage = "QUALIFIED"
	StageUnderContract Stage = "UNDER_CONTRACT"
	StageInEscrow      Stage = "IN_ESCROW"
	StageClosedWon     Stage = "CLOSED_WON"
	StageClosedLost    Stage = "CLOSED_LOST"
)

// Stages lists every valid stage in pipeline order
var Stages = []Stage{
	StageNew,
	StageContacted,
	StageQualified,
	StageUnderContract,
	StageInEscrow,
	StageClosedWon,
	StageClosedLost,
}

// IsValid checks if a stage is recognized
func (s Stage) IsValid() bool {
	for _, v := range Stages {
		if s == v {
			return true
		}
	}
	return false
}

// IsClosed reports whether the stage ends the pipeline
func (s Stage) IsClosed() bool {
	return s == StageClosedWon || s == StageClosedLost
}

// Label returns a human-readable label for the stage
func (s Stage) Label() string {
	switch s {
	case StageNew:
		return "New"
	case StageContacted:
		return "Contacted"
	case StageQualified:
		return "Qualified"
	case StageUnderContract:
		return "Under Contract"
	case StageInEscrow:
		return "In Escrow"
	case StageClosedWon:
		return "Closed (Won)"
	case StageClosedLost:
		return "Closed (Lost)"
	default:
		return string(s)
	}
}

// Deal represents the transactional pipeline state derived from a Lead
type Deal struct {
	ID                    uuid.UUID  `json:"id" db:"id"`
	OrgID                 string     `json:"org_id" db:"org_id"`
	LeadID                uuid.UUID  `json:"lead_id" db:"lead_id"`
	Stage                 Stage      `json:"stage" db:"stage"`
	StageUpdatedAt        time.Time  `json:"stage_updated_at" db:"stage_updated_at"`
	QualifiedAt           *time.Time `json:"qualified_at" db:"qualified_at"`
	ContractAt            *time.Time `json:"contract_at" db:"contract_at"`
	EscrowAt              *time.Time `json:"escrow_at" db:"escrow_at"`
	ClosedAt              *time.Time `json:"closed_at" db:"closed_at"`
	AssignmentFeeExpected *float64   `json:"assignment_fee_expected" db:"assignment_fee_expected"`
	AssignmentFeeActual   *float64   `json:"assignment_fee_actual" db:"assignment_fee_actual"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
}

// StageUpdate is the single atomic write applied by a stage transition.
// Nil fee pointers leave the stored value unchanged.
type StageUpdate struct {
	Stage                 Stage
	At                    time.Time
	AssignmentFeeExpected *float64
	AssignmentFeeActual   *float64
}

// Apply mutates d the way the storage layer does: first-enter-wins timestamps,
// an unconditional stageUpdatedAt refresh, and fees only when supplied.
func (u StageUpdate) Apply(d *Deal) {
	at := u.At
	d.Stage = u.Stage
	d.StageUpdatedAt = at
	d.UpdatedAt = at

	switch u.Stage {
	case StageQualified:
		if d.QualifiedAt == nil {
			d.QualifiedAt = &at
		}
	case StageUnderContract:
		if d.ContractAt == nil {
			d.ContractAt = &at
		}
	case StageInEscrow:
		if d.EscrowAt == nil {
			d.EscrowAt = &at
		}
	case StageClosedWon, StageClosedLost:
		if d.ClosedAt == nil {
			d.ClosedAt = &at
		}
	}

	if u.AssignmentFeeExpected != nil {
		fee := *u.AssignmentFeeExpected
		d.AssignmentFeeExpected = &fee
	}
	if u.AssignmentFeeActual != nil {
		fee := *u.AssignmentFeeActual
		d.AssignmentFeeActual = &fee
	}
}

// StageCount is one row of a pipeline summary
type StageCount struct {
	Stage Stage  `json:"stage"`
	Label string `json:"label"`
	Count int    `json:"count"`
}
