package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Property types produced by classification
const (
	PropertySingleFamily = "single_family"
	PropertyMultiFamily  = "multi_family"
	PropertyCondo        = "condo"
	PropertyTownhouse    = "townhouse"
	PropertyMobileHome   = "mobile_home"
	PropertyLand         = "land"
	PropertyCommercial   = "commercial"
	PropertyUnknown      = "unknown"
)

// DefaultLeadStatus is the pipeline label given to new leads
const DefaultLeadStatus = "new"

// Lead represents a prospective property/seller contact
type Lead struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OrgID       string    `json:"org_id" db:"org_id"`
	Address     string    `json:"address" db:"address"`
	AddressHash string    `json:"address_hash" db:"address_hash"`
	Line1       string    `json:"line1" db:"line1"`
	City        string    `json:"city" db:"city"`
	State       string    `json:"state" db:"state"`
	Zip         string    `json:"zip" db:"zip"`
	OwnerName   string    `json:"owner_name" db:"owner_name"`
	Phone       string    `json:"phone" db:"phone"`
	Email       string    `json:"email" db:"email"`
	Source      string    `json:"source" db:"source"`
	Status      string    `json:"status" db:"status"`
	Qualified   bool      `json:"qualified" db:"qualified"`

	// Financial inputs
	ARV                  *float64 `json:"arv" db:"arv"`
	EstimatedRepairs     *float64 `json:"estimated_repairs" db:"estimated_repairs"`
	InvestorMultiplier   *float64 `json:"investor_multiplier" db:"investor_multiplier"`
	DesiredAssignmentFee *float64 `json:"desired_assignment_fee" db:"desired_assignment_fee"`
	OfferPrice           *float64 `json:"offer_price" db:"offer_price"`

	// Derived outputs
	MOA       *float64 `json:"moa" db:"moa"`
	DealScore *float64 `json:"deal_score" db:"deal_score"`

	PropertyType string      `json:"property_type" db:"property_type"`
	LandSignals  LandSignals `json:"land_signals" db:"land_signals"`

	ArchivedAt *time.Time `json:"archived_at,omitempty" db:"archived_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// IsArchived reports whether the lead has been archived
func (l *Lead) IsArchived() bool {
	return l.ArchivedAt != nil
}

// LandSignals are the classifier hints stored as JSON
type LandSignals []string

// Value implements driver.Valuer for LandSignals
func (s LandSignals) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for LandSignals
func (s *LandSignals) Scan(value interface{}) error {
	if value == nil {
		*s = LandSignals{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into LandSignals", value)
	}

	return json.Unmarshal(bytes, s)
}
