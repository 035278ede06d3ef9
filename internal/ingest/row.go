// Package ingest holds the default collaborators of lead ingestion: the address
// normalizer, the property classifier and the CSV row reader.
package ingest

import "strings"

// RawLeadRow is one uncleaned lead record as it arrives from a batch source
type RawLeadRow struct {
	Address      string `json:"address"`
	Line1        string `json:"line1"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	OwnerName    string `json:"owner_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Source       string `json:"source"`
	PropertyType string `json:"property_type"`
	Description  string `json:"description"`
	LotSize      string `json:"lot_size"`

	// Financial inputs are kept raw and parsed on insert
	ARV              string `json:"arv"`
	EstimatedRepairs string `json:"estimated_repairs"`
	OfferPrice       string `json:"offer_price"`
}

// IsEmpty reports whether the row carries no address information at all
func (r RawLeadRow) IsEmpty() bool {
	return strings.TrimSpace(r.Address+r.Line1+r.City+r.State+r.Zip) == ""
}

// NormalizedAddress is the output of an address normalizer.
// AddressHash may be left blank, in which case the canonical form is hashed.
type NormalizedAddress struct {
	Canonical   string
	Line1       string
	City        string
	State       string
	Zip         string
	AddressHash string
}

// Classification is the output of a property classifier
type Classification struct {
	Type    string
	Signals []string
}

// JoinCanonical assembles "line1, city, state zip", dropping empty parts
func JoinCanonical(line1, city, state, zip string) string {
	var parts []string
	if s := strings.TrimSpace(line1); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(city); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(strings.TrimSpace(state) + " " + strings.TrimSpace(zip)); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}
