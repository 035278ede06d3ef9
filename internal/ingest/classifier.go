package ingest

import (
	"strings"
	"unicode"

	"github.com/ajharbinger/dealflowos/internal/models"
)

type typeRule struct {
	propertyType string
	phrases      []string
}

// typeRules are checked in order; the first match wins
var typeRules = []typeRule{
	{models.PropertyMobileHome, []string{"mobile home", "manufactured", "trailer"}},
	{models.PropertyMultiFamily, []string{"multi family", "multifamily", "duplex", "triplex", "fourplex", "quadplex", "apartment building", "units"}},
	{models.PropertyCondo, []string{"condo", "condominium"}},
	{models.PropertyTownhouse, []string{"townhouse", "townhome", "row house"}},
	{models.PropertyCommercial, []string{"commercial", "retail", "office", "warehouse", "industrial", "storefront"}},
	{models.PropertySingleFamily, []string{"single family", "sfr", "sfh", "house", "bungalow", "ranch", "cottage"}},
}

// landPhrases become land signals when present in the row text
var landPhrases = []string{
	"vacant land", "raw land", "vacant lot", "lot only", "acre", "acres", "acreage",
	"parcel", "undeveloped", "buildable", "land", "lot", "vacant",
}

// KeywordClassifier derives a property type and land signals from row text
type KeywordClassifier struct{}

// NewKeywordClassifier creates the default property classifier
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify returns the property type of a row and the land hints found in it
func (c *KeywordClassifier) Classify(row RawLeadRow) Classification {
	text := " " + tokenize(row.PropertyType+" "+row.Description) + " "

	signals := []string{}
	seen := make(map[string]bool)
	for _, phrase := range landPhrases {
		if strings.Contains(text, " "+phrase+" ") && !seen[phrase] {
			seen[phrase] = true
			signals = append(signals, phrase)
		}
	}
	if strings.TrimSpace(row.LotSize) != "" {
		signals = append(signals, "lot_size")
	}

	if hinted := explicitType(row.PropertyType); hinted != "" {
		return Classification{Type: hinted, Signals: signals}
	}

	for _, rule := range typeRules {
		for _, phrase := range rule.phrases {
			if strings.Contains(text, " "+phrase+" ") {
				return Classification{Type: rule.propertyType, Signals: signals}
			}
		}
	}

	if len(signals) > 0 {
		return Classification{Type: models.PropertyLand, Signals: signals}
	}
	return Classification{Type: models.PropertyUnknown, Signals: signals}
}

// explicitType accepts a hint that already names a known property type
func explicitType(hint string) string {
	key := strings.ReplaceAll(tokenize(hint), " ", "_")
	switch key {
	case models.PropertySingleFamily, models.PropertyMultiFamily, models.PropertyCondo,
		models.PropertyTownhouse, models.PropertyMobileHome, models.PropertyLand,
		models.PropertyCommercial:
		return key
	}
	return ""
}

// tokenize lowercases s and collapses every non-alphanumeric run into one space
func tokenize(s string) string {
	return strings.Join(strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
