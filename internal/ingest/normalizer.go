package ingest

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	zipPattern   = regexp.MustCompile(`^(\d{5})(?:-?\d{4})?$`)
	statePattern = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// streetSuffixes maps spelled-out street words to USPS abbreviations
var streetSuffixes = map[string]string{
	"street":    "St",
	"avenue":    "Ave",
	"road":      "Rd",
	"drive":     "Dr",
	"lane":      "Ln",
	"boulevard": "Blvd",
	"court":     "Ct",
	"place":     "Pl",
	"circle":    "Cir",
	"parkway":   "Pkwy",
	"highway":   "Hwy",
	"terrace":   "Ter",
	"trail":     "Trl",
	"square":    "Sq",
	"north":     "N",
	"south":     "S",
	"east":      "E",
	"west":      "W",
	"northeast": "NE",
	"northwest": "NW",
	"southeast": "SE",
	"southwest": "SW",
	"apartment": "Apt",
	"suite":     "Ste",
}

// StandardNormalizer cleans US street addresses into a canonical form
type StandardNormalizer struct{}

// NewStandardNormalizer creates the default address normalizer
func NewStandardNormalizer() *StandardNormalizer {
	return &StandardNormalizer{}
}

// Normalize splits, cleans and reassembles the address parts of a row
func (n *StandardNormalizer) Normalize(row RawLeadRow) NormalizedAddress {
	line1, city, state, zip := row.Line1, row.City, row.State, row.Zip

	// single-line addresses fill whatever parts the row left blank
	if strings.TrimSpace(line1) == "" && strings.TrimSpace(row.Address) != "" {
		l, c, s, z := splitSingleLine(row.Address)
		line1 = l
		if strings.TrimSpace(city) == "" {
			city = c
		}
		if strings.TrimSpace(state) == "" {
			state = s
		}
		if strings.TrimSpace(zip) == "" {
			zip = z
		}
	}

	// a Caser is stateful, so each call gets its own
	title := cases.Title(language.English)
	out := NormalizedAddress{
		Line1: normalizeStreet(title, line1),
		City:  title.String(strings.ToLower(collapse(city))),
		State: strings.ToUpper(collapse(state)),
		Zip:   normalizeZip(zip),
	}
	out.Canonical = JoinCanonical(out.Line1, out.City, out.State, out.Zip)
	return out
}

func normalizeStreet(title cases.Caser, line1 string) string {
	words := strings.Fields(strings.ReplaceAll(line1, ".", " "))
	for i, w := range words {
		lower := strings.ToLower(strings.TrimSuffix(w, ","))
		if abbr, ok := streetSuffixes[lower]; ok && i > 0 {
			words[i] = abbr
			continue
		}
		words[i] = title.String(lower)
	}
	return strings.Join(words, " ")
}

// splitSingleLine parses "123 Main St, Austin, TX 78701" and its looser variants
func splitSingleLine(address string) (line1, city, state, zip string) {
	var parts []string
	for _, p := range strings.Split(address, ",") {
		if p = collapse(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "", "", "", ""
	}
	line1 = parts[0]
	if len(parts) == 1 {
		return line1, "", "", ""
	}

	// the last part carries "ST 12345", "City ST 12345" or just the state
	tail := strings.Fields(parts[len(parts)-1])
	if len(tail) > 0 && zipPattern.MatchString(tail[len(tail)-1]) {
		zip = tail[len(tail)-1]
		tail = tail[:len(tail)-1]
	}
	if len(tail) > 0 && statePattern.MatchString(tail[len(tail)-1]) {
		state = tail[len(tail)-1]
		tail = tail[:len(tail)-1]
	}

	middle := append([]string{}, parts[1:len(parts)-1]...)
	if len(tail) > 0 {
		middle = append(middle, strings.Join(tail, " "))
	}
	city = strings.Join(middle, " ")
	return line1, city, state, zip
}

func normalizeZip(zip string) string {
	zip = strings.ReplaceAll(collapse(zip), " ", "")
	if m := zipPattern.FindStringSubmatch(zip); m != nil {
		return m[1]
	}
	return zip
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
