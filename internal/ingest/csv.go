package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// columnAliases maps normalized header names to RawLeadRow fields
var columnAliases = map[string]string{
	"address":           "address",
	"full_address":      "address",
	"property_address":  "address",
	"line1":             "line1",
	"street":            "line1",
	"street_address":    "line1",
	"address1":          "line1",
	"address_line1":     "line1",
	"address_line_1":    "line1",
	"city":              "city",
	"state":             "state",
	"zip":               "zip",
	"zipcode":           "zip",
	"zip_code":          "zip",
	"postal_code":       "zip",
	"owner":             "owner_name",
	"owner_name":        "owner_name",
	"phone":             "phone",
	"phone_number":      "phone",
	"email":             "email",
	"source":            "source",
	"property_type":     "property_type",
	"type":              "property_type",
	"description":       "description",
	"notes":             "description",
	"lot_size":          "lot_size",
	"acreage":           "lot_size",
	"arv":               "arv",
	"estimated_repairs": "estimated_repairs",
	"repairs":           "estimated_repairs",
	"offer_price":       "offer_price",
	"offer":             "offer_price",
}

// ReadCSV maps a headered CSV to raw lead rows. Values are trimmed but not cleaned.
func ReadCSV(r io.Reader) ([]RawLeadRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	columns := make(map[int]string)
	hasAddress := false
	for i, name := range records[0] {
		field, ok := columnAliases[headerKey(name)]
		if !ok {
			continue
		}
		columns[i] = field
		if field == "address" || field == "line1" {
			hasAddress = true
		}
	}
	if !hasAddress {
		return nil, fmt.Errorf("CSV header has no address or street column")
	}

	var rows []RawLeadRow
	for _, record := range records[1:] {
		var row RawLeadRow
		for i, value := range record {
			if field, ok := columns[i]; ok {
				setField(&row, field, strings.TrimSpace(value))
			}
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func headerKey(name string) string {
	name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
	name = strings.NewReplacer(" ", "_", "-", "_").Replace(name)
	return name
}

func setField(row *RawLeadRow, field, value string) {
	switch field {
	case "address":
		row.Address = value
	case "line1":
		row.Line1 = value
	case "city":
		row.City = value
	case "state":
		row.State = value
	case "zip":
		row.Zip = value
	case "owner_name":
		row.OwnerName = value
	case "phone":
		row.Phone = value
	case "email":
		row.Email = value
	case "source":
		row.Source = value
	case "property_type":
		row.PropertyType = value
	case "description":
		row.Description = value
	case "lot_size":
		row.LotSize = value
	case "arv":
		row.ARV = value
	case "estimated_repairs":
		row.EstimatedRepairs = value
	case "offer_price":
		row.OfferPrice = value
	}
}
