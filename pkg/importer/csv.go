package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jordanlanch/leadintake/pkg/buyers"
	"github.com/jordanlanch/leadintake/pkg/models"
)

// CSVHeaders is the fixed column order for buyer CSV files, shared by
// import, export, and the template.
var CSVHeaders = []string{
	"fullName",
	"email",
	"phone",
	"city",
	"propertyType",
	"bhk",
	"purpose",
	"budgetMin",
	"budgetMax",
	"timeline",
	"source",
	"notes",
	"tags",
	"status",
}

// RequiredHeaders are the columns every import file must carry.
var RequiredHeaders = []string{
	"fullName",
	"phone",
	"city",
	"propertyType",
	"purpose",
	"timeline",
	"source",
}

// RawRow is one spreadsheet row keyed by column name, values untrimmed.
type RawRow map[string]string

// ValidateHeaders checks the header row against the required and known
// column sets. Any error here aborts the import before row processing.
func ValidateHeaders(headers []string) []string {
	var errs []string

	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[h] = true
	}
	for _, required := range RequiredHeaders {
		if !present[required] {
			errs = append(errs, fmt.Sprintf("Missing required header: %s", required))
		}
	}

	known := make(map[string]bool, len(CSVHeaders))
	for _, h := range CSVHeaders {
		known[h] = true
	}
	for _, h := range headers {
		if !known[h] {
			errs = append(errs, fmt.Sprintf("Unknown header: %s", h))
		}
	}

	return errs
}

// ReadCSV decodes a CSV stream into its header row and raw data rows.
// Rows shorter than the header are padded with empty values.
func ReadCSV(r io.Reader) ([]string, []RawRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []RawRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		row := make(RawRow, len(headers))
		empty := true
		for i, h := range headers {
			value := ""
			if i < len(record) {
				value = record[i]
			}
			if strings.TrimSpace(value) != "" {
				empty = false
			}
			row[h] = value
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

// ParseRow normalizes one raw row and runs it through the field validator.
// It returns either a validated buyer or the full list of error messages
// for the row, never both.
func ParseRow(row RawRow) (*models.BuyerInput, []string) {
	in := models.BuyerInput{
		FullName:     strings.TrimSpace(row["fullName"]),
		Email:        strings.TrimSpace(row["email"]),
		Phone:        strings.TrimSpace(row["phone"]),
		City:         strings.TrimSpace(row["city"]),
		PropertyType: strings.TrimSpace(row["propertyType"]),
		BHK:          strings.TrimSpace(row["bhk"]),
		Purpose:      strings.TrimSpace(row["purpose"]),
		BudgetMin:    parseOptionalInt(row["budgetMin"]),
		BudgetMax:    parseOptionalInt(row["budgetMax"]),
		Timeline:     strings.TrimSpace(row["timeline"]),
		Source:       strings.TrimSpace(row["source"]),
		Status:       strings.TrimSpace(row["status"]),
		Notes:        strings.TrimSpace(row["notes"]),
		Tags:         splitTags(row["tags"]),
	}

	normalized, err := buyers.Validate(in)
	if err != nil {
		var verrs *buyers.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, verrs.Messages()
		}
		return nil, []string{fmt.Sprintf("Validation error: %v", err)}
	}

	return normalized, nil
}

// parseOptionalInt coerces a numeric column. Empty or non-numeric values
// mean "absent", never zero.
func parseOptionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}

// splitTags splits the comma-joined tags column, trimming and dropping
// empty entries.
func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
