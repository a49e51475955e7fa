package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jordanlanch/leadintake/pkg/buyers"
	"github.com/jordanlanch/leadintake/pkg/importer"
	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/xuri/excelize/v2"
)

// Service renders buyer exports. It reuses the buyer service's filter
// predicate, so an export always matches what the same search would
// return, just without pagination.
type Service struct {
	buyerSvc *buyers.Service
}

// NewService creates a new export service.
func NewService(buyerSvc *buyers.Service) *Service {
	return &Service{buyerSvc: buyerSvc}
}

// ExportCSV writes the caller's matching buyers as CSV.
func (s *Service) ExportCSV(ctx context.Context, who buyers.Identity, req models.BuyerExportRequest, w io.Writer) error {
	list, err := s.buyerSvc.Export(ctx, who, req)
	if err != nil {
		return err
	}
	return WriteCSV(w, list)
}

// ExportXLSX writes the caller's matching buyers as an Excel workbook.
func (s *Service) ExportXLSX(ctx context.Context, who buyers.Identity, req models.BuyerExportRequest, w io.Writer) error {
	list, err := s.buyerSvc.Export(ctx, who, req)
	if err != nil {
		return err
	}
	return WriteXLSX(w, list)
}

// WriteCSV renders buyers in the fixed column order with comma-joined
// tags. Absent optional values render as empty cells.
func WriteCSV(w io.Writer, list []models.Buyer) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(importer.CSVHeaders); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range list {
		if err := writer.Write(csvRow(&list[i])); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// csvRow renders one buyer in the fixed column order.
func csvRow(b *models.Buyer) []string {
	return []string{
		b.FullName,
		b.Email,
		b.Phone,
		b.City,
		b.PropertyType,
		b.BHK,
		b.Purpose,
		optionalInt(b.BudgetMin),
		optionalInt(b.BudgetMax),
		b.Timeline,
		b.Source,
		b.Notes,
		strings.Join(b.Tags, ","),
		b.Status,
	}
}

func optionalInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// WriteXLSX renders buyers as a styled Excel workbook.
func WriteXLSX(w io.Writer, list []models.Buyer) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Buyers"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for i, header := range importer.CSVHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to resolve cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx := range list {
		for colIdx, value := range csvRow(&list[rowIdx]) {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("failed to resolve cell: %w", err)
			}
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range importer.CSVHeaders {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to resolve column: %w", err)
		}
		f.SetColWidth(sheetName, col, col, 15)
	}

	f.SetActiveSheet(index)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// Template returns a CSV import template with two sample rows.
func Template() []byte {
	var sb strings.Builder
	writer := csv.NewWriter(&sb)

	_ = writer.Write(importer.CSVHeaders)
	_ = writer.Write([]string{
		"John Doe", "john@example.com", "9876543210", "Chandigarh", "Apartment", "3",
		"Buy", "5000000", "7000000", "3-6m", "Website", "Looking for a 3BHK apartment", "urgent,family", "New",
	})
	_ = writer.Write([]string{
		"Jane Smith", "", "9876543211", "Mohali", "Plot", "",
		"Buy", "2000000", "3000000", ">6m", "Referral", "Investment purpose", "investment", "New",
	})
	writer.Flush()

	return []byte(sb.String())
}
