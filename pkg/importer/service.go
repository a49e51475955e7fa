package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jordanlanch/leadintake/pkg/audit"
	"github.com/jordanlanch/leadintake/pkg/buyers"
	"github.com/jordanlanch/leadintake/pkg/logger"
	"github.com/jordanlanch/leadintake/pkg/models"
	"gorm.io/gorm"
)

// DefaultMaxRows caps the number of data rows in a single import.
const DefaultMaxRows = 200

// Sentinel errors for import failures that are not row-level.
var (
	// ErrBatchLimit means the file exceeded the row cap. Nothing is
	// parsed or persisted.
	ErrBatchLimit = errors.New("import exceeds the maximum row count")
	// ErrNoRows means the file carried no data rows at all.
	ErrNoRows = errors.New("no rows to import")
	// ErrInvalidRows is returned by the strict row import when any row
	// fails validation; the whole batch is rejected.
	ErrInvalidRows = errors.New("invalid buyer data in import")
)

// InvalidRowsError carries the per-row failures behind ErrInvalidRows.
type InvalidRowsError struct {
	Rows []models.ImportRowError
}

func (e *InvalidRowsError) Error() string {
	return fmt.Sprintf("%v: %d rows failed validation", ErrInvalidRows, len(e.Rows))
}

func (e *InvalidRowsError) Unwrap() error {
	return ErrInvalidRows
}

// FieldMap flattens the row failures into a field map keyed by row number.
func (e *InvalidRowsError) FieldMap() map[string]string {
	m := make(map[string]string, len(e.Rows))
	for _, r := range e.Rows {
		m[fmt.Sprintf("row %d", r.Row)] = strings.Join(r.Errors, "; ")
	}
	return m
}

// Service orchestrates bulk imports: header validation, row parsing, and
// the single atomic batch insert with its history entries.
type Service struct {
	db       *gorm.DB
	audit    *audit.Service
	buyerSvc *buyers.Service
	log      logger.Logger
	maxRows  int
}

// NewService creates a new import service. maxRows <= 0 falls back to
// DefaultMaxRows.
func NewService(db *gorm.DB, auditSvc *audit.Service, buyerSvc *buyers.Service, log logger.Logger, maxRows int) *Service {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Service{
		db:       db,
		audit:    auditSvc,
		buyerSvc: buyerSvc,
		log:      log,
		maxRows:  maxRows,
	}
}

// Result reports the outcome of a CSV import.
type Result struct {
	TotalRows int
	Imported  []models.Buyer
	RowErrors []models.ImportRowError
}

// ImportCSV runs a CSV stream through header validation and the row
// parser, then inserts every valid row as one atomic batch. Rows that
// fail validation are reported with their 1-based row number; header
// failures short-circuit with a single row-0 entry and nothing persisted.
func (s *Service) ImportCSV(ctx context.Context, who buyers.Identity, r io.Reader) (*Result, error) {
	headers, rows, err := ReadCSV(r)
	if err != nil {
		return &Result{
			RowErrors: []models.ImportRowError{{Row: 0, Errors: []string{fmt.Sprintf("CSV parsing error: %v", err)}}},
		}, nil
	}

	if headerErrs := ValidateHeaders(headers); len(headerErrs) > 0 {
		return &Result{
			RowErrors: []models.ImportRowError{{Row: 0, Errors: headerErrs}},
		}, nil
	}

	if len(rows) > s.maxRows {
		return nil, ErrBatchLimit
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	result := &Result{TotalRows: len(rows)}
	var valid []models.BuyerInput

	for i, row := range rows {
		rowNum := i + 1
		parsed, rowErrs := ParseRow(row)
		if len(rowErrs) > 0 {
			result.RowErrors = append(result.RowErrors, models.ImportRowError{Row: rowNum, Errors: rowErrs})
			continue
		}
		valid = append(valid, *parsed)
	}

	if len(valid) > 0 {
		inserted, err := s.insertBatch(ctx, who, valid)
		if err != nil {
			return nil, err
		}
		result.Imported = inserted
	}

	s.log.Info("csv import finished",
		"owner_id", who.ID,
		"total_rows", result.TotalRows,
		"imported", len(result.Imported),
		"failed", len(result.RowErrors))

	return result, nil
}

// ImportRows is the strict batch entry point used by the JSON API: every
// row must validate or the whole batch is rejected with ErrInvalidRows.
func (s *Service) ImportRows(ctx context.Context, who buyers.Identity, inputs []models.BuyerInput) ([]models.Buyer, error) {
	if len(inputs) == 0 {
		return nil, ErrNoRows
	}
	if len(inputs) > s.maxRows {
		return nil, ErrBatchLimit
	}

	valid := make([]models.BuyerInput, 0, len(inputs))
	var invalid []models.ImportRowError
	for i, in := range inputs {
		normalized, err := buyers.Validate(in)
		if err != nil {
			msgs := []string{err.Error()}
			var verrs *buyers.ValidationErrors
			if errors.As(err, &verrs) {
				msgs = verrs.Messages()
			}
			invalid = append(invalid, models.ImportRowError{Row: i + 1, Errors: msgs})
			continue
		}
		valid = append(valid, *normalized)
	}
	if len(invalid) > 0 {
		return nil, &InvalidRowsError{Rows: invalid}
	}

	return s.insertBatch(ctx, who, valid)
}

// MaxRows reports the configured per-import row cap.
func (s *Service) MaxRows() int {
	return s.maxRows
}

// insertBatch persists the validated rows and their history entries in a
// single transaction, so readers never observe buyers without their
// import entries or the other way around.
func (s *Service) insertBatch(ctx context.Context, who buyers.Identity, inputs []models.BuyerInput) ([]models.Buyer, error) {
	ts := time.Now().UTC().Truncate(time.Microsecond)

	batch := make([]models.Buyer, len(inputs))
	for i, in := range inputs {
		batch[i] = models.Buyer{
			ID:           uuid.NewString(),
			OwnerID:      who.ID,
			FullName:     in.FullName,
			Email:        in.Email,
			Phone:        in.Phone,
			City:         in.City,
			PropertyType: in.PropertyType,
			BHK:          in.BHK,
			Purpose:      in.Purpose,
			BudgetMin:    in.BudgetMin,
			BudgetMax:    in.BudgetMax,
			Timeline:     in.Timeline,
			Source:       in.Source,
			Status:       in.Status,
			Notes:        in.Notes,
			Tags:         models.Tags(in.Tags),
			CreatedAt:    ts,
			UpdatedAt:    ts,
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&batch).Error; err != nil {
			return fmt.Errorf("failed to insert buyers: %w", err)
		}
		for i := range batch {
			if err := s.audit.RecordImported(tx, batch[i].ID, who.ID, batch[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.buyerSvc.InvalidateCache(ctx, who.ID)
	return batch, nil
}
