package importer

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/jordanlanch/leadintake/pkg/audit"
	"github.com/jordanlanch/leadintake/pkg/buyers"
	"github.com/jordanlanch/leadintake/pkg/database"
	"github.com/jordanlanch/leadintake/pkg/logger"
	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var importOwner = buyers.Identity{ID: "owner-1", Role: models.RoleUser}

func setupImportService(t *testing.T) (*Service, *gorm.DB) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	log := logger.Default()
	auditSvc := audit.NewService(db, log)
	buyerSvc := buyers.NewService(db, nil, auditSvc, log)
	return NewService(db, auditSvc, buyerSvc, log, 0), db
}

const csvHeader = "fullName,email,phone,city,propertyType,bhk,purpose,budgetMin,budgetMax,timeline,source,notes,tags,status"

func validCSVRow(name, phone string) string {
	return fmt.Sprintf("%s,,%s,Chandigarh,Apartment,3,Buy,5000000,7500000,0-3m,Website,,,New", name, phone)
}

func TestImportCSV_AllValid(t *testing.T) {
	s, db := setupImportService(t)

	data := strings.Join([]string{
		csvHeader,
		validCSVRow("Rahul Sharma", "9876543210"),
		validCSVRow("Priya Verma", "9998887770"),
	}, "\n")

	result, err := s.ImportCSV(context.Background(), importOwner, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRows)
	assert.Len(t, result.Imported, 2)
	assert.Empty(t, result.RowErrors)

	var count int64
	require.NoError(t, db.Model(&models.Buyer{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)

	// Every inserted buyer gets an import history entry.
	var historyCount int64
	require.NoError(t, db.Model(&models.BuyerHistory{}).Count(&historyCount).Error)
	assert.EqualValues(t, 2, historyCount)
}

func TestImportCSV_PartialImport(t *testing.T) {
	s, db := setupImportService(t)

	data := strings.Join([]string{
		csvHeader,
		validCSVRow("Rahul Sharma", "9876543210"),
		// Bad phone and missing BHK for an apartment.
		"Priya Verma,,12,Chandigarh,Apartment,,Buy,,,0-3m,Website,,,",
		validCSVRow("Amit Singh", "8887776660"),
	}, "\n")

	result, err := s.ImportCSV(context.Background(), importOwner, strings.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalRows)
	assert.Len(t, result.Imported, 2)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 2, result.RowErrors[0].Row, "row numbers are 1-based over data rows")
	assert.GreaterOrEqual(t, len(result.RowErrors[0].Errors), 2)

	var count int64
	require.NoError(t, db.Model(&models.Buyer{}).Count(&count).Error)
	assert.EqualValues(t, 2, count, "valid rows are inserted even when others fail")
}

func TestImportCSV_HeaderErrorsAbort(t *testing.T) {
	s, db := setupImportService(t)

	data := "fullName,email,city,propertyType,purpose,timeline,source,extra\nRahul Sharma,,Chandigarh,Plot,Buy,0-3m,Website,x"
	result, err := s.ImportCSV(context.Background(), importOwner, strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 0, result.RowErrors[0].Row, "header errors are reported on row 0")
	assert.Contains(t, result.RowErrors[0].Errors, "Missing required header: phone")
	assert.Contains(t, result.RowErrors[0].Errors, "Unknown header: extra")

	var count int64
	require.NoError(t, db.Model(&models.Buyer{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "nothing is inserted on header failure")
}

func TestImportCSV_BatchLimit(t *testing.T) {
	s, _ := setupImportService(t)

	rows := []string{csvHeader}
	for i := 0; i <= DefaultMaxRows; i++ {
		rows = append(rows, validCSVRow(fmt.Sprintf("Buyer %03d", i), fmt.Sprintf("98765%05d", i)))
	}

	_, err := s.ImportCSV(context.Background(), importOwner, strings.NewReader(strings.Join(rows, "\n")))
	assert.ErrorIs(t, err, ErrBatchLimit)
}

func TestImportCSV_EmptyFile(t *testing.T) {
	s, _ := setupImportService(t)

	_, err := s.ImportCSV(context.Background(), importOwner, strings.NewReader(csvHeader+"\n"))
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestImportCSV_MalformedCSV(t *testing.T) {
	s, _ := setupImportService(t)

	// Unclosed quote makes the reader fail mid-stream.
	data := csvHeader + "\n\"Rahul,9876543210"
	result, err := s.ImportCSV(context.Background(), importOwner, strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, result.RowErrors, 1)
	assert.Equal(t, 0, result.RowErrors[0].Row)
	assert.Contains(t, result.RowErrors[0].Errors[0], "CSV parsing error")
}

func TestImportRows_Strict(t *testing.T) {
	s, db := setupImportService(t)
	ctx := context.Background()

	good := models.BuyerInput{
		FullName: "Rahul Sharma", Phone: "9876543210", City: "Chandigarh",
		PropertyType: "Plot", Purpose: "Buy", Timeline: "0-3m", Source: "Website",
	}
	bad := good
	bad.Phone = "12"

	_, err := s.ImportRows(ctx, importOwner, []models.BuyerInput{good, bad})
	require.ErrorIs(t, err, ErrInvalidRows)

	var invalid *InvalidRowsError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Rows, 1)
	assert.Equal(t, 2, invalid.Rows[0].Row)

	var count int64
	require.NoError(t, db.Model(&models.Buyer{}).Count(&count).Error)
	assert.EqualValues(t, 0, count, "a strict batch with any invalid row inserts nothing")

	inserted, err := s.ImportRows(ctx, importOwner, []models.BuyerInput{good})
	require.NoError(t, err)
	assert.Len(t, inserted, 1)
	assert.Equal(t, importOwner.ID, inserted[0].OwnerID)
}

func TestImportRows_Limits(t *testing.T) {
	s, _ := setupImportService(t)
	ctx := context.Background()

	_, err := s.ImportRows(ctx, importOwner, nil)
	assert.ErrorIs(t, err, ErrNoRows)

	batch := make([]models.BuyerInput, DefaultMaxRows+1)
	_, err = s.ImportRows(ctx, importOwner, batch)
	assert.ErrorIs(t, err, ErrBatchLimit)
}
