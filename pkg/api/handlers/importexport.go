package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/leadintake/pkg/api/errors"
	"github.com/jordanlanch/leadintake/pkg/export"
	"github.com/jordanlanch/leadintake/pkg/importer"
	"github.com/jordanlanch/leadintake/pkg/metrics"
	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/labstack/echo/v4"
)

// ImportExportHandler handles CSV import and CSV/XLSX export endpoints
type ImportExportHandler struct {
	importer  *importer.Service
	export    *export.Service
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewImportExportHandler creates a new import/export handler
func NewImportExportHandler(importSvc *importer.Service, exportSvc *export.Service, m *metrics.Metrics) *ImportExportHandler {
	return &ImportExportHandler{
		importer:  importSvc,
		export:    exportSvc,
		metrics:   m,
		validator: validator.New(),
	}
}

// ImportCSV godoc
// @Summary Import buyers from CSV
// @Description Upload a CSV file; valid rows are inserted in one transaction, invalid rows are reported per row
// @Tags Import/Export
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "CSV file"
// @Success 200 {object} models.BuyerImportResponse "Import result"
// @Failure 400 {object} models.ErrorResponse "Missing file or too many rows"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers/import [post]
func (h *ImportExportHandler) ImportCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apierrors.BadRequestError(c, "CSV file is required (multipart field \"file\")")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	result, err := h.importer.ImportCSV(ctx, identityFrom(c), src)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrBatchLimit):
			return apierrors.BadRequestError(c, fmt.Sprintf("Maximum %d rows allowed per import", h.importer.MaxRows()))
		case errors.Is(err, importer.ErrNoRows):
			return apierrors.BadRequestError(c, "CSV file contains no data rows")
		default:
			return apierrors.DatabaseError(c, err)
		}
	}

	if h.metrics != nil {
		h.metrics.BuyersImported.Add(float64(len(result.Imported)))
	}
	return c.JSON(http.StatusOK, models.BuyerImportResponse{
		TotalRows: result.TotalRows,
		Imported:  len(result.Imported),
		Buyers:    result.Imported,
		Errors:    result.RowErrors,
	})
}

// ImportRows godoc
// @Summary Import buyers from JSON rows
// @Description Insert a batch of buyer rows atomically; any invalid row rejects the whole batch
// @Tags Import/Export
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body []models.BuyerInput true "Buyer rows"
// @Success 201 {array} models.Buyer "Inserted buyers"
// @Failure 400 {object} models.ErrorResponse "Invalid rows or too many rows"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers/import/rows [post]
func (h *ImportExportHandler) ImportRows(c echo.Context) error {
	var inputs []models.BuyerInput
	if err := c.Bind(&inputs); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	inserted, err := h.importer.ImportRows(ctx, identityFrom(c), inputs)
	if err != nil {
		switch {
		case errors.Is(err, importer.ErrBatchLimit):
			return apierrors.BadRequestError(c, fmt.Sprintf("Maximum %d rows allowed per import", h.importer.MaxRows()))
		case errors.Is(err, importer.ErrNoRows):
			return apierrors.BadRequestError(c, "No rows to import")
		default:
			var invalid *importer.InvalidRowsError
			if errors.As(err, &invalid) {
				return c.JSON(http.StatusBadRequest, models.ErrorResponse{
					Error:   "invalid_rows",
					Message: "One or more rows failed validation; nothing was imported",
					Fields:  invalid.FieldMap(),
				})
			}
			return apierrors.DatabaseError(c, err)
		}
	}

	if h.metrics != nil {
		h.metrics.BuyersImported.Add(float64(len(inserted)))
	}
	return c.JSON(http.StatusCreated, inserted)
}

// ExportCSV godoc
// @Summary Export buyers as CSV
// @Description Download the current filtered buyer list as CSV
// @Tags Import/Export
// @Produce text/csv
// @Security BearerAuth
// @Param search query string false "Search across name, phone and email"
// @Param city query string false "Filter by city"
// @Param propertyType query string false "Filter by property type"
// @Param status query string false "Filter by status"
// @Param timeline query string false "Filter by timeline"
// @Success 200 {file} file "CSV export"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers/export [get]
func (h *ImportExportHandler) ExportCSV(c echo.Context) error {
	var req models.BuyerExportRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	var buf bytes.Buffer
	if err := h.export.ExportCSV(ctx, identityFrom(c), req, &buf); err != nil {
		return apierrors.DatabaseError(c, err)
	}

	if h.metrics != nil {
		h.metrics.ExportsServed.WithLabelValues("csv").Inc()
	}
	filename := fmt.Sprintf("buyers-%s.csv", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

// ExportXLSX godoc
// @Summary Export buyers as XLSX
// @Description Download the current filtered buyer list as an Excel workbook
// @Tags Import/Export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "XLSX export"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers/export/xlsx [get]
func (h *ImportExportHandler) ExportXLSX(c echo.Context) error {
	var req models.BuyerExportRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	var buf bytes.Buffer
	if err := h.export.ExportXLSX(ctx, identityFrom(c), req, &buf); err != nil {
		return apierrors.DatabaseError(c, err)
	}

	if h.metrics != nil {
		h.metrics.ExportsServed.WithLabelValues("xlsx").Inc()
	}
	filename := fmt.Sprintf("buyers-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// Template godoc
// @Summary Download CSV import template
// @Description CSV with the expected headers and two sample rows
// @Tags Import/Export
// @Produce text/csv
// @Success 200 {file} file "CSV template"
// @Router /buyers/import/template [get]
func (h *ImportExportHandler) Template(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="buyers-template.csv"`)
	return c.Blob(http.StatusOK, "text/csv", export.Template())
}
