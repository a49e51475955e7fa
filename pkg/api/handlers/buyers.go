package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/jordanlanch/leadintake/pkg/api/errors"
	"github.com/jordanlanch/leadintake/pkg/buyers"
	"github.com/jordanlanch/leadintake/pkg/metrics"
	"github.com/jordanlanch/leadintake/pkg/models"
	"github.com/labstack/echo/v4"
)

// ConflictMessage is returned when an update loses an optimistic
// concurrency race.
const ConflictMessage = "Record has been modified by another user. Please refresh and try again."

// BuyerHandler handles buyer lead endpoints
type BuyerHandler struct {
	buyers    *buyers.Service
	metrics   *metrics.Metrics
	validator *validator.Validate
}

// NewBuyerHandler creates a new buyer handler
func NewBuyerHandler(buyerSvc *buyers.Service, m *metrics.Metrics) *BuyerHandler {
	return &BuyerHandler{
		buyers:    buyerSvc,
		metrics:   m,
		validator: validator.New(),
	}
}

func identityFrom(c echo.Context) buyers.Identity {
	id, _ := c.Get("user_id").(string)
	role, _ := c.Get("user_role").(string)
	return buyers.Identity{ID: id, Role: role}
}

// Search godoc
// @Summary Search buyer leads
// @Description List buyers with filters, full-text search and pagination
// @Tags Buyers
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search across name, phone and email"
// @Param city query string false "Filter by city"
// @Param propertyType query string false "Filter by property type"
// @Param status query string false "Filter by status"
// @Param timeline query string false "Filter by timeline"
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param sortBy query string false "Sort column (default updatedAt)"
// @Param sortOrder query string false "asc or desc (default desc)"
// @Success 200 {object} models.BuyerListResponse "Buyer list"
// @Failure 401 {object} models.ErrorResponse "Unauthorized"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers [get]
func (h *BuyerHandler) Search(c echo.Context) error {
	var req models.BuyerSearchRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	resp, err := h.buyers.Search(ctx, identityFrom(c), req)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	if h.metrics != nil {
		h.metrics.BuyersSearched.Inc()
	}
	return c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Get a buyer lead
// @Description Fetch a single buyer by ID
// @Tags Buyers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Buyer ID"
// @Success 200 {object} models.Buyer "Buyer"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers/{id} [get]
func (h *BuyerHandler) Get(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	buyer, err := h.buyers.Get(ctx, identityFrom(c), c.Param("id"))
	if err != nil {
		if err == buyers.ErrNotFound {
			return apierrors.NotFoundError(c, "buyer")
		}
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, buyer)
}

// Create godoc
// @Summary Create a buyer lead
// @Description Validate and persist a new buyer lead
// @Tags Buyers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.BuyerInput true "Buyer data"
// @Success 201 {object} models.Buyer "Created buyer"
// @Failure 400 {object} models.ErrorResponse "Validation failed"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers [post]
func (h *BuyerHandler) Create(c echo.Context) error {
	var in models.BuyerInput
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	buyer, err := h.buyers.Create(ctx, identityFrom(c), in)
	if err != nil {
		var verrs *buyers.ValidationErrors
		if errors.As(err, &verrs) {
			return apierrors.FieldValidationError(c, verrs.Map())
		}
		return apierrors.DatabaseError(c, err)
	}

	if h.metrics != nil {
		h.metrics.BuyersCreated.Inc()
	}
	return c.JSON(http.StatusCreated, buyer)
}

// Update godoc
// @Summary Update a buyer lead
// @Description Update a buyer; rejects stale writes with 409
// @Tags Buyers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Buyer ID"
// @Param request body models.BuyerUpdateRequest true "Buyer data with updatedAt"
// @Success 200 {object} models.Buyer "Updated buyer"
// @Failure 400 {object} models.ErrorResponse "Validation failed"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Failure 409 {object} models.ErrorResponse "Stale update"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers/{id} [put]
func (h *BuyerHandler) Update(c echo.Context) error {
	var req models.BuyerUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request body",
		})
	}

	if req.UpdatedAt == "" {
		return apierrors.BadRequestError(c, "updatedAt is required for updates")
	}
	expected, err := time.Parse(time.RFC3339Nano, req.UpdatedAt)
	if err != nil {
		return apierrors.BadRequestError(c, "updatedAt must be an RFC 3339 timestamp")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	buyer, err := h.buyers.Update(ctx, identityFrom(c), c.Param("id"), req.BuyerInput, expected)
	if err != nil {
		switch {
		case err == buyers.ErrNotFound:
			return apierrors.NotFoundError(c, "buyer")
		case err == buyers.ErrConflict:
			return apierrors.ConflictError(c, ConflictMessage)
		default:
			var verrs *buyers.ValidationErrors
			if errors.As(err, &verrs) {
				return apierrors.FieldValidationError(c, verrs.Map())
			}
			return apierrors.DatabaseError(c, err)
		}
	}
	return c.JSON(http.StatusOK, buyer)
}

// Delete godoc
// @Summary Delete a buyer lead
// @Description Delete a buyer; its change history is retained
// @Tags Buyers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Buyer ID"
// @Success 200 {object} models.SuccessResponse "Deleted"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers/{id} [delete]
func (h *BuyerHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.buyers.Delete(ctx, identityFrom(c), c.Param("id")); err != nil {
		if err == buyers.ErrNotFound {
			return apierrors.NotFoundError(c, "buyer")
		}
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Buyer deleted",
	})
}

// History godoc
// @Summary Get buyer change history
// @Description List recent changes recorded for a buyer, newest first
// @Tags Buyers
// @Produce json
// @Security BearerAuth
// @Param id path string true "Buyer ID"
// @Param limit query int false "Max entries (default 50)"
// @Success 200 {array} models.BuyerHistory "History entries"
// @Failure 404 {object} models.ErrorResponse "Not found"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /buyers/{id}/history [get]
func (h *BuyerHandler) History(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entries, err := h.buyers.History(ctx, identityFrom(c), c.Param("id"), limit)
	if err != nil {
		if err == buyers.ErrNotFound {
			return apierrors.NotFoundError(c, "buyer")
		}
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}
