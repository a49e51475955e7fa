package handlers

import (
	"context"
	"net/http"
	"time"

	apierrors "github.com/jordanlanch/leadintake/pkg/api/errors"
	"github.com/jordanlanch/leadintake/pkg/audit"
	"github.com/labstack/echo/v4"
)

// AdminHandler handles admin-only maintenance endpoints
type AdminHandler struct {
	audit         *audit.Service
	retentionDays int
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(auditSvc *audit.Service, retentionDays int) *AdminHandler {
	return &AdminHandler{
		audit:         auditSvc,
		retentionDays: retentionDays,
	}
}

// PruneHistory godoc
// @Summary Prune old buyer history
// @Description Delete history entries older than the configured retention window, without waiting for the nightly sweep
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{} "Prune result"
// @Failure 400 {object} models.ErrorResponse "Retention disabled"
// @Failure 403 {object} models.ErrorResponse "Admin access required"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /admin/history/prune [post]
func (h *AdminHandler) PruneHistory(c echo.Context) error {
	if h.retentionDays <= 0 {
		return apierrors.BadRequestError(c, "History retention is disabled; nothing to prune")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Minute)
	defer cancel()

	cutoff := time.Now().AddDate(0, 0, -h.retentionDays)
	pruned, err := h.audit.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"pruned": pruned,
		"cutoff": cutoff,
	})
}
