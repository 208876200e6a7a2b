package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/middleware"
	"github.com/smarttransit/network-index/internal/models"
	"github.com/smarttransit/network-index/internal/services"
	"github.com/smarttransit/network-index/internal/utils"
)

// SnapshotRefresher triggers refreshes and reports on the last one
type SnapshotRefresher interface {
	Refresh(ctx context.Context) (*services.RefreshReport, error)
	LastReport() *services.RefreshReport
}

// AdminHandler handles operator-only endpoints
type AdminHandler struct {
	refresher SnapshotRefresher
	limiter   *services.RateLimitService
	timeout   time.Duration
	logger    *logrus.Logger
}

// NewAdminHandler creates a new admin handler. timeout bounds a manually triggered refresh;
// a nil limiter disables rate limiting.
func NewAdminHandler(
	refresher SnapshotRefresher,
	limiter *services.RateLimitService,
	timeout time.Duration,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		refresher: refresher,
		limiter:   limiter,
		timeout:   timeout,
		logger:    logger,
	}
}

// TriggerRefresh handles POST /api/v1/admin/refresh
// @Summary Rebuild changed feeds and publish a new snapshot
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.RefreshReport
// @Failure 409 {object} models.ErrorResponse "Refresh already running"
// @Failure 429 {object} models.ErrorResponse "Too many refresh requests"
// @Router /api/v1/admin/refresh [post]
func (h *AdminHandler) TriggerRefresh(c *gin.Context) {
	operator := ""
	if userCtx, ok := middleware.GetUserContext(c); ok {
		operator = userCtx.OperatorID.String()
	}
	clientIP := utils.GetRealIP(c)

	if h.limiter != nil {
		if err := h.limiter.Allow(operator, clientIP); err != nil {
			var limitErr *services.RateLimitError
			if errors.As(err, &limitErr) {
				c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(limitErr.RetryAfter)))
				h.logger.WithFields(logrus.Fields{
					"operator_id": operator,
					"client_ip":   clientIP,
					"limit":       limitErr.Type,
				}).Warn("Manual refresh rate limited")
				respondError(c, h.logger, limitErr.AppError())
				return
			}
			respondError(c, h.logger, err)
			return
		}
	}

	// The refresh outlives a disconnected client
	ctx := context.WithoutCancel(c.Request.Context())
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	h.logger.WithFields(logrus.Fields{
		"operator_id": operator,
		"client_ip":   clientIP,
	}).Info("Manual snapshot refresh requested")

	report, err := h.refresher.Refresh(ctx)
	switch {
	case errors.Is(err, services.ErrRefreshInProgress):
		respondError(c, h.logger, models.NewConflictError("A snapshot refresh is already running"))
		return
	case errors.Is(err, services.ErrNoFeedsAvailable):
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  models.NewUpstreamError("build any feed", err).Response().Error,
			"report": report,
		})
		return
	case err != nil:
		respondError(c, h.logger, models.NewInternalError("Snapshot refresh failed", err))
		return
	}

	c.JSON(http.StatusOK, report)
}

// GetLastRefresh handles GET /api/v1/admin/refresh
// @Summary Report of the most recent refresh
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.RefreshReport
// @Failure 404 {object} models.ErrorResponse "No refresh has completed"
// @Router /api/v1/admin/refresh [get]
func (h *AdminHandler) GetLastRefresh(c *gin.Context) {
	report := h.refresher.LastReport()
	if report == nil {
		respondError(c, h.logger, models.NewNotFoundError("Refresh report", "latest"))
		return
	}

	c.JSON(http.StatusOK, report)
}

func retryAfterSeconds(at time.Time) int {
	seconds := int(time.Until(at).Seconds()) + 1
	if seconds < 1 {
		return 1
	}
	return seconds
}
