package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/models"
	"github.com/smarttransit/network-index/internal/network"
)

// SnapshotSource exposes the currently published snapshot
type SnapshotSource interface {
	Current() *network.Snapshot
}

// respondError renders err as an API error body. Errors that are not AppErrors become internal errors.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError("An unexpected error occurred", err)
	}

	entry := logger.WithFields(logrus.Fields{
		"path":   c.FullPath(),
		"code":   appErr.Code(),
		"status": appErr.StatusCode(),
	})
	if appErr.IsClientError() {
		entry.WithField("error", appErr.Error()).Debug("Request failed")
	} else {
		entry.WithError(appErr).Error("Request failed")
	}

	_ = c.Error(appErr)
	c.AbortWithStatusJSON(appErr.StatusCode(), appErr.Response())
}

// pinSnapshot loads the current snapshot once for the whole request.
// Before the first publish it renders 503 and returns false.
func pinSnapshot(c *gin.Context, logger *logrus.Logger, source SnapshotSource) (*network.Snapshot, bool) {
	snapshot := source.Current()
	if snapshot == nil || snapshot.Generation() == 0 {
		respondError(c, logger, models.NewNotReadyError("Network data has not been loaded yet"))
		return nil, false
	}
	return snapshot, true
}
