package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger checks a database connection
type Pinger interface {
	Ping() error
}

// HealthHandler reports database reachability and snapshot readiness
type HealthHandler struct {
	db        Pinger
	snapshots SnapshotSource
	version   string
	logger    *logrus.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, snapshots SnapshotSource, version string, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		db:        db,
		snapshots: snapshots,
		version:   version,
		logger:    logger,
	}
}

// HealthCheck handles GET /health
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	snapshot := h.snapshots.Current()
	generation := snapshot.Generation()
	ready := generation > 0

	body := gin.H{
		"status":     "healthy",
		"database":   "healthy",
		"ready":      ready,
		"generation": generation,
		"version":    h.version,
		"timestamp":  time.Now().Unix(),
	}

	if err := h.db.Ping(); err != nil {
		h.logger.WithError(err).Warn("Health check database ping failed")
		body["status"] = "unhealthy"
		body["database"] = "unhealthy"
		body["error"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	if !ready {
		body["status"] = "starting"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["published_at"] = snapshot.PublishedAt()
	c.JSON(http.StatusOK, body)
}
