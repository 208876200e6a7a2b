package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/models"
)

// NetworkHandler serves read-only queries against the published network snapshot
type NetworkHandler struct {
	snapshots SnapshotSource
	logger    *logrus.Logger
}

// NewNetworkHandler creates a new network handler
func NewNetworkHandler(snapshots SnapshotSource, logger *logrus.Logger) *NetworkHandler {
	return &NetworkHandler{
		snapshots: snapshots,
		logger:    logger,
	}
}

// ListFeeds handles GET /api/v1/feeds
// @Summary List loaded feeds
// @Tags Network
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} models.ErrorResponse "Snapshot not published yet"
// @Router /api/v1/feeds [get]
func (h *NetworkHandler) ListFeeds(c *gin.Context) {
	snapshot, ok := pinSnapshot(c, h.logger, h.snapshots)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generation":     snapshot.Generation(),
		"published_at":   snapshot.PublishedAt(),
		"geometry_count": snapshot.GeometryCount(),
		"feeds":          snapshot.FeedStatuses(),
	})
}

// GetRoutes handles GET /api/v1/feeds/:feed_id/routes
// @Summary List the routes of a feed
// @Tags Network
// @Produce json
// @Param feed_id path string true "Feed ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/feeds/{feed_id}/routes [get]
func (h *NetworkHandler) GetRoutes(c *gin.Context) {
	snapshot, ok := pinSnapshot(c, h.logger, h.snapshots)
	if !ok {
		return
	}

	feedID := c.Param("feed_id")
	routes := snapshot.Routes(feedID)

	c.JSON(http.StatusOK, gin.H{
		"generation": snapshot.Generation(),
		"feed_id":    feedID,
		"routes":     routes,
		"count":      len(routes),
	})
}

// GetRouteStops handles GET /api/v1/feeds/:feed_id/routes/:route_code/stops
// @Summary Ordered stops of a route
// @Tags Network
// @Produce json
// @Param feed_id path string true "Feed ID"
// @Param route_code path string true "Route code"
// @Param geometry query bool false "Attach stop geometry"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.ErrorResponse "Invalid geometry flag"
// @Router /api/v1/feeds/{feed_id}/routes/{route_code}/stops [get]
func (h *NetworkHandler) GetRouteStops(c *gin.Context) {
	withGeometry := false
	if raw := c.Query("geometry"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, h.logger, models.NewRequestValidationError("geometry must be a boolean"))
			return
		}
		withGeometry = parsed
	}

	snapshot, ok := pinSnapshot(c, h.logger, h.snapshots)
	if !ok {
		return
	}

	feedID := c.Param("feed_id")
	routeCode := c.Param("route_code")

	var stops interface{}
	var count int
	if withGeometry {
		rows := snapshot.RouteStopsWithGeometry(feedID, routeCode)
		stops, count = rows, len(rows)
	} else {
		rows := snapshot.RouteStops(feedID, routeCode)
		stops, count = rows, len(rows)
	}

	c.JSON(http.StatusOK, gin.H{
		"generation": snapshot.Generation(),
		"feed_id":    feedID,
		"route_code": routeCode,
		"stops":      stops,
		"count":      count,
	})
}

// GetStopRoutes handles GET /api/v1/feeds/:feed_id/stops/:stop_code/routes
// @Summary Routes serving a stop
// @Tags Network
// @Produce json
// @Param feed_id path string true "Feed ID"
// @Param stop_code path string true "Stop code"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/feeds/{feed_id}/stops/{stop_code}/routes [get]
func (h *NetworkHandler) GetStopRoutes(c *gin.Context) {
	snapshot, ok := pinSnapshot(c, h.logger, h.snapshots)
	if !ok {
		return
	}

	feedID := c.Param("feed_id")
	stopCode := c.Param("stop_code")

	c.JSON(http.StatusOK, gin.H{
		"generation": snapshot.Generation(),
		"feed_id":    feedID,
		"stop_code":  stopCode,
		"routes":     snapshot.StopsRoutes(feedID, stopCode),
	})
}

// GetStationChildren handles GET /api/v1/feeds/:feed_id/stations/:stop_id/children
// @Summary Expand a station into its child stops
// @Tags Network
// @Produce json
// @Param feed_id path string true "Feed ID"
// @Param stop_id path string true "Station stop ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/feeds/{feed_id}/stations/{stop_id}/children [get]
func (h *NetworkHandler) GetStationChildren(c *gin.Context) {
	snapshot, ok := pinSnapshot(c, h.logger, h.snapshots)
	if !ok {
		return
	}

	feedID := c.Param("feed_id")
	stopID := c.Param("stop_id")

	c.JSON(http.StatusOK, gin.H{
		"generation": snapshot.Generation(),
		"feed_id":    feedID,
		"stop_id":    stopID,
		"stops":      snapshot.ExpandStation(feedID, stopID),
	})
}

// GetStopGeometry handles GET /api/v1/stops/:stop_code/geometry
// @Summary Geometry of a stop
// @Tags Network
// @Produce json
// @Param stop_code path string true "Stop code"
// @Success 200 {object} models.StopGeometry
// @Failure 404 {object} models.ErrorResponse "No geometry for the stop"
// @Router /api/v1/stops/{stop_code}/geometry [get]
func (h *NetworkHandler) GetStopGeometry(c *gin.Context) {
	snapshot, ok := pinSnapshot(c, h.logger, h.snapshots)
	if !ok {
		return
	}

	stopCode := c.Param("stop_code")
	geometry, found := snapshot.StopGeometry(stopCode)
	if !found {
		respondError(c, h.logger, models.NewNotFoundError("Stop geometry", stopCode))
		return
	}

	c.JSON(http.StatusOK, geometry)
}
