package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/services"
)

// VehicleHandler serves live vehicle lookups
type VehicleHandler struct {
	vehicles  *services.VehicleService
	snapshots SnapshotSource
	logger    *logrus.Logger
}

// NewVehicleHandler creates a new vehicle handler
func NewVehicleHandler(vehicles *services.VehicleService, snapshots SnapshotSource, logger *logrus.Logger) *VehicleHandler {
	return &VehicleHandler{
		vehicles:  vehicles,
		snapshots: snapshots,
		logger:    logger,
	}
}

// GetServiceType handles GET /api/v1/vehicles/:vehicle_no/service-type
// @Summary Live service type of a vehicle
// @Tags Vehicles
// @Produce json
// @Param vehicle_no path string true "Vehicle number"
// @Success 200 {object} models.VehicleServiceTypeResponse
// @Failure 404 {object} models.ErrorResponse "Vehicle not found"
// @Router /api/v1/vehicles/{vehicle_no}/service-type [get]
func (h *VehicleHandler) GetServiceType(c *gin.Context) {
	response, err := h.vehicles.GetServiceType(c.Request.Context(), c.Param("vehicle_no"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetVehicleRoute handles GET /api/v1/feeds/:feed_id/vehicles/:vehicle_no/route
// @Summary Correlate a live vehicle with a route of the feed
// @Tags Vehicles
// @Produce json
// @Param feed_id path string true "Feed ID"
// @Param vehicle_no path string true "Vehicle number"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} models.ErrorResponse "Vehicle not found"
// @Failure 503 {object} models.ErrorResponse "Snapshot not published yet"
// @Router /api/v1/feeds/{feed_id}/vehicles/{vehicle_no}/route [get]
func (h *VehicleHandler) GetVehicleRoute(c *gin.Context) {
	snapshot, ok := pinSnapshot(c, h.logger, h.snapshots)
	if !ok {
		return
	}

	feedID := c.Param("feed_id")
	match, err := h.vehicles.ResolveRoute(c.Request.Context(), snapshot, feedID, c.Param("vehicle_no"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"generation": snapshot.Generation(),
		"feed_id":    feedID,
		"match":      match,
	})
}
