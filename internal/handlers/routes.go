package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/smarttransit/network-index/internal/middleware"
	"github.com/smarttransit/network-index/pkg/jwt"
)

// Router bundles the handlers mounted by RegisterRoutes
type Router struct {
	Health  *HealthHandler
	Network *NetworkHandler
	Vehicle *VehicleHandler
	Admin   *AdminHandler
}

// RegisterRoutes mounts every endpoint on the engine. adminAuth guards the admin group.
func (r *Router) RegisterRoutes(engine *gin.Engine, adminAuth gin.HandlerFunc) {
	engine.GET("/health", r.Health.HealthCheck)

	v1 := engine.Group("/api/v1")
	{
		feeds := v1.Group("/feeds")
		{
			feeds.GET("", r.Network.ListFeeds)
			feeds.GET("/:feed_id/routes", r.Network.GetRoutes)
			feeds.GET("/:feed_id/routes/:route_code/stops", r.Network.GetRouteStops)
			feeds.GET("/:feed_id/stops/:stop_code/routes", r.Network.GetStopRoutes)
			feeds.GET("/:feed_id/stations/:stop_id/children", r.Network.GetStationChildren)
			feeds.GET("/:feed_id/vehicles/:vehicle_no/route", r.Vehicle.GetVehicleRoute)
		}

		v1.GET("/stops/:stop_code/geometry", r.Network.GetStopGeometry)
		v1.GET("/vehicles/:vehicle_no/service-type", r.Vehicle.GetServiceType)

		admin := v1.Group("/admin")
		admin.Use(adminAuth, middleware.RequireRole(jwt.RoleAdmin))
		{
			admin.POST("/refresh", r.Admin.TriggerRefresh)
			admin.GET("/refresh", r.Admin.GetLastRefresh)
		}
	}
}
