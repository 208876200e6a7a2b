package models

import (
	"time"
)

// LatLong is a WGS84 coordinate pair
type LatLong struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// StopOnRoute is one stop's position on one route of a feed
type StopOnRoute struct {
	ProviderCode string  `json:"providerCode"`
	RouteCode    string  `json:"routeCode"`
	StopCode     string  `json:"stopCode"`
	StopName     string  `json:"stopName"`
	SequenceNum  int     `json:"sequenceNum"`
	StopPoint    LatLong `json:"stopPoint"`
	VehicleType  string  `json:"vehicleType"`
	// Seconds since departure from the previous stop, nil for the first stop or when unknown
	EstimatedTravelTimeFromPreviousStop *int `json:"estimatedTravelTimeFromPreviousStop,omitempty"`
}

// RouteSummary is route metadata used for listings and vehicle correlation
type RouteSummary struct {
	ID         string   `json:"id"`
	ShortName  *string  `json:"shortName,omitempty"`
	LongName   *string  `json:"longName,omitempty"`
	Mode       string   `json:"mode"`
	AgencyName *string  `json:"agencyName,omitempty"`
	TripCount  *int     `json:"tripCount,omitempty"`
	StopCount  *int     `json:"stopCount,omitempty"`
	StartPoint *LatLong `json:"startPoint,omitempty"`
	EndPoint   *LatLong `json:"endPoint,omitempty"`
	// Feed bookkeeping; the most recently updated route wins ambiguous vehicle matches
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// DisplayName returns the short name, the long name, or the id, whichever is set first
func (r *RouteSummary) DisplayName() string {
	if r.ShortName != nil && *r.ShortName != "" {
		return *r.ShortName
	}
	if r.LongName != nil && *r.LongName != "" {
		return *r.LongName
	}
	return r.ID
}

// StopHierarchyEdge links a parent station to one of its child stops
type StopHierarchyEdge struct {
	ParentID string `json:"parentId"`
	ChildID  string `json:"childId"`
}

// StopGeometry is rendering/geofence data for a stop, keyed globally by stop code
type StopGeometry struct {
	StopCode string `json:"stopCode" db:"stop_code"`
	GTFSID   string `json:"gtfsId" db:"gtfs_id"`
	GeoJSON  string `json:"geoJson" db:"geo_json"`
	Gates    string `json:"gates" db:"gates"`
}

// StopOnRouteWithGeometry is a stop-on-route left-joined against the geometry table
type StopOnRouteWithGeometry struct {
	StopOnRoute
	StopGeometry *StopGeometry `json:"stopGeometry,omitempty"`
}

// LiveVehicleRecord is the current service binding of a tracked vehicle.
// ServiceType holds the raw value from the tracking store.
type LiveVehicleRecord struct {
	WaybillID   string     `json:"waybill_id" db:"waybill_id"`
	ServiceType string     `json:"service_type" db:"service_type"`
	VehicleNo   string     `json:"vehicle_no" db:"vehicle_no"`
	ScheduleNo  string     `json:"schedule_no" db:"schedule_no"`
	LastUpdated *time.Time `json:"last_updated,omitempty" db:"last_updated"`
	DutyDate    *time.Time `json:"duty_date,omitempty" db:"duty_date"`
}

// VehicleServiceTypeResponse is the API view of a live vehicle with its normalized service type
type VehicleServiceTypeResponse struct {
	VehicleNo   string     `json:"vehicle_no"`
	ServiceType string     `json:"service_type"`
	WaybillID   *string    `json:"waybill_id,omitempty"`
	ScheduleNo  *string    `json:"schedule_no,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// FeedStatus describes one feed of the published snapshot for operational tooling
type FeedStatus struct {
	FeedID      string    `json:"feed_id"`
	ContentHash string    `json:"content_hash"`
	RouteCount  int       `json:"route_count"`
	RecordCount int       `json:"record_count"`
	BuiltAt     time.Time `json:"built_at"`
}
