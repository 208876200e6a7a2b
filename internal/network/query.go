package network

import (
	"sort"

	"github.com/smarttransit/network-index/internal/models"
	"github.com/smarttransit/network-index/pkg/normalize"
)

// MatchStatus describes the outcome of correlating a live vehicle with a feed route
type MatchStatus string

const (
	MatchStatusMatched   MatchStatus = "matched"
	MatchStatusAmbiguous MatchStatus = "ambiguous"
	MatchStatusUnmatched MatchStatus = "unmatched"
)

// VehicleRouteMatch is the result of ResolveVehicleRoute. Route is set for matched and
// ambiguous results; Candidates lists every matching route id, winner first.
type VehicleRouteMatch struct {
	Status      MatchStatus          `json:"status"`
	ServiceType string               `json:"service_type"`
	Route       *models.RouteSummary `json:"route,omitempty"`
	Candidates  []string             `json:"candidates"`
}

// RouteStops returns a route's stops in sequence order; empty for an unknown feed or route
func (s *Snapshot) RouteStops(feedID, routeCode string) []models.StopOnRoute {
	store, ok := s.feeds[feedID]
	if !ok {
		return []models.StopOnRoute{}
	}
	return store.index.StopsForRoute(routeCode)
}

// RouteStopsWithGeometry returns a route's stops each paired with its geometry, joined by
// normalized stop code. Stops without geometry carry a nil geometry.
func (s *Snapshot) RouteStopsWithGeometry(feedID, routeCode string) []models.StopOnRouteWithGeometry {
	stops := s.RouteStops(feedID, routeCode)
	out := make([]models.StopOnRouteWithGeometry, 0, len(stops))
	for _, stop := range stops {
		entry := models.StopOnRouteWithGeometry{StopOnRoute: stop}
		if geo, ok := s.geometry[normalize.CleanIdentifier(stop.StopCode)]; ok {
			g := geo
			entry.StopGeometry = &g
		}
		out = append(out, entry)
	}
	return out
}

// StopsRoutes returns the distinct route codes serving a stop. The code is tried as
// given first, then with feed qualification and escaping removed.
func (s *Snapshot) StopsRoutes(feedID, stopCode string) []string {
	store, ok := s.feeds[feedID]
	if !ok {
		return []string{}
	}
	if store.index.HasStop(stopCode) {
		return store.index.RoutesForStop(stopCode)
	}
	return store.index.RoutesForStop(normalize.CleanIdentifier(stopCode))
}

// ExpandStation returns the child stops of a parent station. A stop without children
// expands to itself. Unknown feeds yield an empty slice.
func (s *Snapshot) ExpandStation(feedID, parentStopID string) []string {
	store, ok := s.feeds[feedID]
	if !ok {
		return []string{}
	}
	if kids := store.hierarchy.Children(parentStopID); kids != nil {
		return kids
	}
	if cleaned := normalize.CleanIdentifier(parentStopID); cleaned != parentStopID {
		if kids := store.hierarchy.Children(cleaned); kids != nil {
			return kids
		}
	}
	return []string{parentStopID}
}

// Routes returns the feed's route summaries sorted by id; empty for an unknown feed
func (s *Snapshot) Routes(feedID string) []models.RouteSummary {
	store, ok := s.feeds[feedID]
	if !ok {
		return []models.RouteSummary{}
	}
	return store.Routes()
}

// StopGeometry looks up geometry by stop code, bare or feed-qualified
func (s *Snapshot) StopGeometry(stopCode string) (models.StopGeometry, bool) {
	geo, ok := s.geometry[normalize.CleanIdentifier(stopCode)]
	return geo, ok
}

// ResolveVehicleRoute correlates a live vehicle with the feed's routes by service type.
// The raw service type is normalized before comparison against each route's mode.
//
// When several routes match, the winner is the one with the latest UpdatedAt. Routes
// without a timestamp rank below any that have one; remaining ties go to the route that
// appeared later in the feed's route list, then to the greater route id.
func (s *Snapshot) ResolveVehicleRoute(record models.LiveVehicleRecord, feedID string) VehicleRouteMatch {
	serviceType := normalize.NormalizeVehicleType(record.ServiceType)
	result := VehicleRouteMatch{
		Status:      MatchStatusUnmatched,
		ServiceType: serviceType,
		Candidates:  []string{},
	}

	store, ok := s.feeds[feedID]
	if !ok || serviceType == "" {
		return result
	}

	var matches []models.RouteSummary
	for _, route := range store.routes {
		if normalize.SameVehicleType(serviceType, route.Mode) {
			matches = append(matches, route)
		}
	}
	if len(matches) == 0 {
		return result
	}

	sort.Slice(matches, func(i, j int) bool {
		return store.ranksAbove(matches[i], matches[j])
	})

	for _, m := range matches {
		result.Candidates = append(result.Candidates, m.ID)
	}
	winner := matches[0]
	result.Route = &winner
	if len(matches) == 1 {
		result.Status = MatchStatusMatched
	} else {
		result.Status = MatchStatusAmbiguous
	}
	return result
}

// ranksAbove orders vehicle-route candidates, best first
func (s *TopologyStore) ranksAbove(a, b models.RouteSummary) bool {
	switch {
	case a.UpdatedAt != nil && b.UpdatedAt == nil:
		return true
	case a.UpdatedAt == nil && b.UpdatedAt != nil:
		return false
	case a.UpdatedAt != nil && b.UpdatedAt != nil && !a.UpdatedAt.Equal(*b.UpdatedAt):
		return a.UpdatedAt.After(*b.UpdatedAt)
	}
	if oa, ob := s.routeOrder[a.ID], s.routeOrder[b.ID]; oa != ob {
		return oa > ob
	}
	return a.ID > b.ID
}
