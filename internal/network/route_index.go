package network

import (
	"sort"

	"github.com/smarttransit/network-index/internal/models"
)

// RouteIndex holds one feed's stop-on-route records and two inverted indices over them.
// Both indices store positions into records, never copies.
type RouteIndex struct {
	records []models.StopOnRoute
	byRoute map[string][]int
	byStop  map[string][]int
}

// NewRouteIndex builds the route and stop indices in a single pass.
// Records may arrive in any order; sequence ordering happens at lookup.
func NewRouteIndex(records []models.StopOnRoute) *RouteIndex {
	idx := &RouteIndex{
		records: make([]models.StopOnRoute, len(records)),
		byRoute: make(map[string][]int),
		byStop:  make(map[string][]int),
	}
	copy(idx.records, records)

	for pos, rec := range idx.records {
		idx.byRoute[rec.RouteCode] = append(idx.byRoute[rec.RouteCode], pos)
		idx.byStop[rec.StopCode] = append(idx.byStop[rec.StopCode], pos)
	}

	return idx
}

// StopsForRoute returns the route's stops ordered by sequence number.
// Equal sequence numbers keep arrival order. Unknown routes yield an empty slice.
func (idx *RouteIndex) StopsForRoute(routeCode string) []models.StopOnRoute {
	positions := idx.byRoute[routeCode]
	stops := make([]models.StopOnRoute, 0, len(positions))
	for _, pos := range positions {
		stops = append(stops, idx.records[pos])
	}

	sort.SliceStable(stops, func(i, j int) bool {
		return stops[i].SequenceNum < stops[j].SequenceNum
	})

	return stops
}

// RoutesForStop returns the distinct route codes serving a stop, sorted.
// Unknown stops yield an empty slice.
func (idx *RouteIndex) RoutesForStop(stopCode string) []string {
	positions := idx.byStop[stopCode]
	seen := make(map[string]struct{}, len(positions))
	routes := make([]string, 0, len(positions))
	for _, pos := range positions {
		code := idx.records[pos].RouteCode
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		routes = append(routes, code)
	}

	sort.Strings(routes)
	return routes
}

// HasStop reports whether any record references the stop code
func (idx *RouteIndex) HasStop(stopCode string) bool {
	_, ok := idx.byStop[stopCode]
	return ok
}

// Len returns the number of indexed records
func (idx *RouteIndex) Len() int {
	return len(idx.records)
}

// RouteCount returns the number of distinct routes with at least one record
func (idx *RouteIndex) RouteCount() int {
	return len(idx.byRoute)
}
