package network

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/models"
	"golang.org/x/crypto/blake2b"
)

const contentHashPrefix = "blake2b:"

// FeedInput is everything the feed loader delivers for one feed in one refresh cycle
type FeedInput struct {
	FeedID string
	Routes []models.RouteSummary
	Stops  []models.StopOnRoute
	Edges  []models.StopHierarchyEdge
	// Raw is the unparsed feed content the content hash is computed over
	Raw []byte
}

// TopologyStore is one feed's complete, immutable state
type TopologyStore struct {
	feedID      string
	contentHash string
	builtAt     time.Time
	routes      map[string]models.RouteSummary
	routeOrder  map[string]int
	index       *RouteIndex
	hierarchy   *StopHierarchy
}

// ContentHash returns the deterministic digest of a feed's raw content
func ContentHash(raw []byte) string {
	sum := blake2b.Sum256(raw)
	return contentHashPrefix + hex.EncodeToString(sum[:])
}

// Changed reports whether a feed needs rebuilding: true when there is no previous
// store or its hash differs from the candidate
func Changed(previous *TopologyStore, candidateHash string) bool {
	if previous == nil {
		return true
	}
	return previous.contentHash != candidateHash
}

// BuildTopologyStore hashes the raw content and builds the route index, the stop
// hierarchy and the route map. Malformed hierarchy edges and duplicate route ids are
// dropped and logged; the build itself never fails.
func BuildTopologyStore(input FeedInput, logger *logrus.Logger) *TopologyStore {
	store := &TopologyStore{
		feedID:      input.FeedID,
		contentHash: ContentHash(input.Raw),
		builtAt:     time.Now().UTC(),
		routes:      make(map[string]models.RouteSummary, len(input.Routes)),
		routeOrder:  make(map[string]int, len(input.Routes)),
		index:       NewRouteIndex(input.Stops),
		hierarchy:   BuildStopHierarchy(input.FeedID, input.Edges, logger),
	}

	for i, route := range input.Routes {
		if _, dup := store.routes[route.ID]; dup {
			if logger != nil {
				logger.WithFields(logrus.Fields{
					"feed_id":  input.FeedID,
					"route_id": route.ID,
				}).Warn("Dropped duplicate route id")
			}
			continue
		}
		store.routes[route.ID] = route
		store.routeOrder[route.ID] = i
	}

	return store
}

// FeedID returns the feed identifier
func (s *TopologyStore) FeedID() string {
	return s.feedID
}

// ContentHash returns the digest of the raw content this store was built from
func (s *TopologyStore) ContentHash() string {
	return s.contentHash
}

// BuiltAt returns when the store was built
func (s *TopologyStore) BuiltAt() time.Time {
	return s.builtAt
}

// Index returns the feed's route index
func (s *TopologyStore) Index() *RouteIndex {
	return s.index
}

// Hierarchy returns the feed's stop hierarchy
func (s *TopologyStore) Hierarchy() *StopHierarchy {
	return s.hierarchy
}

// Route looks up route metadata by id
func (s *TopologyStore) Route(id string) (models.RouteSummary, bool) {
	route, ok := s.routes[id]
	return route, ok
}

// Routes returns all route summaries sorted by id
func (s *TopologyStore) Routes() []models.RouteSummary {
	routes := make([]models.RouteSummary, 0, len(s.routes))
	for _, route := range s.routes {
		routes = append(routes, route)
	}
	sort.Slice(routes, func(i, j int) bool {
		return routes[i].ID < routes[j].ID
	})
	return routes
}

// Status summarizes the store for operational tooling
func (s *TopologyStore) Status() models.FeedStatus {
	return models.FeedStatus{
		FeedID:      s.feedID,
		ContentHash: s.contentHash,
		RouteCount:  len(s.routes),
		RecordCount: s.index.Len(),
		BuiltAt:     s.builtAt,
	}
}
