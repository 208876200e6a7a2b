package network

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/models"
	"github.com/smarttransit/network-index/pkg/normalize"
)

// GeometryTable maps normalized stop codes to stop geometry, across all feeds
type GeometryTable map[string]models.StopGeometry

// NewGeometryTable keys geometry rows by their normalized stop code.
// When two rows normalize to the same code the first one wins.
func NewGeometryTable(rows []models.StopGeometry) GeometryTable {
	table := make(GeometryTable, len(rows))
	for _, row := range rows {
		key := normalize.CleanIdentifier(row.StopCode)
		if _, exists := table[key]; exists {
			continue
		}
		table[key] = row
	}
	return table
}

// Snapshot is the whole queryable network at one instant. It is never modified after publish.
type Snapshot struct {
	generation  uint64
	publishedAt time.Time
	feeds       map[string]*TopologyStore
	geometry    GeometryTable
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		feeds:    map[string]*TopologyStore{},
		geometry: GeometryTable{},
	}
}

// Generation returns the publish counter; zero means nothing has been published yet
func (s *Snapshot) Generation() uint64 {
	return s.generation
}

// PublishedAt returns the publish time, zero before the first publish
func (s *Snapshot) PublishedAt() time.Time {
	return s.publishedAt
}

// Feed returns a feed's topology store
func (s *Snapshot) Feed(feedID string) (*TopologyStore, bool) {
	store, ok := s.feeds[feedID]
	return store, ok
}

// FeedIDs returns the ids of all feeds, sorted
func (s *Snapshot) FeedIDs() []string {
	ids := make([]string, 0, len(s.feeds))
	for id := range s.feeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FeedStatuses returns per-feed content hashes and counts, sorted by feed id
func (s *Snapshot) FeedStatuses() []models.FeedStatus {
	ids := s.FeedIDs()
	statuses := make([]models.FeedStatus, 0, len(ids))
	for _, id := range ids {
		statuses = append(statuses, s.feeds[id].Status())
	}
	return statuses
}

// GeometryCount returns the number of stops with geometry
func (s *Snapshot) GeometryCount() int {
	return len(s.geometry)
}

// Registry holds the currently published snapshot.
// Readers load the pointer without locking; publishers are serialized by mu.
type Registry struct {
	current atomic.Pointer[Snapshot]
	mu      sync.Mutex
}

// NewRegistry creates a registry holding an empty generation-zero snapshot
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(emptySnapshot())
	return r
}

// Current returns the published snapshot. Callers should hold on to the result for the
// duration of a request to get a consistent view across several queries.
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Ready reports whether at least one snapshot has been published
func (r *Registry) Ready() bool {
	return r.Current().generation > 0
}

// Publish assembles a new snapshot from the given stores and geometry and swaps it in.
// Both maps are copied, so callers may reuse them afterwards.
func (r *Registry) Publish(feeds map[string]*TopologyStore, geometry GeometryTable) *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.current.Load()

	next := &Snapshot{
		generation:  prev.generation + 1,
		publishedAt: time.Now().UTC(),
		feeds:       make(map[string]*TopologyStore, len(feeds)),
		geometry:    make(GeometryTable, len(geometry)),
	}
	for id, store := range feeds {
		if store != nil {
			next.feeds[id] = store
		}
	}
	for code, geo := range geometry {
		next.geometry[code] = geo
	}

	r.current.Store(next)
	return next
}

// FeedOutcome is the result of rebuilding one feed during a refresh
type FeedOutcome struct {
	FeedID string
	Store  *TopologyStore
	Err    error
}

// CarryForward picks the store to publish for each feed: the rebuilt one on success,
// otherwise the previous snapshot's entry. A failed feed with no previous entry is left out.
func CarryForward(previous *Snapshot, outcomes []FeedOutcome, logger *logrus.Logger) map[string]*TopologyStore {
	feeds := make(map[string]*TopologyStore, len(outcomes))

	for _, outcome := range outcomes {
		if outcome.Err == nil && outcome.Store != nil {
			feeds[outcome.FeedID] = outcome.Store
			continue
		}

		var prevStore *TopologyStore
		if previous != nil {
			prevStore = previous.feeds[outcome.FeedID]
		}

		if prevStore == nil {
			if logger != nil {
				logger.WithError(outcome.Err).WithField("feed_id", outcome.FeedID).
					Error("Feed rebuild failed and no previous version exists; feed omitted")
			}
			continue
		}

		if logger != nil {
			logger.WithError(outcome.Err).WithFields(logrus.Fields{
				"feed_id":      outcome.FeedID,
				"content_hash": prevStore.ContentHash(),
			}).Warn("Feed rebuild failed; carrying previous version forward")
		}
		feeds[outcome.FeedID] = prevStore
	}

	return feeds
}

// CarryForwardGeometry returns the loaded geometry, or the previous snapshot's table
// when loading failed
func CarryForwardGeometry(previous *Snapshot, loaded GeometryTable, loadErr error) GeometryTable {
	if loadErr == nil {
		return loaded
	}
	if previous == nil {
		return GeometryTable{}
	}
	return previous.geometry
}
