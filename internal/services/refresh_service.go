package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/config"
	"github.com/smarttransit/network-index/internal/models"
	"github.com/smarttransit/network-index/internal/network"
	"golang.org/x/sync/errgroup"
)

// ErrRefreshInProgress is returned when a refresh is requested while another is running
var ErrRefreshInProgress = errors.New("refresh already in progress")

// ErrNoFeedsAvailable is returned when no feed could be built or carried forward
var ErrNoFeedsAvailable = errors.New("no feed could be built and none could be carried forward")

// Per-feed refresh statuses
const (
	FeedStatusRebuilt        = "rebuilt"
	FeedStatusUnchanged      = "unchanged"
	FeedStatusCarriedForward = "carried_forward"
	FeedStatusFailed         = "failed"
)

// FeedFetcher returns the raw content of a feed
type FeedFetcher interface {
	Fetch(ctx context.Context, feed config.FeedConfig) ([]byte, error)
}

// GeometrySource lists stop geometry rows
type GeometrySource interface {
	ListStopGeometries(ctx context.Context) ([]models.StopGeometry, error)
}

// FeedParser turns raw feed content into topology builder input
type FeedParser func(feedID string, raw []byte) (network.FeedInput, error)

// FeedRefreshResult reports what happened to one feed during a refresh
type FeedRefreshResult struct {
	FeedID      string `json:"feed_id"`
	Status      string `json:"status"`
	ContentHash string `json:"content_hash,omitempty"`
	Error       string `json:"error,omitempty"`
	DurationMs  int64  `json:"duration_ms"`
}

// RefreshReport summarizes one refresh cycle
type RefreshReport struct {
	Generation             uint64              `json:"generation"`
	StartedAt              time.Time           `json:"started_at"`
	DurationMs             int64               `json:"duration_ms"`
	Feeds                  []FeedRefreshResult `json:"feeds"`
	GeometryCount          int                 `json:"geometry_count"`
	GeometryCarriedForward bool                `json:"geometry_carried_forward"`
}

// RefreshService rebuilds changed feeds and publishes new snapshots.
// Only one refresh runs at a time.
type RefreshService struct {
	registry    *network.Registry
	feeds       []config.FeedConfig
	fetcher     FeedFetcher
	parse       FeedParser
	geometry    GeometrySource
	concurrency int
	logger      *logrus.Logger

	mu         sync.Mutex
	lastReport atomic.Pointer[RefreshReport]
}

// NewRefreshService creates a new refresh service
func NewRefreshService(
	registry *network.Registry,
	feeds []config.FeedConfig,
	fetcher FeedFetcher,
	parse FeedParser,
	geometry GeometrySource,
	concurrency int,
	logger *logrus.Logger,
) *RefreshService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RefreshService{
		registry:    registry,
		feeds:       feeds,
		fetcher:     fetcher,
		parse:       parse,
		geometry:    geometry,
		concurrency: concurrency,
		logger:      logger,
	}
}

// LastReport returns the report of the most recent completed refresh, or nil
func (s *RefreshService) LastReport() *RefreshReport {
	return s.lastReport.Load()
}

// Refresh fetches every feed, rebuilds those whose content changed, and publishes a new
// snapshot. Failed feeds keep their previous version; a failed geometry load keeps the
// previous geometry table.
func (s *RefreshService) Refresh(ctx context.Context) (*RefreshReport, error) {
	if !s.mu.TryLock() {
		return nil, ErrRefreshInProgress
	}
	defer s.mu.Unlock()

	startTime := time.Now()
	previous := s.registry.Current()

	s.logger.WithFields(logrus.Fields{
		"feeds":               len(s.feeds),
		"previous_generation": previous.Generation(),
	}).Info("Starting snapshot refresh")

	// Step 1: Rebuild feeds with bounded concurrency
	outcomes := make([]network.FeedOutcome, len(s.feeds))
	results := make([]FeedRefreshResult, len(s.feeds))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, feed := range s.feeds {
		i, feed := i, feed
		g.Go(func() error {
			outcomes[i], results[i] = s.rebuildFeed(ctx, previous, feed)
			return nil
		})
	}
	_ = g.Wait()

	// Step 2: Load geometry, keeping the previous table on failure
	report := &RefreshReport{StartedAt: startTime.UTC(), Feeds: results}

	var table network.GeometryTable
	rows, geoErr := s.geometry.ListStopGeometries(ctx)
	if geoErr == nil {
		table = network.NewGeometryTable(rows)
	} else {
		report.GeometryCarriedForward = true
		s.logger.WithError(geoErr).Warn("Failed to load stop geometry; carrying previous table forward")
	}
	table = network.CarryForwardGeometry(previous, table, geoErr)
	report.GeometryCount = len(table)

	// Step 3: Pick the store to publish for each feed
	stores := network.CarryForward(previous, outcomes, s.logger)
	for i := range results {
		if results[i].Status != FeedStatusFailed {
			continue
		}
		if store, ok := stores[results[i].FeedID]; ok {
			results[i].Status = FeedStatusCarriedForward
			results[i].ContentHash = store.ContentHash()
		}
	}

	if len(stores) == 0 {
		report.DurationMs = time.Since(startTime).Milliseconds()
		s.lastReport.Store(report)
		s.logger.Error("Snapshot refresh produced no feeds; nothing published")
		return report, ErrNoFeedsAvailable
	}

	// Step 4: Publish atomically
	snapshot := s.registry.Publish(stores, table)
	report.Generation = snapshot.Generation()
	report.DurationMs = time.Since(startTime).Milliseconds()
	s.lastReport.Store(report)

	s.logger.WithFields(logrus.Fields{
		"generation":  report.Generation,
		"feeds":       len(stores),
		"geometry":    report.GeometryCount,
		"duration_ms": report.DurationMs,
	}).Info("Published network snapshot")

	return report, nil
}

// rebuildFeed fetches one feed and builds its topology store unless the content is unchanged
func (s *RefreshService) rebuildFeed(
	ctx context.Context,
	previous *network.Snapshot,
	feed config.FeedConfig,
) (outcome network.FeedOutcome, result FeedRefreshResult) {
	start := time.Now()
	outcome.FeedID = feed.ID
	result.FeedID = feed.ID

	defer func() {
		if r := recover(); r != nil {
			outcome = network.FeedOutcome{FeedID: feed.ID, Err: fmt.Errorf("panic while building feed: %v", r)}
			result.Status = FeedStatusFailed
			result.Error = outcome.Err.Error()
		}
		result.DurationMs = time.Since(start).Milliseconds()

		entry := s.logger.WithFields(logrus.Fields{
			"feed_id":      feed.ID,
			"status":       result.Status,
			"content_hash": result.ContentHash,
			"duration_ms":  result.DurationMs,
		})
		if outcome.Err != nil {
			entry.WithError(outcome.Err).Warn("Feed refresh failed")
		} else {
			entry.Info("Feed refreshed")
		}
	}()

	fail := func(err error) {
		outcome.Err = err
		result.Status = FeedStatusFailed
		result.Error = err.Error()
	}

	raw, err := s.fetcher.Fetch(ctx, feed)
	if err != nil {
		fail(fmt.Errorf("failed to fetch feed: %w", err))
		return
	}

	hash := network.ContentHash(raw)
	result.ContentHash = hash

	prevStore, _ := previous.Feed(feed.ID)
	if !network.Changed(prevStore, hash) {
		outcome.Store = prevStore
		result.Status = FeedStatusUnchanged
		return
	}

	input, err := s.parse(feed.ID, raw)
	if err != nil {
		fail(fmt.Errorf("failed to parse feed: %w", err))
		return
	}

	outcome.Store = network.BuildTopologyStore(input, s.logger)
	result.Status = FeedStatusRebuilt
	return
}
