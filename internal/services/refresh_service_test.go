package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/smarttransit/network-index/internal/config"
	"github.com/smarttransit/network-index/internal/models"
	"github.com/smarttransit/network-index/internal/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu      sync.Mutex
	content map[string][]byte
	errs    map[string]error
	started chan struct{}
	block   chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, feed config.FeedConfig) ([]byte, error) {
	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[feed.ID]; err != nil {
		return nil, err
	}
	return f.content[feed.ID], nil
}

func (f *fakeFetcher) set(feedID string, raw string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[feedID] = []byte(raw)
	f.errs[feedID] = err
}

type fakeGeometry struct {
	rows []models.StopGeometry
	err  error
}

func (g *fakeGeometry) ListStopGeometries(ctx context.Context) ([]models.StopGeometry, error) {
	return g.rows, g.err
}

// countingParser builds one route per feed whose only stop is named after the raw content
type countingParser struct {
	calls atomic.Int32
	fail  map[string]bool
}

func (p *countingParser) parse(feedID string, raw []byte) (network.FeedInput, error) {
	p.calls.Add(1)
	if p.fail[string(raw)] {
		return network.FeedInput{}, errors.New("corrupt archive")
	}
	return network.FeedInput{
		FeedID: feedID,
		Routes: []models.RouteSummary{{ID: "R1", Mode: "BUS"}},
		Stops:  []models.StopOnRoute{{RouteCode: "R1", StopCode: string(raw), SequenceNum: 1}},
		Raw:    raw,
	}, nil
}

type refreshFixture struct {
	service  *RefreshService
	registry *network.Registry
	fetcher  *fakeFetcher
	geometry *fakeGeometry
	parser   *countingParser
}

func setupRefreshTest(t *testing.T) *refreshFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()

	f := &refreshFixture{
		registry: network.NewRegistry(),
		fetcher: &fakeFetcher{
			content: map[string][]byte{"F1": []byte("a"), "F2": []byte("b")},
			errs:    map[string]error{},
		},
		geometry: &fakeGeometry{rows: []models.StopGeometry{{StopCode: "a", GTFSID: "F1:a"}}},
		parser:   &countingParser{fail: map[string]bool{}},
	}
	feeds := []config.FeedConfig{{ID: "F1", Path: "f1.zip"}, {ID: "F2", Path: "f2.zip"}}
	f.service = NewRefreshService(f.registry, feeds, f.fetcher, f.parser.parse, f.geometry, 2, logger)
	return f
}

func statuses(report *RefreshReport) map[string]string {
	out := map[string]string{}
	for _, r := range report.Feeds {
		out[r.FeedID] = r.Status
	}
	return out
}

func TestRefresh_FirstPublish(t *testing.T) {
	f := setupRefreshTest(t)

	report, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(1), report.Generation)
	assert.Equal(t, map[string]string{"F1": FeedStatusRebuilt, "F2": FeedStatusRebuilt}, statuses(report))
	assert.Equal(t, 1, report.GeometryCount)
	assert.False(t, report.GeometryCarriedForward)
	assert.Same(t, report, f.service.LastReport())

	snap := f.registry.Current()
	assert.True(t, f.registry.Ready())
	assert.Equal(t, []string{"F1", "F2"}, snap.FeedIDs())
	stops := snap.RouteStopsWithGeometry("F1", "R1")
	require.Len(t, stops, 1)
	require.NotNil(t, stops[0].StopGeometry)
	assert.Equal(t, "F1:a", stops[0].StopGeometry.GTFSID)
}

func TestRefresh_UnchangedFeedIsReused(t *testing.T) {
	f := setupRefreshTest(t)

	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)
	firstStore, _ := f.registry.Current().Feed("F1")

	f.fetcher.set("F2", "b2", nil)
	report, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"F1": FeedStatusUnchanged, "F2": FeedStatusRebuilt}, statuses(report))
	assert.Equal(t, int32(3), f.parser.calls.Load())

	secondStore, _ := f.registry.Current().Feed("F1")
	assert.Same(t, firstStore, secondStore)
	assert.Same(t, firstStore.Index(), secondStore.Index())
	assert.Equal(t, []string{"R1"}, f.registry.Current().StopsRoutes("F2", "b2"))
}

func TestRefresh_FailedFeedIsCarriedForward(t *testing.T) {
	f := setupRefreshTest(t)

	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)
	previous := f.registry.Current()

	f.fetcher.set("F1", "", errors.New("connection refused"))
	f.fetcher.set("F2", "corrupt", nil)
	f.parser.fail["corrupt"] = true

	report, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(2), report.Generation)
	assert.Equal(t, map[string]string{"F1": FeedStatusCarriedForward, "F2": FeedStatusCarriedForward}, statuses(report))
	for _, r := range report.Feeds {
		assert.NotEmpty(t, r.Error)
	}

	current := f.registry.Current()
	for _, id := range []string{"F1", "F2"} {
		prevStore, _ := previous.Feed(id)
		curStore, ok := current.Feed(id)
		require.True(t, ok)
		assert.Same(t, prevStore, curStore)
	}
}

func TestRefresh_GeometryFailureKeepsPreviousTable(t *testing.T) {
	f := setupRefreshTest(t)

	_, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	f.geometry.err = errors.New("geometry db down")
	report, err := f.service.Refresh(context.Background())
	require.NoError(t, err)

	assert.True(t, report.GeometryCarriedForward)
	assert.Equal(t, 1, report.GeometryCount)
	_, ok := f.registry.Current().StopGeometry("a")
	assert.True(t, ok)
}

func TestRefresh_NothingToPublish(t *testing.T) {
	f := setupRefreshTest(t)
	f.fetcher.set("F1", "", errors.New("timeout"))
	f.fetcher.set("F2", "", errors.New("timeout"))

	report, err := f.service.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrNoFeedsAvailable)
	require.NotNil(t, report)
	assert.Equal(t, map[string]string{"F1": FeedStatusFailed, "F2": FeedStatusFailed}, statuses(report))
	assert.False(t, f.registry.Ready())
}

func TestRefresh_PanicInParserIsContained(t *testing.T) {
	f := setupRefreshTest(t)
	logger, _ := test.NewNullLogger()
	panicky := func(feedID string, raw []byte) (network.FeedInput, error) {
		if feedID == "F2" {
			panic("index out of range")
		}
		return f.parser.parse(feedID, raw)
	}
	feeds := []config.FeedConfig{{ID: "F1", Path: "f1.zip"}, {ID: "F2", Path: "f2.zip"}}
	service := NewRefreshService(f.registry, feeds, f.fetcher, panicky, f.geometry, 1, logger)

	report, err := service.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"F1": FeedStatusRebuilt, "F2": FeedStatusFailed}, statuses(report))
	assert.Equal(t, []string{"F1"}, f.registry.Current().FeedIDs())
}

func TestRefresh_SingleFlight(t *testing.T) {
	f := setupRefreshTest(t)
	f.fetcher.started = make(chan struct{}, 1)
	f.fetcher.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.service.Refresh(context.Background())
		done <- err
	}()

	// The first refresh holds the lock once it starts fetching
	select {
	case <-f.fetcher.started:
	case <-time.After(time.Second):
		t.Fatal("refresh did not start")
	}

	_, err := f.service.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshInProgress)

	close(f.fetcher.block)
	assert.NoError(t, <-done)
}
