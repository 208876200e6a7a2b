package network

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/smarttransit/network-index/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string {
	return &s
}

func sampleFeed(feedID string, raw string) FeedInput {
	return FeedInput{
		FeedID: feedID,
		Routes: []models.RouteSummary{
			{ID: "R1", ShortName: strPtr("1"), Mode: "BUS"},
			{ID: "R2", ShortName: strPtr("2"), Mode: "METRO"},
		},
		Stops: []models.StopOnRoute{
			stopRec("R1", "A", 2),
			stopRec("R1", "B", 1),
			stopRec("R2", "A", 1),
		},
		Edges: []models.StopHierarchyEdge{
			edge("STATION", "A"),
		},
		Raw: []byte(raw),
	}
}

func TestContentHash(t *testing.T) {
	h1 := ContentHash([]byte("feed bytes"))
	h2 := ContentHash([]byte("feed bytes"))
	h3 := ContentHash([]byte("feed bytes!"))

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3)
	assert.True(t, strings.HasPrefix(h1, "blake2b:"))
	assert.Len(t, h1, len("blake2b:")+64)
}

func TestChanged(t *testing.T) {
	store := BuildTopologyStore(sampleFeed("F1", "v1"), nil)

	tests := []struct {
		previous *TopologyStore
		hash     string
		expected bool
		name     string
	}{
		{nil, ContentHash([]byte("v1")), true, "No previous store"},
		{store, ContentHash([]byte("v1")), false, "Same hash"},
		{store, ContentHash([]byte("v2")), true, "Different hash"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Changed(tc.previous, tc.hash))
		})
	}
}

func TestBuildTopologyStore(t *testing.T) {
	store := BuildTopologyStore(sampleFeed("F1", "v1"), nil)

	assert.Equal(t, "F1", store.FeedID())
	assert.Equal(t, ContentHash([]byte("v1")), store.ContentHash())
	assert.False(t, store.BuiltAt().IsZero())
	assert.Equal(t, []string{"B", "A"}, stopCodes(store.Index().StopsForRoute("R1")))
	assert.Equal(t, []string{"A"}, store.Hierarchy().Children("STATION"))

	route, ok := store.Route("R2")
	require.True(t, ok)
	assert.Equal(t, "METRO", route.Mode)

	_, ok = store.Route("R9")
	assert.False(t, ok)

	routes := store.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "R1", routes[0].ID)
	assert.Equal(t, "R2", routes[1].ID)

	status := store.Status()
	assert.Equal(t, "F1", status.FeedID)
	assert.Equal(t, 2, status.RouteCount)
	assert.Equal(t, 3, status.RecordCount)
}

func TestBuildTopologyStore_DuplicateRouteID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	input := sampleFeed("F1", "v1")
	input.Routes = append(input.Routes, models.RouteSummary{ID: "R1", Mode: "FERRY"})

	store := BuildTopologyStore(input, logger)

	route, ok := store.Route("R1")
	require.True(t, ok)
	assert.Equal(t, "BUS", route.Mode)
	assert.Len(t, store.Routes(), 2)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "R1", hook.LastEntry().Data["route_id"])
}

func TestBuildTopologyStore_EqualHashEqualStructures(t *testing.T) {
	a := BuildTopologyStore(sampleFeed("F1", "same"), nil)
	b := BuildTopologyStore(sampleFeed("F1", "same"), nil)

	assert.Equal(t, a.ContentHash(), b.ContentHash())
	assert.Equal(t, a.Routes(), b.Routes())
	assert.Equal(t, a.Index().StopsForRoute("R1"), b.Index().StopsForRoute("R1"))
	assert.Equal(t, a.Hierarchy().Children("STATION"), b.Hierarchy().Children("STATION"))
}
