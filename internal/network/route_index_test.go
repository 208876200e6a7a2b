package network

import (
	"math/rand"
	"testing"

	"github.com/smarttransit/network-index/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stopRec(route, stop string, seq int) models.StopOnRoute {
	return models.StopOnRoute{
		ProviderCode: "P",
		RouteCode:    route,
		StopCode:     stop,
		StopName:     "Stop " + stop,
		SequenceNum:  seq,
		VehicleType:  "BUS",
	}
}

func stopCodes(stops []models.StopOnRoute) []string {
	codes := make([]string, 0, len(stops))
	for _, s := range stops {
		codes = append(codes, s.StopCode)
	}
	return codes
}

func TestRouteIndex_StopsForRoute(t *testing.T) {
	t.Run("Out of order input is sorted by sequence", func(t *testing.T) {
		idx := NewRouteIndex([]models.StopOnRoute{
			stopRec("R1", "A", 2),
			stopRec("R1", "B", 1),
		})

		assert.Equal(t, []string{"B", "A"}, stopCodes(idx.StopsForRoute("R1")))
	})

	t.Run("Equal sequence numbers keep arrival order", func(t *testing.T) {
		idx := NewRouteIndex([]models.StopOnRoute{
			stopRec("R1", "X", 5),
			stopRec("R1", "Y", 5),
			stopRec("R1", "Z", 1),
		})

		assert.Equal(t, []string{"Z", "X", "Y"}, stopCodes(idx.StopsForRoute("R1")))
	})

	t.Run("Unknown route is empty", func(t *testing.T) {
		idx := NewRouteIndex([]models.StopOnRoute{stopRec("R1", "A", 1)})

		stops := idx.StopsForRoute("nope")
		assert.NotNil(t, stops)
		assert.Empty(t, stops)
	})

	t.Run("Returned records are copies", func(t *testing.T) {
		idx := NewRouteIndex([]models.StopOnRoute{stopRec("R1", "A", 1)})

		stops := idx.StopsForRoute("R1")
		stops[0].StopName = "mutated"

		assert.Equal(t, "Stop A", idx.StopsForRoute("R1")[0].StopName)
	})

	t.Run("Input slice is not retained", func(t *testing.T) {
		input := []models.StopOnRoute{stopRec("R1", "A", 1)}
		idx := NewRouteIndex(input)
		input[0].StopCode = "changed"

		assert.Equal(t, []string{"A"}, stopCodes(idx.StopsForRoute("R1")))
	})
}

func TestRouteIndex_StopsForRoute_ShuffledIsStrictlyAscending(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 20; round++ {
		var records []models.StopOnRoute
		for seq := 0; seq < 30; seq++ {
			records = append(records, stopRec("R1", string(rune('a'+seq%26))+string(rune('0'+seq/26)), seq))
			records = append(records, stopRec("R2", "other", seq))
		}
		rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })

		stops := NewRouteIndex(records).StopsForRoute("R1")
		require.Len(t, stops, 30)
		for i := 1; i < len(stops); i++ {
			assert.Less(t, stops[i-1].SequenceNum, stops[i].SequenceNum)
		}
	}
}

func TestRouteIndex_RoutesForStop(t *testing.T) {
	idx := NewRouteIndex([]models.StopOnRoute{
		stopRec("R2", "T", 1),
		stopRec("R1", "T", 3),
		stopRec("R1", "T", 7), // loop route visits T twice
		stopRec("R3", "U", 1),
	})

	t.Run("Distinct routes", func(t *testing.T) {
		assert.Equal(t, []string{"R1", "R2"}, idx.RoutesForStop("T"))
	})

	t.Run("Unknown stop is empty", func(t *testing.T) {
		routes := idx.RoutesForStop("missing")
		assert.NotNil(t, routes)
		assert.Empty(t, routes)
	})

	t.Run("Counts", func(t *testing.T) {
		assert.Equal(t, 4, idx.Len())
		assert.Equal(t, 3, idx.RouteCount())
		assert.True(t, idx.HasStop("U"))
		assert.False(t, idx.HasStop("V"))
	})
}

func TestRouteIndex_PositionsAreValid(t *testing.T) {
	idx := NewRouteIndex([]models.StopOnRoute{
		stopRec("R1", "A", 1),
		stopRec("R1", "B", 2),
		stopRec("R2", "A", 1),
	})

	for route, positions := range idx.byRoute {
		for _, pos := range positions {
			require.Less(t, pos, len(idx.records))
			assert.Equal(t, route, idx.records[pos].RouteCode)
		}
	}
	for stop, positions := range idx.byStop {
		for _, pos := range positions {
			require.Less(t, pos, len(idx.records))
			assert.Equal(t, stop, idx.records[pos].StopCode)
		}
	}
}
