package loader

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/smarttransit/network-index/internal/models"
	"github.com/smarttransit/network-index/internal/network"
	"github.com/smarttransit/network-index/pkg/normalize"
)

var requiredFiles = []string{"routes.txt", "stops.txt", "trips.txt", "stop_times.txt"}

type gtfsRoute struct {
	id        string
	agencyID  string
	shortName string
	longName  string
	mode      string
}

type gtfsStop struct {
	id       string
	code     string
	name     string
	point    models.LatLong
	parentID string
}

type gtfsStopTime struct {
	stopID    string
	sequence  int
	arrival   int
	departure int
	hasTimes  bool
}

// ParseGTFS reads a GTFS zip archive into the records needed to build a topology store.
// Each route's stop sequence comes from its representative trip: the trip with the most
// stop times, ties going to the lowest trip id.
func ParseGTFS(feedID string, raw []byte) (network.FeedInput, error) {
	input := network.FeedInput{FeedID: feedID, Raw: raw}

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return input, fmt.Errorf("failed to open zip: %w", err)
	}

	// Build file map for easy lookup; some publishers nest files in a folder
	files := make(map[string]*zip.File)
	for _, f := range zr.File {
		files[strings.ToLower(path.Base(f.Name))] = f
	}
	for _, name := range requiredFiles {
		if _, ok := files[name]; !ok {
			return input, fmt.Errorf("missing required file %s", name)
		}
	}

	agencies := map[string]string{}
	var agencyOrder []string
	if f, ok := files["agency.txt"]; ok {
		err := readCSV(f, func(row csvRow) {
			id := row.get("agency_id")
			agencies[id] = row.get("agency_name")
			agencyOrder = append(agencyOrder, id)
		})
		if err != nil {
			return input, err
		}
	}

	var routes []gtfsRoute
	err = readCSV(files["routes.txt"], func(row csvRow) {
		routeType, _ := strconv.Atoi(row.get("route_type"))
		routes = append(routes, gtfsRoute{
			id:        row.get("route_id"),
			agencyID:  row.get("agency_id"),
			shortName: row.get("route_short_name"),
			longName:  row.get("route_long_name"),
			mode:      ModeForRouteType(routeType),
		})
	})
	if err != nil {
		return input, err
	}

	stops := make(map[string]gtfsStop)
	var childIDs []string
	err = readCSV(files["stops.txt"], func(row csvRow) {
		lat, _ := strconv.ParseFloat(row.get("stop_lat"), 64)
		lon, _ := strconv.ParseFloat(row.get("stop_lon"), 64)
		stop := gtfsStop{
			id:       row.get("stop_id"),
			code:     row.get("stop_code"),
			name:     row.get("stop_name"),
			point:    models.LatLong{Lat: lat, Lon: lon},
			parentID: row.get("parent_station"),
		}
		if stop.code == "" {
			stop.code = stop.id
		}
		stops[stop.id] = stop
		if stop.parentID != "" {
			childIDs = append(childIDs, stop.id)
		}
	})
	if err != nil {
		return input, err
	}

	// Hierarchy edges use the same resolved stop codes as the route index
	for _, id := range childIDs {
		child := stops[id]
		parentCode := child.parentID
		if parent, ok := stops[child.parentID]; ok {
			parentCode = parent.code
		}
		input.Edges = append(input.Edges, models.StopHierarchyEdge{ParentID: parentCode, ChildID: child.code})
	}

	tripRoute := make(map[string]string)
	tripCount := make(map[string]int)
	err = readCSV(files["trips.txt"], func(row csvRow) {
		tripID, routeID := row.get("trip_id"), row.get("route_id")
		tripRoute[tripID] = routeID
		tripCount[routeID]++
	})
	if err != nil {
		return input, err
	}

	stopTimes := make(map[string][]gtfsStopTime)
	err = readCSV(files["stop_times.txt"], func(row csvRow) {
		tripID := row.get("trip_id")
		if _, ok := tripRoute[tripID]; !ok {
			return
		}
		seq, err := strconv.Atoi(row.get("stop_sequence"))
		if err != nil || seq < 0 {
			return
		}
		arrival, errA := ParseGTFSTime(row.get("arrival_time"))
		departure, errD := ParseGTFSTime(row.get("departure_time"))
		st := gtfsStopTime{
			stopID:    row.get("stop_id"),
			sequence:  seq,
			arrival:   arrival,
			departure: departure,
			hasTimes:  errA == nil && errD == nil,
		}
		stopTimes[tripID] = append(stopTimes[tripID], st)
	})
	if err != nil {
		return input, err
	}

	representative := representativeTrips(tripRoute, stopTimes)

	for _, route := range routes {
		provider := route.agencyID
		if provider == "" && len(agencyOrder) == 1 {
			provider = agencyOrder[0]
		}
		if provider == "" {
			provider = feedID
		}

		summary := models.RouteSummary{
			ID:   route.id,
			Mode: route.mode,
		}
		if route.shortName != "" {
			summary.ShortName = stringPtr(route.shortName)
		}
		if route.longName != "" {
			summary.LongName = stringPtr(route.longName)
		}
		if name, ok := agencies[provider]; ok && name != "" {
			summary.AgencyName = stringPtr(name)
		}
		trips := tripCount[route.id]
		summary.TripCount = &trips

		times := stopTimes[representative[route.id]]
		sort.SliceStable(times, func(i, j int) bool {
			return times[i].sequence < times[j].sequence
		})

		var records []models.StopOnRoute
		for i, st := range times {
			stop, ok := stops[st.stopID]
			if !ok {
				continue
			}
			rec := models.StopOnRoute{
				ProviderCode: provider,
				RouteCode:    route.id,
				StopCode:     stop.code,
				StopName:     stop.name,
				SequenceNum:  st.sequence,
				StopPoint:    stop.point,
				VehicleType:  route.mode,
			}
			if i > 0 && st.hasTimes && times[i-1].hasTimes {
				if travel := st.arrival - times[i-1].departure; travel >= 0 {
					rec.EstimatedTravelTimeFromPreviousStop = &travel
				}
			}
			records = append(records, rec)
		}

		stopCount := len(records)
		summary.StopCount = &stopCount
		if stopCount > 0 {
			first, last := records[0].StopPoint, records[stopCount-1].StopPoint
			summary.StartPoint = &first
			summary.EndPoint = &last
		}

		input.Routes = append(input.Routes, summary)
		input.Stops = append(input.Stops, records...)
	}

	return input, nil
}

// representativeTrips picks, per route, the trip with the most stop times
func representativeTrips(tripRoute map[string]string, stopTimes map[string][]gtfsStopTime) map[string]string {
	best := make(map[string]string)
	for tripID, routeID := range tripRoute {
		n := len(stopTimes[tripID])
		if n == 0 {
			continue
		}
		current, ok := best[routeID]
		if !ok {
			best[routeID] = tripID
			continue
		}
		cn := len(stopTimes[current])
		if n > cn || (n == cn && tripID < current) {
			best[routeID] = tripID
		}
	}
	return best
}

// ModeForRouteType maps a GTFS route_type, basic or extended, to a vehicle mode token
func ModeForRouteType(routeType int) string {
	switch {
	case routeType == 0:
		return "TRAM"
	case routeType == 1:
		return normalize.MetroVehicleType
	case routeType == 2:
		return "RAIL"
	case routeType == 3:
		return "BUS"
	case routeType == 4:
		return "FERRY"
	case routeType == 5:
		return "CABLE_CAR"
	case routeType == 6:
		return "GONDOLA"
	case routeType == 7:
		return "FUNICULAR"
	case routeType == 11:
		return "TROLLEYBUS"
	case routeType == 12:
		return "MONORAIL"
	case routeType >= 100 && routeType < 200:
		return "RAIL"
	case routeType >= 400 && routeType < 500:
		return normalize.MetroVehicleType
	case routeType >= 700 && routeType < 800:
		return "BUS"
	case routeType >= 900 && routeType < 1000:
		return "TRAM"
	default:
		return "OTHER"
	}
}

// ParseGTFSTime converts HH:MM:SS to seconds after midnight. Hours may exceed 23 for
// trips running past midnight.
func ParseGTFSTime(value string) (int, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	var fields [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid time %q", value)
		}
		fields[i] = n
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid time %q", value)
	}
	return fields[0]*3600 + fields[1]*60 + fields[2], nil
}

type csvRow struct {
	record []string
	index  map[string]int
}

func (r csvRow) get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.record) {
		return ""
	}
	return strings.TrimSpace(r.record[i])
}

// readCSV streams a GTFS table row by row. Malformed rows are skipped.
func readCSV(f *zip.File, fn func(row csvRow)) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s header: %w", f.Name, err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		fn(csvRow{record: record, index: index})
	}
}

func stringPtr(s string) *string {
	return &s
}
