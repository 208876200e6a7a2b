package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/network-index/internal/config"
	"github.com/smarttransit/network-index/internal/loader"
	"github.com/smarttransit/network-index/internal/network"
)

func main() {
	var (
		feedID  string
		path    string
		url     string
		route   string
		asJSON  bool
		timeout time.Duration
	)
	flag.StringVar(&feedID, "feed", "inspect", "feed id used for hierarchy logs and provider fallback")
	flag.StringVar(&path, "file", "", "path to a GTFS zip")
	flag.StringVar(&url, "url", "", "URL of a GTFS zip (instead of -file)")
	flag.StringVar(&route, "route", "", "print the ordered stops of this route")
	flag.BoolVar(&asJSON, "json", false, "print the summary as JSON")
	flag.DurationVar(&timeout, "timeout", 60*time.Second, "download timeout for -url")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)

	feed := config.FeedConfig{ID: feedID, Path: path, URL: url}
	if (path == "") == (url == "") {
		logger.Fatal("exactly one of -file or -url is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	raw, err := loader.NewSource(timeout, logger).Fetch(ctx, feed)
	if err != nil {
		logger.Fatalf("Failed to fetch feed: %v", err)
	}

	start := time.Now()
	input, err := loader.ParseGTFS(feedID, raw)
	if err != nil {
		logger.Fatalf("Failed to parse feed: %v", err)
	}
	store := network.BuildTopologyStore(input, logger)
	elapsed := time.Since(start)

	summary := struct {
		Status     interface{}            `json:"status"`
		StopCount  int                    `json:"stop_count"`
		EdgeCount  int                    `json:"edge_count"`
		Rejected   []network.RejectedEdge `json:"rejected_edges"`
		BuildMs    int64                  `json:"build_ms"`
		Route      string                 `json:"route,omitempty"`
		RouteStops interface{}            `json:"route_stops,omitempty"`
	}{
		Status:    store.Status(),
		StopCount: len(input.Stops),
		EdgeCount: store.Hierarchy().EdgeCount(),
		Rejected:  store.Hierarchy().Rejected(),
		BuildMs:   elapsed.Milliseconds(),
	}
	if route != "" {
		summary.Route = route
		summary.RouteStops = store.Index().StopsForRoute(route)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			logger.Fatalf("Failed to encode summary: %v", err)
		}
		return
	}

	status := store.Status()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "feed\t%s\n", status.FeedID)
	fmt.Fprintf(w, "content hash\t%s\n", status.ContentHash)
	fmt.Fprintf(w, "routes\t%d\n", status.RouteCount)
	fmt.Fprintf(w, "route stop records\t%d\n", status.RecordCount)
	fmt.Fprintf(w, "hierarchy edges\t%d accepted, %d rejected\n", summary.EdgeCount, len(summary.Rejected))
	fmt.Fprintf(w, "build time\t%s\n", elapsed)
	w.Flush()

	for _, rejected := range summary.Rejected {
		fmt.Printf("rejected %s -> %s: %s\n", rejected.Edge.ParentID, rejected.Edge.ChildID, rejected.Reason)
	}

	if route == "" {
		return
	}

	stops := store.Index().StopsForRoute(route)
	if len(stops) == 0 {
		fmt.Printf("\nroute %s has no stops in this feed\n", route)
		return
	}

	if summaryRoute, ok := store.Route(route); ok {
		fmt.Printf("\nroute %s: %s (%s)\n", route, summaryRoute.DisplayName(), summaryRoute.Mode)
	} else {
		fmt.Printf("\nroute %s\n", route)
	}
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "seq\tstop\tname\ttravel (s)")
	for _, stop := range stops {
		travel := "-"
		if stop.EstimatedTravelTimeFromPreviousStop != nil {
			travel = fmt.Sprint(*stop.EstimatedTravelTimeFromPreviousStop)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", stop.SequenceNum, stop.StopCode, stop.StopName, travel)
	}
	w.Flush()
}
