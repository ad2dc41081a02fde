// Package main provides a tool to export the route network to CSV format with
// great-circle distances. Each row is:
// airline,source,dest,stops,equipment,codeshare,distance_mi
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"airroutes/internal/ingest"
	"airroutes/internal/query"
	"airroutes/internal/storage"
	"airroutes/internal/store"
)

// RouteExport is one exported route with its distance.
type RouteExport struct {
	Route    store.Route
	Distance float64 // Statute miles.
}

// Filter selects which routes are exported.
type Filter struct {
	Airline     string
	MinDistance float64
	Nonstop     bool
}

func main() {
	dataDir := flag.String("data-dir", "data", "Directory holding airlines.dat, airports.dat and routes.dat")
	source := flag.String("source", storage.BackendFiles, "Dataset source: files, sqlite or postgres")
	sqlitePath := flag.String("sqlite", "airroutes.db", "SQLite database path (source=sqlite)")

	// PostgreSQL connection flags.
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "airroutes", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDB := flag.String("pg-db", "airroutes", "PostgreSQL database")

	output := flag.String("output", "", "Output CSV file (default: stdout)")
	airline := flag.String("airline", "", "Only export routes of this airline (IATA code)")
	minDistance := flag.Float64("min-distance", 0, "Minimum route distance in miles")
	nonstop := flag.Bool("nonstop", false, "Only export routes without stops")
	header := flag.Bool("header", true, "Write a header row")
	showStats := flag.Bool("stats", false, "Show statistics only, don't export")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	ctx := context.Background()

	cfg := storage.DefaultConfig()
	cfg.SQLitePath = *sqlitePath
	cfg.Postgres = storage.PostgresConfig{
		Host:     *pgHost,
		Port:     *pgPort,
		Database: *pgDB,
		User:     *pgUser,
		Password: *pgPassword,
	}

	s, err := loadStore(ctx, *source, cfg, ingest.DefaultPaths(*dataDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading dataset: %v\n", err)
		os.Exit(1)
	}

	routes := collectRoutes(s, Filter{
		Airline:     strings.ToUpper(*airline),
		MinDistance: *minDistance,
		Nonstop:     *nonstop,
	})

	// Show stats mode.
	if *showStats {
		showRouteStats(os.Stdout, routes)
		return
	}

	if len(routes) == 0 {
		fmt.Fprintf(os.Stderr, "No routes found matching criteria\n")
		os.Exit(0)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Exporting %d routes to CSV\n", len(routes))
	}

	// Write output.
	var w io.Writer = os.Stdout
	if *output != "" {
		file, err := os.Create(*output)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = file.Close() }()
		w = file
	}

	if err := writeCSV(w, routes, *header); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing CSV: %v\n", err)
		os.Exit(1)
	}

	if *verbose && *output != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d routes to %s\n", len(routes), *output)
	}
}

// loadStore reads the dataset from the chosen source into a new store.
func loadStore(ctx context.Context, backend string, cfg storage.Config, paths ingest.Paths) (*store.Store, error) {
	src, closer, err := storage.OpenSource(ctx, backend, cfg, paths)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()

	ds, err := src.LoadDataset(ctx)
	if err != nil {
		return nil, err
	}

	s := store.New()
	ds.Apply(s)
	return s, nil
}

// collectRoutes returns the matching routes, longest first.
func collectRoutes(s *store.Store, f Filter) []RouteExport {
	var routes []store.Route
	if f.Airline == "" {
		routes = s.Routes()
	}

	var out []RouteExport
	s.View(func(v store.View) {
		if f.Airline != "" {
			routes = v.RoutesByAirline(f.Airline)
		}
		for _, r := range routes {
			if f.Nonstop && r.Stops > 0 {
				continue
			}
			d := query.Distance(v.AirportByIATA(r.SourceIATA), v.AirportByIATA(r.DestIATA))
			if d < f.MinDistance {
				continue
			}
			out = append(out, RouteExport{Route: r, Distance: d})
		}
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Distance > out[j].Distance
	})
	return out
}

func writeCSV(w io.Writer, routes []RouteExport, header bool) error {
	writer := csv.NewWriter(w)
	if header {
		if err := writer.Write([]string{"airline", "source", "dest", "stops", "equipment", "codeshare", "distance_mi"}); err != nil {
			return err
		}
	}

	for _, re := range routes {
		r := re.Route
		row := []string{
			r.AirlineIATA,
			r.SourceIATA,
			r.DestIATA,
			strconv.Itoa(r.Stops),
			r.Equipment,
			r.Codeshare,
			strconv.FormatFloat(re.Distance, 'f', 1, 64),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// showRouteStats displays statistics about the exported routes.
func showRouteStats(w io.Writer, routes []RouteExport) {
	var total, codeshare, withStops int
	var sum float64
	airlines := make(map[string]bool)
	for _, re := range routes {
		total++
		sum += re.Distance
		airlines[re.Route.AirlineIATA] = true
		if re.Route.Codeshare == "Y" {
			codeshare++
		}
		if re.Route.Stops > 0 {
			withStops++
		}
	}

	fmt.Fprintln(w, "Route Statistics")
	fmt.Fprintln(w, "────────────────")
	fmt.Fprintf(w, "Total routes:        %d\n", total)
	fmt.Fprintf(w, "Airlines:            %d\n", len(airlines))
	fmt.Fprintf(w, "Codeshare routes:    %d\n", codeshare)
	fmt.Fprintf(w, "Routes with stops:   %d\n", withStops)
	if total > 0 {
		fmt.Fprintf(w, "Average distance:    %.1f mi\n", sum/float64(total))
	}

	// Distance distribution.
	fmt.Fprintln(w, "\nDistance Distribution:")
	fmt.Fprintf(w, "%-15s %10s\n", "Miles", "Count")
	for _, b := range distanceBuckets(routes) {
		fmt.Fprintf(w, "%-15s %10d\n", b.label, b.count)
	}

	// Longest routes (routes are sorted longest first).
	fmt.Fprintln(w, "\nTop 10 Longest Routes:")
	fmt.Fprintf(w, "%-8s %-6s %-6s %10s\n", "Airline", "Origin", "Dest", "Miles")
	for i, re := range routes {
		if i == 10 {
			break
		}
		fmt.Fprintf(w, "%-8s %-6s %-6s %10.1f\n", re.Route.AirlineIATA, re.Route.SourceIATA, re.Route.DestIATA, re.Distance)
	}
}

type bucket struct {
	label string
	count int
}

func distanceBuckets(routes []RouteExport) []bucket {
	buckets := []bucket{{label: "< 500"}, {label: "500-1500"}, {label: "1500-3000"}, {label: "3000-6000"}, {label: "6000+"}}
	for _, re := range routes {
		switch d := re.Distance; {
		case d < 500:
			buckets[0].count++
		case d < 1500:
			buckets[1].count++
		case d < 3000:
			buckets[2].count++
		case d < 6000:
			buckets[3].count++
		default:
			buckets[4].count++
		}
	}
	return buckets
}
