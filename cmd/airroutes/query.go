package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"airroutes/internal/query"
	"airroutes/internal/store"
)

// prepareQuery loads the store and checks that both airports exist.
func prepareQuery(cmd *cobra.Command, args []string) (*query.Engine, string, string, error) {
	s, _, err := loadStore(cmd.Context())
	if err != nil {
		return nil, "", "", err
	}

	src, dst := strings.ToUpper(args[0]), strings.ToUpper(args[1])
	for _, code := range []string{src, dst} {
		if !s.AirportByIATA(code).Found() {
			return nil, "", "", fmt.Errorf("unknown airport %q", code)
		}
	}

	return query.New(s, query.WithHopPolicy(query.ParseHopPolicy(cfg.Query.HopPolicy))), src, dst, nil
}

func runQueryDirect(cmd *cobra.Command, args []string) error {
	engine, src, dst, err := prepareQuery(cmd, args)
	if err != nil {
		return err
	}

	routes := engine.DirectRoutes(src, dst)
	if routes == nil {
		routes = []query.DirectRoute{}
	}
	return printJSON(cmd.OutOrStdout(), routes)
}

func runQueryOneHop(cmd *cobra.Command, args []string) error {
	engine, src, dst, err := prepareQuery(cmd, args)
	if err != nil {
		return err
	}

	routes := engine.OneHopRoutes(src, dst)
	if routes == nil {
		routes = []query.OneHopRoute{}
	}
	return printJSON(cmd.OutOrStdout(), routes)
}

func runStats(cmd *cobra.Command, _ []string) error {
	s, report, err := loadStore(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Source: %s\n\n", cfg.Data.Source)
	fmt.Fprintf(out, "%-10s %8s %10s %10s %9s\n", "", "loaded", "malformed", "duplicate", "dangling")
	printLoad(out, "airlines", report.Airlines)
	printLoad(out, "airports", report.Airports)
	printLoad(out, "routes", report.Routes)

	st := s.Stats()
	fmt.Fprintf(out, "\nIndex rebuilds: %d (last took %s)\n", st.Rebuilds, st.LastRebuild)

	engine := query.New(s)
	fmt.Fprintln(out, "\nBusiest airports:")
	for i, a := range engine.TopAirports(5) {
		fmt.Fprintf(out, "  %d. %-4s %-45s %5d routes, %3d airlines\n",
			i+1, a.Airport.IATA, a.Airport.Name, a.RouteCount, a.AirlineCount)
	}

	countries := engine.Countries(5)
	fmt.Fprintf(out, "\nCountries: %d\n", countries.TotalCountries)
	for _, c := range countries.Countries {
		fmt.Fprintf(out, "  %-30s %5d airports\n", c.Country, c.Count)
	}
	return nil
}

func printLoad(w io.Writer, name string, st store.LoadStats) {
	fmt.Fprintf(w, "%-10s %8d %10d %10d %9d\n", name, st.Loaded, st.Malformed, st.Duplicate, st.Dangling)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
