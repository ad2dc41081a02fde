// Package main provides the airroutes command.
//
// airroutes holds the OpenFlights airline, airport and route dataset in
// memory and answers lookups, route queries and mutations over HTTP.
//
// Usage:
//
//	airroutes serve [--port N]          Serve the REST API
//	airroutes import --target sqlite    Seed a database from the .dat files
//	airroutes query direct LAX JFK      Print direct routes as JSON
//	airroutes query onehop LAX JFK      Print one-stop connections as JSON
//	airroutes stats                     Print the dataset load report
//
// Global options:
//
//	-c, --config FILE     YAML configuration file
//	--data-dir DIR        Directory holding airlines.dat, airports.dat, routes.dat (env: DATA_DIR)
//	--source NAME         Dataset source: files, sqlite or postgres (env: DATA_SOURCE)
//	--hop-policy NAME     One-hop airline policy: collect or last-seen (env: HOP_POLICY)
//	--log-level LEVEL     DEBUG, INFO, WARN or ERROR (env: LOGGING_LEVEL)
//
// API Endpoints (under /api/v1):
//
//	GET    /health
//	GET    /airlines, /airlines/list?page&size, /airline/{iata}, /airline/{iata}/routes
//	GET    /airports, /airports/list?page&size, /airports/search?q, /airports/top?limit,
//	       /airports/geographic, /airport/{iata}, /airport/{iata}/airlines
//	GET    /direct/{source}/{dest}, /onehop/{source}/{dest}, /route/{id}
//	GET    /searches/top?hours&limit
//	POST   /airline/insert, /airline/{iata}/update, /airport/insert,
//	       /airport/{iata}/update, /route/insert, /route/{id}/update
//	DELETE /airline/{iata}, /airport/{iata}, /route/{id}
//
// Prometheus metrics are served at /metrics.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
