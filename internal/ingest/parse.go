// Package ingest reads OpenFlights-style airline, airport and route records.
//
// Each record is one comma-separated line. Fields may be double-quoted, with a
// doubled quote standing for a literal one. The placeholders \N and N/A mean
// "no value": text fields become empty and numeric fields take a default.
// Parsing never fails; a line with too few fields yields a zero record that
// the store later drops as malformed.
package ingest

import (
	"encoding/csv"
	"strconv"
	"strings"

	"airroutes/internal/store"
)

// Minimum field counts for each record kind.
const (
	airlineFields = 8
	airportFields = 14
	routeFields   = 9
)

// SplitLine splits one delimited line into fields.
func SplitLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	fields, err := r.Read()
	if err != nil {
		// Unbalanced quoting; fall back to a plain split.
		return strings.Split(line, ",")
	}
	return fields
}

// isPlaceholder reports whether s stands for a missing value.
func isPlaceholder(s string) bool {
	return s == "" || s == `\N` || s == "N/A"
}

func text(s string) string {
	if isPlaceholder(s) {
		return ""
	}
	return s
}

func integer(s string, def int) int {
	if isPlaceholder(s) {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func float(s string, def float64) float64 {
	if isPlaceholder(s) {
		return def
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

// ParseAirline parses an airline line:
// id,name,alias,iata,icao,callsign,country,active
func ParseAirline(line string) store.Airline {
	f := SplitLine(line)
	if len(f) < airlineFields {
		return store.Airline{}
	}
	return store.Airline{
		ID:       integer(f[0], 0),
		Name:     text(f[1]),
		Alias:    text(f[2]),
		IATA:     text(f[3]),
		ICAO:     text(f[4]),
		Callsign: text(f[5]),
		Country:  text(f[6]),
		Active:   text(f[7]),
	}
}

// ParseAirport parses an airport line:
// id,name,city,country,iata,icao,lat,lon,altitude,timezone,dst,tz,type,source
func ParseAirport(line string) store.Airport {
	f := SplitLine(line)
	if len(f) < airportFields {
		return store.Airport{}
	}
	return store.Airport{
		ID:        integer(f[0], 0),
		Name:      text(f[1]),
		City:      text(f[2]),
		Country:   text(f[3]),
		IATA:      text(f[4]),
		ICAO:      text(f[5]),
		Latitude:  float(f[6], 0),
		Longitude: float(f[7], 0),
		Altitude:  integer(f[8], 0),
		Timezone:  float(f[9], 0),
		DST:       text(f[10]),
		TZ:        text(f[11]),
		Type:      text(f[12]),
		Source:    text(f[13]),
	}
}

// ParseRoute parses a route line:
// airline,airline_id,source,source_id,dest,dest_id,codeshare,stops,equipment
// Unknown numeric IDs are -1 and are resolved by the store on load.
func ParseRoute(line string) store.Route {
	f := SplitLine(line)
	if len(f) < routeFields {
		return store.Route{}
	}
	return store.Route{
		AirlineIATA: text(f[0]),
		AirlineID:   integer(f[1], -1),
		SourceIATA:  text(f[2]),
		SourceID:    integer(f[3], -1),
		DestIATA:    text(f[4]),
		DestID:      integer(f[5], -1),
		Codeshare:   text(f[6]),
		Stops:       integer(f[7], 0),
		Equipment:   text(f[8]),
	}
}
