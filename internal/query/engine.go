// Package query derives read-only views over the airline, airport and route
// store: usage counts, direct and one-hop connections, listings and reports.
package query

import (
	"sort"

	"airroutes/internal/geo"
	"airroutes/internal/store"
)

// HopPolicy decides which first-leg airlines a one-hop result reports when
// several routes from the source reach the same intermediate airport.
type HopPolicy int

const (
	// CollectAirlines reports every distinct first-leg airline.
	CollectAirlines HopPolicy = iota
	// LastSeenAirline keeps only the last route scanned for each intermediate.
	LastSeenAirline
)

// String returns the policy name used in configuration.
func (p HopPolicy) String() string {
	switch p {
	case LastSeenAirline:
		return "last-seen"
	default:
		return "collect"
	}
}

// ParseHopPolicy maps a configuration value to a HopPolicy. Unknown values
// select CollectAirlines.
func ParseHopPolicy(s string) HopPolicy {
	if s == "last-seen" || s == "last_seen" {
		return LastSeenAirline
	}
	return CollectAirlines
}

// Option configures an Engine.
type Option func(*Engine)

// WithHopPolicy sets the one-hop airline collision policy.
func WithHopPolicy(p HopPolicy) Option {
	return func(e *Engine) {
		e.hopPolicy = p
	}
}

// Engine answers queries against a store. It never mutates the store.
type Engine struct {
	store     *store.Store
	hopPolicy HopPolicy
}

// New creates a query engine over s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{store: s}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HopPolicy returns the configured one-hop collision policy.
func (e *Engine) HopPolicy() HopPolicy {
	return e.hopPolicy
}

// AirportRouteCount is an airport with the number of route endpoints it
// accounts for in an airline's network.
type AirportRouteCount struct {
	Airport    store.Airport `json:"airport"`
	RouteCount int           `json:"route_count"`
}

// AirlineRouteCount is an airline with the number of routes it flies through
// an airport.
type AirlineRouteCount struct {
	Airline    store.Airline `json:"airline"`
	RouteCount int           `json:"route_count"`
}

// AirportsByAirline returns the airports served by an airline, busiest first.
// Both ends of every route count toward an airport's total.
func (e *Engine) AirportsByAirline(code string) []AirportRouteCount {
	var out []AirportRouteCount
	e.store.View(func(v store.View) {
		counts := make(map[string]int)
		for _, r := range v.RoutesByAirline(code) {
			counts[r.SourceIATA]++
			counts[r.DestIATA]++
		}
		for iata, n := range counts {
			a := v.AirportByIATA(iata)
			if !a.Found() {
				continue
			}
			out = append(out, AirportRouteCount{Airport: a, RouteCount: n})
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].RouteCount != out[j].RouteCount {
			return out[i].RouteCount > out[j].RouteCount
		}
		return out[i].Airport.IATA < out[j].Airport.IATA
	})
	return out
}

// AirlinesByAirport returns the airlines flying into or out of an airport,
// busiest first.
func (e *Engine) AirlinesByAirport(code string) []AirlineRouteCount {
	var out []AirlineRouteCount
	e.store.View(func(v store.View) {
		out = airlinesByAirport(v, code)
	})
	return out
}

func airlinesByAirport(v store.View, code string) []AirlineRouteCount {
	counts := make(map[string]int)
	for _, r := range v.RoutesFrom(code) {
		counts[r.AirlineIATA]++
	}
	for _, r := range v.RoutesTo(code) {
		counts[r.AirlineIATA]++
	}

	out := make([]AirlineRouteCount, 0, len(counts))
	for iata, n := range counts {
		a := v.AirlineByIATA(iata)
		if !a.Found() {
			continue
		}
		out = append(out, AirlineRouteCount{Airline: a, RouteCount: n})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RouteCount != out[j].RouteCount {
			return out[i].RouteCount > out[j].RouteCount
		}
		return out[i].Airline.IATA < out[j].Airline.IATA
	})
	return out
}

// Distance returns the great-circle distance between two airports in statute miles.
func Distance(a, b store.Airport) float64 {
	return geo.Miles(a.Point(), b.Point())
}

// AllAirlinesSorted returns every airline ordered by IATA code.
func (e *Engine) AllAirlinesSorted() []store.Airline {
	return e.store.Airlines()
}

// AllAirportsSorted returns every airport ordered by IATA code.
func (e *Engine) AllAirportsSorted() []store.Airport {
	return e.store.Airports()
}
