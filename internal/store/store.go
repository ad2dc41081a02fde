// Package store holds the airline, airport and route reference data in memory.
//
// The canonical collections are plain slices; every lookup structure (by IATA
// code, by numeric ID, by route endpoint and by operating airline) is derived
// from them and rebuilt in full after each structural mutation, so the indexes
// can never drift from the data. A single RWMutex guards the collections and the
// indexes as one unit: mutations hold the write lock for the whole
// validate-mutate-rebuild sequence and readers never observe a store mid-rebuild.
package store

import (
	"sort"
	"sync"
	"time"
)

// Entity names the kind of record a Change refers to.
type Entity string

const (
	EntityAirline Entity = "airline"
	EntityAirport Entity = "airport"
	EntityRoute   Entity = "route"
)

// Op names the mutation a Change describes.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes a successful mutation.
type Change struct {
	Seq      uint64 `json:"seq"`                // Commit order, starting at 1.
	Entity   Entity `json:"entity"`
	Op       Op     `json:"op"`
	Key      string `json:"key"`                // IATA code, or the route ID in decimal.
	Cascaded int    `json:"cascaded,omitempty"` // Routes removed along with an airline or airport.
}

// Stats summarises the store contents and index maintenance.
type Stats struct {
	Airlines    int
	Airports    int
	Routes      int
	Rebuilds    int
	LastRebuild time.Duration
}

// Store is the in-memory reference dataset.
type Store struct {
	mu sync.RWMutex

	airlines []*Airline
	airports []*Airport
	routes   []*Route // Insertion order.

	idx         index
	nextRouteID int64
	seq         uint64 // Last change sequence number.

	rebuilds    int
	lastRebuild time.Duration

	// Callbacks for change notifications.
	onChange []func(Change)
}

// index holds every structure derived from the canonical collections.
type index struct {
	airlineByIATA map[string]*Airline
	airlineByID   map[int]*Airline
	airportByIATA map[string]*Airport
	airportByID   map[int]*Airport

	routeByID map[int64]*Route
	routeKeys map[routeKey]*Route

	bySource  map[string][]*Route
	byDest    map[string][]*Route
	byAirline map[string][]*Route
}

// New creates an empty store.
func New() *Store {
	s := &Store{}
	s.rebuild()
	return s
}

// OnChange registers a callback invoked after every successful mutation.
// Callbacks run outside the store lock and may read from the store. Concurrent
// mutations can deliver their changes out of order; Change.Seq gives the order
// in which they were committed.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hooks := make([]func(Change), 0, len(s.onChange)+1)
	hooks = append(hooks, s.onChange...)
	s.onChange = append(hooks, fn)
}

// nextSeq numbers a committed mutation. The caller holds the write lock.
func (s *Store) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	hooks := s.onChange
	s.mu.RUnlock()

	for _, fn := range hooks {
		fn(c)
	}
}

// rebuild recomputes every derived index from the canonical collections.
// Callers must hold the write lock.
func (s *Store) rebuild() {
	start := time.Now()

	idx := index{
		airlineByIATA: make(map[string]*Airline, len(s.airlines)),
		airlineByID:   make(map[int]*Airline, len(s.airlines)),
		airportByIATA: make(map[string]*Airport, len(s.airports)),
		airportByID:   make(map[int]*Airport, len(s.airports)),
		routeByID:     make(map[int64]*Route, len(s.routes)),
		routeKeys:     make(map[routeKey]*Route, len(s.routes)),
		bySource:      make(map[string][]*Route),
		byDest:        make(map[string][]*Route),
		byAirline:     make(map[string][]*Route),
	}

	for _, a := range s.airlines {
		idx.airlineByID[a.ID] = a
		if a.IATA != "" {
			idx.airlineByIATA[a.IATA] = a
		}
	}
	for _, a := range s.airports {
		idx.airportByID[a.ID] = a
		if a.IATA != "" {
			idx.airportByIATA[a.IATA] = a
		}
	}
	for _, r := range s.routes {
		idx.routeByID[r.ID] = r
		idx.routeKeys[r.key()] = r
		idx.bySource[r.SourceIATA] = append(idx.bySource[r.SourceIATA], r)
		idx.byDest[r.DestIATA] = append(idx.byDest[r.DestIATA], r)
		idx.byAirline[r.AirlineIATA] = append(idx.byAirline[r.AirlineIATA], r)
	}

	s.idx = idx
	s.rebuilds++
	s.lastRebuild = time.Since(start)
}

// Stats returns entity counts and index maintenance figures.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		Airlines:    len(s.airlines),
		Airports:    len(s.airports),
		Routes:      len(s.routes),
		Rebuilds:    s.rebuilds,
		LastRebuild: s.lastRebuild,
	}
}

// AirlineByIATA returns the airline with the given code, or the zero Airline
// (ID 0) when there is none.
func (s *Store) AirlineByIATA(code string) Airline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{s}.AirlineByIATA(code)
}

// AirlineByID returns the airline with the given ID, or the zero Airline.
func (s *Store) AirlineByID(id int) Airline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.idx.airlineByID[id]; ok {
		return *a
	}
	return Airline{}
}

// AirportByIATA returns the airport with the given code, or the zero Airport.
func (s *Store) AirportByIATA(code string) Airport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{s}.AirportByIATA(code)
}

// AirportByID returns the airport with the given ID, or the zero Airport.
func (s *Store) AirportByID(id int) Airport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.idx.airportByID[id]; ok {
		return *a
	}
	return Airport{}
}

// Route returns the route with the given stable ID.
func (s *Store) Route(id int64) (Route, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.idx.routeByID[id]; ok {
		return *r, true
	}
	return Route{}, false
}

// Routes returns every route in insertion order.
func (s *Store) Routes() []Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyRoutes(s.routes)
}

// RouteCount returns the number of stored routes.
func (s *Store) RouteCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.routes)
}

// Airlines returns every airline ordered by ascending IATA code.
func (s *Store) Airlines() []Airline {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{s}.Airlines()
}

// Airports returns every airport ordered by ascending IATA code.
func (s *Store) Airports() []Airport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return View{s}.Airports()
}

// View runs fn with a consistent read-only view of the store. The view must not
// be retained after fn returns.
func (s *Store) View(fn func(v View)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(View{s})
}

// View is a read-only window onto the store, valid inside Store.View.
type View struct {
	s *Store
}

// AirlineByIATA returns the airline with the given code, or the zero Airline.
func (v View) AirlineByIATA(code string) Airline {
	if a, ok := v.s.idx.airlineByIATA[code]; ok {
		return *a
	}
	return Airline{}
}

// AirportByIATA returns the airport with the given code, or the zero Airport.
func (v View) AirportByIATA(code string) Airport {
	if a, ok := v.s.idx.airportByIATA[code]; ok {
		return *a
	}
	return Airport{}
}

// RoutesFrom returns the routes departing the given airport.
func (v View) RoutesFrom(code string) []Route {
	return copyRoutes(v.s.idx.bySource[code])
}

// RoutesTo returns the routes arriving at the given airport.
func (v View) RoutesTo(code string) []Route {
	return copyRoutes(v.s.idx.byDest[code])
}

// RoutesByAirline returns the routes operated by the given airline.
func (v View) RoutesByAirline(code string) []Route {
	return copyRoutes(v.s.idx.byAirline[code])
}

// Airlines returns every airline ordered by ascending IATA code, then ID.
func (v View) Airlines() []Airline {
	out := make([]Airline, 0, len(v.s.airlines))
	for _, a := range v.s.airlines {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IATA != out[j].IATA {
			return out[i].IATA < out[j].IATA
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Airports returns every airport ordered by ascending IATA code, then ID.
func (v View) Airports() []Airport {
	out := make([]Airport, 0, len(v.s.airports))
	for _, a := range v.s.airports {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IATA != out[j].IATA {
			return out[i].IATA < out[j].IATA
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func copyRoutes(in []*Route) []Route {
	if len(in) == 0 {
		return nil
	}
	out := make([]Route, len(in))
	for i, r := range in {
		out[i] = *r
	}
	return out
}
