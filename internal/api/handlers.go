package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"airroutes/internal/query"
	"airroutes/internal/storage"
	"airroutes/internal/store"
)

// Page is one page of a listing.
type Page[T any] struct {
	query.Window
	Items []T `json:"items"`
}

func paginate[T any](r *http.Request, all []T) Page[T] {
	w := query.Page(len(all), queryInt(r, "page", 1), queryInt(r, "size", 0))
	return Page[T]{Window: w, Items: all[w.Start:w.End]}
}

// DirectResponse is the JSON response for direct route queries.
type DirectResponse struct {
	Source   store.Airport       `json:"source"`
	Dest     store.Airport       `json:"dest"`
	Distance float64             `json:"distance"`
	Routes   []query.DirectRoute `json:"routes"`
}

// OneHopResponse is the JSON response for one-hop route queries.
type OneHopResponse struct {
	Source    store.Airport       `json:"source"`
	Dest      store.Airport       `json:"dest"`
	HopPolicy string              `json:"hop_policy"`
	Routes    []query.OneHopRoute `json:"routes"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"time":     time.Now().UTC().Format(time.RFC3339),
		"airlines": st.Airlines,
		"airports": st.Airports,
		"routes":   st.Routes,
	})
}

func (s *Server) handleAirlines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.AllAirlinesSorted())
}

func (s *Server) handleAirlinesPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.engine.AllAirlinesSorted()))
}

func (s *Server) handleAirline(w http.ResponseWriter, r *http.Request) {
	a := s.store.AirlineByIATA(code(r, "iata"))
	if !a.Found() {
		writeError(w, http.StatusNotFound, "Airline not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleAirlineAirports(w http.ResponseWriter, r *http.Request) {
	iata := code(r, "iata")
	if !s.store.AirlineByIATA(iata).Found() {
		writeError(w, http.StatusNotFound, "Airline not found")
		return
	}

	start := time.Now()
	counts := s.engine.AirportsByAirline(iata)
	s.metrics.ObserveQuery("airports_by_airline", time.Since(start))

	if counts == nil {
		counts = []query.AirportRouteCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleAirports(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.AllAirportsSorted())
}

func (s *Server) handleAirportsPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.engine.AllAirportsSorted()))
}

func (s *Server) handleAirport(w http.ResponseWriter, r *http.Request) {
	a := s.store.AirportByIATA(code(r, "iata"))
	if !a.Found() {
		writeError(w, http.StatusNotFound, "Airport not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) handleAirportAirlines(w http.ResponseWriter, r *http.Request) {
	iata := code(r, "iata")
	if !s.store.AirportByIATA(iata).Found() {
		writeError(w, http.StatusNotFound, "Airport not found")
		return
	}

	start := time.Now()
	counts := s.engine.AirlinesByAirport(iata)
	s.metrics.ObserveQuery("airlines_by_airport", time.Since(start))

	if counts == nil {
		counts = []query.AirlineRouteCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleSearchAirports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}

	start := time.Now()
	results := s.engine.SearchAirports(q, queryInt(r, "limit", query.DefaultSearchLimit))
	s.metrics.ObserveQuery("search", time.Since(start))

	if results == nil {
		results = []store.Airport{}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleTopAirports(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	top := s.engine.TopAirports(queryInt(r, "limit", query.DefaultTopLimit))
	s.metrics.ObserveQuery("top_airports", time.Since(start))

	writeJSON(w, http.StatusOK, top)
}

func (s *Server) handleGeographic(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	summary := s.engine.Countries(queryInt(r, "limit", query.DefaultCountries))
	s.metrics.ObserveQuery("countries", time.Since(start))

	writeJSON(w, http.StatusOK, summary)
}

// endpoints resolves the source and destination path parameters. It writes a
// 404 and returns false when either airport is unknown.
func (s *Server) endpoints(w http.ResponseWriter, r *http.Request) (src, dst store.Airport, ok bool) {
	src = s.store.AirportByIATA(code(r, "source"))
	if !src.Found() {
		writeError(w, http.StatusNotFound, "Source airport not found")
		return src, dst, false
	}
	dst = s.store.AirportByIATA(code(r, "dest"))
	if !dst.Found() {
		writeError(w, http.StatusNotFound, "Destination airport not found")
		return src, dst, false
	}
	return src, dst, true
}

func (s *Server) handleDirect(w http.ResponseWriter, r *http.Request) {
	src, dst, ok := s.endpoints(w, r)
	if !ok {
		return
	}

	start := time.Now()
	routes := s.engine.DirectRoutes(src.IATA, dst.IATA)
	elapsed := time.Since(start)
	s.metrics.ObserveQuery("direct", elapsed)

	var best float64
	if len(routes) > 0 {
		best = routes[0].Distance
	} else {
		routes = []query.DirectRoute{}
	}
	s.recordSearch(r, "direct", src.IATA, dst.IATA, len(routes), best, elapsed)

	writeJSON(w, http.StatusOK, DirectResponse{
		Source:   src,
		Dest:     dst,
		Distance: query.Distance(src, dst),
		Routes:   routes,
	})
}

func (s *Server) handleOneHop(w http.ResponseWriter, r *http.Request) {
	src, dst, ok := s.endpoints(w, r)
	if !ok {
		return
	}

	start := time.Now()
	routes := s.engine.OneHopRoutes(src.IATA, dst.IATA)
	elapsed := time.Since(start)
	s.metrics.ObserveQuery("onehop", elapsed)

	var best float64
	if len(routes) > 0 {
		best = routes[0].Distance
	} else {
		routes = []query.OneHopRoute{}
	}
	s.recordSearch(r, "onehop", src.IATA, dst.IATA, len(routes), best, elapsed)

	writeJSON(w, http.StatusOK, OneHopResponse{
		Source:    src,
		Dest:      dst,
		HopPolicy: s.engine.HopPolicy().String(),
		Routes:    routes,
	})
}

// recordSearch hands the search to the analytics log. Failures never reach the caller.
func (s *Server) recordSearch(r *http.Request, kind, src, dst string, results int, best float64, elapsed time.Duration) {
	err := s.searches.RecordSearch(r.Context(), storage.SearchRecord{
		SearchedAt:   time.Now().UTC(),
		Kind:         kind,
		Source:       src,
		Dest:         dst,
		Results:      results,
		BestDistance: best,
		Duration:     elapsed,
	})
	if err != nil {
		s.logger.Debug("search not recorded", zap.String("kind", kind), zap.Error(err))
	}
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	route, found := s.store.Route(id)
	if !found {
		writeError(w, http.StatusNotFound, "Route not found")
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) handleTopSearches(w http.ResponseWriter, r *http.Request) {
	if s.searchStats == nil {
		writeError(w, http.StatusServiceUnavailable, "Search analytics is disabled")
		return
	}

	hours := queryInt(r, "hours", 24)
	if hours <= 0 {
		writeError(w, http.StatusBadRequest, "hours must be positive")
		return
	}
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	top, err := s.searchStats.TopSearches(r.Context(), since, queryInt(r, "limit", 20))
	if err != nil {
		s.logger.Warn("top searches query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if top == nil {
		top = []storage.PairCount{}
	}
	writeJSON(w, http.StatusOK, top)
}

var errInvalidRouteID = errors.New("invalid route ID")

// routeID parses the {id} path parameter.
func routeID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidRouteID
	}
	return id, nil
}
