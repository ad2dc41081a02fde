package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"airroutes/internal/query"
	"airroutes/internal/storage"
	"airroutes/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New()

	s.LoadAirlines([]store.Airline{
		{ID: 24, Name: "American Airlines", IATA: "AA", ICAO: "AAL", Country: "United States", Active: "Y"},
		{ID: 5209, Name: "United Airlines", IATA: "UA", ICAO: "UAL", Country: "United States", Active: "Y"},
	})
	s.LoadAirports([]store.Airport{
		{ID: 3484, Name: "Los Angeles International Airport", City: "Los Angeles", Country: "United States", IATA: "LAX", Latitude: 33.942501, Longitude: -118.407997},
		{ID: 3797, Name: "John F Kennedy International Airport", City: "New York", Country: "United States", IATA: "JFK", Latitude: 40.63980103, Longitude: -73.77890015},
		{ID: 3830, Name: "Chicago O'Hare International Airport", City: "Chicago", Country: "United States", IATA: "ORD", Latitude: 41.9786, Longitude: -87.9048},
		{ID: 3361, Name: "Sydney Kingsford Smith International Airport", City: "Sydney", Country: "Australia", IATA: "SYD", Latitude: -33.94609833, Longitude: 151.177002},
	})
	st := s.LoadRoutes([]store.Route{
		{AirlineIATA: "AA", SourceIATA: "LAX", DestIATA: "JFK"},
		{AirlineIATA: "UA", SourceIATA: "LAX", DestIATA: "ORD"},
		{AirlineIATA: "AA", SourceIATA: "ORD", DestIATA: "JFK"},
		{AirlineIATA: "UA", SourceIATA: "ORD", DestIATA: "JFK"},
	})
	if st.Loaded != 4 {
		t.Fatalf("fixture routes not loaded: %+v", st)
	}
	return s
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) (*Server, http.Handler) {
	t.Helper()
	s := newTestStore(t)
	server := NewServer(s, query.New(s), cfg, opts...)
	return server, server.Router()
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestHealthEndpoint(t *testing.T) {
	_, router := newTestServer(t, Config{})

	rec := doRequest(router, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	resp := decode[map[string]any](t, rec)
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}
	if resp["routes"] != float64(4) || resp["airports"] != float64(4) || resp["airlines"] != float64(2) {
		t.Errorf("unexpected counts %v", resp)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := newTestServer(t, Config{APIKeys: []string{"test-key-123", "another-key"}})

	tests := []struct {
		name       string
		path       string
		apiKey     string
		keyHeader  string
		wantStatus int
	}{
		{
			name:       "no key",
			path:       "/api/v1/health",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid key",
			path:       "/api/v1/health",
			apiKey:     "wrong-key",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "valid key via X-API-Key",
			path:       "/api/v1/health",
			apiKey:     "test-key-123",
			keyHeader:  "X-API-Key",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid key via Bearer",
			path:       "/api/v1/health",
			apiKey:     "another-key",
			keyHeader:  "Authorization",
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid key via query parameter",
			path:       "/api/v1/health?api_key=test-key-123",
			wantStatus: http.StatusOK,
		},
		{
			name:       "metrics are not behind auth",
			path:       "/metrics",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.apiKey != "" {
				if tt.keyHeader == "Authorization" {
					req.Header.Set("Authorization", "Bearer "+tt.apiKey)
				} else {
					req.Header.Set(tt.keyHeader, tt.apiKey)
				}
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	_, router := newTestServer(t, Config{APIKeys: []string{"k"}, CORSOrigin: "https://routes.example"})

	rec := doRequest(router, http.MethodOptions, "/api/v1/airline/insert", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected preflight to pass without a key, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://routes.example" {
		t.Errorf("unexpected allow-origin %q", got)
	}
}

func TestLookups(t *testing.T) {
	_, router := newTestServer(t, Config{})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/api/v1/airline/aa", http.StatusOK},
		{"/api/v1/airline/ZZ", http.StatusNotFound},
		{"/api/v1/airport/SYD", http.StatusOK},
		{"/api/v1/airport/XXX", http.StatusNotFound},
		{"/api/v1/airline/UA/routes", http.StatusOK},
		{"/api/v1/airline/ZZ/routes", http.StatusNotFound},
		{"/api/v1/airport/JFK/airlines", http.StatusOK},
		{"/api/v1/route/1", http.StatusOK},
		{"/api/v1/route/99", http.StatusNotFound},
		{"/api/v1/route/abc", http.StatusBadRequest},
		{"/api/v1/airlines", http.StatusOK},
		{"/api/v1/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if rec := doRequest(router, http.MethodGet, tt.path, ""); rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}

	rec := doRequest(router, http.MethodGet, "/api/v1/airport/JFK/airlines", "")
	counts := decode[[]query.AirlineRouteCount](t, rec)
	if len(counts) != 2 || counts[0].Airline.IATA != "AA" || counts[0].RouteCount != 2 {
		t.Errorf("unexpected airline counts %+v", counts)
	}
}

func TestDirectRoutes(t *testing.T) {
	_, router := newTestServer(t, Config{})

	rec := doRequest(router, http.MethodGet, "/api/v1/direct/lax/jfk", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	resp := decode[DirectResponse](t, rec)
	if len(resp.Routes) != 1 || resp.Routes[0].AirlineName != "American Airlines" {
		t.Fatalf("unexpected routes %+v", resp.Routes)
	}
	if resp.Distance < 2465 || resp.Distance > 2480 {
		t.Errorf("LAX-JFK distance %.1f out of range", resp.Distance)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/direct/SYD/JFK", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"routes":[]`) {
		t.Errorf("expected empty routes array, got %d %s", rec.Code, rec.Body.String())
	}

	if rec := doRequest(router, http.MethodGet, "/api/v1/direct/LAX/XXX", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown destination, got %d", rec.Code)
	}
}

func TestOneHopRoutes(t *testing.T) {
	_, router := newTestServer(t, Config{})

	rec := doRequest(router, http.MethodGet, "/api/v1/onehop/LAX/JFK", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	resp := decode[OneHopResponse](t, rec)
	if resp.HopPolicy != "collect" {
		t.Errorf("unexpected hop policy %q", resp.HopPolicy)
	}
	if len(resp.Routes) != 1 {
		t.Fatalf("expected 1 connection, got %+v", resp.Routes)
	}
	hop := resp.Routes[0]
	if hop.Intermediate.IATA != "ORD" || len(hop.Airlines) != 1 || hop.Airlines[0] != "UA" || len(hop.ConnectingAirlines) != 2 {
		t.Errorf("unexpected connection %+v", hop)
	}

	if rec := doRequest(router, http.MethodGet, "/api/v1/onehop/XXX/JFK", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown source, got %d", rec.Code)
	}
}

func TestMutations(t *testing.T) {
	server, router := newTestServer(t, Config{})

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		wantStatus  int
		wantSuccess bool
		wantMessage string
	}{
		{
			name:        "insert airline",
			method:      http.MethodPost,
			path:        "/api/v1/airline/insert",
			body:        `{"name": "Delta Air Lines", "iata": "DL", "country": "United States"}`,
			wantStatus:  http.StatusOK,
			wantSuccess: true,
			wantMessage: "Airline inserted successfully with ID 5210",
		},
		{
			name:        "duplicate airline",
			method:      http.MethodPost,
			path:        "/api/v1/airline/insert",
			body:        `{"name": "Delta", "iata": "DL"}`,
			wantStatus:  http.StatusConflict,
			wantMessage: "airline with IATA code DL already exists",
		},
		{
			name:        "invalid JSON",
			method:      http.MethodPost,
			path:        "/api/v1/airport/insert",
			body:        `not json`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "invalid JSON",
		},
		{
			name:        "latitude out of range",
			method:      http.MethodPost,
			path:        "/api/v1/airport/insert",
			body:        `{"iata": "BAD", "latitude": 100}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "invalid request",
		},
		{
			name:        "route with unknown airport",
			method:      http.MethodPost,
			path:        "/api/v1/route/insert",
			body:        `{"airline_iata": "DL", "source_iata": "LAX", "dest_iata": "SFO"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "destination airport with IATA code SFO does not exist",
		},
		{
			name:        "insert route",
			method:      http.MethodPost,
			path:        "/api/v1/route/insert",
			body:        `{"airline_iata": "DL", "source_iata": "LAX", "dest_iata": "SYD", "equipment": "77W"}`,
			wantStatus:  http.StatusOK,
			wantSuccess: true,
			wantMessage: "Route inserted successfully",
		},
		{
			name:        "duplicate route",
			method:      http.MethodPost,
			path:        "/api/v1/route/4/update",
			body:        `{"airline_iata": "AA"}`,
			wantStatus:  http.StatusConflict,
			wantMessage: "route AA ORD-JFK already exists",
		},
		{
			name:        "immutable airport code",
			method:      http.MethodPost,
			path:        "/api/v1/airport/SYD/update",
			body:        `{"iata": "SXX"}`,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "cannot change airport IATA code",
		},
		{
			name:        "update airport",
			method:      http.MethodPost,
			path:        "/api/v1/airport/SYD/update",
			body:        `{"city": "Sydney NSW", "tz": "Australia/Sydney"}`,
			wantStatus:  http.StatusOK,
			wantSuccess: true,
			wantMessage: "Airport updated successfully",
		},
		{
			name:        "delete airport cascades",
			method:      http.MethodDelete,
			path:        "/api/v1/airport/ORD",
			wantStatus:  http.StatusOK,
			wantSuccess: true,
			wantMessage: "Airport and all routes to/from it deleted successfully (3 routes removed)",
		},
		{
			name:        "delete missing route",
			method:      http.MethodDelete,
			path:        "/api/v1/route/2",
			wantStatus:  http.StatusNotFound,
			wantMessage: "route ID 2 not found",
		},
		{
			name:        "delete route",
			method:      http.MethodDelete,
			path:        "/api/v1/route/1",
			wantStatus:  http.StatusOK,
			wantSuccess: true,
			wantMessage: "Route deleted successfully",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			res := decode[store.Result](t, rec)
			if res.Success != tt.wantSuccess {
				t.Errorf("expected success=%v, got %+v", tt.wantSuccess, res)
			}
			if !strings.HasPrefix(res.Message, tt.wantMessage) {
				t.Errorf("expected message starting %q, got %q", tt.wantMessage, res.Message)
			}
		})
	}

	dl := server.store.AirlineByIATA("DL")
	if dl.Active != "Y" {
		t.Errorf("expected inserted airline to default to active, got %q", dl.Active)
	}
	if got := server.store.AirportByIATA("SYD"); got.City != "Sydney NSW" || got.Name == "" {
		t.Errorf("unexpected airport after update %+v", got)
	}
	routes := server.store.Routes()
	if len(routes) != 1 || routes[0].ID != 5 || routes[0].DestIATA != "SYD" {
		t.Errorf("unexpected remaining routes %+v", routes)
	}
}

func TestMutationsNormalizeCodes(t *testing.T) {
	server, router := newTestServer(t, Config{})

	steps := []struct {
		name        string
		method      string
		path        string
		body        string
		wantMessage string
	}{
		{"insert lower-case airline", http.MethodPost, "/api/v1/airline/insert", `{"name": "Delta Air Lines", "iata": " dl "}`, "Airline inserted successfully"},
		{"insert lower-case airport", http.MethodPost, "/api/v1/airport/insert", `{"name": "Daniel K Inouye International Airport", "iata": "hnl", "latitude": 21.32, "longitude": -157.92}`, "Airport inserted successfully"},
		{"insert lower-case route", http.MethodPost, "/api/v1/route/insert", `{"airline_iata": "dl", "source_iata": "lax", "dest_iata": "hnl"}`, "Route inserted successfully"},
		{"update route with lower-case code", http.MethodPost, "/api/v1/route/5/update", `{"dest_iata": "jfk"}`, "Route updated successfully"},
		{"update airline through lower-case path", http.MethodPost, "/api/v1/airline/dl/update", `{"iata": "dl", "callsign": "DELTA"}`, "Airline updated successfully"},
	}

	for _, st := range steps {
		rec := doRequest(router, st.method, st.path, st.body)
		res := decode[store.Result](t, rec)
		if rec.Code != http.StatusOK || !res.Success || !strings.HasPrefix(res.Message, st.wantMessage) {
			t.Fatalf("%s: status %d, result %+v", st.name, rec.Code, res)
		}
	}

	if rec := doRequest(router, http.MethodGet, "/api/v1/airline/dl", ""); rec.Code != http.StatusOK {
		t.Errorf("expected inserted airline to be addressable, got %d", rec.Code)
	}
	if rt, ok := server.store.Route(5); !ok || rt.AirlineIATA != "DL" || rt.SourceIATA != "LAX" || rt.DestIATA != "JFK" {
		t.Errorf("unexpected route after update %+v", rt)
	}

	rec := doRequest(router, http.MethodDelete, "/api/v1/airline/dl", "")
	if res := decode[store.Result](t, rec); rec.Code != http.StatusOK || res.Message != "Airline and all its routes deleted successfully (1 routes removed)" {
		t.Errorf("unexpected delete result %d %+v", rec.Code, res)
	}
	if rec := doRequest(router, http.MethodDelete, "/api/v1/airport/hnl", ""); rec.Code != http.StatusOK {
		t.Errorf("expected lower-case airport delete to succeed, got %d", rec.Code)
	}
}

func TestListingsAndReports(t *testing.T) {
	_, router := newTestServer(t, Config{})

	rec := doRequest(router, http.MethodGet, "/api/v1/airports/list?page=1&size=2", "")
	page := decode[Page[store.Airport]](t, rec)
	if page.Total != 4 || page.PageSize != query.MinPageSize || len(page.Items) != 4 {
		t.Errorf("unexpected page %+v", page)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/airlines/list?page=2", "")
	airlines := decode[Page[store.Airline]](t, rec)
	if airlines.Page != 2 || len(airlines.Items) != 0 {
		t.Errorf("expected empty second page, got %+v", airlines)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/airports/list?page=4611686018427387904", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a page far past the end, got %d", rec.Code)
	}
	if far := decode[Page[store.Airport]](t, rec); len(far.Items) != 0 || far.Total != 4 {
		t.Errorf("expected empty page far past the end, got %+v", far)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/airports/search?q=j", "")
	found := decode[[]store.Airport](t, rec)
	if len(found) != 1 || found[0].IATA != "JFK" {
		t.Errorf("unexpected search results %+v", found)
	}
	if rec := doRequest(router, http.MethodGet, "/api/v1/airports/search", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without q, got %d", rec.Code)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/airports/top?limit=2", "")
	top := decode[[]query.AirportTraffic](t, rec)
	if len(top) != 2 || top[0].Airport.IATA != "JFK" || top[1].Airport.IATA != "ORD" || top[0].RouteCount != 3 {
		t.Errorf("unexpected top airports %+v", top)
	}

	rec = doRequest(router, http.MethodGet, "/api/v1/airports/geographic", "")
	summary := decode[query.CountrySummary](t, rec)
	if summary.TotalCountries != 2 || summary.Countries[0].Country != "United States" || summary.Countries[0].Count != 3 {
		t.Errorf("unexpected country summary %+v", summary)
	}
}

type fakeSearchLog struct {
	mu      sync.Mutex
	records []storage.SearchRecord
	err     error
}

func (f *fakeSearchLog) RecordSearch(_ context.Context, r storage.SearchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, r)
	return nil
}

type fakeSearchStats struct {
	top []storage.PairCount
	err error
}

func (f fakeSearchStats) TopSearches(context.Context, time.Time, int) ([]storage.PairCount, error) {
	return f.top, f.err
}

func TestSearchLogging(t *testing.T) {
	log := &fakeSearchLog{}
	_, router := newTestServer(t, Config{}, WithSearchLog(log))

	doRequest(router, http.MethodGet, "/api/v1/direct/LAX/JFK", "")
	doRequest(router, http.MethodGet, "/api/v1/onehop/LAX/JFK", "")
	doRequest(router, http.MethodGet, "/api/v1/direct/LAX/XXX", "")

	if len(log.records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(log.records))
	}
	if r := log.records[0]; r.Kind != "direct" || r.Source != "LAX" || r.Dest != "JFK" || r.Results != 1 || r.BestDistance == 0 {
		t.Errorf("unexpected direct record %+v", r)
	}
	if r := log.records[1]; r.Kind != "onehop" || r.Results != 1 {
		t.Errorf("unexpected onehop record %+v", r)
	}

	// A failing log never fails the search.
	failing := &fakeSearchLog{err: storage.ErrSearchLogFull}
	_, router = newTestServer(t, Config{}, WithSearchLog(failing))
	if rec := doRequest(router, http.MethodGet, "/api/v1/direct/LAX/JFK", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200 with failing search log, got %d", rec.Code)
	}
}

func TestTopSearches(t *testing.T) {
	_, router := newTestServer(t, Config{})
	if rec := doRequest(router, http.MethodGet, "/api/v1/searches/top", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when analytics is disabled, got %d", rec.Code)
	}

	stats := fakeSearchStats{top: []storage.PairCount{{Kind: "direct", Source: "LAX", Dest: "JFK", Count: 12}}}
	_, router = newTestServer(t, Config{}, WithSearchStats(stats))
	rec := doRequest(router, http.MethodGet, "/api/v1/searches/top?hours=6", "")
	top := decode[[]storage.PairCount](t, rec)
	if len(top) != 1 || top[0].Count != 12 {
		t.Errorf("unexpected top searches %+v", top)
	}

	_, router = newTestServer(t, Config{}, WithSearchStats(fakeSearchStats{err: errors.New("clickhouse: connection refused")}))
	if rec := doRequest(router, http.MethodGet, "/api/v1/searches/top", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on query failure, got %d", rec.Code)
	}
}

func TestRateLimit(t *testing.T) {
	_, router := newTestServer(t, Config{RateLimit: 0.001, RateBurst: 1})

	if rec := doRequest(router, http.MethodGet, "/api/v1/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	rec := doRequest(router, http.MethodGet, "/api/v1/health", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestServer(t, Config{})

	doRequest(router, http.MethodGet, "/api/v1/airline/AA", "")
	doRequest(router, http.MethodDelete, "/api/v1/airline/AA", "")

	body := doRequest(router, http.MethodGet, "/metrics", "").Body.String()
	for _, want := range []string{
		`route="/api/v1/airline/{iata}"`,
		`airroutes_mutations_total{entity="airline",op="delete",result="ok"} 1`,
		"airroutes_store_routes 2",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}
