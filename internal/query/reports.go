package query

import (
	"sort"
	"strings"

	"airroutes/internal/store"
)

const (
	DefaultSearchLimit = 20
	DefaultTopLimit    = 20
	MaxTopLimit        = 100
	DefaultCountries   = 20

	DefaultPageSize = 100
	MinPageSize     = 10
	MaxPageSize     = 500
)

// SearchAirports returns airports whose IATA code or name contains q, ignoring
// case. Exact code matches rank first, then code prefixes, then name prefixes,
// then the rest by code.
func (e *Engine) SearchAirports(q string, limit int) []store.Airport {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	type match struct {
		airport    store.Airport
		iata, name string
	}
	var matches []match
	for _, a := range e.store.Airports() {
		iata := strings.ToLower(a.IATA)
		name := strings.ToLower(a.Name)
		if strings.Contains(iata, q) || strings.Contains(name, q) {
			matches = append(matches, match{airport: a, iata: iata, name: name})
		}
	}

	rank := func(m match) int {
		switch {
		case m.iata == q:
			return 0
		case strings.HasPrefix(m.iata, q):
			return 1
		case strings.HasPrefix(m.name, q):
			return 2
		default:
			return 3
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		ri, rj := rank(matches[i]), rank(matches[j])
		if ri != rj {
			return ri < rj
		}
		return matches[i].iata < matches[j].iata
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]store.Airport, len(matches))
	for i, m := range matches {
		out[i] = m.airport
	}
	return out
}

// AirportTraffic is an airport ranked by the routes touching it.
type AirportTraffic struct {
	Airport      store.Airport `json:"airport"`
	RouteCount   int           `json:"route_count"`
	AirlineCount int           `json:"airline_count"`
}

// TopAirports returns the airports with the most routes. A non-positive limit
// selects DefaultTopLimit; limits above MaxTopLimit are capped.
func (e *Engine) TopAirports(limit int) []AirportTraffic {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	limit = min(limit, MaxTopLimit)

	var out []AirportTraffic
	e.store.View(func(v store.View) {
		for _, a := range v.Airports() {
			if a.IATA == "" {
				continue
			}
			airlines := airlinesByAirport(v, a.IATA)
			total := 0
			for _, al := range airlines {
				total += al.RouteCount
			}
			out = append(out, AirportTraffic{Airport: a, RouteCount: total, AirlineCount: len(airlines)})
		}
	})

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RouteCount > out[j].RouteCount
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CountryCount is the number of airports in one country.
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// CountrySummary describes how airports are spread across countries.
type CountrySummary struct {
	TotalCountries int            `json:"total_countries"`
	Countries      []CountryCount `json:"countries"`
}

// Countries counts airports per country and returns the largest limit
// countries. Airports without a country are counted as "Unknown".
func (e *Engine) Countries(limit int) CountrySummary {
	if limit <= 0 {
		limit = DefaultCountries
	}

	counts := make(map[string]int)
	for _, a := range e.store.Airports() {
		country := a.Country
		if country == "" {
			country = "Unknown"
		}
		counts[country]++
	}

	list := make([]CountryCount, 0, len(counts))
	for c, n := range counts {
		list = append(list, CountryCount{Country: c, Count: n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count != list[j].Count {
			return list[i].Count > list[j].Count
		}
		return list[i].Country < list[j].Country
	})
	if len(list) > limit {
		list = list[:limit]
	}
	return CountrySummary{TotalCountries: len(counts), Countries: list}
}

// Window is one page of a listing.
type Window struct {
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Start    int `json:"-"`
	End      int `json:"-"`
}

// Page computes the bounds of a page over total items. Page numbers start at
// 1; a non-positive size selects DefaultPageSize and other sizes are clamped
// to [MinPageSize, MaxPageSize].
func Page(total, page, size int) Window {
	if page < 1 {
		page = 1
	}
	switch {
	case size <= 0:
		size = DefaultPageSize
	case size < MinPageSize:
		size = MinPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}

	start := total
	if page-1 <= total/size {
		start = min((page-1)*size, total)
	}
	end := min(start+size, total)
	return Window{Total: total, Page: page, PageSize: size, Start: start, End: end}
}
