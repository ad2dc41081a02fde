package query

import (
	"sort"

	"airroutes/internal/store"
)

// DirectRoute is a nonstop connection between two airports.
type DirectRoute struct {
	Route       store.Route `json:"route"`
	AirlineName string      `json:"airline_name"`
	Stops       int         `json:"stops"`
	Distance    float64     `json:"distance"` // Statute miles.
}

// OneHopRoute is a connection through one intermediate airport.
type OneHopRoute struct {
	Intermediate       store.Airport `json:"intermediate"`
	Airlines           []string      `json:"airlines"`            // First leg.
	ConnectingAirlines []string      `json:"connecting_airlines"` // Second leg.
	Distance           float64       `json:"distance"`
}

// DirectRoutes returns every route from src to dst, shortest first and then by
// number of stops. The result is empty when either airport is unknown.
func (e *Engine) DirectRoutes(src, dst string) []DirectRoute {
	var out []DirectRoute
	e.store.View(func(v store.View) {
		from := v.AirportByIATA(src)
		to := v.AirportByIATA(dst)
		if !from.Found() || !to.Found() {
			return
		}

		dist := Distance(from, to)
		for _, r := range v.RoutesFrom(src) {
			if r.DestIATA != dst {
				continue
			}
			name := v.AirlineByIATA(r.AirlineIATA).Name
			if name == "" {
				name = r.AirlineIATA
			}
			out = append(out, DirectRoute{
				Route:       r,
				AirlineName: name,
				Stops:       r.Stops,
				Distance:    dist,
			})
		}
	})

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Stops < out[j].Stops
	})
	return out
}

// OneHopRoutes returns connections from src to dst through exactly one
// intermediate airport, shortest total distance first. The result is empty
// when either airport is unknown, nothing departs src or nothing arrives at dst.
func (e *Engine) OneHopRoutes(src, dst string) []OneHopRoute {
	var out []OneHopRoute
	e.store.View(func(v store.View) {
		from := v.AirportByIATA(src)
		to := v.AirportByIATA(dst)
		if !from.Found() || !to.Found() {
			return
		}
		outbound := v.RoutesFrom(src)
		inbound := v.RoutesTo(dst)
		if len(outbound) == 0 || len(inbound) == 0 {
			return
		}

		// Under CollectAirlines the endpoints themselves never serve as the
		// intermediate; LastSeenAirline keeps them, as self-loop routes allow.
		strict := e.hopPolicy == CollectAirlines

		// Intermediate airport -> airlines flying it to dst.
		second := make(map[string][]string)
		for _, r := range inbound {
			if strict && r.SourceIATA == src {
				continue
			}
			second[r.SourceIATA] = appendUnique(second[r.SourceIATA], r.AirlineIATA)
		}

		first := make(map[string][]string)
		for _, r := range outbound {
			if _, ok := second[r.DestIATA]; !ok || (strict && r.DestIATA == dst) {
				continue
			}
			if e.hopPolicy == LastSeenAirline {
				first[r.DestIATA] = []string{r.AirlineIATA}
				continue
			}
			first[r.DestIATA] = appendUnique(first[r.DestIATA], r.AirlineIATA)
		}

		for mid, airlines := range first {
			m := v.AirportByIATA(mid)
			if !m.Found() {
				continue
			}
			connecting := second[mid]
			sort.Strings(airlines)
			sort.Strings(connecting)
			out = append(out, OneHopRoute{
				Intermediate:       m,
				Airlines:           airlines,
				ConnectingAirlines: connecting,
				Distance:           Distance(from, m) + Distance(m, to),
			})
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Intermediate.IATA < out[j].Intermediate.IATA
	})
	return out
}

func appendUnique(list []string, s string) []string {
	for _, x := range list {
		if x == s {
			return list
		}
	}
	return append(list, s)
}
