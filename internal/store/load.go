package store

// LoadStats counts what a bulk load kept and why it dropped the rest.
type LoadStats struct {
	Loaded    int `json:"loaded"`
	Malformed int `json:"malformed"`          // Missing ID or key fields.
	Duplicate int `json:"duplicate"`          // Key, ID or route triple already present.
	Dangling  int `json:"dangling,omitempty"` // Route referencing an unknown airline or airport.
}

// Skipped returns the number of records that were not loaded.
func (l LoadStats) Skipped() int {
	return l.Malformed + l.Duplicate + l.Dangling
}

// LoadAirlines bulk-loads airlines. Records without a positive ID or an IATA
// code are skipped, as are records whose ID or code is already present; the
// load never fails as a whole. Indexes are rebuilt once at the end.
func (s *Store) LoadAirlines(records []Airline) LoadStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st LoadStats
	for _, a := range records {
		if a.ID <= 0 || a.IATA == "" {
			st.Malformed++
			continue
		}
		_, byCode := s.idx.airlineByIATA[a.IATA]
		_, byID := s.idx.airlineByID[a.ID]
		if byCode || byID {
			st.Duplicate++
			continue
		}
		rec := a
		s.airlines = append(s.airlines, &rec)
		s.idx.airlineByIATA[rec.IATA] = &rec
		s.idx.airlineByID[rec.ID] = &rec
		st.Loaded++
	}

	s.rebuild()
	return st
}

// LoadAirports bulk-loads airports with the same skipping rules as LoadAirlines.
func (s *Store) LoadAirports(records []Airport) LoadStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st LoadStats
	for _, a := range records {
		if a.ID <= 0 || a.IATA == "" {
			st.Malformed++
			continue
		}
		_, byCode := s.idx.airportByIATA[a.IATA]
		_, byID := s.idx.airportByID[a.ID]
		if byCode || byID {
			st.Duplicate++
			continue
		}
		rec := a
		s.airports = append(s.airports, &rec)
		s.idx.airportByIATA[rec.IATA] = &rec
		s.idx.airportByID[rec.ID] = &rec
		st.Loaded++
	}

	s.rebuild()
	return st
}

// LoadRoutes bulk-loads routes. Routes missing a code are malformed; routes
// whose airline or airports are not loaded, or that repeat an existing
// (airline, source, dest) triple, are skipped. Each kept route gets a fresh ID.
func (s *Store) LoadRoutes(records []Route) LoadStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st LoadStats
	for _, r := range records {
		if r.AirlineIATA == "" || r.SourceIATA == "" || r.DestIATA == "" {
			st.Malformed++
			continue
		}
		airline, source, dest, err := s.resolve(r.AirlineIATA, r.SourceIATA, r.DestIATA)
		if err != nil {
			st.Dangling++
			continue
		}
		if _, dup := s.idx.routeKeys[r.key()]; dup {
			st.Duplicate++
			continue
		}

		if r.AirlineID <= 0 {
			r.AirlineID = airline.ID
		}
		if r.SourceID <= 0 {
			r.SourceID = source.ID
		}
		if r.DestID <= 0 {
			r.DestID = dest.ID
		}
		s.nextRouteID++
		r.ID = s.nextRouteID

		rec := r
		s.routes = append(s.routes, &rec)
		s.idx.routeKeys[rec.key()] = &rec
		st.Loaded++
	}

	s.rebuild()
	return st
}
