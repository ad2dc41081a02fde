package store

import (
	"fmt"
	"slices"
)

// InsertAirline adds an airline and returns its ID. A non-positive ID is
// replaced with one more than the largest existing airline ID.
func (s *Store) InsertAirline(a Airline) (int, error) {
	s.mu.Lock()
	if a.IATA != "" {
		if _, ok := s.idx.airlineByIATA[a.IATA]; ok {
			s.mu.Unlock()
			return 0, fmt.Errorf("%w: airline with IATA code %s already exists", ErrDuplicateKey, a.IATA)
		}
	}
	if a.ID > 0 {
		if _, ok := s.idx.airlineByID[a.ID]; ok {
			s.mu.Unlock()
			return 0, fmt.Errorf("%w: airline with ID %d already exists", ErrDuplicateKey, a.ID)
		}
	} else {
		a.ID = nextID(s.idx.airlineByID)
	}

	rec := a
	s.airlines = append(s.airlines, &rec)
	s.rebuild()
	seq := s.nextSeq()
	s.mu.Unlock()

	s.notify(Change{Seq: seq, Entity: EntityAirline, Op: OpInsert, Key: a.IATA})
	return a.ID, nil
}

// UpdateAirline merges the fields present in u into the airline with the given code.
// The ID and IATA code cannot change.
func (s *Store) UpdateAirline(code string, u AirlineUpdate) error {
	s.mu.Lock()
	a, ok := s.idx.airlineByIATA[code]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: airline with IATA code %s not found", ErrNotFound, code)
	}
	if u.ID != nil && *u.ID != a.ID {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot change airline ID", ErrImmutableField)
	}
	if u.IATA != nil && *u.IATA != code {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot change airline IATA code", ErrImmutableField)
	}
	a.apply(u)
	seq := s.nextSeq()
	s.mu.Unlock()

	s.notify(Change{Seq: seq, Entity: EntityAirline, Op: OpUpdate, Key: code})
	return nil
}

// DeleteAirline removes the airline and every route it operates. It returns the
// number of routes removed with it.
func (s *Store) DeleteAirline(code string) (int, error) {
	s.mu.Lock()
	a, ok := s.idx.airlineByIATA[code]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: airline with IATA code %s not found", ErrNotFound, code)
	}

	cascaded := s.removeRoutes(func(r *Route) bool { return r.AirlineIATA == code })
	s.airlines = slices.DeleteFunc(s.airlines, func(x *Airline) bool { return x == a })
	s.rebuild()
	seq := s.nextSeq()
	s.mu.Unlock()

	s.notify(Change{Seq: seq, Entity: EntityAirline, Op: OpDelete, Key: code, Cascaded: cascaded})
	return cascaded, nil
}

// InsertAirport adds an airport and returns its ID. A non-positive ID is
// replaced with one more than the largest existing airport ID.
func (s *Store) InsertAirport(a Airport) (int, error) {
	s.mu.Lock()
	if a.IATA != "" {
		if _, ok := s.idx.airportByIATA[a.IATA]; ok {
			s.mu.Unlock()
			return 0, fmt.Errorf("%w: airport with IATA code %s already exists", ErrDuplicateKey, a.IATA)
		}
	}
	if a.ID > 0 {
		if _, ok := s.idx.airportByID[a.ID]; ok {
			s.mu.Unlock()
			return 0, fmt.Errorf("%w: airport with ID %d already exists", ErrDuplicateKey, a.ID)
		}
	} else {
		a.ID = nextID(s.idx.airportByID)
	}

	rec := a
	s.airports = append(s.airports, &rec)
	s.rebuild()
	seq := s.nextSeq()
	s.mu.Unlock()

	s.notify(Change{Seq: seq, Entity: EntityAirport, Op: OpInsert, Key: a.IATA})
	return a.ID, nil
}

// UpdateAirport merges the fields present in u into the airport with the given code.
func (s *Store) UpdateAirport(code string, u AirportUpdate) error {
	s.mu.Lock()
	a, ok := s.idx.airportByIATA[code]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: airport with IATA code %s not found", ErrNotFound, code)
	}
	if u.ID != nil && *u.ID != a.ID {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot change airport ID", ErrImmutableField)
	}
	if u.IATA != nil && *u.IATA != code {
		s.mu.Unlock()
		return fmt.Errorf("%w: cannot change airport IATA code", ErrImmutableField)
	}
	a.apply(u)
	seq := s.nextSeq()
	s.mu.Unlock()

	s.notify(Change{Seq: seq, Entity: EntityAirport, Op: OpUpdate, Key: code})
	return nil
}

// DeleteAirport removes the airport and every route touching it, returning the
// number of routes removed with it.
func (s *Store) DeleteAirport(code string) (int, error) {
	s.mu.Lock()
	a, ok := s.idx.airportByIATA[code]
	if !ok {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: airport with IATA code %s not found", ErrNotFound, code)
	}

	cascaded := s.removeRoutes(func(r *Route) bool { return r.SourceIATA == code || r.DestIATA == code })
	s.airports = slices.DeleteFunc(s.airports, func(x *Airport) bool { return x == a })
	s.rebuild()
	seq := s.nextSeq()
	s.mu.Unlock()

	s.notify(Change{Seq: seq, Entity: EntityAirport, Op: OpDelete, Key: code, Cascaded: cascaded})
	return cascaded, nil
}

// removeRoutes drops every route matching del and reports how many went.
// Callers must hold the write lock and rebuild afterwards.
func (s *Store) removeRoutes(del func(*Route) bool) int {
	before := len(s.routes)
	s.routes = slices.DeleteFunc(s.routes, del)
	return before - len(s.routes)
}

func nextID[T any](byID map[int]T) int {
	maxID := 0
	for id := range byID {
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}
