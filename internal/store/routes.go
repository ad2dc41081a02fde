package store

import (
	"fmt"
	"slices"
	"strconv"
)

// InsertRoute validates the route against the stored airlines and airports and
// appends it, returning its stable ID. Missing numeric IDs are filled in from the
// referenced records.
func (s *Store) InsertRoute(r Route) (int64, error) {
	s.mu.Lock()
	airline, source, dest, err := s.resolve(r.AirlineIATA, r.SourceIATA, r.DestIATA)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	if _, dup := s.idx.routeKeys[r.key()]; dup {
		s.mu.Unlock()
		return 0, fmt.Errorf("%w: route %s %s-%s already exists", ErrDuplicateRoute, r.AirlineIATA, r.SourceIATA, r.DestIATA)
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
	s.rebuild()
	seq := s.nextSeq()
	s.mu.Unlock()

	s.notify(Change{Seq: seq, Entity: EntityRoute, Op: OpInsert, Key: strconv.FormatInt(r.ID, 10)})
	return r.ID, nil
}

// UpdateRoute merges the fields present in u into the route with the given ID.
// Changed endpoint or airline codes must resolve, and the result must not
// duplicate another route. On failure the route is left as it was.
func (s *Store) UpdateRoute(id int64, u RouteUpdate) error {
	s.mu.Lock()
	r, ok := s.idx.routeByID[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: route ID %d not found", ErrNotFound, id)
	}

	next := *r
	if u.AirlineIATA != nil && *u.AirlineIATA != r.AirlineIATA {
		a, ok := s.idx.airlineByIATA[*u.AirlineIATA]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: airline with IATA code %s does not exist", ErrReferentialViolation, *u.AirlineIATA)
		}
		next.AirlineIATA, next.AirlineID = a.IATA, a.ID
	}
	if u.SourceIATA != nil && *u.SourceIATA != r.SourceIATA {
		a, ok := s.idx.airportByIATA[*u.SourceIATA]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: source airport with IATA code %s does not exist", ErrReferentialViolation, *u.SourceIATA)
		}
		next.SourceIATA, next.SourceID = a.IATA, a.ID
	}
	if u.DestIATA != nil && *u.DestIATA != r.DestIATA {
		a, ok := s.idx.airportByIATA[*u.DestIATA]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("%w: destination airport with IATA code %s does not exist", ErrReferentialViolation, *u.DestIATA)
		}
		next.DestIATA, next.DestID = a.IATA, a.ID
	}
	if next.key() != r.key() {
		if _, dup := s.idx.routeKeys[next.key()]; dup {
			s.mu.Unlock()
			return fmt.Errorf("%w: route %s %s-%s already exists", ErrDuplicateRoute, next.AirlineIATA, next.SourceIATA, next.DestIATA)
		}
	}
	setString(&next.Codeshare, u.Codeshare)
	setString(&next.Equipment, u.Equipment)
	if u.Stops != nil {
		next.Stops = *u.Stops
	}

	*r = next
	s.rebuild()
	seq := s.nextSeq()
	s.mu.Unlock()

	s.notify(Change{Seq: seq, Entity: EntityRoute, Op: OpUpdate, Key: strconv.FormatInt(id, 10)})
	return nil
}

// DeleteRoute removes the route with the given ID. Other routes keep their IDs.
func (s *Store) DeleteRoute(id int64) error {
	s.mu.Lock()
	r, ok := s.idx.routeByID[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: route ID %d not found", ErrNotFound, id)
	}
	s.routes = slices.DeleteFunc(s.routes, func(x *Route) bool { return x == r })
	s.rebuild()
	seq := s.nextSeq()
	s.mu.Unlock()

	s.notify(Change{Seq: seq, Entity: EntityRoute, Op: OpDelete, Key: strconv.FormatInt(id, 10)})
	return nil
}

// resolve looks up the airline and both airports a route refers to, checking
// the airline first, then the source, then the destination.
func (s *Store) resolve(airlineCode, sourceCode, destCode string) (*Airline, *Airport, *Airport, error) {
	airline, ok := s.idx.airlineByIATA[airlineCode]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: airline with IATA code %s does not exist", ErrReferentialViolation, airlineCode)
	}
	source, ok := s.idx.airportByIATA[sourceCode]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: source airport with IATA code %s does not exist", ErrReferentialViolation, sourceCode)
	}
	dest, ok := s.idx.airportByIATA[destCode]
	if !ok {
		return nil, nil, nil, fmt.Errorf("%w: destination airport with IATA code %s does not exist", ErrReferentialViolation, destCode)
	}
	return airline, source, dest, nil
}
