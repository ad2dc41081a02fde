package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"airroutes/internal/store"
)

// maxBodyBytes bounds mutation request bodies.
const maxBodyBytes = 1 << 20

// decode reads a JSON body into v and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	normalizeCodes(v)
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	return nil
}

// normalizeCodes upper-cases the IATA codes in a decoded body so they match
// the path parameters used for later lookups.
func normalizeCodes(v any) {
	switch v := v.(type) {
	case *store.Airline:
		v.IATA = normalizeCode(v.IATA)
	case *store.Airport:
		v.IATA = normalizeCode(v.IATA)
	case *store.Route:
		v.AirlineIATA = normalizeCode(v.AirlineIATA)
		v.SourceIATA = normalizeCode(v.SourceIATA)
		v.DestIATA = normalizeCode(v.DestIATA)
	case *store.AirlineUpdate:
		normalizeCodePtr(v.IATA)
	case *store.AirportUpdate:
		normalizeCodePtr(v.IATA)
	case *store.RouteUpdate:
		normalizeCodePtr(v.AirlineIATA)
		normalizeCodePtr(v.SourceIATA)
		normalizeCodePtr(v.DestIATA)
	}
}

func normalizeCode(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

func normalizeCodePtr(c *string) {
	if c != nil {
		*c = normalizeCode(*c)
	}
}

// statusFor maps a mutation error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateKey), errors.Is(err, store.ErrDuplicateRoute):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// outcome is the metrics label for a mutation result.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrDuplicateKey), errors.Is(err, store.ErrDuplicateRoute):
		return "duplicate"
	case errors.Is(err, store.ErrImmutableField):
		return "immutable_field"
	case errors.Is(err, store.ErrReferentialViolation):
		return "referential_violation"
	default:
		return "invalid"
	}
}

// writeResult answers a mutation with the success flag and message.
func (s *Server) writeResult(w http.ResponseWriter, entity store.Entity, op store.Op, err error, okMessage string, id int64) {
	s.metrics.RecordMutation(string(entity), string(op), outcome(err))

	res := store.NewResult(err, okMessage)
	if err != nil {
		s.logger.Debug("mutation rejected",
			zap.String("entity", string(entity)),
			zap.String("op", string(op)),
			zap.Error(err))
		writeJSON(w, statusFor(err), res)
		return
	}
	res.ID = id
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleInsertAirline(w http.ResponseWriter, r *http.Request) {
	var a store.Airline
	if err := s.decode(w, r, &a); err != nil {
		s.writeResult(w, store.EntityAirline, store.OpInsert, err, "", 0)
		return
	}
	if a.Active == "" {
		a.Active = "Y"
	}

	id, err := s.store.InsertAirline(a)
	s.writeResult(w, store.EntityAirline, store.OpInsert, err,
		fmt.Sprintf("Airline inserted successfully with ID %d", id), int64(id))
}

func (s *Server) handleUpdateAirline(w http.ResponseWriter, r *http.Request) {
	var u store.AirlineUpdate
	if err := s.decode(w, r, &u); err != nil {
		s.writeResult(w, store.EntityAirline, store.OpUpdate, err, "", 0)
		return
	}

	err := s.store.UpdateAirline(code(r, "iata"), u)
	s.writeResult(w, store.EntityAirline, store.OpUpdate, err, "Airline updated successfully", 0)
}

func (s *Server) handleDeleteAirline(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.DeleteAirline(code(r, "iata"))
	s.writeResult(w, store.EntityAirline, store.OpDelete, err,
		fmt.Sprintf("Airline and all its routes deleted successfully (%d routes removed)", n), 0)
}

func (s *Server) handleInsertAirport(w http.ResponseWriter, r *http.Request) {
	var a store.Airport
	if err := s.decode(w, r, &a); err != nil {
		s.writeResult(w, store.EntityAirport, store.OpInsert, err, "", 0)
		return
	}

	id, err := s.store.InsertAirport(a)
	s.writeResult(w, store.EntityAirport, store.OpInsert, err,
		fmt.Sprintf("Airport inserted successfully with ID %d", id), int64(id))
}

func (s *Server) handleUpdateAirport(w http.ResponseWriter, r *http.Request) {
	var u store.AirportUpdate
	if err := s.decode(w, r, &u); err != nil {
		s.writeResult(w, store.EntityAirport, store.OpUpdate, err, "", 0)
		return
	}

	err := s.store.UpdateAirport(code(r, "iata"), u)
	s.writeResult(w, store.EntityAirport, store.OpUpdate, err, "Airport updated successfully", 0)
}

func (s *Server) handleDeleteAirport(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.DeleteAirport(code(r, "iata"))
	s.writeResult(w, store.EntityAirport, store.OpDelete, err,
		fmt.Sprintf("Airport and all routes to/from it deleted successfully (%d routes removed)", n), 0)
}

func (s *Server) handleInsertRoute(w http.ResponseWriter, r *http.Request) {
	var rt store.Route
	if err := s.decode(w, r, &rt); err != nil {
		s.writeResult(w, store.EntityRoute, store.OpInsert, err, "", 0)
		return
	}

	id, err := s.store.InsertRoute(rt)
	s.writeResult(w, store.EntityRoute, store.OpInsert, err, "Route inserted successfully", id)
}

func (s *Server) handleUpdateRoute(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r)
	if err != nil {
		s.writeResult(w, store.EntityRoute, store.OpUpdate, err, "", 0)
		return
	}
	var u store.RouteUpdate
	if err := s.decode(w, r, &u); err != nil {
		s.writeResult(w, store.EntityRoute, store.OpUpdate, err, "", 0)
		return
	}

	err = s.store.UpdateRoute(id, u)
	s.writeResult(w, store.EntityRoute, store.OpUpdate, err, "Route updated successfully", id)
}

func (s *Server) handleDeleteRoute(w http.ResponseWriter, r *http.Request) {
	id, err := routeID(r)
	if err != nil {
		s.writeResult(w, store.EntityRoute, store.OpDelete, err, "", 0)
		return
	}

	err = s.store.DeleteRoute(id)
	s.writeResult(w, store.EntityRoute, store.OpDelete, err, "Route deleted successfully", 0)
}
