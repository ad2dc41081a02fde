package store

import (
	"github.com/paulmach/orb"

	"airroutes/internal/geo"
)

// Airline is an operator from the reference dataset.
type Airline struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Alias    string `json:"alias"`
	IATA     string `json:"iata" validate:"omitempty,max=3"`
	ICAO     string `json:"icao" validate:"omitempty,max=4"`
	Callsign string `json:"callsign"`
	Country  string `json:"country"`
	Active   string `json:"active" validate:"omitempty,max=1"`
}

// Found reports whether the value came from the store rather than a failed lookup.
func (a Airline) Found() bool {
	return a.ID > 0
}

// Airport is an airport from the reference dataset.
type Airport struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	IATA      string  `json:"iata" validate:"omitempty,max=3"`
	ICAO      string  `json:"icao" validate:"omitempty,max=4"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
	Altitude  int     `json:"altitude"` // Feet.
	Timezone  float64 `json:"timezone"` // Hours offset from UTC.
	DST       string  `json:"dst"`
	TZ        string  `json:"tz"`
	Type      string  `json:"type"`
	Source    string  `json:"source"`
}

// Found reports whether the value came from the store rather than a failed lookup.
func (a Airport) Found() bool {
	return a.ID > 0
}

// Point returns the airport position as an orb point.
func (a Airport) Point() orb.Point {
	return geo.Point(a.Latitude, a.Longitude)
}

// Route is a scheduled airline connection between two airports.
type Route struct {
	ID          int64  `json:"id"` // Stable, assigned on insert.
	AirlineIATA string `json:"airline_iata" validate:"required,max=3"`
	AirlineID   int    `json:"airline_id"`
	SourceIATA  string `json:"source_iata" validate:"required,max=3"`
	SourceID    int    `json:"source_id"`
	DestIATA    string `json:"dest_iata" validate:"required,max=3"`
	DestID      int    `json:"dest_id"`
	Codeshare   string `json:"codeshare"`
	Stops       int    `json:"stops" validate:"gte=0"`
	Equipment   string `json:"equipment"`
}

// routeKey is the uniqueness triple for routes.
type routeKey struct {
	airline, source, dest string
}

func (r *Route) key() routeKey {
	return routeKey{r.AirlineIATA, r.SourceIATA, r.DestIATA}
}

// AirlineUpdate carries a partial airline update. Nil fields are left untouched;
// a non-nil empty string clears the field.
type AirlineUpdate struct {
	ID       *int    `json:"id,omitempty"`
	IATA     *string `json:"iata,omitempty" validate:"omitempty,max=3"`
	Name     *string `json:"name,omitempty"`
	Alias    *string `json:"alias,omitempty"`
	ICAO     *string `json:"icao,omitempty" validate:"omitempty,max=4"`
	Callsign *string `json:"callsign,omitempty"`
	Country  *string `json:"country,omitempty"`
	Active   *string `json:"active,omitempty" validate:"omitempty,max=1"`
}

// AirportUpdate carries a partial airport update.
type AirportUpdate struct {
	ID        *int     `json:"id,omitempty"`
	IATA      *string  `json:"iata,omitempty" validate:"omitempty,max=3"`
	Name      *string  `json:"name,omitempty"`
	City      *string  `json:"city,omitempty"`
	Country   *string  `json:"country,omitempty"`
	ICAO      *string  `json:"icao,omitempty" validate:"omitempty,max=4"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Altitude  *int     `json:"altitude,omitempty"`
	Timezone  *float64 `json:"timezone,omitempty" validate:"omitempty,gte=-12,lte=14"`
	DST       *string  `json:"dst,omitempty"`
	TZ        *string  `json:"tz,omitempty"`
	Type      *string  `json:"type,omitempty"`
	Source    *string  `json:"source,omitempty"`
}

// RouteUpdate carries a partial route update.
type RouteUpdate struct {
	AirlineIATA *string `json:"airline_iata,omitempty"`
	SourceIATA  *string `json:"source_iata,omitempty"`
	DestIATA    *string `json:"dest_iata,omitempty"`
	Codeshare   *string `json:"codeshare,omitempty"`
	Stops       *int    `json:"stops,omitempty" validate:"omitempty,gte=0"`
	Equipment   *string `json:"equipment,omitempty"`
}

func (a *Airline) apply(u AirlineUpdate) {
	setString(&a.Name, u.Name)
	setString(&a.Alias, u.Alias)
	setString(&a.ICAO, u.ICAO)
	setString(&a.Callsign, u.Callsign)
	setString(&a.Country, u.Country)
	setString(&a.Active, u.Active)
}

func (a *Airport) apply(u AirportUpdate) {
	setString(&a.Name, u.Name)
	setString(&a.City, u.City)
	setString(&a.Country, u.Country)
	setString(&a.ICAO, u.ICAO)
	if u.Latitude != nil {
		a.Latitude = *u.Latitude
	}
	if u.Longitude != nil {
		a.Longitude = *u.Longitude
	}
	if u.Altitude != nil {
		a.Altitude = *u.Altitude
	}
	if u.Timezone != nil {
		a.Timezone = *u.Timezone
	}
	setString(&a.DST, u.DST)
	setString(&a.TZ, u.TZ)
	setString(&a.Type, u.Type)
	setString(&a.Source, u.Source)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
