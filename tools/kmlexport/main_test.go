package main

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/paulmach/orb"

	"airroutes/internal/store"
)

func testStore() *store.Store {
	s := store.New()
	s.LoadAirlines([]store.Airline{
		{ID: 24, Name: "American Airlines", IATA: "AA"},
		{ID: 5209, Name: "United Airlines", IATA: "UA"},
	})
	s.LoadAirports([]store.Airport{
		{ID: 3484, IATA: "LAX", Name: "Los Angeles International Airport", Latitude: 33.942501, Longitude: -118.407997},
		{ID: 3797, IATA: "JFK", Name: "John F Kennedy International Airport", Latitude: 40.63980103, Longitude: -73.77890015},
		{ID: 3830, IATA: "ORD", Name: "Chicago O'Hare International Airport", Latitude: 41.9786, Longitude: -87.9048},
	})
	s.LoadRoutes([]store.Route{
		{AirlineIATA: "AA", SourceIATA: "ORD", DestIATA: "JFK", Equipment: "738"},
		{AirlineIATA: "AA", SourceIATA: "LAX", DestIATA: "JFK", Equipment: "321"},
		{AirlineIATA: "UA", SourceIATA: "LAX", DestIATA: "ORD"},
	})
	return s
}

func TestGenerateKML(t *testing.T) {
	s := testStore()
	kml := generateKML(s, s.AirlineByIATA("AA"), 8)

	if kml.Document.Name != "American Airlines route network" {
		t.Errorf("unexpected document name %q", kml.Document.Name)
	}
	if len(kml.Document.Folders) != 2 {
		t.Fatalf("expected airports and routes folders, got %d", len(kml.Document.Folders))
	}

	airports := kml.Document.Folders[0].Placemarks
	if len(airports) != 3 {
		t.Fatalf("expected 3 airports, got %d", len(airports))
	}
	if airports[0].Name != "JFK" || airports[0].ExtendedData.Data[0].Value != "2" {
		t.Errorf("expected JFK with 2 routes first, got %+v", airports[0])
	}
	if airports[0].Point == nil || airports[0].Point.Coordinates != "-73.778900,40.639801,0" {
		t.Errorf("unexpected JFK point %+v", airports[0].Point)
	}

	routes := kml.Document.Folders[1].Placemarks
	if len(routes) != 2 {
		t.Fatalf("expected 2 routes, got %d", len(routes))
	}
	for _, r := range routes {
		if r.LineString == nil {
			t.Fatalf("route %s has no line string", r.Name)
		}
		if n := len(strings.Fields(r.LineString.Coords)); n != 9 {
			t.Errorf("route %s: expected 9 coordinates, got %d", r.Name, n)
		}
		if !strings.HasSuffix(r.LineString.Coords, "-73.778900,40.639801,0") {
			t.Errorf("route %s does not end at JFK: %s", r.Name, r.LineString.Coords)
		}
	}
}

func TestGenerateKMLMarshals(t *testing.T) {
	s := testStore()
	data, err := xml.MarshalIndent(generateKML(s, s.AirlineByIATA("UA"), 4), "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	out := string(data)
	for _, want := range []string{
		`<kml xmlns="http://www.opengis.net/kml/2.2">`,
		`<Style id="routeStyle">`,
		`<name>UA LAX-ORD</name>`,
		`<tessellate>1</tessellate>`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("KML missing %q", want)
		}
	}
	if strings.Contains(out, "<LineString></LineString>") {
		t.Error("airport placemarks should not carry an empty line string")
	}
}

func TestCoordinates(t *testing.T) {
	got := coordinates(orb.LineString{{-118.4, 33.9}, {-73.75, 40.5}})
	if got != "-118.400000,33.900000,0 -73.750000,40.500000,0" {
		t.Errorf("unexpected coordinates %q", got)
	}
}
