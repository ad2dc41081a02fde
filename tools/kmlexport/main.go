// Package main provides a tool to export an airline's route network to KML format.
// Airports become placemarks and routes become great-circle line strings.
// KML (Keyhole Markup Language) files can be viewed in Google Earth, Google Maps, and
// other mapping applications.
package main

import (
	"context"
	"encoding/xml"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"airroutes/internal/geo"
	"airroutes/internal/ingest"
	"airroutes/internal/query"
	"airroutes/internal/store"
)

// KML structures for XML marshalling.
// These follow the KML 2.2 specification: https://developers.google.com/kml/documentation/kmlreference

// KML is the root element of a KML document.
type KML struct {
	XMLName   xml.Name `xml:"kml"`
	Namespace string   `xml:"xmlns,attr"`
	Document  Document `xml:"Document"`
}

// Document contains the document metadata and features.
type Document struct {
	Name        string   `xml:"name"`
	Description string   `xml:"description,omitempty"`
	Styles      []Style  `xml:"Style,omitempty"`
	Folders     []Folder `xml:"Folder"`
}

// Folder groups placemarks.
type Folder struct {
	Name       string      `xml:"name"`
	Placemarks []Placemark `xml:"Placemark"`
}

// Style defines the visual appearance of features.
type Style struct {
	ID        string     `xml:"id,attr"`
	IconStyle *IconStyle `xml:"IconStyle,omitempty"`
	LineStyle *LineStyle `xml:"LineStyle,omitempty"`
}

// IconStyle defines how icons are displayed.
type IconStyle struct {
	Scale float64 `xml:"scale,omitempty"`
	Icon  Icon    `xml:"Icon"`
}

// Icon specifies the icon image.
type Icon struct {
	Href string `xml:"href"`
}

// LineStyle defines how lines are drawn.
type LineStyle struct {
	Color string  `xml:"color"` // aabbggrr
	Width float64 `xml:"width"`
}

// Placemark represents a geographic feature with geometry and metadata.
type Placemark struct {
	Name         string        `xml:"name"`
	Description  string        `xml:"description,omitempty"`
	StyleURL     string        `xml:"styleUrl,omitempty"`
	Point        *Point        `xml:"Point,omitempty"`
	LineString   *LineString   `xml:"LineString,omitempty"`
	ExtendedData *ExtendedData `xml:"ExtendedData,omitempty"`
}

// Point represents a geographic location.
type Point struct {
	Coordinates string `xml:"coordinates"` // Format: lon,lat,altitude
}

// LineString is a path through several locations.
type LineString struct {
	Tessellate int    `xml:"tessellate"`
	Coords     string `xml:"coordinates"`
}

// ExtendedData holds custom data associated with a placemark.
type ExtendedData struct {
	Data []Data `xml:"Data"`
}

// Data represents a single piece of extended data.
type Data struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value"`
}

func main() {
	dataDir := flag.String("data-dir", "data", "Directory holding airlines.dat, airports.dat and routes.dat")
	airline := flag.String("airline", "", "Airline IATA code to export (required)")
	segments := flag.Int("segments", 16, "Line segments per great-circle route")
	output := flag.String("output", "", "Output KML file (default: stdout)")
	verbose := flag.Bool("v", false, "Verbose output")

	flag.Parse()

	code := strings.ToUpper(*airline)
	if code == "" {
		fmt.Fprintf(os.Stderr, "Error: -airline is required\n")
		os.Exit(2)
	}

	ds, err := ingest.LoadFiles(context.Background(), ingest.DefaultPaths(*dataDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading dataset: %v\n", err)
		os.Exit(1)
	}
	s := store.New()
	ds.Apply(s)

	al := s.AirlineByIATA(code)
	if !al.Found() {
		fmt.Fprintf(os.Stderr, "Airline %s not found\n", code)
		os.Exit(1)
	}

	kml := generateKML(s, al, *segments)
	if *verbose {
		fmt.Fprintf(os.Stderr, "Exporting %d airports and %d routes for %s\n",
			len(kml.Document.Folders[0].Placemarks), len(kml.Document.Folders[1].Placemarks), al.Name)
	}

	// Marshal to XML.
	xmlData, err := xml.MarshalIndent(kml, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating KML: %v\n", err)
		os.Exit(1)
	}

	// Add XML header.
	xmlOutput := xml.Header + string(xmlData)

	// Write output.
	if *output != "" {
		if err := os.WriteFile(*output, []byte(xmlOutput), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
			os.Exit(1)
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "Wrote %s\n", *output)
		}
	} else {
		fmt.Println(xmlOutput)
	}
}

// generateKML creates a KML document of the airline's airports and routes.
func generateKML(s *store.Store, al store.Airline, segments int) KML {
	engine := query.New(s)

	var airports []Placemark
	for _, ac := range engine.AirportsByAirline(al.IATA) {
		a := ac.Airport
		airports = append(airports, Placemark{
			Name:        a.IATA,
			Description: fmt.Sprintf("%s\n%s, %s", a.Name, a.City, a.Country),
			StyleURL:    "#airportStyle",
			Point:       &Point{Coordinates: coordinates(orb.LineString{a.Point()})},
			ExtendedData: &ExtendedData{
				Data: []Data{
					{Name: "route_count", Value: strconv.Itoa(ac.RouteCount)},
					{Name: "icao", Value: a.ICAO},
				},
			},
		})
	}

	var routes []Placemark
	s.View(func(v store.View) {
		for _, r := range v.RoutesByAirline(al.IATA) {
			src, dst := v.AirportByIATA(r.SourceIATA), v.AirportByIATA(r.DestIATA)
			path := geo.GreatCircle(src.Point(), dst.Point(), segments)
			routes = append(routes, Placemark{
				Name:        fmt.Sprintf("%s %s-%s", r.AirlineIATA, r.SourceIATA, r.DestIATA),
				Description: fmt.Sprintf("%.0f mi, %d stops, %s", query.Distance(src, dst), r.Stops, r.Equipment),
				StyleURL:    "#routeStyle",
				LineString:  &LineString{Tessellate: 1, Coords: coordinates(path)},
			})
		}
	})

	return KML{
		Namespace: "http://www.opengis.net/kml/2.2",
		Document: Document{
			Name:        al.Name + " route network",
			Description: fmt.Sprintf("Routes operated by %s (%s). Generated %s.", al.Name, al.IATA, time.Now().Format("2006-01-02 15:04:05")),
			Styles: []Style{
				{
					ID: "airportStyle",
					IconStyle: &IconStyle{
						Scale: 0.8,
						Icon: Icon{
							Href: "http://maps.google.com/mapfiles/kml/shapes/airports.png",
						},
					},
				},
				{
					ID:        "routeStyle",
					LineStyle: &LineStyle{Color: "ff0080ff", Width: 1.5},
				},
			},
			Folders: []Folder{
				{Name: "Airports", Placemarks: airports},
				{Name: "Routes", Placemarks: routes},
			},
		},
	}
}

// coordinates formats points as KML coordinate tuples: lon,lat,altitude.
func coordinates(ls orb.LineString) string {
	parts := make([]string, len(ls))
	for i, p := range ls {
		parts[i] = fmt.Sprintf("%.6f,%.6f,0", p.Lon(), p.Lat())
	}
	return strings.Join(parts, " ")
}
