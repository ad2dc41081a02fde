// Package geo provides great-circle distance helpers for airport coordinates.
package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// EarthRadiusMiles is the spherical Earth radius used for route distances, in statute miles.
const EarthRadiusMiles = 3959.0

// Point converts a latitude/longitude pair in degrees to an orb point (lon, lat order).
func Point(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// Miles returns the haversine distance between two points in statute miles.
// orb computes the central angle on its own radius; the result is rescaled so the
// arc length matches a 3959 mile sphere.
func Miles(from, to orb.Point) float64 {
	if from == to {
		return 0
	}
	return orbgeo.DistanceHaversine(from, to) / orb.EarthRadius * EarthRadiusMiles
}

// MilesBetween is Miles for raw coordinates.
func MilesBetween(lat1, lon1, lat2, lon2 float64) float64 {
	return Miles(Point(lat1, lon1), Point(lat2, lon2))
}

// GreatCircle returns the great-circle path from one point to another as a
// line string of segments+1 points, both endpoints included.
func GreatCircle(from, to orb.Point, segments int) orb.LineString {
	if segments < 1 {
		segments = 1
	}
	d := orbgeo.DistanceHaversine(from, to)
	bearing := orbgeo.Bearing(from, to)

	ls := make(orb.LineString, 0, segments+1)
	ls = append(ls, from)
	for i := 1; i < segments; i++ {
		ls = append(ls, orbgeo.PointAtBearingAndDistance(from, bearing, d*float64(i)/float64(segments)))
	}
	return append(ls, to)
}
