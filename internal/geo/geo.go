// Package geo derives display tokens and distances for trip locations.
package geo

import (
	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/golang/geo/s2"
)

const earthRadiusKm = float64(6371)

// DefaultCellLevel is an S2 level whose cells are roughly 150m wide
const DefaultCellLevel = 16

// Haversine returns the great-circle distance in kilometers between two points
func Haversine(latFrom, lonFrom, latTo, lonTo float64) float64 {
	from := s2.LatLngFromDegrees(latFrom, lonFrom)
	to := s2.LatLngFromDegrees(latTo, lonTo)
	return from.Distance(to).Radians() * earthRadiusKm
}

// CellToken returns the token of the S2 cell containing the point at the given level
func CellToken(lat, lon float64, level int) string {
	return s2.CellIDFromLatLng(s2.LatLngFromDegrees(lat, lon)).Parent(level).ToToken()
}

// Geohash encodes the point as a geohash
func Geohash(lat, lon float64) string {
	return geohash.Encode(lat, lon)
}
