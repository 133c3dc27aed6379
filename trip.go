package hotspot

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	errBadTimestamp = errors.New("timestamp could not be parsed")
	errNotFinite    = errors.New("numeric field is missing or not finite")
)

// timestampLayouts are tried in order when parsing a trip timestamp
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Location is an exact (latitude, longitude) pair. It is an identity key, not a metric.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Less orders locations by latitude and then longitude
func (l Location) Less(other Location) bool {
	if l.Lat != other.Lat {
		return l.Lat < other.Lat
	}
	return l.Lon < other.Lon
}

// Trip holds a single taxi trip
type Trip struct {
	Location  Location
	Timestamp time.Time
	// Fare is the raw, encrypted fare
	Fare float64
	// RealFare is Fare minus the decryption key, it is zero until the trip is decrypted
	RealFare float64
	CarID    string
}

// NewTrip creates a Trip out of already typed columns and a raw timestamp
func NewTrip(lat, lon float64, rawTimestamp string, fare float64, carID string) (Trip, error) {
	for _, v := range []float64{lat, lon, fare} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Trip{}, errNotFinite
		}
	}
	carID = strings.TrimSpace(carID)
	if carID == "" {
		return Trip{}, errors.New("car_id is missing")
	}

	ts, err := ParseTimestamp(rawTimestamp)
	if err != nil {
		return Trip{}, err
	}

	return Trip{
		Location:  Location{Lat: lat, Lon: lon},
		Timestamp: ts,
		Fare:      fare,
		CarID:     carID,
	}, nil
}

// ParseTimestamp parses the supported timestamp layouts or integer unix seconds
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errBadTimestamp
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	if sec, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC(), nil
	}

	return time.Time{}, errBadTimestamp
}

// Decrypt returns a copy of trips with RealFare set to Fare - key
func Decrypt(trips []Trip, key int64) []Trip {
	out := make([]Trip, len(trips))
	for i, t := range trips {
		t.RealFare = t.Fare - float64(key)
		out[i] = t
	}
	return out
}

// DropNonPositive returns the decrypted trips whose real fare is greater than zero
// and the number of trips discarded
func DropNonPositive(trips []Trip) ([]Trip, int) {
	out := make([]Trip, 0, len(trips))
	for _, t := range trips {
		if t.RealFare > 0 {
			out = append(out, t)
		}
	}
	return out, len(trips) - len(out)
}
