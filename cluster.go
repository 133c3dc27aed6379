package hotspot

import (
	"sort"
	"time"
)

// Cluster is a valid triplet of trips at one location
type Cluster struct {
	Location Location
	// Trips are in timestamp order
	Trips [3]Trip
	// Pattern holds the truncated real fares A, B and C of the matching ordering
	Pattern        [3]int64
	Signature      float64
	FirstTimestamp time.Time

	// position of the trips in the location group
	index [3]int
}

// newCluster builds a cluster out of three trips of a time-ordered group
func newCluster(group []Trip, i, j, k int, pattern [3]int64) Cluster {
	trips := [3]Trip{group[i], group[j], group[k]}
	first := trips[0].Timestamp
	for _, t := range trips[1:] {
		if t.Timestamp.Before(first) {
			first = t.Timestamp
		}
	}
	return Cluster{
		Location:       trips[0].Location,
		Trips:          trips,
		Pattern:        pattern,
		Signature:      trips[0].RealFare + trips[1].RealFare + trips[2].RealFare,
		FirstTimestamp: first,
		index:          [3]int{i, j, k},
	}
}

// CarIDs returns the car ids of the cluster trips
func (c Cluster) CarIDs() [3]string {
	return [3]string{c.Trips[0].CarID, c.Trips[1].CarID, c.Trips[2].CarID}
}

// Detect returns every valid cluster of a location group under the given policy.
// group must hold the trips of a single location ordered by timestamp.
func Detect(group []Trip, policy Policy) []Cluster {
	if len(group) < 3 {
		return nil
	}
	switch policy {
	case PolicySlidingWindow:
		return detectSlidingWindow(group)
	default:
		return detectExhaustive(group)
	}
}

// detectExhaustive tests every combination of three trips against all orderings of their fares
func detectExhaustive(group []Trip) []Cluster {
	var clusters []Cluster
	n := len(group)
	for i := 0; i < n-2; i++ {
		for j := i + 1; j < n-1; j++ {
			for k := j + 1; k < n; k++ {
				if !distinctCars(group[i], group[j], group[k]) {
					continue
				}
				fares, ok := truncateFares(group[i], group[j], group[k])
				if !ok {
					continue
				}
				if pattern, ok := matchFares(fares); ok {
					clusters = append(clusters, newCluster(group, i, j, k, pattern))
				}
			}
		}
	}
	return clusters
}

// detectSlidingWindow scans windows of three consecutive trips, the window
// jumps past a match and slides by one otherwise
func detectSlidingWindow(group []Trip) []Cluster {
	var clusters []Cluster
	for i := 0; i+2 < len(group); {
		a, b, c := group[i], group[i+1], group[i+2]
		pattern, ok := truncateFares(a, b, c)
		if ok && distinctCars(a, b, c) && MatchesPattern(pattern[0], pattern[1], pattern[2]) {
			clusters = append(clusters, newCluster(group, i, i+1, i+2, pattern))
			i += 3
			continue
		}
		i++
	}
	return clusters
}

func distinctCars(a, b, c Trip) bool {
	return a.CarID != b.CarID && a.CarID != c.CarID && b.CarID != c.CarID
}

// SortTrips orders trips by location and then by timestamp, trips with equal
// timestamps keep their input order
func SortTrips(trips []Trip) {
	sort.SliceStable(trips, func(i, j int) bool {
		a, b := trips[i], trips[j]
		if a.Location != b.Location {
			return a.Location.Less(b.Location)
		}
		return a.Timestamp.Before(b.Timestamp)
	})
}

// SortClusters orders clusters by location, first timestamp and position in the group
func SortClusters(clusters []Cluster) {
	sort.Slice(clusters, func(i, j int) bool {
		a, b := clusters[i], clusters[j]
		if a.Location != b.Location {
			return a.Location.Less(b.Location)
		}
		if !a.FirstTimestamp.Equal(b.FirstTimestamp) {
			return a.FirstTimestamp.Before(b.FirstTimestamp)
		}
		for n := range a.index {
			if a.index[n] != b.index[n] {
				return a.index[n] < b.index[n]
			}
		}
		return false
	})
}
