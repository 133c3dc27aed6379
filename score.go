package hotspot

import (
	"sort"
	"time"
)

// LocationScore aggregates the clusters found at a location
type LocationScore struct {
	Location     Location
	TotalScore   float64
	Earliest     time.Time
	ClusterCount int
	Clusters     []Cluster
}

// Score folds clusters into one LocationScore per location. The result is ordered
// like the input, clusters should be sorted with SortClusters beforehand.
func Score(clusters []Cluster) []LocationScore {
	var scores []LocationScore
	index := make(map[Location]int)
	for _, c := range clusters {
		i, ok := index[c.Location]
		if !ok {
			index[c.Location] = len(scores)
			scores = append(scores, LocationScore{
				Location: c.Location,
				Earliest: c.FirstTimestamp,
			})
			i = len(scores) - 1
		}
		s := &scores[i]
		s.TotalScore += c.Signature
		s.ClusterCount++
		s.Clusters = append(s.Clusters, c)
		if c.FirstTimestamp.Before(s.Earliest) {
			s.Earliest = c.FirstTimestamp
		}
	}
	return scores
}

// Better reports whether a ranks before b: higher total score, then earlier
// earliest cluster, then higher latitude, then higher longitude
func Better(a, b LocationScore) bool {
	switch {
	case a.TotalScore != b.TotalScore:
		return a.TotalScore > b.TotalScore
	case !a.Earliest.Equal(b.Earliest):
		return a.Earliest.Before(b.Earliest)
	case a.Location.Lat != b.Location.Lat:
		return a.Location.Lat > b.Location.Lat
	default:
		return a.Location.Lon > b.Location.Lon
	}
}

// Rank returns a copy of scores sorted from best to worst. Locations without
// clusters are excluded.
func Rank(scores []LocationScore) []LocationScore {
	ranked := make([]LocationScore, 0, len(scores))
	for _, s := range scores {
		if s.ClusterCount > 0 {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return Better(ranked[i], ranked[j])
	})
	return ranked
}

// Select returns the best location, or ErrNoHotspot when no location has a cluster
func Select(scores []LocationScore) (LocationScore, error) {
	var (
		best  LocationScore
		found bool
	)
	for _, s := range scores {
		if s.ClusterCount == 0 {
			continue
		}
		if !found || Better(s, best) {
			best, found = s, true
		}
	}
	if !found {
		return LocationScore{}, ErrNoHotspot
	}
	return best, nil
}
