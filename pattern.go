package hotspot

import "math"

// orderings lists the permutations of a triple in lexicographic order,
// the first matching ordering is the one recorded on a cluster
var orderings = [6][3]int{
	{0, 1, 2},
	{0, 2, 1},
	{1, 0, 2},
	{1, 2, 0},
	{2, 0, 1},
	{2, 1, 0},
}

// MaxFare bounds the magnitude of a truncated fare. Within it |a - c| + (a mod c)
// cannot overflow an int64.
const MaxFare = int64(1) << 61

// Truncate coerces a real fare to an integer, truncating toward zero.
// ok is false for NaN, infinities and fares whose magnitude reaches MaxFare.
func Truncate(fare float64) (v int64, ok bool) {
	if math.IsNaN(fare) || fare <= -float64(MaxFare) || fare >= float64(MaxFare) {
		return 0, false
	}
	return int64(fare), true
}

// MatchesPattern reports whether b == |a - c| + (a mod c).
// mod is the floor modulo, its result takes the sign of c. A zero c never matches,
// neither does a fare out of the MaxFare range.
func MatchesPattern(a, b, c int64) bool {
	if c == 0 || !inRange(a) || !inRange(b) || !inRange(c) {
		return false
	}
	return b == abs(a-c)+FloorMod(a, c)
}

func inRange(v int64) bool {
	return v > -MaxFare && v < MaxFare
}

// truncateFares truncates the real fares of three trips, ok is false when one does not fit
func truncateFares(a, b, c Trip) (fares [3]int64, ok bool) {
	for i, t := range [3]Trip{a, b, c} {
		if fares[i], ok = Truncate(t.RealFare); !ok {
			return [3]int64{}, false
		}
	}
	return fares, true
}

// FloorMod returns a mod c using floor division
func FloorMod(a, c int64) int64 {
	m := a % c
	if m != 0 && (m < 0) != (c < 0) {
		m += c
	}
	return m
}

// matchFares returns the first ordering of fares that matches the pattern
func matchFares(fares [3]int64) ([3]int64, bool) {
	for _, o := range orderings {
		a, b, c := fares[o[0]], fares[o[1]], fares[o[2]]
		if MatchesPattern(a, b, c) {
			return [3]int64{a, b, c}, true
		}
	}
	return [3]int64{}, false
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
