/*
	Package hotspot finds the hidden taxi hotspot of a trip dataset. It accepts a list of trips of
	the form (lat, lon, timestamp, fare, car_id), decrypts the fares with a fixed key, detects
	clusters of three trips at the same location whose fares follow the pattern
	B = |A - C| + (A mod C), scores every location and selects the best one with a strict
	tie-break order.
*/
package hotspot

import (
	"errors"
	"fmt"
)

// DefaultKey is the decryption key of the published dataset
const DefaultKey = 3200

var (
	// ErrNoHotspot is returned when no location has a valid cluster
	ErrNoHotspot = errors.New("no hotspot found")
	// ErrUnknownPolicy is returned for an unsupported matching policy name
	ErrUnknownPolicy = errors.New("unknown matching policy")
)

// Policy selects how triplets are searched inside a location group
type Policy string

const (
	// PolicyExhaustive tests every combination of three trips against every ordering of their fares
	PolicyExhaustive Policy = "exhaustive"
	// PolicySlidingWindow tests three consecutive trips in timestamp order only
	PolicySlidingWindow Policy = "sliding-window"
)

// ParsePolicy converts a policy name into a Policy
func ParsePolicy(name string) (Policy, error) {
	switch p := Policy(name); p {
	case PolicyExhaustive, PolicySlidingWindow:
		return p, nil
	case "":
		return PolicyExhaustive, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

type Config struct {
	// Key is subtracted from every raw fare
	Key int64
	// Policy is the triplet matching policy
	Policy Policy
	// DropNonPositive discards trips whose decrypted fare is zero or negative
	DropNonPositive bool
	// Concurrency is the number of detection workers
	Concurrency int
}

func (c Config) Validate() error {
	switch {
	case c.Concurrency <= 0:
		return errors.New("concurrency should be greater than 0")
	case c.Policy != PolicyExhaustive && c.Policy != PolicySlidingWindow:
		return fmt.Errorf("%w: %q", ErrUnknownPolicy, c.Policy)
	}

	return nil
}
