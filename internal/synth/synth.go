// Package synth writes synthetic trip tables with a planted hotspot.
package synth

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/jaswdr/faker"

	"github.com/cubny/hotspot"
	"github.com/cubny/hotspot/internal/dataset"
)

type Options struct {
	Seed int64
	// Noise is the number of trips that belong to no cluster
	Noise int
	// Decoys is the number of locations holding one low scoring cluster
	Decoys int
	// HotspotClusters is the number of clusters planted at the hotspot
	HotspotClusters int
	// Incomplete is the number of rows with a missing field
	Incomplete int
	Key        int64
	Start      time.Time
}

// DefaultOptions returns a small dataset with one hotspot and two decoys
func DefaultOptions() Options {
	return Options{
		Seed:            42,
		Noise:           200,
		Decoys:          2,
		HotspotClusters: 2,
		Incomplete:      5,
		Key:             hotspot.DefaultKey,
		Start:           time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Planted describes what was written
type Planted struct {
	Hotspot hotspot.Location
	Decoys  []hotspot.Location
	Rows    int
}

type generator struct {
	fake  faker.Faker
	opts  Options
	used  map[hotspot.Location]bool
	cars  map[string]bool
	clock time.Time
	rows  [][]string
}

// Write generates a csv trip table into w. Hotspot clusters use decrypted fares of 60 and more
// while decoy clusters stay under 40, so the hotspot always scores highest.
func Write(w io.Writer, opts Options) (Planted, error) {
	if opts.HotspotClusters < 1 {
		return Planted{}, errors.New("at least one hotspot cluster is required")
	}
	if opts.Noise < 0 || opts.Decoys < 0 || opts.Incomplete < 0 {
		return Planted{}, errors.New("counts should not be negative")
	}

	g := &generator{
		fake:  faker.NewWithSeed(rand.NewSource(opts.Seed)),
		opts:  opts,
		used:  make(map[hotspot.Location]bool),
		cars:  make(map[string]bool),
		clock: opts.Start,
	}

	planted := Planted{Hotspot: g.location()}
	for i := 0; i < opts.HotspotClusters; i++ {
		g.cluster(planted.Hotspot, 60, 100)
	}
	for i := 0; i < opts.Decoys; i++ {
		loc := g.location()
		planted.Decoys = append(planted.Decoys, loc)
		g.cluster(loc, 10, 40)
	}
	for i := 0; i < opts.Noise; i++ {
		g.trip(g.location(), float64(g.fake.IntBetween(1, 80)), g.car())
	}
	for i := 0; i < opts.Incomplete; i++ {
		g.incomplete()
	}

	// interleave planted and noise rows
	r := rand.New(rand.NewSource(opts.Seed))
	r.Shuffle(len(g.rows), func(i, j int) { g.rows[i], g.rows[j] = g.rows[j], g.rows[i] })

	output := csv.NewWriter(w)
	if err := output.Write(dataset.Columns); err != nil {
		return Planted{}, err
	}
	if err := output.WriteAll(g.rows); err != nil {
		return Planted{}, fmt.Errorf("failed to write trips: %w", err)
	}
	planted.Rows = len(g.rows)
	return planted, nil
}

// location returns a point that no earlier call returned
func (g *generator) location() hotspot.Location {
	for {
		loc := hotspot.Location{
			Lat: round(g.fake.Address().Latitude()),
			Lon: round(g.fake.Address().Longitude()),
		}
		if !g.used[loc] {
			g.used[loc] = true
			return loc
		}
	}
}

// car returns a car id that no earlier call returned
func (g *generator) car() string {
	for {
		id := strings.ToUpper(g.fake.Bothify("??-####"))
		if !g.cars[id] {
			g.cars[id] = true
			return id
		}
	}
}

// cluster writes three trips by distinct cars whose decrypted fares follow the pattern,
// with the first fare in [minA, maxA]
func (g *generator) cluster(loc hotspot.Location, minA, maxA int) {
	a := int64(g.fake.IntBetween(minA, maxA))
	c := int64(g.fake.IntBetween(2, 9))
	diff := a - c
	if diff < 0 {
		diff = -diff
	}
	b := diff + hotspot.FloorMod(a, c)

	for _, fare := range []int64{a, b, c} {
		g.trip(loc, float64(fare)+cents(g.fake), g.car())
	}
}

func (g *generator) trip(loc hotspot.Location, realFare float64, car string) {
	g.clock = g.clock.Add(time.Duration(g.fake.IntBetween(1, 15)) * time.Minute)
	g.rows = append(g.rows, []string{
		strconv.FormatFloat(loc.Lat, 'f', 6, 64),
		strconv.FormatFloat(loc.Lon, 'f', 6, 64),
		g.clock.Format("2006-01-02 15:04:05"),
		strconv.FormatFloat(float64(g.opts.Key)+realFare, 'f', 2, 64),
		car,
	})
}

// incomplete writes a trip at a fresh location with one blank field
func (g *generator) incomplete() {
	g.trip(g.location(), float64(g.fake.IntBetween(1, 80)), g.car())
	row := g.rows[len(g.rows)-1]
	row[g.fake.IntBetween(0, len(row)-1)] = ""
}

// cents returns a fraction below one that truncation removes
func cents(f faker.Faker) float64 {
	return float64(f.IntBetween(0, 99)) / 100
}

func round(v float64) float64 {
	parsed, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 6, 64), 64)
	return parsed
}
