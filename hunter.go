package hotspot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cubny/hotspot/internal/dataset"
	"github.com/cubny/hotspot/internal/pipeline"
)

// Progress is notified while location groups are scanned.
// *progressbar.ProgressBar satisfies it.
type Progress interface {
	ChangeMax(max int)
	Add(num int) error
}

// Stats summarises a run
type Stats struct {
	Rows            int `json:"rows"`
	DroppedRows     int `json:"dropped_rows"`
	DroppedNonPos   int `json:"dropped_non_positive"`
	Trips           int `json:"trips"`
	Locations       int `json:"locations"`
	Clusters        int `json:"clusters"`
	ScoredLocations int `json:"scored_locations"`
}

// Result is the outcome of a successful hunt
type Result struct {
	Hotspot LocationScore
	// Candidates holds every scored location from best to worst, Hotspot first
	Candidates []LocationScore
	Stats      Stats
}

// Hunter takes the trips of a dataset and finds their hotspot
type Hunter struct {
	trips    []Trip
	conf     *Config
	stats    Stats
	last     Stats
	logger   *slog.Logger
	progress Progress
}

// NewHunter creates a Hunter
func NewHunter(trips []Trip, config *Config) (*Hunter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Hunter{
		trips:  trips,
		conf:   config,
		stats:  Stats{Rows: len(trips)},
		logger: slog.Default(),
	}, nil
}

// Load reads a trip table, drops incomplete rows and rows that NewTrip rejects
// (non-finite numbers, blank car id, unparseable timestamp), and creates a Hunter for the remaining trips
func Load(r io.Reader, format dataset.Format, config *Config) (*Hunter, error) {
	records, stats, err := dataset.Load(r, format)
	if err != nil {
		return nil, fmt.Errorf("load trips: %w", err)
	}

	trips := make([]Trip, 0, len(records))
	invalid := 0
	for _, rec := range records {
		trip, err := NewTrip(rec.Lat, rec.Lon, rec.Timestamp, rec.Fare, rec.CarID)
		if err != nil {
			invalid++
			continue
		}
		trips = append(trips, trip)
	}

	h, err := NewHunter(trips, config)
	if err != nil {
		return nil, err
	}
	h.stats.Rows = stats.Rows
	h.stats.DroppedRows = stats.Dropped + invalid
	h.logger.Info("trips loaded",
		slog.Int("rows", stats.Rows),
		slog.Int("incomplete", stats.Dropped),
		slog.Int("invalid", invalid),
		slog.Int("trips", len(trips)))

	return h, nil
}

// WithLogger replaces the default logger
func (h *Hunter) WithLogger(logger *slog.Logger) *Hunter {
	h.logger = logger
	return h
}

// WithProgress reports the scanned location groups to p
func (h *Hunter) WithProgress(p Progress) *Hunter {
	h.progress = p
	return h
}

// Run decrypts the trips, detects clusters per location and selects the hotspot.
// It returns ErrNoHotspot when no location has a valid cluster.
func (h *Hunter) Run(ctx context.Context) (*Result, error) {
	stats := h.stats
	trips := Decrypt(h.trips, h.conf.Key)
	if h.conf.DropNonPositive {
		trips, stats.DroppedNonPos = DropNonPositive(trips)
	}
	SortTrips(trips)
	stats.Trips = len(trips)
	stats.Locations = countLocations(trips)
	if h.progress != nil {
		h.progress.ChangeMax(stats.Locations)
	}

	tripc, errc1 := pipeline.Generate(ctx, h.streamTrips(trips))
	groupc, errc2 := pipeline.Group(ctx, tripc, h.sameLocation)
	clusterc, errc3 := pipeline.WorkerPool(ctx, h.conf.Concurrency, groupc, h.detect)

	var clusters []Cluster
	sinkErr := pipeline.Sink(ctx, clusterc, func(found []Cluster) error {
		clusters = append(clusters, found...)
		return nil
	})

	// stages report cancellation with their own errors, the context error wins over them
	var stageErr error
	if sinkErr == nil {
		for err := range pipeline.MergeErrors(ctx, errc1, errc2, errc3) {
			if err != nil && !errors.Is(err, io.EOF) && stageErr == nil {
				stageErr = err
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sinkErr != nil {
		return nil, sinkErr
	}
	if stageErr != nil {
		return nil, stageErr
	}

	SortClusters(clusters)
	ranked := Rank(Score(clusters))
	stats.Clusters = len(clusters)
	stats.ScoredLocations = len(ranked)

	h.logger.Info("clusters detected",
		slog.String("policy", string(h.conf.Policy)),
		slog.Int64("key", h.conf.Key),
		slog.Int("trips", stats.Trips),
		slog.Int("locations", stats.Locations),
		slog.Int("clusters", stats.Clusters),
		slog.Int("scored_locations", stats.ScoredLocations))

	h.last = stats
	best, err := Select(ranked)
	if err != nil {
		return nil, err
	}

	return &Result{
		Hotspot:    best,
		Candidates: ranked,
		Stats:      stats,
	}, nil
}

// Stats returns the counters of the last finished Run, or of the load when Run was not called
func (h *Hunter) Stats() Stats {
	if h.last == (Stats{}) {
		return h.stats
	}
	return h.last
}

// streamTrips is a pipeline.GenerateFunc that emits the sorted trips one at a time
func (h *Hunter) streamTrips(trips []Trip) pipeline.GenerateFunc[Trip] {
	i := 0
	return func() (Trip, bool, error) {
		if i >= len(trips) {
			return Trip{}, false, io.EOF
		}
		trip := trips[i]
		i++
		return trip, true, nil
	}
}

// sameLocation is a pipeline.BelongFunc that groups trips by location
func (h *Hunter) sameLocation(trip Trip, group []Trip) (bool, error) {
	return trip.Location == group[0].Location, nil
}

// detect is a pipeline.WorkerFunc that detects the clusters of one location group
func (h *Hunter) detect(ctx context.Context, group []Trip, outc chan<- []Cluster) error {
	clusters := Detect(group, h.conf.Policy)
	if h.progress != nil {
		_ = h.progress.Add(1)
	}
	if len(clusters) == 0 {
		return nil
	}
	h.logger.Debug("location has clusters",
		slog.Float64("lat", group[0].Location.Lat),
		slog.Float64("lon", group[0].Location.Lon),
		slog.Int("trips", len(group)),
		slog.Int("clusters", len(clusters)))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case outc <- clusters:
	}
	return nil
}

func countLocations(sorted []Trip) int {
	n := 0
	for i, t := range sorted {
		if i == 0 || t.Location != sorted[i-1].Location {
			n++
		}
	}
	return n
}
