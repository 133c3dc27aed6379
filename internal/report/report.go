// Package report renders the outcome of a hunt.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cubny/hotspot"
	"github.com/cubny/hotspot/internal/geo"
)

// Format is the rendering of a report
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ErrUnknownFormat is returned for an unsupported report format
var ErrUnknownFormat = errors.New("unknown report format")

// Report is the structured result of a hunt
type Report struct {
	Location          hotspot.Location `json:"location"`
	Geohash           string           `json:"geohash"`
	S2Cell            string           `json:"s2_cell"`
	TotalScore        float64          `json:"total_score"`
	ClusterCount      int              `json:"cluster_count"`
	EarliestTimestamp time.Time        `json:"earliest_timestamp"`
	Clusters          []Cluster        `json:"clusters"`
	Ranking           []Candidate      `json:"ranking"`
	Key               int64            `json:"key"`
	Policy            hotspot.Policy   `json:"policy"`
	Stats             hotspot.Stats    `json:"stats"`
}

// Cluster details one cluster of the hotspot
type Cluster struct {
	CarIDs         [3]string    `json:"car_ids"`
	Timestamps     [3]time.Time `json:"timestamps"`
	OriginalFares  [3]float64   `json:"original_fares"`
	DecryptedFares [3]float64   `json:"decrypted_fares"`
	Pattern        [3]int64     `json:"pattern"`
	Verification   string       `json:"verification"`
	Signature      float64      `json:"signature"`
	FirstTimestamp time.Time    `json:"first_timestamp"`
}

// Candidate is a ranked location
type Candidate struct {
	Rank         int              `json:"rank"`
	Location     hotspot.Location `json:"location"`
	TotalScore   float64          `json:"total_score"`
	ClusterCount int              `json:"cluster_count"`
	Earliest     time.Time        `json:"earliest_timestamp"`
	// DistanceKm is the distance from the hotspot
	DistanceKm float64 `json:"distance_km"`
}

// ParseFormat converts a format name into a Format
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// New builds the report of a result, the ranking keeps the top best locations
func New(result *hotspot.Result, config hotspot.Config, top int) Report {
	h := result.Hotspot
	r := Report{
		Location:          h.Location,
		Geohash:           geo.Geohash(h.Location.Lat, h.Location.Lon),
		S2Cell:            geo.CellToken(h.Location.Lat, h.Location.Lon, geo.DefaultCellLevel),
		TotalScore:        h.TotalScore,
		ClusterCount:      h.ClusterCount,
		EarliestTimestamp: h.Earliest,
		Key:               config.Key,
		Policy:            config.Policy,
		Stats:             result.Stats,
	}
	for _, c := range h.Clusters {
		r.Clusters = append(r.Clusters, newCluster(c))
	}
	for i, c := range result.Candidates {
		if top > 0 && i >= top {
			break
		}
		r.Ranking = append(r.Ranking, Candidate{
			Rank:         i + 1,
			Location:     c.Location,
			TotalScore:   c.TotalScore,
			ClusterCount: c.ClusterCount,
			Earliest:     c.Earliest,
			DistanceKm:   geo.Haversine(h.Location.Lat, h.Location.Lon, c.Location.Lat, c.Location.Lon),
		})
	}
	return r
}

func newCluster(c hotspot.Cluster) Cluster {
	out := Cluster{
		Pattern:        c.Pattern,
		Verification:   Verification(c.Pattern),
		Signature:      c.Signature,
		FirstTimestamp: c.FirstTimestamp,
	}
	for i, t := range c.Trips {
		out.CarIDs[i] = t.CarID
		out.Timestamps[i] = t.Timestamp
		out.OriginalFares[i] = t.Fare
		out.DecryptedFares[i] = t.RealFare
	}
	return out
}

// Verification spells out the fare pattern check of a cluster
func Verification(p [3]int64) string {
	a, b, c := p[0], p[1], p[2]
	diff := a - c
	if diff < 0 {
		diff = -diff
	}
	return fmt.Sprintf("%d = |%d - %d| + (%d mod %d) = %d + %d", b, a, c, a, c, diff, hotspot.FloorMod(a, c))
}

// Write renders the report in the given format
func Write(w io.Writer, r Report, format Format) error {
	switch format {
	case FormatText:
		return WriteText(w, r)
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatCSV:
		return WriteCSV(w, r)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteJSON writes the report as indented JSON
func WriteJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes the ranking, one location per line
func WriteCSV(w io.Writer, r Report) error {
	output := csv.NewWriter(w)
	header := []string{"rank", "lat", "lon", "total_score", "cluster_count", "earliest_timestamp", "distance_km"}
	if err := output.Write(header); err != nil {
		return err
	}
	for _, c := range r.Ranking {
		record := []string{
			strconv.Itoa(c.Rank),
			formatCoord(c.Location.Lat),
			formatCoord(c.Location.Lon),
			formatNumber(c.TotalScore),
			strconv.Itoa(c.ClusterCount),
			c.Earliest.Format(time.RFC3339),
			strconv.FormatFloat(c.DistanceKm, 'f', 3, 64),
		}
		if err := output.Write(record); err != nil {
			return err
		}
	}

	output.Flush()
	return output.Error()
}

// WriteText writes the human readable report
func WriteText(w io.Writer, r Report) error {
	p := &printer{w: w}
	p.line("HOTSPOT FOUND")
	p.line("  coordinates:      (%s, %s)", formatCoord(r.Location.Lat), formatCoord(r.Location.Lon))
	p.line("  geohash:          %s", r.Geohash)
	p.line("  s2 cell:          %s", r.S2Cell)
	p.line("  total score:      %s", formatNumber(r.TotalScore))
	p.line("  clusters:         %d", r.ClusterCount)
	p.line("  earliest cluster: %s", r.EarliestTimestamp.Format(time.RFC3339))
	p.line("  decryption key:   %d (%s)", r.Key, r.Policy)

	for i, c := range r.Clusters {
		p.line("")
		p.line("cluster %d", i+1)
		p.line("  taxi ids:        %s", strings.Join(c.CarIDs[:], ", "))
		p.line("  timestamps:      %s, %s, %s",
			c.Timestamps[0].Format(time.RFC3339), c.Timestamps[1].Format(time.RFC3339), c.Timestamps[2].Format(time.RFC3339))
		p.line("  original fares:  %s", joinNumbers(c.OriginalFares))
		p.line("  decrypted fares: %s", joinNumbers(c.DecryptedFares))
		p.line("  signature:       %s", formatNumber(c.Signature))
		p.line("  pattern:         %s", c.Verification)
	}

	if len(r.Ranking) > 1 {
		p.line("")
		p.line("runners-up")
		for _, c := range r.Ranking[1:] {
			p.line("  #%d (%s, %s) score %s, %d clusters, earliest %s, %.3f km away",
				c.Rank, formatCoord(c.Location.Lat), formatCoord(c.Location.Lon),
				formatNumber(c.TotalScore), c.ClusterCount, c.Earliest.Format(time.RFC3339), c.DistanceKm)
		}
	}

	p.line("")
	p.line("rows %d, dropped %d, non-positive fares dropped %d, trips %d, locations %d, clusters %d",
		r.Stats.Rows, r.Stats.DroppedRows, r.Stats.DroppedNonPos, r.Stats.Trips, r.Stats.Locations, r.Stats.Clusters)

	return p.err
}

// printer keeps the first write error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinNumbers(values [3]float64) string {
	return formatNumber(values[0]) + ", " + formatNumber(values[1]) + ", " + formatNumber(values[2])
}
