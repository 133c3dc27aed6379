// Package dataset reads the trip table and drops incomplete rows.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xuri/excelize/v2"
)

// Format is the file format of a trip table
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	ColLat       = "lat"
	ColLon       = "lon"
	ColTimestamp = "timestamp"
	ColFare      = "fare"
	ColCarID     = "car_id"
)

// Columns lists the required columns of a trip table
var Columns = []string{ColLat, ColLon, ColTimestamp, ColFare, ColCarID}

var (
	// ErrMissingColumn is returned when the header lacks a required column
	ErrMissingColumn = errors.New("required column is missing")
	// ErrUnknownFormat is returned for an unsupported table format
	ErrUnknownFormat = errors.New("unknown table format")
	// ErrEmpty is returned when the table has no header row
	ErrEmpty = errors.New("table is empty")
)

// values treated as missing, on top of the empty string
var nanValues = []string{"", "NA", "NaN", "nan", "null", "<nil>"}

// Record is a row of the trip table with every required field present
type Record struct {
	Lat       float64
	Lon       float64
	Timestamp string
	Fare      float64
	CarID     string
}

// Stats counts the rows seen by Load
type Stats struct {
	Rows    int
	Dropped int
}

// DetectFormat guesses the table format from a path or object key
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// ParseFormat converts a format name into a Format, an empty name is detected from path
func ParseFormat(name, path string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case "":
		return DetectFormat(path), nil
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Load reads the whole table and returns the complete rows in input order
func Load(r io.Reader, format Format) ([]Record, Stats, error) {
	var (
		records [][]string
		err     error
	)
	switch format {
	case FormatCSV:
		records, err = readCSV(r)
	case FormatXLSX:
		records, err = readXLSX(r)
	default:
		return nil, Stats{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, Stats{}, err
	}

	return clean(records)
}

// clean loads the raw records into a dataframe and keeps the rows without missing values
func clean(records [][]string) ([]Record, Stats, error) {
	if len(records) == 0 {
		return nil, Stats{}, ErrEmpty
	}
	header := normalizeHeader(records[0])
	for _, col := range Columns {
		if !contains(header, col) {
			return nil, Stats{}, fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	records[0] = header
	normalizeRows(records[1:], len(header))

	stats := Stats{Rows: len(records) - 1}
	if stats.Rows == 0 {
		return nil, stats, nil
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nanValues),
		dataframe.WithTypes(map[string]series.Type{
			ColLat:  series.Float,
			ColLon:  series.Float,
			ColFare: series.Float,
		}),
	)
	if df.Err != nil {
		return nil, stats, fmt.Errorf("load dataframe: %w", df.Err)
	}
	df = df.Select(Columns)
	if df.Err != nil {
		return nil, stats, fmt.Errorf("select columns: %w", df.Err)
	}

	lats := df.Col(ColLat)
	lons := df.Col(ColLon)
	timestamps := df.Col(ColTimestamp)
	fares := df.Col(ColFare)
	carIDs := df.Col(ColCarID)

	missing := make([]bool, df.Nrow())
	for _, s := range []series.Series{lats, lons, timestamps, fares, carIDs} {
		for i, nan := range s.IsNaN() {
			missing[i] = missing[i] || nan
		}
	}

	latv, lonv, farev := lats.Float(), lons.Float(), fares.Float()
	tsv, carv := timestamps.Records(), carIDs.Records()

	out := make([]Record, 0, df.Nrow())
	for i := range missing {
		if missing[i] {
			stats.Dropped++
			continue
		}
		out = append(out, Record{
			Lat:       latv[i],
			Lon:       lonv[i],
			Timestamp: tsv[i],
			Fare:      farev[i],
			CarID:     carv[i],
		})
	}

	return out, stats, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	in := csv.NewReader(r)
	in.FieldsPerRecord = -1
	in.TrimLeadingSpace = true
	records, err := in.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

// readXLSX returns the rows of the first sheet
func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmpty
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return out
}

// normalizeRows trims every cell and makes every row as wide as the header.
// Short rows come from spreadsheets with trailing empty cells and from ragged csv lines.
func normalizeRows(rows [][]string, width int) {
	for i, row := range rows {
		fixed := make([]string, width)
		for j := 0; j < width && j < len(row); j++ {
			fixed[j] = strings.TrimSpace(row[j])
		}
		rows[i] = fixed
	}
}

func contains(items []string, item string) bool {
	for _, i := range items {
		if i == item {
			return true
		}
	}
	return false
}
