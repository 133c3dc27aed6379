package report

import (
	"fmt"
	"io"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/cubny/hotspot"
)

// clusterRow is the parquet schema of an exported cluster
type clusterRow struct {
	Lat            float64 `parquet:"name=lat, type=DOUBLE"`
	Lon            float64 `parquet:"name=lon, type=DOUBLE"`
	FirstTimestamp int64   `parquet:"name=first_timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	CarA           string  `parquet:"name=car_a, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CarB           string  `parquet:"name=car_b, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	CarC           string  `parquet:"name=car_c, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	FareA          float64 `parquet:"name=fare_a, type=DOUBLE"`
	FareB          float64 `parquet:"name=fare_b, type=DOUBLE"`
	FareC          float64 `parquet:"name=fare_c, type=DOUBLE"`
	PatternA       int64   `parquet:"name=pattern_a, type=INT64"`
	PatternB       int64   `parquet:"name=pattern_b, type=INT64"`
	PatternC       int64   `parquet:"name=pattern_c, type=INT64"`
	Signature      float64 `parquet:"name=signature, type=DOUBLE"`
	Rank           int32   `parquet:"name=rank, type=INT32"`
}

// ExportParquet writes every cluster of every ranked location to a local parquet file
func ExportParquet(path string, result *hotspot.Result) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("failed to create local file writer: %w", err)
	}

	pw, err := writer.NewParquetWriter(fw, new(clusterRow), 1)
	if err != nil {
		_ = fw.Close()
		return fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	if err := writeClusters(pw, result); err != nil {
		_ = fw.Close()
		return err
	}

	return fw.Close()
}

// WriteParquet writes every cluster of every ranked location to w
func WriteParquet(w io.Writer, result *hotspot.Result) error {
	pw, err := writer.NewParquetWriterFromWriter(w, new(clusterRow), 1)
	if err != nil {
		return fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	return writeClusters(pw, result)
}

func writeClusters(pw *writer.ParquetWriter, result *hotspot.Result) error {
	for rank, candidate := range result.Candidates {
		for _, c := range candidate.Clusters {
			row := clusterRow{
				Lat:            c.Location.Lat,
				Lon:            c.Location.Lon,
				FirstTimestamp: c.FirstTimestamp.UnixMilli(),
				CarA:           c.Trips[0].CarID,
				CarB:           c.Trips[1].CarID,
				CarC:           c.Trips[2].CarID,
				FareA:          c.Trips[0].RealFare,
				FareB:          c.Trips[1].RealFare,
				FareC:          c.Trips[2].RealFare,
				PatternA:       c.Pattern[0],
				PatternB:       c.Pattern[1],
				PatternC:       c.Pattern[2],
				Signature:      c.Signature,
				Rank:           int32(rank + 1),
			}
			if err := pw.Write(row); err != nil {
				return fmt.Errorf("failed to write cluster: %w", err)
			}
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to stop ParquetWriter: %w", err)
	}
	return nil
}
