package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cubny/hotspot"
	"github.com/cubny/hotspot/internal/config"
	"github.com/cubny/hotspot/internal/history"
	"github.com/cubny/hotspot/internal/synth"
)

func (a *app) generateCmd() *cobra.Command {
	opts := synth.DefaultOptions()
	var output, start string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Writes a synthetic trip table with a planted hotspot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if opts.Start, err = time.Parse(time.RFC3339, start); err != nil {
				return fmt.Errorf("invalid start: %w", err)
			}

			w := a.stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("open output file: %w", err)
				}
				defer f.Close()
				w = f
			}

			planted, err := synth.Write(w, opts)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(a.stderr, "%d rows written to %s, hotspot at (%f, %f)\n",
					planted.Rows, output, planted.Hotspot.Lat, planted.Hotspot.Lon)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output csv file, stdout when empty")
	f.Int64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	f.IntVar(&opts.Noise, "noise", opts.Noise, "trips outside any cluster")
	f.IntVar(&opts.Decoys, "decoys", opts.Decoys, "locations with one low scoring cluster")
	f.IntVar(&opts.HotspotClusters, "clusters", opts.HotspotClusters, "clusters planted at the hotspot")
	f.IntVar(&opts.Incomplete, "incomplete", opts.Incomplete, "rows with a missing field")
	f.Int64Var(&opts.Key, "key", opts.Key, "encryption key added to every fare")
	f.StringVar(&start, "start", opts.Start.Format(time.RFC3339), "timestamp of the first trip")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Lists recorded hunts, the latest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			conf, err := config.Load(v, a.cfgFile, a.envFile)
			if err != nil {
				return err
			}
			a.logger(conf)
			if conf.HistoryDB == "" {
				return fmt.Errorf("history database is required")
			}

			store, err := history.Open(cmd.Context(), conf.HistoryDB)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range runs {
				fmt.Fprintln(a.stdout, formatRun(r))
			}
			return nil
		},
	}

	cmd.Flags().String("history-db", "", "sqlite database of recorded runs")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs")
	return cmd
}

func formatRun(r history.Run) string {
	head := fmt.Sprintf("%s  %s  %s  key=%d policy=%s trips=%d",
		r.ID, r.StartedAt.Format(time.RFC3339), r.Input, r.Key, r.Policy, r.Trips)
	if !r.Found {
		return head + "  " + hotspot.ErrNoHotspot.Error()
	}
	return fmt.Sprintf("%s  hotspot=(%f, %f) score=%g clusters=%d earliest=%s",
		head, r.Location.Lat, r.Location.Lon, r.TotalScore, r.ClusterCount, r.Earliest.Format(time.RFC3339))
}
