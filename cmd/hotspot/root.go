package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cubny/hotspot"
	"github.com/cubny/hotspot/internal/config"
	"github.com/cubny/hotspot/internal/dataset"
	"github.com/cubny/hotspot/internal/history"
	"github.com/cubny/hotspot/internal/logging"
	"github.com/cubny/hotspot/internal/publish"
	"github.com/cubny/hotspot/internal/report"
	"github.com/cubny/hotspot/internal/source"
)

const (
	exitOK = iota
	exitError
	exitNoHotspot
)

type app struct {
	stdout, stderr io.Writer
	cfgFile        string
	envFile        string
	progress       bool
}

// execute runs the command line and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, hotspot.ErrNoHotspot):
		fmt.Fprintln(stdout, "no hotspot found")
		return exitNoHotspot
	default:
		fmt.Fprintf(stderr, "error: %s\n", err)
		return exitError
	}
}

func (a *app) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hotspot [input]",
		Short: "Finds the hidden taxi hotspot of a trip dataset",
		Long: `hotspot reads a table of taxi trips (lat, lon, timestamp, fare, car_id), decrypts the fares,
detects clusters of three trips whose fares follow B = |A - C| + (A mod C) and reports the
location with the highest total cluster score.

The input is a local csv or xlsx file or an s3://bucket/key uri.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			conf, err := config.Load(v, a.cfgFile, a.envFile)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				conf.Input = args[0]
			}
			return a.hunt(cmd.Context(), conf)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded into the environment when present")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "text", "log format: text or json")

	f := cmd.Flags()
	f.StringP("input", "i", "", "input table path or s3 uri")
	f.String("format", "", "input format: csv or xlsx, detected from the extension when empty")
	f.Int64("key", hotspot.DefaultKey, "decryption key subtracted from every fare")
	f.String("policy", string(hotspot.PolicyExhaustive), "triplet policy: exhaustive or sliding-window")
	f.Bool("drop-non-positive", false, "drop trips whose decrypted fare is zero or negative")
	f.IntP("concurrency", "c", runtime.NumCPU(), "detection workers")
	f.StringP("output", "o", "", "report file, stdout when empty")
	f.String("report-format", string(report.FormatText), "report format: text, json or csv")
	f.Int("top", 5, "number of ranked locations in the report, all when 0")
	f.String("parquet-path", "", "write every cluster to this parquet file")
	f.String("history-db", "", "record the run in this sqlite database")
	f.StringSlice("kafka-brokers", nil, "publish the report to these kafka brokers")
	f.String("kafka-topic", "hotspots", "kafka topic of published reports")
	f.String("aws-region", "", "aws region of s3 inputs")
	f.BoolVar(&a.progress, "progress", false, "show a progress bar on stderr")

	cmd.AddCommand(a.generateCmd(), a.historyCmd())
	return cmd
}

func (a *app) logger(conf *config.Config) *slog.Logger {
	logger := logging.New(a.stderr, conf.LogLevel, conf.LogFormat)
	slog.SetDefault(logger)
	return logger
}

func (a *app) hunt(ctx context.Context, conf *config.Config) error {
	if conf.Input == "" {
		return errors.New("input is required")
	}
	logger := a.logger(conf)
	hc, err := conf.Hotspot()
	if err != nil {
		return err
	}
	format, err := dataset.ParseFormat(conf.Format, conf.Input)
	if err != nil {
		return err
	}

	in, err := source.NewOpener(conf.AWSRegion).Open(ctx, conf.Input)
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			logger.Warn("close input", slog.Any("error", err))
		}
	}()

	started := time.Now()
	h, err := hotspot.Load(in, format, hc)
	if err != nil {
		return err
	}
	h.WithLogger(logger)
	if a.progress {
		h.WithProgress(progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(a.stderr),
			progressbar.OptionSetDescription("scanning locations"),
			progressbar.OptionClearOnFinish(),
		))
	}

	result, runErr := h.Run(ctx)
	if runErr != nil && !errors.Is(runErr, hotspot.ErrNoHotspot) {
		return runErr
	}
	if conf.HistoryDB != "" {
		if err := record(ctx, conf.HistoryDB, history.NewRun(started, conf.Input, *hc, result, h.Stats())); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}

	rep := report.New(result, *hc, conf.Top)
	if err := a.writeReport(conf, rep); err != nil {
		return err
	}
	if conf.ParquetPath != "" {
		if err := report.ExportParquet(conf.ParquetPath, result); err != nil {
			return err
		}
		logger.Info("clusters exported", slog.String("path", conf.ParquetPath))
	}
	if len(conf.KafkaBrokers) > 0 {
		publisher, err := publish.NewPublisher(conf.KafkaBrokers, conf.KafkaTopic, conf.KafkaTimeout)
		if err != nil {
			return err
		}
		defer publisher.Close()
		partition, offset, err := publisher.Publish(rep)
		if err != nil {
			return err
		}
		logger.Info("report published",
			slog.String("topic", conf.KafkaTopic),
			slog.Int("partition", int(partition)),
			slog.Int64("offset", offset))
	}
	return nil
}

func (a *app) writeReport(conf *config.Config, rep report.Report) error {
	format, err := report.ParseFormat(conf.ReportFormat)
	if err != nil {
		return err
	}
	if conf.Output == "" {
		return report.Write(a.stdout, rep, format)
	}

	out, err := os.Create(conf.Output)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	if err := report.Write(out, rep, format); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func record(ctx context.Context, path string, run history.Run) error {
	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Save(ctx, run)
}
