// Package config loads the settings of a hunt from flags, environment, an optional .env file and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/cubny/hotspot"
	"github.com/cubny/hotspot/internal/dataset"
	"github.com/cubny/hotspot/internal/report"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "HOTSPOT"

type Config struct {
	Input           string        `mapstructure:"input"`
	Format          string        `mapstructure:"format"`
	Key             int64         `mapstructure:"key"`
	Policy          string        `mapstructure:"policy"`
	DropNonPositive bool          `mapstructure:"drop_non_positive"`
	Concurrency     int           `mapstructure:"concurrency"`
	Output          string        `mapstructure:"output"`
	ReportFormat    string        `mapstructure:"report_format"`
	Top             int           `mapstructure:"top"`
	ParquetPath     string        `mapstructure:"parquet_path"`
	HistoryDB       string        `mapstructure:"history_db"`
	KafkaBrokers    []string      `mapstructure:"kafka_brokers"`
	KafkaTopic      string        `mapstructure:"kafka_topic"`
	KafkaTimeout    time.Duration `mapstructure:"kafka_timeout"`
	AWSRegion       string        `mapstructure:"aws_region"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
}

var defaults = map[string]interface{}{
	"input":             "",
	"format":            "",
	"key":               hotspot.DefaultKey,
	"policy":            string(hotspot.PolicyExhaustive),
	"drop_non_positive": false,
	"concurrency":       runtime.NumCPU(),
	"output":            "",
	"report_format":     string(report.FormatText),
	"top":               5,
	"parquet_path":      "",
	"history_db":        "",
	"kafka_brokers":     []string{},
	"kafka_topic":       "hotspots",
	"kafka_timeout":     10 * time.Second,
	"aws_region":        "",
	"log_level":         "info",
	"log_format":        "text",
}

// SetDefaults registers the default of every key on v
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// BindFlags binds every flag whose name matches a key, dashes standing for underscores
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		if _, ok := defaults[key]; !ok || err != nil {
			return
		}
		err = v.BindPFlag(key, f)
	})
	return err
}

// Load reads envFile (".env" when empty) into the environment if it exists, then cfgFile if given,
// and decodes the result. Flags bound with BindFlags take precedence over the environment,
// which takes precedence over the file.
func Load(v *viper.Viper, cfgFile, envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	// a missing .env file is fine, variables may come from the real environment
	_ = godotenv.Load(envFile)

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			dc.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}
	config.KafkaBrokers = compact(config.KafkaBrokers)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if _, err := c.Hotspot(); err != nil {
		return err
	}
	if _, err := report.ParseFormat(c.ReportFormat); err != nil {
		return err
	}
	if c.Format != "" {
		if _, err := dataset.ParseFormat(c.Format, ""); err != nil {
			return err
		}
	}
	switch {
	case c.Top < 0:
		return errors.New("top should not be negative")
	case len(c.KafkaBrokers) > 0 && c.KafkaTopic == "":
		return errors.New("kafka topic is required when brokers are set")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Hotspot returns the detection settings
func (c *Config) Hotspot() (*hotspot.Config, error) {
	policy, err := hotspot.ParsePolicy(c.Policy)
	if err != nil {
		return nil, err
	}
	hc := &hotspot.Config{
		Key:             c.Key,
		Policy:          policy,
		DropNonPositive: c.DropNonPositive,
		Concurrency:     c.Concurrency,
	}
	if err := hc.Validate(); err != nil {
		return nil, err
	}
	return hc, nil
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
