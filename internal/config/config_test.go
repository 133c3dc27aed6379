package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubny/hotspot"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// noEnv points Load at a .env file that does not exist
func noEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(viper.New(), "", noEnv(t))
	require.NoError(t, err)

	assert.Equal(t, int64(hotspot.DefaultKey), c.Key)
	assert.Equal(t, "exhaustive", c.Policy)
	assert.False(t, c.DropNonPositive)
	assert.Equal(t, runtime.NumCPU(), c.Concurrency)
	assert.Equal(t, "text", c.ReportFormat)
	assert.Equal(t, 5, c.Top)
	assert.Empty(t, c.KafkaBrokers)
	assert.Equal(t, 10*time.Second, c.KafkaTimeout)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoad_Sources(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		env   map[string]string
		dot   string
		check func(c *Config, err error)
	}{
		{
			name: "config file",
			file: "key: 3100\npolicy: sliding-window\nkafka_brokers: [\"a:9092\", \"b:9092\"]\nkafka_timeout: 3s\n",
			check: func(c *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(3100), c.Key)
				assert.Equal(t, "sliding-window", c.Policy)
				assert.Equal(t, []string{"a:9092", "b:9092"}, c.KafkaBrokers)
				assert.Equal(t, 3*time.Second, c.KafkaTimeout)
			},
		},
		{
			name: "environment overrides file",
			file: "key: 3100\n",
			env: map[string]string{
				"HOTSPOT_KEY":               "3000",
				"HOTSPOT_DROP_NON_POSITIVE": "true",
				"HOTSPOT_KAFKA_BROKERS":     "a:9092, b:9092,",
			},
			check: func(c *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, int64(3000), c.Key)
				assert.True(t, c.DropNonPositive)
				assert.Equal(t, []string{"a:9092", "b:9092"}, c.KafkaBrokers)
			},
		},
		{
			name: "dot env file",
			dot:  "HOTSPOT_REPORT_FORMAT=json\nHOTSPOT_TOP=2\n",
			check: func(c *Config, err error) {
				require.NoError(t, err)
				assert.Equal(t, "json", c.ReportFormat)
				assert.Equal(t, 2, c.Top)
			},
		},
		{
			name: "unknown policy - error",
			env:  map[string]string{"HOTSPOT_POLICY": "greedy"},
			check: func(c *Config, err error) {
				assert.ErrorIs(t, err, hotspot.ErrUnknownPolicy)
			},
		},
		{
			name: "zero concurrency - error",
			env:  map[string]string{"HOTSPOT_CONCURRENCY": "0"},
			check: func(c *Config, err error) {
				assert.Error(t, err)
			},
		},
		{
			name: "unknown log format - error",
			env:  map[string]string{"HOTSPOT_LOG_FORMAT": "xml"},
			check: func(c *Config, err error) {
				assert.Error(t, err)
			},
		},
		{
			name: "brokers without topic - error",
			file: "kafka_topic: \"\"\n",
			env:  map[string]string{"HOTSPOT_KAFKA_BROKERS": "a:9092"},
			check: func(c *Config, err error) {
				assert.Error(t, err)
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for k, v := range test.env {
				t.Setenv(k, v)
			}
			cfgFile := ""
			if test.file != "" {
				cfgFile = writeFile(t, "hotspot.yaml", test.file)
			}
			envFile := noEnv(t)
			if test.dot != "" {
				envFile = writeFile(t, ".env", test.dot)
				// godotenv sets variables process wide, register them for cleanup
				t.Setenv("HOTSPOT_REPORT_FORMAT", "")
				t.Setenv("HOTSPOT_TOP", "")
				require.NoError(t, os.Unsetenv("HOTSPOT_REPORT_FORMAT"))
				require.NoError(t, os.Unsetenv("HOTSPOT_TOP"))
			}
			test.check(Load(viper.New(), cfgFile, envFile))
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"), noEnv(t))
	assert.Error(t, err)
}

func TestBindFlags(t *testing.T) {
	flags := pflag.NewFlagSet("hunt", pflag.ContinueOnError)
	flags.Int64("key", hotspot.DefaultKey, "")
	flags.Bool("drop-non-positive", false, "")
	flags.String("config", "", "")
	require.NoError(t, flags.Parse([]string{"--key", "42", "--drop-non-positive"}))

	t.Setenv("HOTSPOT_KEY", "7")
	v := viper.New()
	require.NoError(t, BindFlags(v, flags))
	c, err := Load(v, "", noEnv(t))
	require.NoError(t, err)

	assert.Equal(t, int64(42), c.Key)
	assert.True(t, c.DropNonPositive)
}

func TestConfig_Hotspot(t *testing.T) {
	c := &Config{Key: 3200, Policy: "", Concurrency: 2, ReportFormat: "text", LogFormat: "text"}
	hc, err := c.Hotspot()
	require.NoError(t, err)
	assert.Equal(t, &hotspot.Config{Key: 3200, Policy: hotspot.PolicyExhaustive, Concurrency: 2}, hc)
}
