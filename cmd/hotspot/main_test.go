package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	args = append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env"))
	code := execute(context.Background(), args, stdout, stderr)
	return code, stdout.String(), stderr.String()
}

func writeInput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trips.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const trips = `lat,lon,timestamp,fare,car_id
35.6339,6.270967,2025-01-01 11:00:00,3210,TX01
35.6339,6.270967,2025-01-01 11:05:00,3208,TX02
35.6339,6.270967,2025-01-01 11:10:00,3204,TX03
36.1,7.2,2025-01-01 09:00:00,3207,TX11
`

func TestExecute_Hunt(t *testing.T) {
	input := writeInput(t, trips)
	dir := t.TempDir()
	parquetPath := filepath.Join(dir, "clusters.parquet")
	historyDB := filepath.Join(dir, "history.db")

	code, stdout, stderr := run(t, input,
		"--report-format", "json",
		"--parquet-path", parquetPath,
		"--history-db", historyDB,
		"--log-level", "error")
	require.Equal(t, exitOK, code, stderr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Equal(t, float64(22), decoded["total_score"])
	assert.FileExists(t, parquetPath)

	code, stdout, stderr = run(t, "history", "--history-db", historyDB)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, input)
	assert.Contains(t, stdout, "hotspot=(35.633900, 6.270967) score=22")
}

func TestExecute_HuntText(t *testing.T) {
	output := filepath.Join(t.TempDir(), "report.txt")
	code, _, stderr := run(t, "--input", writeInput(t, trips), "-o", output, "-c", "2", "--log-level", "error")
	require.Equal(t, exitOK, code, stderr)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "HOTSPOT FOUND"))
	assert.Contains(t, string(data), "TX01, TX02, TX03")
}

func TestExecute_NoHotspot(t *testing.T) {
	input := writeInput(t, `lat,lon,timestamp,fare,car_id
35.6339,6.270967,2025-01-01T11:00:00,5217,TX51
35.6339,6.270967,2025-01-01T11:05:00,3217,TX17
35.6339,6.270967,2025-01-01T11:10:00,4617,TX54
`)
	historyDB := filepath.Join(t.TempDir(), "history.db")
	code, stdout, _ := run(t, input, "--history-db", historyDB, "--log-level", "error")
	assert.Equal(t, exitNoHotspot, code)
	assert.Equal(t, "no hotspot found\n", stdout)

	code, stdout, _ = run(t, "history", "--history-db", historyDB)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "no hotspot found")
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "missing input", args: []string{}, want: "input is required"},
		{name: "input not found", args: []string{filepath.Join(os.TempDir(), "no-such-trips.csv")}, want: "open input"},
		{name: "unknown policy", args: []string{"trips.csv", "--policy", "greedy"}, want: "unknown matching policy"},
		{name: "history without database", args: []string{"history"}, want: "history database is required"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code, _, stderr := run(t, test.args...)
			assert.Equal(t, exitError, code)
			assert.Contains(t, stderr, test.want)
		})
	}
}

func TestExecute_GenerateThenHunt(t *testing.T) {
	input := filepath.Join(t.TempDir(), "synthetic.csv")
	code, _, stderr := run(t, "generate", "-o", input, "--seed", "7", "--noise", "50")
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stderr, "rows written to")

	code, stdout, stderr := run(t, input, "--policy", "sliding-window", "--report-format", "csv", "--log-level", "error")
	require.Equal(t, exitOK, code, stderr)
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	assert.Len(t, lines, 1+3)
}
