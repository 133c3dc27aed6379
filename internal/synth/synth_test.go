package synth

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubny/hotspot"
	"github.com/cubny/hotspot/internal/dataset"
)

func TestWrite_HotspotIsFound(t *testing.T) {
	for _, policy := range []hotspot.Policy{hotspot.PolicyExhaustive, hotspot.PolicySlidingWindow} {
		t.Run(string(policy), func(t *testing.T) {
			out := &bytes.Buffer{}
			planted, err := Write(out, DefaultOptions())
			require.NoError(t, err)
			assert.Equal(t, 3*(2+2)+200+5, planted.Rows)
			assert.Len(t, planted.Decoys, 2)

			h, err := hotspot.Load(out, dataset.FormatCSV, &hotspot.Config{
				Key:         hotspot.DefaultKey,
				Policy:      policy,
				Concurrency: 4,
			})
			require.NoError(t, err)
			result, err := h.Run(context.Background())
			require.NoError(t, err)

			assert.Equal(t, planted.Hotspot, result.Hotspot.Location)
			assert.GreaterOrEqual(t, result.Hotspot.ClusterCount, 2)
			assert.Equal(t, 5, result.Stats.DroppedRows)

			var decoys []hotspot.Location
			for _, c := range result.Candidates[1:] {
				decoys = append(decoys, c.Location)
			}
			assert.ElementsMatch(t, planted.Decoys, decoys)
		})
	}
}

func TestWrite_Deterministic(t *testing.T) {
	first, second := &bytes.Buffer{}, &bytes.Buffer{}
	_, err := Write(first, DefaultOptions())
	require.NoError(t, err)
	_, err = Write(second, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, first.String(), second.String())

	opts := DefaultOptions()
	opts.Seed = 7
	third := &bytes.Buffer{}
	_, err = Write(third, opts)
	require.NoError(t, err)
	assert.NotEqual(t, first.String(), third.String())
}

func TestWrite_Header(t *testing.T) {
	out := &bytes.Buffer{}
	opts := DefaultOptions()
	opts.Noise = 0
	opts.Decoys = 0
	opts.Incomplete = 0
	opts.HotspotClusters = 1
	_, err := Write(out, opts)
	require.NoError(t, err)

	records, err := csv.NewReader(out).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, dataset.Columns, records[0])
}

func TestWrite_InvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.HotspotClusters = 0
	_, err := Write(&bytes.Buffer{}, opts)
	assert.Error(t, err)

	opts = DefaultOptions()
	opts.Noise = -1
	_, err = Write(&bytes.Buffer{}, opts)
	assert.Error(t, err)
}
