package mbtiles_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileflux/martin/core/mbtiles"
)

func TestVectorLayerUnmarshalPreservesUnrecognizedKeys(t *testing.T) {
	raw := []byte(`{"id":"roads","fields":{"name":"String"},"buffer_size":16,"custom":"x"}`)

	var layer mbtiles.VectorLayer
	require.NoError(t, json.Unmarshal(raw, &layer))

	assert.Equal(t, "roads", layer.ID)
	assert.Equal(t, map[string]string{"name": "String"}, layer.Fields)
	assert.Equal(t, float64(16), layer.Other["buffer_size"])
	assert.Equal(t, "x", layer.Other["custom"])
}

func TestVectorLayerMarshalRoundTripsUnrecognizedKeys(t *testing.T) {
	layer := mbtiles.VectorLayer{
		ID:     "roads",
		Fields: map[string]string{"name": "String"},
		Other:  map[string]any{"custom": "x"},
	}

	b, err := json.Marshal(layer)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, "roads", out["id"])
	assert.Equal(t, "x", out["custom"])
}
