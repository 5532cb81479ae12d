package gis

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

func pointFeature(x, y float64, props map[string]interface{}) *geojson.Feature {
	return &geojson.Feature{
		Geometry:   geom.NewPointFlat(geom.XY, []float64{x, y}),
		Properties: props,
	}
}

func TestFeatureCollectionRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.geojson")
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{
		pointFeature(-73.9, 40.8, map[string]interface{}{"GEOID": "36005000100"}),
		pointFeature(-73.8, 40.7, map[string]interface{}{"GEOID": "36047000200"}),
	}}

	require.NoError(t, WriteFeatureCollection(path, fc))

	got, err := ReadFeatureCollection(path)
	require.NoError(t, err)
	require.Len(t, got.Features, 2)
	assert.Equal(t, "36005000100", got.Features[0].Properties["GEOID"])
	assert.Equal(t, "36047000200", got.Features[1].Properties["GEOID"])
}

func TestReadFeatureCollectionErrors(t *testing.T) {
	_, err := ReadFeatureCollection(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}
