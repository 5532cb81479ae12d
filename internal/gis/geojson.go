// Package gis reads and writes geospatial files: GeoJSON feature
// collections and shapefile sets.
package gis

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ReadFeatureCollection reads a GeoJSON FeatureCollection file.
func ReadFeatureCollection(path string) (*geojson.FeatureCollection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "gis: read %s", path)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(err, "gis: parse %s", path)
	}
	return &fc, nil
}

// WriteFeatureCollection writes a FeatureCollection as a single GeoJSON
// file, created or truncated in one shot.
func WriteFeatureCollection(path string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrapf(err, "gis: encode %s", path)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "gis: write %s", path)
	}
	return nil
}
