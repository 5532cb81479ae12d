package census

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/one-labs/streets-cli/internal/fetcher"
)

// Layer describes one TIGERweb map-service layer: its query endpoint and
// the attribute field names carrying the geographic code components.
// Different TIGERweb services name the same components differently
// (STATEFP/COUNTYFP/TRACTCE on Tracts_Blocks, STATE/COUNTY/TRACT/BLKGRP on
// tigerWMS_Current).
type Layer struct {
	URL             string
	StateField      string
	CountyField     string
	TractField      string
	BlockGroupField string // empty for tract layers
}

// TractLayer returns the layer descriptor for census tract polygons.
func TractLayer(queryURL string) Layer {
	return Layer{
		URL:         queryURL,
		StateField:  "STATEFP",
		CountyField: "COUNTYFP",
		TractField:  "TRACTCE",
	}
}

// BlockGroupLayer returns the layer descriptor for block-group polygons.
func BlockGroupLayer(queryURL string) Layer {
	return Layer{
		URL:             queryURL,
		StateField:      "STATE",
		CountyField:     "COUNTY",
		TractField:      "TRACT",
		BlockGroupField: "BLKGRP",
	}
}

// BoundaryClient retrieves boundary polygons from a paged ArcGIS REST
// query service.
type BoundaryClient struct {
	http      *fetcher.Client
	pageSize  int
	pageDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewBoundaryClient creates a BoundaryClient. pageSize is the
// resultRecordCount requested per page; pageDelay is honored between pages.
func NewBoundaryClient(http *fetcher.Client, pageSize int, pageDelay time.Duration) *BoundaryClient {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &BoundaryClient{
		http:      http,
		pageSize:  pageSize,
		pageDelay: pageDelay,
		sleep:     sleepCtx,
	}
}

// FetchBoundaries retrieves every feature on the layer matching the state
// and county filter, paging by result offset until the service returns an
// empty or short page. Features are returned in arrival order; a non-success
// response on any page aborts the whole fetch.
func (c *BoundaryClient) FetchBoundaries(ctx context.Context, layer Layer, state string, counties []string) ([]*geojson.Feature, error) {
	log := zap.L().With(zap.String("component", "census.boundary"))

	where := whereClause(layer, state, counties)
	log.Info("fetching boundary polygons",
		zap.String("url", layer.URL),
		zap.String("where", where),
	)

	var features []*geojson.Feature
	offset := 0
	for {
		params := url.Values{
			"where":             {where},
			"outFields":         {"*"},
			"returnGeometry":    {"true"},
			"f":                 {"geojson"},
			"resultOffset":      {strconv.Itoa(offset)},
			"resultRecordCount": {strconv.Itoa(c.pageSize)},
		}

		body, err := c.http.Get(ctx, layer.URL+"?"+params.Encode())
		if err != nil {
			return nil, eris.Wrapf(err, "census: boundary page at offset %d", offset)
		}

		var page geojson.FeatureCollection
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, eris.Wrapf(err, "census: parse boundary page at offset %d", offset)
		}

		if len(page.Features) == 0 {
			break
		}
		features = append(features, page.Features...)
		log.Debug("retrieved boundary page",
			zap.Int("features", len(page.Features)),
			zap.Int("offset", offset),
		)

		// Last-page heuristic: the service has no total count or cursor.
		if len(page.Features) < c.pageSize {
			break
		}
		offset += c.pageSize

		if err := c.sleep(ctx, c.pageDelay); err != nil {
			return nil, eris.Wrap(err, "census: boundary fetch cancelled")
		}
	}

	log.Info("boundary fetch complete", zap.Int("features", len(features)))
	return features, nil
}

// whereClause builds the SQL-like attribute filter for a state and its
// county codes.
func whereClause(layer Layer, state string, counties []string) string {
	quoted := make([]string, len(counties))
	for i, c := range counties {
		quoted[i] = "'" + zfill(c, countyWidth) + "'"
	}
	return fmt.Sprintf("%s='%s' AND %s IN (%s)",
		layer.StateField, zfill(state, stateWidth),
		layer.CountyField, strings.Join(quoted, ","),
	)
}

// FeatureGEOID derives the composite GEOID for a boundary feature. An
// existing GEOID property wins; otherwise the code is built from the
// layer's component fields with the standard zero padding.
func FeatureGEOID(f *geojson.Feature, layer Layer) (string, error) {
	if g, ok := PropertyString(f, "GEOID"); ok && g != "" {
		return g, nil
	}

	state, ok := PropertyString(f, layer.StateField)
	if !ok {
		return "", eris.Errorf("census: feature missing %s", layer.StateField)
	}
	county, ok := PropertyString(f, layer.CountyField)
	if !ok {
		return "", eris.Errorf("census: feature missing %s", layer.CountyField)
	}
	tract, ok := PropertyString(f, layer.TractField)
	if !ok {
		return "", eris.Errorf("census: feature missing %s", layer.TractField)
	}

	if layer.BlockGroupField == "" {
		return TractGEOID(state, county, tract), nil
	}
	bg, ok := PropertyString(f, layer.BlockGroupField)
	if !ok {
		return "", eris.Errorf("census: feature missing %s", layer.BlockGroupField)
	}
	return BlockGroupGEOID(state, county, tract, bg), nil
}

// PropertyString reads a feature property as a string. TIGERweb serializes some
// numeric codes as JSON numbers, so both forms are accepted.
func PropertyString(f *geojson.Feature, key string) (string, bool) {
	v, ok := f.Properties[key]
	if !ok || v == nil {
		return "", false
	}
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatInt(int64(s), 10), true
	default:
		return fmt.Sprintf("%v", v), true
	}
}

// sleepCtx sleeps for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
