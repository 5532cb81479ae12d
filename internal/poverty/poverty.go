// Package poverty filters census blocks down to those inside persistent
// poverty tracts, using a plain-text lookup table of tract identifiers.
package poverty

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/one-labs/streets-cli/internal/census"
	"github.com/one-labs/streets-cli/internal/fetcher"
	"github.com/one-labs/streets-cli/internal/gis"
)

// Block-level boundary files carry 2020-vintage component fields.
const (
	stateField  = "STATEFP20"
	countyField = "COUNTYFP20"
	tractField  = "TRACTCE20"
)

// tractColumn is the identifier column in the lookup CSV.
const tractColumn = "Tract"

// Options configures a poverty filter run.
type Options struct {
	LookupPath string // CSV with a tract-identifier column
	BlocksPath string // GeoJSON of census blocks
	OutputPath string
}

// Summary reports what the filter kept.
type Summary struct {
	Blocks int
	Tracts int
}

// Run loads the poverty-tract lookup and the block boundaries, keeps the
// blocks whose tract code appears in the lookup, and writes them as one
// GeoJSON file.
func Run(opts Options) (*Summary, error) {
	log := zap.L().With(zap.String("component", "poverty"))

	tractIDs, err := loadLookup(opts.LookupPath)
	if err != nil {
		return nil, err
	}

	blocks, err := gis.ReadFeatureCollection(opts.BlocksPath)
	if err != nil {
		return nil, eris.Wrap(err, "poverty: load blocks")
	}
	log.Info("inputs loaded",
		zap.Int("poverty_tracts", len(tractIDs)),
		zap.Int("blocks", len(blocks.Features)),
	)

	kept := &geojson.FeatureCollection{}
	keptTracts := make(map[string]bool)
	for _, f := range blocks.Features {
		tractID, err := blockTractID(f)
		if err != nil {
			return nil, err
		}
		if tractIDs[tractID] {
			kept.Features = append(kept.Features, f)
			keptTracts[tractID] = true
		}
	}

	if err := gis.WriteFeatureCollection(opts.OutputPath, kept); err != nil {
		return nil, err
	}

	summary := &Summary{Blocks: len(kept.Features), Tracts: len(keptTracts)}
	log.Info("poverty blocks written",
		zap.String("path", opts.OutputPath),
		zap.Int("blocks", summary.Blocks),
		zap.Int("tracts", summary.Tracts),
	)
	return summary, nil
}

// loadLookup reads the lookup CSV (with the encoding fallback chain) and
// returns the set of tract identifiers.
func loadLookup(path string) (map[string]bool, error) {
	rows, err := fetcher.ReadCSVFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "poverty: load lookup")
	}
	if len(rows) < 1 {
		return nil, eris.Errorf("poverty: lookup %s is empty", path)
	}

	col := fetcher.ColumnIndex(rows[0], tractColumn)
	if col < 0 {
		return nil, eris.Errorf("poverty: lookup %s has no %q column", path, tractColumn)
	}

	ids := make(map[string]bool, len(rows)-1)
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[col])
		if id != "" {
			ids[id] = true
		}
	}
	return ids, nil
}

// blockTractID builds the tract GEOID for a block feature from its
// component fields, applying the standard zero padding.
func blockTractID(f *geojson.Feature) (string, error) {
	var parts [3]string
	for i, field := range []string{stateField, countyField, tractField} {
		v, ok := census.PropertyString(f, field)
		if !ok {
			return "", eris.Errorf("poverty: block feature missing %s", field)
		}
		parts[i] = v
	}
	return census.TractGEOID(parts[0], parts[1], parts[2]), nil
}
