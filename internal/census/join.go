package census

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// LeftJoin merges a tabular estimate dataset into a boundary feature
// collection on the composite GEOID. Every boundary feature is retained;
// features with no matching row carry nulls for every table column.
func LeftJoin(boundaries []*geojson.Feature, layer Layer, table *Table, level Level) (*geojson.FeatureCollection, error) {
	ids, err := table.GEOIDs(level)
	if err != nil {
		return nil, err
	}

	rowByGEOID := make(map[string][]string, len(table.Rows))
	for i, row := range table.Rows {
		if _, exists := rowByGEOID[ids[i]]; !exists {
			rowByGEOID[ids[i]] = row
		}
	}

	matched := 0
	out := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(boundaries))}
	for _, f := range boundaries {
		geoid, err := FeatureGEOID(f, layer)
		if err != nil {
			return nil, eris.Wrap(err, "census: join")
		}
		if f.Properties == nil {
			f.Properties = make(map[string]interface{})
		}
		f.Properties["GEOID"] = geoid

		row := rowByGEOID[geoid]
		if row != nil {
			matched++
		}
		for col, name := range table.Header {
			if name == "GEOID" {
				continue
			}
			if row == nil {
				f.Properties[name] = nil
			} else {
				f.Properties[name] = row[col]
			}
		}
		out.Features = append(out.Features, f)
	}

	zap.L().Info("joined estimates onto boundaries",
		zap.Int("boundaries", len(boundaries)),
		zap.Int("matched", matched),
		zap.Int("unmatched", len(boundaries)-matched),
	)
	return out, nil
}
