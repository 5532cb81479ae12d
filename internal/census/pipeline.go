package census

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/one-labs/streets-cli/internal/gis"
)

// JoinPipeline fetches boundary polygons and tabular estimates for a set of
// counties, joins them on the composite GEOID, and writes one GeoJSON file.
type JoinPipeline struct {
	Boundaries *BoundaryClient
	ACS        *ACSClient
	Layer      Layer
	Level      Level
	State      string
	Counties   []string
	OutputPath string
}

// Run executes the pipeline: boundaries, then variables, then one batched
// table per county, then the left join. Everything is sequential; a failure
// at any stage aborts the run.
func (p *JoinPipeline) Run(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "census.pipeline"))

	boundaries, err := p.Boundaries.FetchBoundaries(ctx, p.Layer, p.State, p.Counties)
	if err != nil {
		return eris.Wrap(err, "census: fetch boundaries")
	}
	if len(boundaries) == 0 {
		return eris.New("census: no boundary features retrieved")
	}

	variables, err := p.ACS.Variables(ctx)
	if err != nil {
		return eris.Wrap(err, "census: list variables")
	}
	if len(variables) == 0 {
		return eris.New("census: no estimate variables available")
	}

	tables := make([]*Table, 0, len(p.Counties))
	for _, county := range p.Counties {
		table, err := p.ACS.FetchCounty(ctx, p.Level, p.State, county, variables)
		if err != nil {
			return eris.Wrapf(err, "census: fetch county %s", county)
		}
		tables = append(tables, table)
	}

	table, err := ConcatTables(tables)
	if err != nil {
		return err
	}
	log.Info("tabular dataset assembled",
		zap.Int("rows", len(table.Rows)),
		zap.Int("columns", len(table.Header)),
	)

	merged, err := LeftJoin(boundaries, p.Layer, table, p.Level)
	if err != nil {
		return err
	}

	if err := gis.WriteFeatureCollection(p.OutputPath, merged); err != nil {
		return err
	}
	log.Info("merged dataset written",
		zap.String("path", p.OutputPath),
		zap.Int("features", len(merged.Features)),
	)
	return nil
}
