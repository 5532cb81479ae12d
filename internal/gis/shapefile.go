package gis

import (
	"fmt"
	"sort"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// DBF format limits: field names 10 bytes, character fields 254 bytes.
const (
	dbfNameLen  = 10
	dbfValueLen = 254
)

// WriteShapefile writes a feature collection as a shapefile set
// (.shp/.shx/.dbf). The shape type is taken from the first feature with a
// geometry; features whose geometry does not fit that type are skipped with
// a warning. All attributes are written as character fields, names
// truncated to the DBF limit.
func WriteShapefile(path string, fc *geojson.FeatureCollection) error {
	log := zap.L().With(zap.String("component", "gis.shapefile"))

	shapeType, err := collectionShapeType(fc)
	if err != nil {
		return err
	}

	fieldNames := propertyFields(fc)
	fields := make([]shp.Field, len(fieldNames))
	for i, name := range fieldNames {
		fields[i] = shp.StringField(truncate(name, dbfNameLen), dbfValueLen)
	}

	writer, err := shp.Create(path, shapeType)
	if err != nil {
		return eris.Wrapf(err, "gis: create shapefile %s", path)
	}
	writer.SetFields(fields)

	row := 0
	skipped := 0
	for _, f := range fc.Features {
		shape := toShape(f.Geometry, shapeType)
		if shape == nil {
			skipped++
			continue
		}
		writer.Write(shape)
		for col, name := range fieldNames {
			val := ""
			if v, ok := f.Properties[name]; ok && v != nil {
				val = truncate(fmt.Sprint(v), dbfValueLen)
			}
			if err := writer.WriteAttribute(row, col, val); err != nil {
				writer.Close()
				return eris.Wrapf(err, "gis: write attribute %s row %d", name, row)
			}
		}
		row++
	}
	writer.Close()

	if skipped > 0 {
		log.Warn("skipped features with incompatible geometry",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	log.Debug("shapefile written", zap.String("path", path), zap.Int("records", row))
	return nil
}

// collectionShapeType picks the shapefile shape type from the first
// non-nil geometry.
func collectionShapeType(fc *geojson.FeatureCollection) (shp.ShapeType, error) {
	for _, f := range fc.Features {
		switch f.Geometry.(type) {
		case *geom.Point, *geom.MultiPoint:
			return shp.POINT, nil
		case *geom.LineString, *geom.MultiLineString:
			return shp.POLYLINE, nil
		case *geom.Polygon, *geom.MultiPolygon:
			return shp.POLYGON, nil
		}
	}
	return 0, eris.New("gis: no supported geometry in collection")
}

// propertyFields returns the union of property keys across features,
// sorted for a stable column order.
func propertyFields(fc *geojson.FeatureCollection) []string {
	seen := make(map[string]bool)
	for _, f := range fc.Features {
		for k := range f.Properties {
			seen[k] = true
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// toShape converts a go-geom geometry to the go-shp shape for shapeType,
// or nil if the geometry does not fit.
func toShape(g geom.T, shapeType shp.ShapeType) shp.Shape {
	switch shapeType {
	case shp.POINT:
		if p, ok := g.(*geom.Point); ok {
			return &shp.Point{X: p.X(), Y: p.Y()}
		}
	case shp.POLYLINE:
		switch s := g.(type) {
		case *geom.LineString:
			return shp.NewPolyLine([][]shp.Point{coordsToPoints(s.Coords())})
		case *geom.MultiLineString:
			parts := make([][]shp.Point, 0, s.NumLineStrings())
			for i := 0; i < s.NumLineStrings(); i++ {
				parts = append(parts, coordsToPoints(s.LineString(i).Coords()))
			}
			return shp.NewPolyLine(parts)
		}
	case shp.POLYGON:
		var parts [][]shp.Point
		switch s := g.(type) {
		case *geom.Polygon:
			parts = polygonParts(s)
		case *geom.MultiPolygon:
			for i := 0; i < s.NumPolygons(); i++ {
				parts = append(parts, polygonParts(s.Polygon(i))...)
			}
		default:
			return nil
		}
		if len(parts) == 0 {
			return nil
		}
		poly := shp.Polygon(*shp.NewPolyLine(parts))
		return &poly
	}
	return nil
}

// polygonParts flattens a polygon's rings into shapefile parts.
func polygonParts(p *geom.Polygon) [][]shp.Point {
	parts := make([][]shp.Point, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		ring := coordsToPoints(p.LinearRing(i).Coords())
		if len(ring) > 0 {
			parts = append(parts, ring)
		}
	}
	return parts
}

func coordsToPoints(coords []geom.Coord) []shp.Point {
	points := make([]shp.Point, len(coords))
	for i, c := range coords {
		points[i] = shp.Point{X: c.X(), Y: c.Y()}
	}
	return points
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
