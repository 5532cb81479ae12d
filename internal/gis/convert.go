package gis

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ConvertDir converts every .geojson file in dir to a shapefile set under
// a "shapefiles" subfolder, keeping the file stem. A file that fails to
// convert is logged and skipped; the batch continues. Returns the number
// of files converted.
func ConvertDir(dir string) (int, error) {
	log := zap.L().With(zap.String("component", "gis.convert"))

	if _, err := os.Stat(dir); err != nil {
		return 0, eris.Wrapf(err, "gis: input folder %s", dir)
	}

	outDir := filepath.Join(dir, "shapefiles")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, eris.Wrap(err, "gis: create shapefiles folder")
	}

	matches, err := filepath.Glob(filepath.Join(dir, "*.geojson"))
	if err != nil {
		return 0, eris.Wrap(err, "gis: scan input folder")
	}
	log.Info("found geojson files", zap.String("dir", dir), zap.Int("count", len(matches)))

	converted := 0
	for _, path := range matches {
		stem := strings.TrimSuffix(filepath.Base(path), ".geojson")
		outPath := filepath.Join(outDir, stem+".shp")

		fc, err := ReadFeatureCollection(path)
		if err != nil {
			log.Warn("skipping unreadable geojson", zap.String("path", path), zap.Error(err))
			continue
		}
		if err := WriteShapefile(outPath, fc); err != nil {
			log.Warn("skipping failed conversion", zap.String("path", path), zap.Error(err))
			continue
		}

		log.Info("converted", zap.String("from", filepath.Base(path)), zap.String("to", filepath.Base(outPath)))
		converted++
	}
	return converted, nil
}
