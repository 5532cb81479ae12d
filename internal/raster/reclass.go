package raster

import (
	"context"
	"os"
	"path/filepath"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Output rasters are written as block-tiled GeoTIFF with maximum LZW
// compression; values are {0,1} so a byte band suffices.
var creationOptions = []string{
	"COMPRESS=LZW",
	"ZLEVEL=9",
	"TILED=YES",
	"BLOCKXSIZE=256",
	"BLOCKYSIZE=256",
}

// Options configures a reclassification run.
type Options struct {
	InputPath  string
	OutputPath string

	// ChunkSize is the square window edge length in pixels. Larger windows
	// amortize I/O, smaller windows bound peak memory. Default: 25000.
	ChunkSize int

	// Sentinel is the input pixel value mapped to 1; every other value
	// maps to 0. Default: 1.
	Sentinel byte

	// CompressionRatio is the assumed output/input size ratio for the
	// disk-space preflight. Default: 0.3.
	CompressionRatio float64

	// Confirm is consulted when the preflight estimate exceeds the safe
	// disk-space threshold. Default: StdinConfirm.
	Confirm ConfirmFunc

	// Progress observes window completion as (done, total). Default: a
	// terminal progress bar.
	Progress func(done, total int)
}

// Report describes the finished output raster.
type Report struct {
	Width  int
	Height int
	SizeGB float64
}

func (o *Options) applyDefaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 25000
	}
	if o.Sentinel == 0 {
		o.Sentinel = 1
	}
	if o.CompressionRatio <= 0 {
		o.CompressionRatio = 0.3
	}
	if o.Confirm == nil {
		o.Confirm = StdinConfirm
	}
}

// Reclassify reads the input single-band raster window by window, maps each
// pixel to 1 where it equals the sentinel value and 0 otherwise, and writes
// a byte-typed output raster with the input's extent and georeferencing.
// Any window read or write error aborts the run; a partial output file is
// an accepted side effect of an abort.
func Reclassify(ctx context.Context, opts Options) (*Report, error) {
	opts.applyDefaults()
	log := zap.L().With(zap.String("component", "raster.reclass"))

	src, err := godal.Open(opts.InputPath)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open input %s", opts.InputPath)
	}
	defer src.Close() //nolint:errcheck

	st := src.Structure()
	if st.NBands < 1 {
		return nil, eris.Errorf("raster: input %s has no bands", opts.InputPath)
	}

	outDir := filepath.Dir(opts.OutputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, eris.Wrap(err, "raster: create output dir")
	}

	estimated := EstimateOutputGB(st.SizeX, st.SizeY, opts.CompressionRatio)
	free, err := FreeSpaceGB(outDir)
	if err != nil {
		return nil, err
	}
	log.Info("disk preflight",
		zap.Float64("estimated_gb", estimated),
		zap.Float64("free_gb", free),
	)
	if err := GuardDiskSpace(estimated, free, opts.Confirm); err != nil {
		return nil, err
	}

	dst, err := godal.Create(godal.GTiff, opts.OutputPath, 1, godal.Byte, st.SizeX, st.SizeY,
		godal.CreationOption(creationOptions...))
	if err != nil {
		return nil, eris.Wrapf(err, "raster: create output %s", opts.OutputPath)
	}

	if gt, gtErr := src.GeoTransform(); gtErr == nil {
		if err := dst.SetGeoTransform(gt); err != nil {
			dst.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "raster: set geotransform")
		}
	} else {
		log.Debug("input has no geotransform")
	}
	if sr := src.SpatialRef(); sr != nil {
		if err := dst.SetSpatialRef(sr); err != nil {
			dst.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "raster: set spatial reference")
		}
	}

	windows := Partition(st.SizeX, st.SizeY, opts.ChunkSize)
	total := len(windows)
	log.Info("processing raster",
		zap.Int("width", st.SizeX),
		zap.Int("height", st.SizeY),
		zap.Int("chunk_size", opts.ChunkSize),
		zap.Int("windows", total),
	)

	progress := opts.Progress
	if progress == nil {
		bar := progressbar.Default(int64(total), "reclassifying")
		progress = func(done, total int) { _ = bar.Add(1) }
	}

	srcBand := src.Bands()[0]
	dstBand := dst.Bands()[0]
	buf := make([]byte, opts.ChunkSize*opts.ChunkSize)

	for done, win := range windows {
		if err := ctx.Err(); err != nil {
			dst.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "raster: cancelled")
		}

		chunk := buf[:win.Width*win.Height]
		if err := srcBand.Read(win.X, win.Y, chunk, win.Width, win.Height); err != nil {
			dst.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "raster: read window %dx%d at (%d,%d)", win.Width, win.Height, win.X, win.Y)
		}

		reclassifyChunk(chunk, opts.Sentinel)

		if err := dstBand.Write(win.X, win.Y, chunk, win.Width, win.Height); err != nil {
			dst.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "raster: write window %dx%d at (%d,%d)", win.Width, win.Height, win.X, win.Y)
		}
		progress(done+1, total)
	}

	if err := dst.Close(); err != nil {
		return nil, eris.Wrap(err, "raster: close output")
	}

	return verifyOutput(opts.OutputPath, st.SizeX, st.SizeY)
}

// reclassifyChunk applies the binary classification rule element-wise,
// in place.
func reclassifyChunk(data []byte, sentinel byte) {
	for i, v := range data {
		if v == sentinel {
			data[i] = 1
		} else {
			data[i] = 0
		}
	}
}

// verifyOutput reopens the finished raster, checks it against the declared
// profile, and reports the actual on-disk size.
func verifyOutput(path string, width, height int) (*Report, error) {
	out, err := godal.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: reopen output %s", path)
	}
	defer out.Close() //nolint:errcheck

	st := out.Structure()
	if st.SizeX != width || st.SizeY != height {
		return nil, eris.Errorf("raster: output dimensions %dx%d do not match input %dx%d",
			st.SizeX, st.SizeY, width, height)
	}
	if st.DataType != godal.Byte {
		return nil, eris.Errorf("raster: output data type is not byte")
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, eris.Wrap(err, "raster: stat output")
	}
	report := &Report{
		Width:  st.SizeX,
		Height: st.SizeY,
		SizeGB: float64(info.Size()) / (1 << 30),
	}

	zap.L().Info("reclassified raster written",
		zap.String("path", path),
		zap.Int("width", report.Width),
		zap.Int("height", report.Height),
		zap.Float64("size_gb", report.SizeGB),
	)
	return report, nil
}
