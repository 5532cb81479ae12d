package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/airbusgeo/godal"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/one-labs/streets-cli/internal/raster"
)

var reclassCmd = &cobra.Command{
	Use:   "reclass",
	Short: "Reclassify a land-cover raster to a binary mask",
	Long: `Reads a single-band raster in fixed-size windows, maps pixels equal to the
sentinel class to 1 and everything else to 0, and writes a compressed
byte-typed GeoTIFF with the input's extent and georeferencing.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := raster.Options{
			InputPath:        cfg.Raster.InputPath,
			OutputPath:       cfg.Raster.OutputPath,
			ChunkSize:        cfg.Raster.ChunkSize,
			Sentinel:         byte(cfg.Raster.Sentinel),
			CompressionRatio: cfg.Raster.CompressionRatio,
		}
		if in, _ := cmd.Flags().GetString("input"); in != "" {
			opts.InputPath = in
		}
		if out, _ := cmd.Flags().GetString("output"); out != "" {
			opts.OutputPath = out
		}
		if chunk, _ := cmd.Flags().GetInt("chunk-size"); chunk > 0 {
			opts.ChunkSize = chunk
		}
		if sentinel, _ := cmd.Flags().GetInt("sentinel"); cmd.Flags().Changed("sentinel") {
			opts.Sentinel = byte(sentinel)
		}
		if yes, _ := cmd.Flags().GetBool("yes"); yes {
			opts.Confirm = func(string) bool { return true }
		}

		if opts.InputPath == "" || opts.OutputPath == "" {
			return eris.New("reclass: input and output paths are required (flags or config)")
		}

		zap.L().Info("starting raster reclassification",
			zap.String("input", opts.InputPath),
			zap.String("output", opts.OutputPath),
			zap.Int("chunk_size", opts.ChunkSize),
		)

		godal.RegisterAll()
		report, err := raster.Reclassify(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "reclass")
		}

		fmt.Printf("Output raster: %dx%d, %.1f GB on disk\n", report.Width, report.Height, report.SizeGB)
		return nil
	},
}

func init() {
	reclassCmd.Flags().String("input", "", "input raster path (default: from config)")
	reclassCmd.Flags().String("output", "", "output raster path (default: from config)")
	reclassCmd.Flags().Int("chunk-size", 0, "window edge length in pixels (default: from config or 25000)")
	reclassCmd.Flags().Int("sentinel", 1, "pixel value mapped to 1")
	reclassCmd.Flags().Bool("yes", false, "skip the disk-space confirmation prompt")
	rootCmd.AddCommand(reclassCmd)
}
