package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/one-labs/streets-cli/internal/gis"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert GeoJSON files to shapefiles",
	Long:  "Converts every .geojson file in a folder to a shapefile set under a shapefiles/ subfolder.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := cfg.Convert.InputDir
		if d, _ := cmd.Flags().GetString("input-dir"); d != "" {
			dir = d
		}
		if dir == "" {
			return eris.New("convert: input directory is required (flag or config)")
		}

		converted, err := gis.ConvertDir(dir)
		if err != nil {
			return eris.Wrap(err, "convert")
		}

		fmt.Printf("Converted %d files\n", converted)
		return nil
	},
}

func init() {
	convertCmd.Flags().String("input-dir", "", "folder containing .geojson files (default: from config)")
	rootCmd.AddCommand(convertCmd)
}
