package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/one-labs/streets-cli/internal/census"
)

var censusTractsCmd = &cobra.Command{
	Use:   "tracts",
	Short: "Tract polygons joined with ACS tract estimates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pipeline := buildJoinPipeline(cmd,
			census.TractLayer(cfg.Census.TractLayerURL),
			census.LevelTract,
			"census_acs_with_tracts.geojson",
		)
		if err := pipeline.Run(ctx); err != nil {
			return eris.Wrap(err, "census tracts")
		}

		fmt.Printf("Merged tract dataset written to %s\n", pipeline.OutputPath)
		return nil
	},
}

func init() {
	addJoinFlags(censusTractsCmd)
	censusCmd.AddCommand(censusTractsCmd)
}
