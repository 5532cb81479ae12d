package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/one-labs/streets-cli/internal/census"
)

var censusBlockGroupsCmd = &cobra.Command{
	Use:   "blockgroups",
	Short: "Block-group polygons joined with ACS block-group estimates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pipeline := buildJoinPipeline(cmd,
			census.BlockGroupLayer(cfg.Census.BlockGroupLayerURL),
			census.LevelBlockGroup,
			"census_block_groups_complete.geojson",
		)
		if err := pipeline.Run(ctx); err != nil {
			return eris.Wrap(err, "census blockgroups")
		}

		fmt.Printf("Merged block-group dataset written to %s\n", pipeline.OutputPath)
		return nil
	},
}

func init() {
	addJoinFlags(censusBlockGroupsCmd)
	censusCmd.AddCommand(censusBlockGroupsCmd)
}
