package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/one-labs/streets-cli/internal/poverty"
)

var povertyCmd = &cobra.Command{
	Use:   "poverty",
	Short: "Filter census blocks to persistent poverty tracts",
	Long: `Loads a poverty-tract lookup CSV and a census block GeoJSON, keeps the
blocks whose tract code appears in the lookup, and writes them as one
GeoJSON file.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		opts := poverty.Options{
			LookupPath: cfg.Poverty.LookupPath,
			BlocksPath: cfg.Poverty.BlocksPath,
			OutputPath: cfg.Poverty.OutputPath,
		}
		if p, _ := cmd.Flags().GetString("lookup"); p != "" {
			opts.LookupPath = p
		}
		if p, _ := cmd.Flags().GetString("blocks"); p != "" {
			opts.BlocksPath = p
		}
		if p, _ := cmd.Flags().GetString("output"); p != "" {
			opts.OutputPath = p
		}
		if opts.LookupPath == "" || opts.BlocksPath == "" || opts.OutputPath == "" {
			return eris.New("poverty: lookup, blocks, and output paths are required (flags or config)")
		}

		summary, err := poverty.Run(opts)
		if err != nil {
			return eris.Wrap(err, "poverty")
		}

		fmt.Printf("Kept %d blocks across %d poverty tracts\n", summary.Blocks, summary.Tracts)
		return nil
	},
}

func init() {
	povertyCmd.Flags().String("lookup", "", "poverty-tract lookup CSV path (default: from config)")
	povertyCmd.Flags().String("blocks", "", "census blocks GeoJSON path (default: from config)")
	povertyCmd.Flags().String("output", "", "output GeoJSON path (default: from config)")
	rootCmd.AddCommand(povertyCmd)
}
