package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/one-labs/streets-cli/internal/census"
	"github.com/one-labs/streets-cli/internal/config"
	"github.com/one-labs/streets-cli/internal/fetcher"
	"github.com/one-labs/streets-cli/internal/resilience"
)

var censusCmd = &cobra.Command{
	Use:   "census",
	Short: "Download and join census boundaries with ACS estimates",
	Long:  "Retrieves boundary polygons from TIGERweb and tabular estimates from the ACS API, joins them on GEOID, and writes one GeoJSON file.",
}

func init() { rootCmd.AddCommand(censusCmd) }

// buildJoinPipeline assembles the shared pieces of a census join pipeline
// from config plus command flags.
func buildJoinPipeline(cmd *cobra.Command, layer census.Layer, level census.Level, defaultOutput string) *census.JoinPipeline {
	httpClient := fetcher.NewClient(fetcher.HTTPOptions{
		RateLimiters: fetcher.DefaultRateLimiters(),
	})

	retry := retryPolicy(cfg.Retry)

	state := cfg.Census.State
	counties := cfg.Census.Counties
	if s, _ := cmd.Flags().GetString("state"); s != "" {
		state = s
	}
	if c, _ := cmd.Flags().GetString("counties"); c != "" {
		counties = splitAndTrim(c)
	}

	output := defaultOutput
	if o, _ := cmd.Flags().GetString("output"); o != "" {
		output = o
	}

	return &census.JoinPipeline{
		Boundaries: census.NewBoundaryClient(httpClient, cfg.Census.PageSize, cfg.Census.PageDelay()),
		ACS: census.NewACSClient(httpClient, cfg.Census.ACSURL(), cfg.Census.APIKey,
			cfg.Census.BatchSize, cfg.Census.BatchDelay(), retry),
		Layer:      layer,
		Level:      level,
		State:      state,
		Counties:   counties,
		OutputPath: output,
	}
}

// retryPolicy converts the config section into the shared policy.
func retryPolicy(rc config.RetryConfig) resilience.Policy {
	p := resilience.DefaultPolicy()
	if rc.MaxAttempts > 0 {
		p.MaxAttempts = rc.MaxAttempts
	}
	if rc.BaseDelayMs > 0 {
		p.BaseDelay = time.Duration(rc.BaseDelayMs) * time.Millisecond
	}
	if rc.Multiplier > 0 {
		p.Multiplier = rc.Multiplier
	}
	return p
}

// splitAndTrim splits a comma-separated flag value and trims whitespace.
func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// addJoinFlags registers the flags shared by the census subcommands.
func addJoinFlags(cmd *cobra.Command) {
	cmd.Flags().String("state", "", "2-digit state FIPS code (default: from config)")
	cmd.Flags().String("counties", "", "comma-separated 3-digit county FIPS codes (default: from config)")
	cmd.Flags().String("output", "", "output GeoJSON path")
}
