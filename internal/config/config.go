// Package config loads application configuration and initializes logging.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration. Each pipeline receives
// only its own section; nothing reads global mutable state.
type Config struct {
	Raster  RasterConfig  `yaml:"raster" mapstructure:"raster"`
	Census  CensusConfig  `yaml:"census" mapstructure:"census"`
	Poverty PovertyConfig `yaml:"poverty" mapstructure:"poverty"`
	Convert ConvertConfig `yaml:"convert" mapstructure:"convert"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// RasterConfig configures the chunked raster reclassifier.
type RasterConfig struct {
	InputPath        string  `yaml:"input_path" mapstructure:"input_path"`
	OutputPath       string  `yaml:"output_path" mapstructure:"output_path"`
	ChunkSize        int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	Sentinel         int     `yaml:"sentinel" mapstructure:"sentinel"`
	CompressionRatio float64 `yaml:"compression_ratio" mapstructure:"compression_ratio"`
}

// CensusConfig configures the TIGERweb and ACS clients.
type CensusConfig struct {
	APIKey             string   `yaml:"api_key" mapstructure:"api_key"`
	Year               int      `yaml:"year" mapstructure:"year"`
	State              string   `yaml:"state" mapstructure:"state"`
	Counties           []string `yaml:"counties" mapstructure:"counties"`
	ACSBaseURL         string   `yaml:"acs_base_url" mapstructure:"acs_base_url"`
	TractLayerURL      string   `yaml:"tract_layer_url" mapstructure:"tract_layer_url"`
	BlockGroupLayerURL string   `yaml:"block_group_layer_url" mapstructure:"block_group_layer_url"`
	PageSize           int      `yaml:"page_size" mapstructure:"page_size"`
	PageDelayMs        int      `yaml:"page_delay_ms" mapstructure:"page_delay_ms"`
	BatchSize          int      `yaml:"batch_size" mapstructure:"batch_size"`
	BatchDelayMs       int      `yaml:"batch_delay_ms" mapstructure:"batch_delay_ms"`
}

// ACSURL returns the ACS dataset endpoint. An explicit acs_base_url wins;
// otherwise the URL is derived from the configured vintage year.
func (c CensusConfig) ACSURL() string {
	if c.ACSBaseURL != "" {
		return c.ACSBaseURL
	}
	return fmt.Sprintf("https://api.census.gov/data/%d/acs/acs5", c.Year)
}

// PageDelay returns the inter-page delay as a duration.
func (c CensusConfig) PageDelay() time.Duration {
	return time.Duration(c.PageDelayMs) * time.Millisecond
}

// BatchDelay returns the inter-batch delay as a duration.
func (c CensusConfig) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMs) * time.Millisecond
}

// PovertyConfig configures the persistent-poverty block filter.
type PovertyConfig struct {
	LookupPath string `yaml:"lookup_path" mapstructure:"lookup_path"`
	BlocksPath string `yaml:"blocks_path" mapstructure:"blocks_path"`
	OutputPath string `yaml:"output_path" mapstructure:"output_path"`
}

// ConvertConfig configures the GeoJSON to shapefile conversion.
type ConvertConfig struct {
	InputDir string `yaml:"input_dir" mapstructure:"input_dir"`
}

// RetryConfig configures the shared retry policy for remote requests.
type RetryConfig struct {
	MaxAttempts int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMs int     `yaml:"base_delay_ms" mapstructure:"base_delay_ms"`
	Multiplier  float64 `yaml:"multiplier" mapstructure:"multiplier"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("STREETS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("raster.chunk_size", 25000)
	v.SetDefault("raster.sentinel", 1)
	v.SetDefault("raster.compression_ratio", 0.3)
	v.SetDefault("census.year", 2021)
	v.SetDefault("census.state", "36")
	v.SetDefault("census.counties", []string{"005", "047", "061", "081", "085"})
	v.SetDefault("census.tract_layer_url",
		"https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/Tracts_Blocks/MapServer/3/query")
	v.SetDefault("census.block_group_layer_url",
		"https://tigerweb.geo.census.gov/arcgis/rest/services/TIGERweb/tigerWMS_Current/MapServer/12/query")
	v.SetDefault("census.page_size", 1000)
	v.SetDefault("census.page_delay_ms", 500)
	v.SetDefault("census.batch_size", 100)
	v.SetDefault("census.batch_delay_ms", 1000)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.base_delay_ms", 1000)
	v.SetDefault("retry.multiplier", 2.0)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
