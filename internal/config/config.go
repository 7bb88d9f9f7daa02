package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dotcommander/clinscale/internal/consistency"
	"github.com/dotcommander/clinscale/internal/engine"
	"github.com/dotcommander/clinscale/internal/validator"
	"github.com/spf13/viper"
)

// ConfigFiles are the config file names looked up in the working directory,
// in order.
var ConfigFiles = []string{".clinscalerc.json", ".clinscalerc.yaml", ".clinscalerc.yml"}

// Config represents the clinscale configuration
type Config struct {
	Root           string            `mapstructure:"root" json:"root"`
	Exclude        []string          `mapstructure:"exclude" json:"exclude,omitempty"`
	FollowSymlinks bool              `mapstructure:"followSymlinks" json:"followSymlinks"`
	Format         string            `mapstructure:"format" json:"format"`
	Output         string            `mapstructure:"output" json:"output,omitempty"`
	FailOn         string            `mapstructure:"failOn" json:"failOn"`
	Quiet          bool              `mapstructure:"quiet" json:"quiet"`
	Verbose        bool              `mapstructure:"verbose" json:"verbose"`
	Concurrency    int               `mapstructure:"concurrency" json:"concurrency"`
	Baseline       string            `mapstructure:"baseline" json:"baseline,omitempty"`
	Responses      ResponsesConfig   `mapstructure:"responses" json:"responses"`
	Consistency    ConsistencyConfig `mapstructure:"consistency" json:"consistency"`
}

// ResponsesConfig controls response validation during scoring
type ResponsesConfig struct {
	AllowSkips bool `mapstructure:"allowSkips" json:"allowSkips"`
}

// ConsistencyConfig toggles and tunes the consistency heuristics
type ConsistencyConfig struct {
	StraightLining bool    `mapstructure:"straightLining" json:"straightLining"`
	MinGroupItems  int     `mapstructure:"minGroupItems" json:"minGroupItems"`
	ItemPairs      bool    `mapstructure:"itemPairs" json:"itemPairs"`
	PairThreshold  float64 `mapstructure:"pairThreshold" json:"pairThreshold"`
	ResponseTime   bool    `mapstructure:"responseTime" json:"responseTime"`
	MinResponseMs  int64   `mapstructure:"minResponseMs" json:"minResponseMs"`
	MsPerChar      float64 `mapstructure:"msPerChar" json:"msPerChar"`
}

// setDefaults registers every key so environment variables can override it.
func setDefaults() {
	d := consistency.DefaultOptions()
	viper.SetDefault("root", ".")
	viper.SetDefault("exclude", []string{})
	viper.SetDefault("followSymlinks", false)
	viper.SetDefault("format", "console")
	viper.SetDefault("output", "")
	viper.SetDefault("failOn", "error")
	viper.SetDefault("quiet", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("concurrency", 10)
	viper.SetDefault("baseline", "")
	viper.SetDefault("responses.allowSkips", false)
	viper.SetDefault("consistency.straightLining", d.StraightLining)
	viper.SetDefault("consistency.minGroupItems", d.MinGroupItems)
	viper.SetDefault("consistency.itemPairs", d.ItemPairs)
	viper.SetDefault("consistency.pairThreshold", d.PairThreshold)
	viper.SetDefault("consistency.responseTime", d.ResponseTime)
	viper.SetDefault("consistency.minResponseMs", d.MinResponseMs)
	viper.SetDefault("consistency.msPerChar", d.MsPerChar)
}

// LoadConfig loads configuration from defaults, the first config file found
// in the working directory, and CLINSCALE_* environment variables
func LoadConfig(rootPath string) (*Config, error) {
	setDefaults()

	for _, path := range ConfigFiles {
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err == nil {
			break
		}
	}

	// CLINSCALE_CONSISTENCY_MINGROUPITEMS maps to consistency.minGroupItems
	viper.SetEnvPrefix("CLINSCALE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if rootPath != "" {
		config.Root = rootPath
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	switch config.Format {
	case "console", "json", "markdown":
	default:
		return fmt.Errorf("invalid format: %s. Must be 'console', 'json', or 'markdown'", config.Format)
	}

	switch config.FailOn {
	case "critical", "error", "warning":
	default:
		return fmt.Errorf("invalid fail-on level: %s. Must be 'critical', 'error', or 'warning'", config.FailOn)
	}

	if config.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}

	c := config.Consistency
	if c.MinGroupItems < 2 {
		return fmt.Errorf("consistency.minGroupItems must be at least 2")
	}
	if c.PairThreshold < 0 || c.MinResponseMs < 0 || c.MsPerChar < 0 {
		return fmt.Errorf("consistency thresholds must not be negative")
	}

	return nil
}

// EngineOptions maps the configuration onto the scoring pipeline's options
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		Responses: validator.ResponseOptions{AllowSkips: c.Responses.AllowSkips},
		Consistency: consistency.Options{
			StraightLining: c.Consistency.StraightLining,
			MinGroupItems:  c.Consistency.MinGroupItems,
			ItemPairs:      c.Consistency.ItemPairs,
			PairThreshold:  c.Consistency.PairThreshold,
			ResponseTime:   c.Consistency.ResponseTime,
			MinResponseMs:  c.Consistency.MinResponseMs,
			MsPerChar:      c.Consistency.MsPerChar,
		},
	}
}

// SaveConfig saves the current configuration to a file
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	jsonData, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
