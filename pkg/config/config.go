// Package config provides a reusable loader for the peer's configuration
// files and environment variables.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"ironwsv/core"
	"ironwsv/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a peer process, mirroring the
// YAML files under cmd/peerd/config.
type Config struct {
	WSV struct {
		NameMinLength        int    `mapstructure:"name_min_length" json:"name_min_length"`
		NameMaxLength        int    `mapstructure:"name_max_length" json:"name_max_length"`
		MaxMetadataEntries   uint32 `mapstructure:"max_metadata_entries" json:"max_metadata_entries"`
		MaxMetadataEntryBytes uint32 `mapstructure:"max_metadata_entry_bytes" json:"max_metadata_entry_bytes"`
		MaxInstructionsPerTx uint32 `mapstructure:"max_instructions_per_tx" json:"max_instructions_per_tx"`
		EventBufferSize      int    `mapstructure:"event_buffer_size" json:"event_buffer_size"`
	} `mapstructure:"wsv" json:"wsv"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment-specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/peerd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	if err := viper.ReadInConfig(); err != nil {
		return nil, utils.Wrap(err, "load config")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, utils.Wrap(err, fmt.Sprintf("merge %s config", env))
		}
	}

	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the PEERD_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("PEERD_ENV", ""))
}

// ToWSVConfig projects the loaded configuration onto core.WSVConfig. Kept
// here rather than in core so the core package never imports viper
// directly (spec.md Component boundary: core has no I/O).
func (c Config) ToWSVConfig() core.WSVConfig {
	return core.WSVConfig{
		NameMinLength: c.WSV.NameMinLength,
		NameMaxLength: c.WSV.NameMaxLength,
		MetadataLimits: core.MetadataLimits{
			MaxEntries:    c.WSV.MaxMetadataEntries,
			MaxEntryBytes: c.WSV.MaxMetadataEntryBytes,
		},
		MaxInstructionsPerTx: c.WSV.MaxInstructionsPerTx,
		EventBufferSize:      c.WSV.EventBufferSize,
	}
}
