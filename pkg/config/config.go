// Package config loads presetswitch settings from .presetswitch.yaml, the
// environment and defaults.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"tableflip.dev/presetswitch/pkg/app"
	"tableflip.dev/presetswitch/pkg/graph"
	"tableflip.dev/presetswitch/pkg/preset"
	"tableflip.dev/presetswitch/pkg/reorder"
	"tableflip.dev/presetswitch/pkg/resolve"
	"tableflip.dev/presetswitch/pkg/watch"
)

// Config is the resolved configuration.
type Config struct {
	Path         string        `mapstructure:"path"`
	Interval     time.Duration `mapstructure:"interval"`
	DoubleClick  time.Duration `mapstructure:"double_click"`
	ControlTypes []string      `mapstructure:"control_types"`
	RelayTypes   []string      `mapstructure:"relay_types"`
	Candidates   []string      `mapstructure:"candidates"`
	NameFormat   string        `mapstructure:"name_format"`
	LogLevel     string        `mapstructure:"log_level"`
	LogFile      string        `mapstructure:"log_file"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("path", "~/.presetswitch.db")
	v.SetDefault("interval", watch.DefaultInterval)
	v.SetDefault("double_click", reorder.DefaultDoubleClick)
	v.SetDefault("control_types", app.DefaultControlTypes())
	v.SetDefault("relay_types", []string{"Reroute"})
	v.SetDefault("candidates", resolve.DefaultCandidates())
	v.SetDefault("name_format", preset.DefaultNameFormat)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
}

// Default returns the built-in configuration without consulting files or
// the environment. Path is left empty.
func Default() *Config {
	return &Config{
		Interval:     watch.DefaultInterval,
		DoubleClick:  reorder.DefaultDoubleClick,
		ControlTypes: app.DefaultControlTypes(),
		RelayTypes:   []string{"Reroute"},
		Candidates:   resolve.DefaultCandidates(),
		NameFormat:   preset.DefaultNameFormat,
		LogLevel:     "info",
	}
}

// Load reads the configuration through the global viper instance, so flags
// bound with viper.BindPFlag take precedence.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration through v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetConfigName(".presetswitch") // .yaml is implicit
	v.SetEnvPrefix("PRESETSWITCH")
	v.AutomaticEnv()

	if override := os.Getenv("PRESETSWITCH_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	path, err := homedir.Expand(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("config: expand path %q: %w", cfg.Path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// BasePath implements store.Config.
func (c *Config) BasePath() string {
	return c.Path
}

// Schema returns the document schema with the configured relay types.
func (c *Config) Schema() *graph.Schema {
	return graph.DefaultSchema().WithRelays(c.RelayTypes...)
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// StoreOptions returns the preset store options the configuration implies.
func (c *Config) StoreOptions() []preset.Option {
	return []preset.Option{preset.WithNameFormat(c.NameFormat)}
}
