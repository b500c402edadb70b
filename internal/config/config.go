// Package config loads device defaults from the environment and an
// optional configuration file.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/born-ml/denoise/internal/core"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DENOISE"

// Config holds the defaults applied to newly created devices.
type Config struct {
	Verbose       int    `mapstructure:"verbose"`
	NumThreads    int    `mapstructure:"num_threads"`
	SetAffinity   bool   `mapstructure:"set_affinity"`
	DefaultDevice string `mapstructure:"default_device"`
	LogLevel      string `mapstructure:"log_level"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Verbose:       0,
		NumThreads:    0,
		SetAffinity:   true,
		DefaultDevice: "default",
		LogLevel:      "warn",
	}
}

var deviceNames = map[string]core.DeviceType{
	"default": core.DeviceDefault,
	"cpu":     core.DeviceCPU,
	"webgpu":  core.DeviceWebGPU,
	"opencl":  core.DeviceOpenCL,
}

// Load reads the configuration from defaults, cfgFile (if not empty) and
// DENOISE_* environment variables, in increasing priority.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// FromEnv is Load without a configuration file. Invalid environment values
// fall back to the defaults.
func FromEnv() *Config {
	cfg, err := Load("")
	if err != nil {
		core.Logger().Warn("ignoring invalid environment configuration", "err", err)
		return DefaultConfig()
	}
	return cfg
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Verbose < 0 || c.Verbose > 4 {
		return errors.New("verbose must be between 0 and 4")
	}
	if c.NumThreads < 0 {
		return errors.New("num_threads must not be negative")
	}
	if _, ok := deviceNames[strings.ToLower(c.DefaultDevice)]; !ok {
		return fmt.Errorf("default_device must be one of: %v", sortedKeys(deviceNames))
	}
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, c.LogLevel) {
		return fmt.Errorf("log_level must be one of: %v", validLevels)
	}
	return nil
}

// DeviceType returns the configured default device type.
func (c *Config) DeviceType() core.DeviceType {
	return deviceNames[strings.ToLower(c.DefaultDevice)]
}

func sortedKeys(m map[string]core.DeviceType) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("verbose", cfg.Verbose)
	v.SetDefault("num_threads", cfg.NumThreads)
	v.SetDefault("set_affinity", cfg.SetAffinity)
	v.SetDefault("default_device", cfg.DefaultDevice)
	v.SetDefault("log_level", cfg.LogLevel)
}
