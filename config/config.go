// Package config loads Settings, the scalar knobs runtime.Option wraps,
// from an optional YAML file and the environment, grounded on
// kbukum-gokit/config's viper+godotenv loader pattern: a .env file is
// loaded first (if present), then viper reads the YAML file and binds
// environment variables over it, env always winning.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings collects the subset of runtime.Config that an embedder may want
// to override without recompiling: queue sizing, breaker tuning, RT thread
// hints, and log level. Field names match the ARC_* environment variables
// and config.yml keys exactly (mapstructure tags).
type Settings struct {
	InputQueueCapacity  int    `yaml:"input_queue_capacity" mapstructure:"input_queue_capacity"`
	OutputQueueCapacity int    `yaml:"output_queue_capacity" mapstructure:"output_queue_capacity"`
	BreakerMaxRetries   int    `yaml:"breaker_max_retries" mapstructure:"breaker_max_retries"`
	BreakerBaseMs       int    `yaml:"breaker_base_ms" mapstructure:"breaker_base_ms"`
	RTPriority          int    `yaml:"rt_priority" mapstructure:"rt_priority"`
	CPUAffinity         int    `yaml:"cpu_affinity" mapstructure:"cpu_affinity"`
	LogLevel            string `yaml:"log_level" mapstructure:"log_level"`
}

// defaults mirrors runtime.newConfig's defaults so Settings loaded with no
// file and no environment still produces a usable configuration.
func defaults() Settings {
	return Settings{
		InputQueueCapacity:  256,
		OutputQueueCapacity: 1024,
		BreakerMaxRetries:   5,
		BreakerBaseMs:       100,
		RTPriority:          47,
		CPUAffinity:         -1,
		LogLevel:            "info",
	}
}

// Load reads configFile (if non-empty and present) as YAML, loads envFile
// (if non-empty and present) via godotenv, and overlays ARC_-prefixed
// environment variables on top — env wins over file wins over default.
func Load(configFile, envFile string) (Settings, error) {
	settings := defaults()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return settings, fmt.Errorf("arc.module.env_load_failed: %s: %w", envFile, err)
			}
		}
	}

	v := viper.New()
	v.SetEnvPrefix("arc")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			v.SetConfigFile(configFile)
			if err := v.ReadInConfig(); err != nil {
				return settings, fmt.Errorf("arc.module.config_load_failed: %s: %w", configFile, err)
			}
		}
	}

	for _, key := range []string{
		"input_queue_capacity", "output_queue_capacity",
		"breaker_max_retries", "breaker_base_ms",
		"rt_priority", "cpu_affinity", "log_level",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.Unmarshal(&settings); err != nil {
		return settings, fmt.Errorf("arc.module.config_unmarshal_failed: %w", err)
	}
	return settings, nil
}
