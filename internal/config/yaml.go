// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applog "pulse/internal/log"
)

// DotEnvFile is loaded into the environment, if present, before overrides apply.
const DotEnvFile = ".env"

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. It then loads .env, applies ENV_* overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		candidates := []string{"config.yaml", "config.yml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}
	// Environment wins over the file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv reads KEY=value pairs from path into the environment without replacing
// variables that are already set. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		applog.Debugf("Config: Loaded environment from %s", path)
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// applyEnvOverrides replaces settings with ENV_* variables where they are set and
// parse. Unparsable values are ignored with a warning.
func (cfg *Config) applyEnvOverrides() {
	// General
	envBool("ENV_DEBUG", &cfg.Debug)
	envString("ENV_LOG_LEVEL", &cfg.LogLevel)
	envString("ENV_LOG_FILE", &cfg.LogFile)

	// Engine
	envFloat("ENV_SAMPLE_RATE", &cfg.Engine.SampleRate)
	envFloat("ENV_WINDOW_SIZE", &cfg.Engine.WindowSize)
	envDuration("ENV_TICK_INTERVAL", &cfg.Engine.TickInterval)
	envBool("ENV_SPECTRAL_CHECK", &cfg.Engine.SpectralCheck)

	// Source
	envString("ENV_SOURCE_KIND", &cfg.Source.Kind)
	envString("ENV_SEQUENCE_DIR", &cfg.Source.Sequence.Dir)
	envFloat("ENV_SYNTHETIC_BPM", &cfg.Source.Synthetic.BPM)

	// Server
	envBool("ENV_SERVER_ENABLED", &cfg.Server.Enabled)
	envString("ENV_SERVER_ADDRESS", &cfg.Server.Address)

	// Transport
	envDuration("ENV_PUBLISH_INTERVAL", &cfg.Transport.PublishInterval)
	envBool("ENV_UDP_ENABLED", &cfg.Transport.UDPEnabled)
	envString("ENV_UDP_TARGET_ADDRESS", &cfg.Transport.UDPTargetAddress)
	envBool("ENV_NATS_ENABLED", &cfg.Transport.NATSEnabled)
	envString("ENV_NATS_URL", &cfg.Transport.NATSURL)
	envBool("ENV_MQTT_ENABLED", &cfg.Transport.MQTTEnabled)
	envString("ENV_MQTT_BROKER", &cfg.Transport.MQTTBroker)
}

func envString(key string, dst *string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
		applog.Debugf("Config: Overriding %s from env: %s", key, val)
	}
}

func envBool(key string, dst *bool) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		applog.Warnf("Config: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = b
	applog.Debugf("Config: Overriding %s from env: %v", key, b)
}

func envFloat(key string, dst *float64) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		applog.Warnf("Config: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = f
	applog.Debugf("Config: Overriding %s from env: %v", key, f)
}

func envDuration(key string, dst *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		applog.Warnf("Config: Ignoring %s=%q: %v", key, val, err)
		return
	}
	*dst = d
	applog.Debugf("Config: Overriding %s from env: %s", key, d)
}
