package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "TEAMPULSE_"
	envConfig  = "TEAMPULSE_CONFIG"
	keyDivider = "."
)

// Load builds a Config by layering defaults, an optional YAML file and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if TEAMPULSE_CONFIG is set
//  3. env (prefix TEAMPULSE_)
func Load(_ context.Context) (*Config, error) {
	return LoadFile(os.Getenv(envConfig))
}

// LoadFile is Load with an explicit file path. An empty path skips the file layer.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(keyDivider)

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// TEAMPULSE_MAX_WINDOW_DAYS -> max_window_days. Map keys use a double
	// underscore: TEAMPULSE_SCORE_WEIGHTS__CODE:COMMIT -> score_weights.code:commit
	envProvider := env.Provider(envPrefix, keyDivider, func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", keyDivider)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load config env: %w", err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
