// Package config holds process configuration for the analytics service.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/teampulse/internal/analysis"
	"github.com/ZanzyTHEbar/teampulse/internal/cache"
	"github.com/ZanzyTHEbar/teampulse/internal/collaboration"
	"github.com/ZanzyTHEbar/teampulse/internal/identity"
	"github.com/ZanzyTHEbar/teampulse/internal/monitoring"
	"github.com/ZanzyTHEbar/teampulse/internal/ratelimit"
	"github.com/ZanzyTHEbar/teampulse/internal/types"
)

// ErrInvalidConfig marks a configuration that failed validation
var ErrInvalidConfig = errors.New("invalid config")

// Config contains process configuration
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	DatabasePath string `koanf:"database_path"`

	// Redis is used for member index snapshots when RedisAddr is set.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	// Timezone is the IANA zone used for calendar-day bucketing.
	Timezone string `koanf:"timezone"`

	DefaultWindowDays        int     `koanf:"default_window_days"`
	MaxWindowDays            int     `koanf:"max_window_days"`
	AggregationTimeoutMS     int     `koanf:"aggregation_timeout_ms"`
	RecentActivityLimit      int     `koanf:"recent_activity_limit"`
	DefaultCollaboratorLimit int     `koanf:"default_collaborator_limit"`
	MaxCollaboratorLimit     int     `koanf:"max_collaborator_limit"`
	DefaultMinScore          float64 `koanf:"default_min_score"`

	MemberCacheTTLSeconds int `koanf:"member_cache_ttl_seconds"`

	// AmbiguityPolicy is first_match or unresolved.
	AmbiguityPolicy string `koanf:"ambiguity_policy"`
	ExcludeBots     bool   `koanf:"exclude_bots"`

	// RateLimitPerMinute is the per-client request budget; 0 disables limiting.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`

	// ScoreWeights overrides "source:subtype" weights on top of the defaults.
	ScoreWeights map[string]float64 `koanf:"score_weights"`

	// CollaborationWeights maps a source to the weight of one shared context.
	CollaborationWeights map[string]float64 `koanf:"collaboration_weights"`

	// TracingExporter is none, stdout or otlp. otlp reads OTEL_EXPORTER_OTLP_*.
	TracingExporter    string  `koanf:"tracing_exporter"`
	TracingSampleRatio float64 `koanf:"tracing_sample_ratio"`
}

// New returns a Config populated with defaults
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":8080",
		DatabasePath:             "./data/teampulse.db",
		Timezone:                 "UTC",
		DefaultWindowDays:        28,
		MaxWindowDays:            366,
		AggregationTimeoutMS:     5000,
		RecentActivityLimit:      20,
		DefaultCollaboratorLimit: 10,
		MaxCollaboratorLimit:     100,
		MemberCacheTTLSeconds:    300,
		AmbiguityPolicy:          string(identity.PolicyFirstMatch),
		ExcludeBots:              true,
		RateLimitPerMinute:       120,
		TracingExporter:          monitoring.ExporterNone,
		TracingSampleRatio:       1.0,
		ScoreWeights:             map[string]float64{},
		CollaborationWeights: map[string]float64{
			string(types.SourceCode):    3.0,
			string(types.SourceChat):    1.0,
			string(types.SourceMeeting): 5.0,
		},
	}
}

// Validate checks values that would otherwise fail late at request time
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Timezone, err)
	}
	if c.DefaultWindowDays <= 0 || c.MaxWindowDays <= 0 {
		return fmt.Errorf("%w: window bounds must be positive", ErrInvalidConfig)
	}
	if c.DefaultWindowDays > c.MaxWindowDays {
		return fmt.Errorf("%w: default_window_days %d exceeds max_window_days %d", ErrInvalidConfig, c.DefaultWindowDays, c.MaxWindowDays)
	}
	if c.DefaultCollaboratorLimit <= 0 || c.MaxCollaboratorLimit < c.DefaultCollaboratorLimit {
		return fmt.Errorf("%w: collaborator limits must be positive and ordered", ErrInvalidConfig)
	}
	if _, err := identity.ParsePolicy(c.AmbiguityPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := analysis.ParseWeights(c.ScoreWeights); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := monitoring.ParseExporter(c.TracingExporter); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return fmt.Errorf("%w: tracing_sample_ratio must be within [0, 1]", ErrInvalidConfig)
	}
	for source, w := range c.CollaborationWeights {
		if !types.SourceType(source).Valid() {
			return fmt.Errorf("%w: collaboration weight for unknown source %q", ErrInvalidConfig, source)
		}
		if w < 0 {
			return fmt.Errorf("%w: collaboration weight for %q must not be negative", ErrInvalidConfig, source)
		}
	}
	return nil
}

// Analysis builds the analyzer settings. Call Validate first.
func (c *Config) Analysis() (analysis.Config, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return analysis.Config{}, fmt.Errorf("failed to load timezone: %w", err)
	}
	policy, err := identity.ParsePolicy(c.AmbiguityPolicy)
	if err != nil {
		return analysis.Config{}, err
	}
	weights, err := analysis.ParseWeights(c.ScoreWeights)
	if err != nil {
		return analysis.Config{}, err
	}

	collab := make(collaboration.Weights, len(c.CollaborationWeights))
	for source, w := range c.CollaborationWeights {
		collab[types.SourceType(source)] = w
	}

	return analysis.Config{
		Location:                 loc,
		DefaultWindowDays:        c.DefaultWindowDays,
		MaxWindowDays:            c.MaxWindowDays,
		Timeout:                  time.Duration(c.AggregationTimeoutMS) * time.Millisecond,
		RecentLimit:              c.RecentActivityLimit,
		DefaultCollaboratorLimit: c.DefaultCollaboratorLimit,
		MaxCollaboratorLimit:     c.MaxCollaboratorLimit,
		DefaultMinScore:          c.DefaultMinScore,
		AmbiguityPolicy:          policy,
		ExcludeBots:              c.ExcludeBots,
		ScoreWeights:             weights,
		CollaborationWeights:     collab,
	}, nil
}

// Redis returns the shared cache connection settings
func (c *Config) Redis() cache.RedisConfig {
	return cache.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPassword, DB: c.RedisDB}
}

// RateLimit returns the per-client limiter settings
func (c *Config) RateLimit() ratelimit.Config {
	cfg := ratelimit.DefaultConfig()
	cfg.LimitPerMin = c.RateLimitPerMinute
	return cfg
}

// MemberCacheTTL is how long a member index snapshot stays cached
func (c *Config) MemberCacheTTL() time.Duration {
	return time.Duration(c.MemberCacheTTLSeconds) * time.Second
}

// Tracing returns the span exporter settings
func (c *Config) Tracing(version string) monitoring.TracingConfig {
	return monitoring.TracingConfig{
		Exporter:       c.TracingExporter,
		ServiceName:    "teampulse",
		ServiceVersion: version,
		SampleRatio:    c.TracingSampleRatio,
	}
}
