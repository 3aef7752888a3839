// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Minuted Contributors

package config

import (
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	minutederr "github.com/minuted-dev/minuted/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the top-level Minuted configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Endpoints  []EndpointConfig `mapstructure:"endpoints"`
	Pool       PoolConfig       `mapstructure:"pool"`
	Health     HealthConfig     `mapstructure:"health"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls how the HTTP API listens.
type ServerConfig struct {
	Listen      string   `mapstructure:"listen"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// EndpointConfig declares one inference endpoint joined to the default
// pool at startup.
type EndpointConfig struct {
	ID            string `mapstructure:"id"`
	URL           string `mapstructure:"url"`
	Model         string `mapstructure:"model"`
	Protocol      string `mapstructure:"protocol"`
	APIKey        string `mapstructure:"api_key"`
	Priority      int    `mapstructure:"priority"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
	TimeoutSecs   int    `mapstructure:"timeout_seconds"`
}

// Timeout returns the per-call timeout as a duration.
func (e EndpointConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// PoolConfig shapes the default endpoint pool.
type PoolConfig struct {
	Strategy          string `mapstructure:"strategy"`
	MaxRetries        int    `mapstructure:"max_retries"`
	BreakerThreshold  int    `mapstructure:"breaker_threshold"`
	BreakerWindowSecs int    `mapstructure:"breaker_window_seconds"`
	HealthChecks      bool   `mapstructure:"health_checks"`
}

// BreakerWindow returns the breaker open window as a duration.
func (p PoolConfig) BreakerWindow() time.Duration {
	return time.Duration(p.BreakerWindowSecs) * time.Second
}

// HealthConfig tunes the background health sweep.
type HealthConfig struct {
	IntervalSecs      int `mapstructure:"interval_seconds"`
	ProbeTimeoutSecs  int `mapstructure:"probe_timeout_seconds"`
	DegradedAfterSecs int `mapstructure:"degraded_after_seconds"`
}

func (h HealthConfig) Interval() time.Duration {
	return time.Duration(h.IntervalSecs) * time.Second
}

func (h HealthConfig) ProbeTimeout() time.Duration {
	return time.Duration(h.ProbeTimeoutSecs) * time.Second
}

func (h HealthConfig) DegradedAfter() time.Duration {
	return time.Duration(h.DegradedAfterSecs) * time.Second
}

// ExtractionConfig tunes transcript preprocessing and recovery.
type ExtractionConfig struct {
	SegmentBy           string  `mapstructure:"segment_by"`
	MaxSegments         int     `mapstructure:"max_segments"`
	RemoveFillers       bool    `mapstructure:"remove_fillers"`
	RemoveRepetitions   bool    `mapstructure:"remove_repetitions"`
	RemoveSpeakerLabels bool    `mapstructure:"remove_speaker_labels"`
	Temperature         float64 `mapstructure:"temperature"`
	PromptWindowRunes   int     `mapstructure:"prompt_window_runes"`
	TempDir             string  `mapstructure:"temp_dir"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from the given path (or defaults) with
// environment variable overrides (prefix MINUTED_).
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.listen", "127.0.0.1:8823")
	v.SetDefault("pool.strategy", "health_based")
	v.SetDefault("pool.max_retries", 3)
	v.SetDefault("pool.breaker_threshold", 5)
	v.SetDefault("pool.breaker_window_seconds", 60)
	v.SetDefault("pool.health_checks", true)
	v.SetDefault("health.interval_seconds", 30)
	v.SetDefault("health.probe_timeout_seconds", 10)
	v.SetDefault("health.degraded_after_seconds", 5)
	v.SetDefault("extraction.segment_by", "paragraph")
	v.SetDefault("extraction.max_segments", 50)
	v.SetDefault("extraction.remove_fillers", true)
	v.SetDefault("extraction.remove_repetitions", true)
	v.SetDefault("extraction.remove_speaker_labels", false)
	v.SetDefault("extraction.temperature", 0.3)
	v.SetDefault("extraction.prompt_window_runes", 2000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Environment
	v.SetEnvPrefix("MINUTED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// File
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, minutederr.Errorf(minutederr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue, "unmarshalling config: %w", err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}

	return &cfg, nil
}

// Validate checks the configuration for logical errors. It returns a
// slice of all validation errors found, collecting all issues rather
// than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateEndpoints()...)
	errs = append(errs, c.validatePool()...)
	errs = append(errs, c.validateHealth()...)
	errs = append(errs, c.validateExtraction()...)
	errs = append(errs, c.validateLogging()...)

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error

	if c.Server.Listen == "" {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue, "config: server.listen must not be empty"))
		return errs
	}

	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: server.listen must be a valid host:port address, got %q: %w",
			c.Server.Listen, err,
		))
		return errs
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be a number, got %q",
			portStr,
		))
	} else if port < 1 || port > 65535 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: server.listen port must be between 1 and 65535, got %d",
			port,
		))
	}

	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
				"config: server.cors_origins must not contain the wildcard origin"))
		}
	}

	return errs
}

func (c *Config) validateEndpoints() []error {
	var errs []error

	validProtocols := map[string]bool{"ollama": true, "openai": true}
	seen := make(map[string]bool, len(c.Endpoints))

	for i, ep := range c.Endpoints {
		if ep.ID == "" {
			errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
				"config: endpoints[%d].id must not be empty", i))
		} else if seen[ep.ID] {
			errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
				"config: endpoints[%d].id %q is duplicated", i, ep.ID))
		} else {
			seen[ep.ID] = true
		}

		if ep.URL == "" {
			errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
				"config: endpoints[%d].url must not be empty", i))
		} else if u, err := url.Parse(ep.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
				"config: endpoints[%d].url must be an absolute URL, got %q", i, ep.URL))
		}

		if ep.Protocol != "" && !validProtocols[ep.Protocol] {
			errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
				"config: endpoints[%d].protocol must be one of [ollama, openai], got %q", i, ep.Protocol))
		}

		if ep.Priority < 0 || ep.Priority > 10 {
			errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
				"config: endpoints[%d].priority must be between 0 and 10, got %d", i, ep.Priority))
		}

		if ep.MaxConcurrent < 0 {
			errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
				"config: endpoints[%d].max_concurrent must not be negative, got %d", i, ep.MaxConcurrent))
		}

		if ep.TimeoutSecs < 0 {
			errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
				"config: endpoints[%d].timeout_seconds must not be negative, got %d", i, ep.TimeoutSecs))
		}
	}

	return errs
}

func (c *Config) validatePool() []error {
	var errs []error

	validStrategies := map[string]bool{
		"round_robin": true, "random": true, "least_connections": true,
		"response_time": true, "health_based": true,
	}
	if !validStrategies[c.Pool.Strategy] {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: pool.strategy must be one of [round_robin, random, least_connections, response_time, health_based], got %q",
			c.Pool.Strategy,
		))
	}

	if c.Pool.MaxRetries <= 0 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: pool.max_retries must be greater than 0, got %d", c.Pool.MaxRetries))
	}

	if c.Pool.BreakerThreshold <= 0 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: pool.breaker_threshold must be greater than 0, got %d", c.Pool.BreakerThreshold))
	}

	if c.Pool.BreakerWindowSecs <= 0 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: pool.breaker_window_seconds must be greater than 0, got %d", c.Pool.BreakerWindowSecs))
	}

	return errs
}

func (c *Config) validateHealth() []error {
	var errs []error

	if c.Health.IntervalSecs <= 0 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: health.interval_seconds must be greater than 0, got %d", c.Health.IntervalSecs))
	}

	if c.Health.ProbeTimeoutSecs <= 0 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: health.probe_timeout_seconds must be greater than 0, got %d", c.Health.ProbeTimeoutSecs))
	}

	if c.Health.DegradedAfterSecs <= 0 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: health.degraded_after_seconds must be greater than 0, got %d", c.Health.DegradedAfterSecs))
	}

	return errs
}

func (c *Config) validateExtraction() []error {
	var errs []error

	validSegmentBy := map[string]bool{"paragraph": true, "sentence": true, "topic": true}
	if !validSegmentBy[c.Extraction.SegmentBy] {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: extraction.segment_by must be one of [paragraph, sentence, topic], got %q",
			c.Extraction.SegmentBy,
		))
	}

	if c.Extraction.MaxSegments <= 0 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: extraction.max_segments must be greater than 0, got %d", c.Extraction.MaxSegments))
	}

	if c.Extraction.Temperature < 0 || c.Extraction.Temperature > 2 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: extraction.temperature must be between 0 and 2, got %g", c.Extraction.Temperature))
	}

	if c.Extraction.PromptWindowRunes < 0 {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: extraction.prompt_window_runes must not be negative, got %d", c.Extraction.PromptWindowRunes))
	}

	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: logging.level must be one of [debug, info, warn, error], got %q",
			c.Logging.Level,
		))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		errs = append(errs, minutederr.Errorf(minutederr.CodeConfigValidateInvalidValue,
			"config: logging.format must be one of [text, json], got %q",
			c.Logging.Format,
		))
	}

	return errs
}
