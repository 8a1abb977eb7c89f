// Package config loads the application configuration from the environment,
// with an optional YAML session profile layered on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/pitchwatch/pitchwatch/pkg/core/call"
)

// Config is the fully resolved application configuration.
type Config struct {
	// Transport
	TransportURL    string
	TransportAPIKey string
	AssistantID     string

	// Verdict service
	VerdictURL       string
	DetectionLogPath string // empty disables the JSONL log

	// Optional YAML profile applied over the env values.
	ProfilePath string

	// Orchestration tuning
	DispatchTimeout   time.Duration
	AlertDuration     time.Duration
	ScoreThreshold    float64
	MinDispatchLength int
	TriggerTerms      []string
}

// Profile is the YAML session profile. Only set fields override the
// environment; zero values are ignored.
type Profile struct {
	AssistantID       string   `yaml:"assistant_id"`
	ScoreThreshold    float64  `yaml:"score_threshold"`
	DispatchTimeoutMs int      `yaml:"dispatch_timeout_ms"`
	AlertDurationMs   int      `yaml:"alert_duration_ms"`
	MinDispatchLength int      `yaml:"min_dispatch_length"`
	TriggerTerms      []string `yaml:"trigger_terms"`
}

// LoadFromEnv reads PITCHWATCH_* variables, applies the profile named by
// PITCHWATCH_PROFILE if any, and validates the result.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		TransportURL:      envOr("PITCHWATCH_TRANSPORT_URL", ""),
		TransportAPIKey:   envOr("PITCHWATCH_TRANSPORT_API_KEY", ""),
		AssistantID:       envOr("PITCHWATCH_ASSISTANT_ID", ""),
		VerdictURL:        envOr("PITCHWATCH_VERDICT_URL", "http://localhost:8000"),
		DetectionLogPath:  envOr("PITCHWATCH_DETECTION_LOG", ""),
		ProfilePath:       envOr("PITCHWATCH_PROFILE", ""),
		DispatchTimeout:   envDurationOr("PITCHWATCH_DISPATCH_TIMEOUT", 10*time.Second),
		AlertDuration:     envDurationOr("PITCHWATCH_ALERT_DURATION", 5*time.Second),
		ScoreThreshold:    envFloat64Or("PITCHWATCH_SCORE_THRESHOLD", 0.7),
		MinDispatchLength: envIntOr("PITCHWATCH_MIN_DISPATCH_LENGTH", 10),
	}

	for _, term := range splitCSV(os.Getenv("PITCHWATCH_TRIGGER_TERMS")) {
		cfg.TriggerTerms = append(cfg.TriggerTerms, strings.ToLower(term))
	}

	if cfg.ProfilePath != "" {
		profile, err := LoadProfile(cfg.ProfilePath)
		if err != nil {
			return Config{}, err
		}
		cfg.apply(profile)
	}

	if cfg.TransportURL == "" {
		return Config{}, fmt.Errorf("PITCHWATCH_TRANSPORT_URL must be set")
	}
	if cfg.VerdictURL == "" {
		return Config{}, fmt.Errorf("PITCHWATCH_VERDICT_URL must not be empty")
	}
	if cfg.DispatchTimeout <= 0 {
		return Config{}, fmt.Errorf("PITCHWATCH_DISPATCH_TIMEOUT must be > 0")
	}
	if cfg.AlertDuration <= 0 {
		return Config{}, fmt.Errorf("PITCHWATCH_ALERT_DURATION must be > 0")
	}
	if cfg.ScoreThreshold < 0 || cfg.ScoreThreshold > 1 {
		return Config{}, fmt.Errorf("PITCHWATCH_SCORE_THRESHOLD must be within [0, 1]")
	}
	if cfg.MinDispatchLength <= 0 {
		return Config{}, fmt.Errorf("PITCHWATCH_MIN_DISPATCH_LENGTH must be > 0")
	}

	return cfg, nil
}

// LoadProfile reads and decodes one YAML session profile.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile %q: %w", path, err)
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %q: %w", path, err)
	}
	return p, nil
}

// apply overlays the set fields of a profile.
func (c *Config) apply(p Profile) {
	if p.AssistantID != "" {
		c.AssistantID = p.AssistantID
	}
	if p.ScoreThreshold != 0 {
		c.ScoreThreshold = p.ScoreThreshold
	}
	if p.DispatchTimeoutMs != 0 {
		c.DispatchTimeout = time.Duration(p.DispatchTimeoutMs) * time.Millisecond
	}
	if p.AlertDurationMs != 0 {
		c.AlertDuration = time.Duration(p.AlertDurationMs) * time.Millisecond
	}
	if p.MinDispatchLength != 0 {
		c.MinDispatchLength = p.MinDispatchLength
	}
	if len(p.TriggerTerms) != 0 {
		c.TriggerTerms = nil
		for _, term := range p.TriggerTerms {
			c.TriggerTerms = append(c.TriggerTerms, strings.ToLower(term))
		}
	}
}

// SessionConfig maps the resolved configuration onto the orchestration core.
func (c Config) SessionConfig() call.Config {
	return call.Config{
		AssistantID:       c.AssistantID,
		MinDispatchLength: c.MinDispatchLength,
		DispatchTimeout:   c.DispatchTimeout,
		AlertDuration:     c.AlertDuration,
		ScoreThreshold:    c.ScoreThreshold,
		TriggerTerms:      c.TriggerTerms,
	}
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envFloat64Or(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
