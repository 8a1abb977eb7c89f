package call

import "time"

// Config controls the orchestration core.
type Config struct {
	// AssistantID identifies the voice assistant to join the call with.
	AssistantID string `json:"assistant_id"`

	// MinDispatchLength is the minimum utterance length, in bytes, that a
	// finalized user utterance must have to be worth a fact check.
	MinDispatchLength int `json:"min_dispatch_length"`

	// DispatchTimeout bounds how long a single verdict dispatch may stay
	// in flight before the dispatcher recovers to idle.
	DispatchTimeout time.Duration `json:"dispatch_timeout"`

	// AlertDuration is how long the detection banner stays visible after
	// each detection. Repeated detections extend the window from now.
	AlertDuration time.Duration `json:"alert_duration"`

	// ScoreThreshold is the exclusive lower bound a verdict score must
	// exceed to count as a detection.
	ScoreThreshold float64 `json:"score_threshold"`

	// TriggerTerms are the substrings scanned for, case-insensitively, in
	// finalized assistant utterances to recognize a spoken self-detection.
	TriggerTerms []string `json:"trigger_terms"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MinDispatchLength: 10,
		DispatchTimeout:   10 * time.Second,
		AlertDuration:     5 * time.Second,
		ScoreThreshold:    0.7,
		TriggerTerms:      []string{"bullshit", "bull shit"},
	}
}

// withDefaults fills zero-valued tuning fields from DefaultConfig. The
// assistant ID is deliberately left alone: a missing ID is a start error,
// not something to default.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MinDispatchLength == 0 {
		c.MinDispatchLength = def.MinDispatchLength
	}
	if c.DispatchTimeout == 0 {
		c.DispatchTimeout = def.DispatchTimeout
	}
	if c.AlertDuration == 0 {
		c.AlertDuration = def.AlertDuration
	}
	if c.ScoreThreshold == 0 {
		c.ScoreThreshold = def.ScoreThreshold
	}
	if len(c.TriggerTerms) == 0 {
		c.TriggerTerms = def.TriggerTerms
	}
	return c
}
