// Package config provides the configuration schema, loader, and validation
// for the bleeper audio redaction tool.
package config

import (
	"github.com/MrWong99/bleeper/internal/redact"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for bleeper.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel    LogLevel          `yaml:"log_level"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Redaction   RedactionConfig   `yaml:"redaction"`
	Concurrency int               `yaml:"concurrency"`
}

// TranscriberConfig selects and configures the transcript backend.
type TranscriberConfig struct {
	// Name selects the backend: "whisper" (whisper.cpp HTTP server),
	// "whispercpp" (native CGO bindings), or "openai".
	Name string `yaml:"name"`

	// ServerURL is the whisper.cpp server address for the "whisper" backend
	// (e.g., "http://localhost:8080").
	ServerURL string `yaml:"server_url"`

	// ModelPath is the ggml model file path for the "whispercpp" backend.
	ModelPath string `yaml:"model_path"`

	// APIKey authenticates the "openai" backend.
	APIKey string `yaml:"api_key"`

	// Model selects a specific model within the backend (e.g., "base.en",
	// "whisper-1"). Optional.
	Model string `yaml:"model"`

	// Language is the BCP-47 language code hint. Optional.
	Language string `yaml:"language"`

	// Fallback optionally configures a second backend tried when this one
	// fails.
	Fallback *TranscriberConfig `yaml:"fallback"`
}

// RedactionConfig holds matching and rendering defaults. CLI flags override
// the values set here.
type RedactionConfig struct {
	// Words lists the words to redact.
	Words []string `yaml:"words"`

	// Mode selects the comparison policy: "exact", "substring", or "fuzzy".
	// Defaults to "exact".
	Mode redact.MatchMode `yaml:"mode"`

	// Pad is extra time in seconds added before and after each matched word.
	// Must be non-negative. Default 0.
	Pad float64 `yaml:"pad"`

	// ToneHz is the beep frequency. Default 1000.
	ToneHz float64 `yaml:"tone_hz"`

	// ToneGainDB is the beep gain in dB relative to full scale, at most 0.
	// Default -3.
	ToneGainDB float64 `yaml:"tone_gain_db"`

	// FuzzyThreshold is the minimum Jaro-Winkler score for phonetically
	// matched targets in mode "fuzzy", in (0, 1]. Zero means the built-in
	// default.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`

	// FuzzyTextThreshold is the minimum Jaro-Winkler score for targets with
	// no phonetic overlap in mode "fuzzy", in (0, 1]. Zero means the
	// built-in default.
	FuzzyTextThreshold float64 `yaml:"fuzzy_text_threshold"`
}

// validBackends lists known transcriber backend names.
var validBackends = []string{"whisper", "whispercpp", "openai"}
