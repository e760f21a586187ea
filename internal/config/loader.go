package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/bleeper/internal/redact"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with all defaults applied. Used as the decode
// base so absent YAML keys keep their defaults.
func Default() *Config {
	return &Config{
		LogLevel: LogInfo,
		Transcriber: TranscriberConfig{
			Name:      "whisper",
			ServerURL: "http://localhost:8080",
		},
		Redaction: RedactionConfig{
			Mode:       redact.ModeExact,
			ToneHz:     1000,
			ToneGainDB: -3,
		},
		Concurrency: 1,
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("concurrency %d must not be negative", cfg.Concurrency))
	}

	errs = append(errs, validateTranscriber("transcriber", cfg.Transcriber)...)

	if cfg.Redaction.Mode != "" && !cfg.Redaction.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("redaction.mode %q is invalid; valid values: exact, substring, fuzzy", cfg.Redaction.Mode))
	}
	if cfg.Redaction.Pad < 0 {
		errs = append(errs, fmt.Errorf("redaction.pad %.3f must not be negative", cfg.Redaction.Pad))
	}
	if cfg.Redaction.ToneHz < 0 {
		errs = append(errs, fmt.Errorf("redaction.tone_hz %.1f must not be negative", cfg.Redaction.ToneHz))
	}
	if cfg.Redaction.ToneGainDB > 0 {
		errs = append(errs, fmt.Errorf("redaction.tone_gain_db %.1f must not be positive", cfg.Redaction.ToneGainDB))
	}
	if ft := cfg.Redaction.FuzzyThreshold; ft < 0 || ft > 1 {
		errs = append(errs, fmt.Errorf("redaction.fuzzy_threshold %.2f is out of range [0, 1]", ft))
	}
	if ft := cfg.Redaction.FuzzyTextThreshold; ft < 0 || ft > 1 {
		errs = append(errs, fmt.Errorf("redaction.fuzzy_text_threshold %.2f is out of range [0, 1]", ft))
	}

	return errors.Join(errs...)
}

// validateTranscriber checks one transcriber block, recursing into its
// fallback. prefix locates the block in error messages.
func validateTranscriber(prefix string, tc TranscriberConfig) []error {
	var errs []error

	if tc.Name == "" {
		errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		return errs
	}
	if !slices.Contains(validBackends, tc.Name) {
		errs = append(errs, fmt.Errorf("%s.name %q is unknown; valid values: whisper, whispercpp, openai", prefix, tc.Name))
		return errs
	}

	switch tc.Name {
	case "whisper":
		if tc.ServerURL == "" {
			errs = append(errs, fmt.Errorf("%s.server_url is required for the whisper backend", prefix))
		}
	case "whispercpp":
		if tc.ModelPath == "" {
			errs = append(errs, fmt.Errorf("%s.model_path is required for the whispercpp backend", prefix))
		}
	case "openai":
		if tc.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required for the openai backend", prefix))
		}
	}

	if tc.Fallback != nil {
		errs = append(errs, validateTranscriber(prefix+".fallback", *tc.Fallback)...)
	}
	return errs
}
