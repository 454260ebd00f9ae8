package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidLLMProviderNames lists known model provider names. Used by [Validate]
// to warn about unrecognised names, which are usually typos.
var ValidLLMProviderNames = []string{
	"openai", "openai-direct", "anthropic", "ollama", "gemini",
	"deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
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
	cfg := &Config{}
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

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Model provider
	if cfg.LLM.Name == "" {
		errs = append(errs, errors.New("llm.name is required"))
	}
	validateProviderName("llm", cfg.LLM.Name)
	validateProviderName("router", cfg.Router.Name)

	// History
	if cfg.History.Driver != "" && !cfg.History.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("history.driver %q is invalid; valid values: postgres, sqlite, memory", cfg.History.Driver))
	}
	switch cfg.History.Driver {
	case HistoryPostgres, HistorySQLite:
		if cfg.History.DSN == "" {
			errs = append(errs, fmt.Errorf("history.dsn is required when history.driver is %q", cfg.History.Driver))
		}
	case "", HistoryMemory:
		if cfg.History.Driver == "" {
			slog.Warn("history.driver is empty; conversations will not survive restarts")
		}
	}

	// Memory
	if cfg.Memory.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("memory.max_turns %d must not be negative", cfg.Memory.MaxTurns))
	}

	// Tools
	if cfg.Tools.News.Enabled && cfg.Tools.News.APIKey == "" && os.Getenv("NEWS_API_KEY") == "" {
		slog.Warn("tools.news is enabled without an api_key; the tool will report a missing key at call time")
	}
	if cfg.Tools.Gmail.Enabled && cfg.Tools.Gmail.CredentialsFile == "" {
		slog.Warn("tools.gmail is enabled without a credentials_file; the default path will be used")
	}

	// System message template
	if !cfg.SystemMessageValid() {
		errs = append(errs, errors.New("system_message must contain the {tools} placeholder"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// [ValidLLMProviderNames].
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	if slices.Contains(ValidLLMProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", ValidLLMProviderNames,
	)
}
