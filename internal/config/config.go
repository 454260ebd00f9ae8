// Package config provides the configuration schema, loader, and provider
// registry for the Loquax agent server.
package config

import (
	"strings"

	"github.com/loquax-ai/loquax/internal/agent"
)

// LogLevel controls log verbosity for the Loquax server.
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

// HistoryDriver selects the conversation persistence backend.
type HistoryDriver string

const (
	// HistoryPostgres stores snapshots in a PostgreSQL database.
	HistoryPostgres HistoryDriver = "postgres"

	// HistorySQLite stores snapshots in a local SQLite file.
	HistorySQLite HistoryDriver = "sqlite"

	// HistoryMemory keeps snapshots in process memory only.
	HistoryMemory HistoryDriver = "memory"
)

// IsValid reports whether d is a recognised history driver.
func (d HistoryDriver) IsValid() bool {
	switch d {
	case HistoryPostgres, HistorySQLite, HistoryMemory:
		return true
	}
	return false
}

// Config is the root configuration structure for Loquax.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	LLM     ProviderEntry `yaml:"llm"`
	Router  ProviderEntry `yaml:"router"`
	Memory  MemoryConfig  `yaml:"memory"`
	History HistoryConfig `yaml:"history"`
	Tools   ToolsConfig   `yaml:"tools"`

	// SystemMessage is an optional custom system-message template. It must
	// contain a {tools} placeholder where the tool descriptions go. Empty
	// selects the built-in template.
	SystemMessage string `yaml:"system_message"`
}

// ServerConfig holds network and logging settings for the Loquax server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProviderEntry selects and configures a model backend. The Name field is
// used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "ollama").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`
}

// MemoryConfig bounds per-session conversation retention.
type MemoryConfig struct {
	// MaxTurns is the number of user+assistant turn-pairs kept in memory.
	// Non-positive selects the built-in default.
	MaxTurns int `yaml:"max_turns"`
}

// HistoryConfig selects and configures conversation persistence.
type HistoryConfig struct {
	// Driver picks the backend: postgres, sqlite, or memory.
	// Empty defaults to memory.
	Driver HistoryDriver `yaml:"driver"`

	// DSN is the PostgreSQL connection string (postgres driver) or the
	// database file path (sqlite driver). Unused by the memory driver.
	DSN string `yaml:"dsn"`
}

// ToolsConfig enables and configures the built-in tools. Each tool defaults
// to disabled; a deployment opts in per tool.
type ToolsConfig struct {
	Timestamp ToolEntry      `yaml:"timestamp"`
	News      NewsToolEntry  `yaml:"news"`
	QRCode    ToolEntry      `yaml:"qrcode"`
	Gmail     GmailToolEntry `yaml:"gmail"`
}

// ToolEntry is the minimal per-tool configuration block.
type ToolEntry struct {
	Enabled bool `yaml:"enabled"`
}

// NewsToolEntry configures the headline-lookup tool.
type NewsToolEntry struct {
	Enabled bool `yaml:"enabled"`

	// APIKey authenticates against the news API. Empty falls back to the
	// NEWS_API_KEY environment variable.
	APIKey string `yaml:"api_key"`
}

// GmailToolEntry configures the mail-sending tool.
type GmailToolEntry struct {
	Enabled bool `yaml:"enabled"`

	// CredentialsFile is the OAuth client credentials JSON path.
	CredentialsFile string `yaml:"credentials_file"`

	// TokenFile is the cached OAuth token JSON path.
	TokenFile string `yaml:"token_file"`
}

// SystemMessageValid reports whether the custom system message, when set,
// carries the required placeholder.
func (c *Config) SystemMessageValid() bool {
	return c.SystemMessage == "" || strings.Contains(c.SystemMessage, agent.TemplatePlaceholder)
}
