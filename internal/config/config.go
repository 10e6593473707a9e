// ABOUTME: Configuration loading and parsing for coven-chatops
// ABOUTME: TOML or YAML by file extension, .env loading, ${VAR} expansion, defaults and validation

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete coven-chatops configuration
type Config struct {
	Bot     BotConfig     `toml:"bot" yaml:"bot"`
	AI      AIConfig      `toml:"ai" yaml:"ai"`
	Matrix  MatrixConfig  `toml:"matrix" yaml:"matrix"`
	Discord DiscordConfig `toml:"discord" yaml:"discord"`
	Audit   AuditConfig   `toml:"audit" yaml:"audit"`
	Logging LoggingConfig `toml:"logging" yaml:"logging"`
}

// BotConfig holds behaviour shared by every chat network
type BotConfig struct {
	CommandPrefix   string `toml:"command_prefix" yaml:"command_prefix"`
	HistoryWindow   int    `toml:"history_window" yaml:"history_window"`
	SpamThreshold   int    `toml:"spam_threshold" yaml:"spam_threshold"`
	TypingIndicator *bool  `toml:"typing_indicator" yaml:"typing_indicator"`
}

// Typing reports whether presence indicators are sent. Defaults to true.
func (b BotConfig) Typing() bool {
	return b.TypingIndicator == nil || *b.TypingIndicator
}

// AIConfig holds completion provider settings
type AIConfig struct {
	Provider     string `toml:"provider" yaml:"provider"`
	APIKey       string `toml:"api_key" yaml:"api_key"`
	Model        string `toml:"model" yaml:"model"`
	BaseURL      string `toml:"base_url" yaml:"base_url"`
	MaxTokens    int    `toml:"max_tokens" yaml:"max_tokens"`
	SystemPrompt string `toml:"system_prompt" yaml:"system_prompt"`

	Timeout    time.Duration `toml:"-" yaml:"-"`
	TimeoutRaw string        `toml:"timeout" yaml:"timeout"`
}

// MatrixConfig holds Matrix connection settings
type MatrixConfig struct {
	Enabled         bool     `toml:"enabled" yaml:"enabled"`
	Homeserver      string   `toml:"homeserver" yaml:"homeserver"`
	Username        string   `toml:"username" yaml:"username"`
	Password        string   `toml:"password" yaml:"password"`
	RecoveryKey     string   `toml:"recovery_key" yaml:"recovery_key"`
	AllowedRooms    []string `toml:"allowed_rooms" yaml:"allowed_rooms"`
	AdminPowerLevel int      `toml:"admin_power_level" yaml:"admin_power_level"`
	AutoJoin        *bool    `toml:"auto_join" yaml:"auto_join"`
}

// JoinOnInvite reports whether invites are accepted automatically. Defaults to true.
func (m MatrixConfig) JoinOnInvite() bool {
	return m.AutoJoin == nil || *m.AutoJoin
}

// DiscordConfig holds Discord bot settings
type DiscordConfig struct {
	Enabled         bool     `toml:"enabled" yaml:"enabled"`
	Token           string   `toml:"token" yaml:"token"`
	AllowedChannels []string `toml:"allowed_channels" yaml:"allowed_channels"`
}

// AuditConfig holds the audit ledger location
type AuditConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Path    string `toml:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultCommandPrefix   = "!"
	DefaultHistoryWindow   = 10
	DefaultSpamThreshold   = 1000
	DefaultProvider        = "anthropic"
	DefaultModel           = "claude-3-opus-20240229"
	DefaultMaxTokens       = 1024
	DefaultAdminPowerLevel = 50
	DefaultAuditFile       = "audit.db"
)

// Load reads a configuration file from the given path and returns a parsed Config.
// A .env file next to the config (or in the working directory) is loaded first
// so ${VAR} references can point at it. Files ending in .yaml or .yml are
// decoded as YAML; everything else as TOML.
func Load(path string) (*Config, error) {
	loadDotEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(data, formatFor(path))
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults(DataDir())

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Format is a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// Parse decodes raw configuration bytes after expanding ${VAR} references.
// Defaults are not applied and nothing is validated.
func Parse(data []byte, format Format) (*Config, error) {
	expanded := expandEnvVars(string(data))

	var cfg Config
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}
	return &cfg, nil
}

// loadDotEnv loads .env files without overriding variables already set.
// Missing files are not an error.
func loadDotEnv(configPath string) {
	candidates := []string{filepath.Join(filepath.Dir(configPath), ".env"), ".env"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envVarPattern.FindStringSubmatch(match)[1])
	})
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.AI.TimeoutRaw != "" {
		d, err := time.ParseDuration(cfg.AI.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing ai.timeout %q: %w", cfg.AI.TimeoutRaw, err)
		}
		cfg.AI.Timeout = d
	}
	return nil
}

// ApplyDefaults fills unset fields. dataDir is where the audit ledger goes
// when audit.path is empty.
func (c *Config) ApplyDefaults(dataDir string) {
	if c.Bot.CommandPrefix == "" {
		c.Bot.CommandPrefix = DefaultCommandPrefix
	}
	if c.Bot.HistoryWindow == 0 {
		c.Bot.HistoryWindow = DefaultHistoryWindow
	}
	if c.Bot.SpamThreshold == 0 {
		c.Bot.SpamThreshold = DefaultSpamThreshold
	}
	if c.AI.Provider == "" {
		c.AI.Provider = DefaultProvider
	}
	if c.AI.Model == "" && c.AI.Provider == DefaultProvider {
		c.AI.Model = DefaultModel
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = DefaultMaxTokens
	}
	if c.Matrix.AdminPowerLevel == 0 {
		c.Matrix.AdminPowerLevel = DefaultAdminPowerLevel
	}
	if c.Audit.Enabled && c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(dataDir, DefaultAuditFile)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Bot.CommandPrefix) == "" {
		return fmt.Errorf("bot.command_prefix must not be blank")
	}
	if c.Bot.HistoryWindow < 2 {
		return fmt.Errorf("bot.history_window must be at least 2, got %d", c.Bot.HistoryWindow)
	}
	if c.Bot.SpamThreshold < 1 {
		return fmt.Errorf("bot.spam_threshold must be positive, got %d", c.Bot.SpamThreshold)
	}

	switch c.AI.Provider {
	case "anthropic":
		if c.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required for provider anthropic")
		}
	case "openai":
		if c.AI.Model == "" {
			return fmt.Errorf("ai.model is required for provider openai")
		}
	default:
		return fmt.Errorf("ai.provider must be anthropic or openai, got %q", c.AI.Provider)
	}
	if c.AI.BaseURL != "" {
		if err := checkHTTPURL(c.AI.BaseURL); err != nil {
			return fmt.Errorf("ai.base_url: %w", err)
		}
	}
	if c.AI.MaxTokens < 1 {
		return fmt.Errorf("ai.max_tokens must be positive, got %d", c.AI.MaxTokens)
	}
	if c.AI.Timeout < 0 {
		return fmt.Errorf("ai.timeout must not be negative")
	}

	if !c.Matrix.Enabled && !c.Discord.Enabled {
		return fmt.Errorf("at least one of matrix.enabled or discord.enabled must be true")
	}
	if c.Matrix.Enabled {
		if c.Matrix.Homeserver == "" {
			return fmt.Errorf("matrix.homeserver is required")
		}
		if err := checkHTTPURL(c.Matrix.Homeserver); err != nil {
			return fmt.Errorf("matrix.homeserver: %w", err)
		}
		if c.Matrix.Username == "" {
			return fmt.Errorf("matrix.username is required")
		}
		if c.Matrix.Password == "" {
			return fmt.Errorf("matrix.password is required")
		}
	}
	if c.Discord.Enabled && c.Discord.Token == "" {
		return fmt.Errorf("discord.token is required")
	}

	if c.Audit.Enabled && c.Audit.Path == "" {
		return fmt.Errorf("audit.path is required when audit is enabled")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must use http or https scheme")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
