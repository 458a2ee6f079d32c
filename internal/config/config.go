package config

import (
	"fmt"
	"time"
)

// Config is the top-level configuration for the legal-practice agent.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	LLM           LLMConfig           `yaml:"llm"`
	Backend       BackendConfig       `yaml:"backend"`
	Session       SessionConfig       `yaml:"session"`
	CardTemplates CardTemplatesConfig `yaml:"card_templates"`
	CostGuard     CostGuardConfig     `yaml:"cost_guard"`
	Logging       LoggingConfig       `yaml:"logging"`
	Channels      ChannelsConfig      `yaml:"channels"`
}

// ServerConfig configures the agent's own HTTP surface: the card
// callback webhook and the Prometheus metrics endpoint.
type ServerConfig struct {
	Host        string `yaml:"host"`
	HTTPPort    int    `yaml:"http_port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// LLMConfig selects and configures the LLM facade backends used for
// intent classification and slot extraction.
type LLMConfig struct {
	Provider string              `yaml:"provider"` // "anthropic" | "openai"
	Model    string              `yaml:"model"`
	Anthropic AnthropicLLMConfig `yaml:"anthropic"`
	OpenAI    OpenAILLMConfig    `yaml:"openai"`
	Timeout   time.Duration      `yaml:"timeout"`
}

type AnthropicLLMConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenAILLMConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// BackendConfig configures the low-code record store the skills read
// and mutate.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	AppToken       string        `yaml:"app_token"`
	AccessToken    string        `yaml:"access_token"`
	Timeout        time.Duration `yaml:"timeout"`
	SchemaCacheTTL time.Duration `yaml:"schema_cache_ttl"`
	TableCacheTTL  time.Duration `yaml:"table_cache_ttl"`

	// TableAliases maps a human alias ("cases", "案件") to a table id,
	// consulted by the query skill's table-disambiguation stage before
	// it falls back to the planner.
	TableAliases map[string]string `yaml:"table_aliases"`

	// DefaultTableID is used when no table can be resolved from
	// context, alias, or planner output.
	DefaultTableID string `yaml:"default_table_id"`
}

// SessionConfig configures conversation-state slot TTLs and the
// storage backend (in-memory or Redis).
type SessionConfig struct {
	Backend          string        `yaml:"backend"` // "memory" | "redis"
	RedisAddr        string        `yaml:"redis_addr"`
	SessionTTL       time.Duration `yaml:"session_ttl"`
	LastResultTTL    time.Duration `yaml:"last_result_ttl"`
	PendingDeleteTTL time.Duration `yaml:"pending_delete_ttl"`
	PendingActionTTL time.Duration `yaml:"pending_action_ttl"`
	PaginationTTL    time.Duration `yaml:"pagination_ttl"`
	SweepInterval    time.Duration `yaml:"sweep_interval"`
}

// CardTemplatesConfig points at the on-disk, externally-editable card
// template directory (spec §6.1).
type CardTemplatesConfig struct {
	Dir string `yaml:"dir"`
}

// CostGuardConfig bounds how many LLM/backend calls a skill may make
// per hour/day before the cost guard denies further calls or trips its
// circuit breaker.
type CostGuardConfig struct {
	Enabled       bool `yaml:"enabled"`
	HourlyLimit   int  `yaml:"hourly_limit"`
	DailyLimit    int  `yaml:"daily_limit"`
	CircuitBreaker struct {
		Enabled          bool          `yaml:"enabled"`
		FailureThreshold int           `yaml:"failure_threshold"`
		CooldownPeriod   time.Duration `yaml:"cooldown_period"`
	} `yaml:"circuit_breaker"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
}

// ChannelsConfig configures the chat-channel adapter boundary.
type ChannelsConfig struct {
	WebSocket WebSocketChannelConfig `yaml:"websocket"`
}

type WebSocketChannelConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.HTTPPort == 0 {
		c.Server.HTTPPort = 8080
	}
	if c.Server.MetricsPort == 0 {
		c.Server.MetricsPort = 9090
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "anthropic"
	}
	if c.LLM.Timeout <= 0 {
		c.LLM.Timeout = 20 * time.Second
	}

	if c.Backend.Timeout <= 0 {
		c.Backend.Timeout = 10 * time.Second
	}
	if c.Backend.SchemaCacheTTL <= 0 {
		c.Backend.SchemaCacheTTL = 600 * time.Second
	}
	if c.Backend.TableCacheTTL <= 0 {
		c.Backend.TableCacheTTL = 600 * time.Second
	}

	if c.Session.Backend == "" {
		c.Session.Backend = "memory"
	}
	if c.Session.SessionTTL <= 0 {
		c.Session.SessionTTL = 2 * time.Hour
	}
	if c.Session.LastResultTTL <= 0 {
		c.Session.LastResultTTL = 600 * time.Second
	}
	if c.Session.PendingDeleteTTL <= 0 {
		c.Session.PendingDeleteTTL = 300 * time.Second
	}
	if c.Session.PendingActionTTL <= 0 {
		c.Session.PendingActionTTL = 300 * time.Second
	}
	if c.Session.PaginationTTL <= 0 {
		c.Session.PaginationTTL = 600 * time.Second
	}
	if c.Session.SweepInterval <= 0 {
		c.Session.SweepInterval = 60 * time.Second
	}

	if c.CardTemplates.Dir == "" {
		c.CardTemplates.Dir = "./card_templates"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.CostGuard.HourlyLimit == 0 {
		c.CostGuard.HourlyLimit = 500
	}
	if c.CostGuard.DailyLimit == 0 {
		c.CostGuard.DailyLimit = 5000
	}
	if c.CostGuard.CircuitBreaker.FailureThreshold == 0 {
		c.CostGuard.CircuitBreaker.FailureThreshold = 5
	}
	if c.CostGuard.CircuitBreaker.CooldownPeriod <= 0 {
		c.CostGuard.CircuitBreaker.CooldownPeriod = 60 * time.Second
	}
}

// Validate rejects configurations that would leave the agent unable to
// serve requests.
func (c *Config) Validate() error {
	if c.Session.Backend != "memory" && c.Session.Backend != "redis" {
		return fmt.Errorf("config: session.backend must be 'memory' or 'redis', got %q", c.Session.Backend)
	}
	if c.Session.Backend == "redis" && c.Session.RedisAddr == "" {
		return fmt.Errorf("config: session.redis_addr is required when session.backend is 'redis'")
	}
	if c.LLM.Provider != "anthropic" && c.LLM.Provider != "openai" {
		return fmt.Errorf("config: llm.provider must be 'anthropic' or 'openai', got %q", c.LLM.Provider)
	}
	if c.LLM.Provider == "anthropic" && c.LLM.Anthropic.APIKey == "" {
		return fmt.Errorf("config: llm.anthropic.api_key is required when llm.provider is 'anthropic'")
	}
	if c.LLM.Provider == "openai" && c.LLM.OpenAI.APIKey == "" {
		return fmt.Errorf("config: llm.openai.api_key is required when llm.provider is 'openai'")
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("config: backend.base_url is required")
	}
	return nil
}
