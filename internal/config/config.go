// Package config loads application configuration from file and environment
// and initializes the global logger.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Serper    SerperConfig    `yaml:"serper" mapstructure:"serper"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Sandbox   SandboxConfig   `yaml:"sandbox" mapstructure:"sandbox"`
	Research  ResearchConfig  `yaml:"research" mapstructure:"research"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	OpusModel   string `yaml:"opus_model" mapstructure:"opus_model"`
}

// SerperConfig holds Serper search API settings.
type SerperConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SandboxConfig holds code execution sandbox settings.
type SandboxConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ResearchConfig bounds run behavior.
type ResearchConfig struct {
	TaskTimeoutSecs    int     `yaml:"task_timeout_secs" mapstructure:"task_timeout_secs"`
	MaxConcurrency     int     `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	RunTimeoutMultiple int     `yaml:"run_timeout_multiple" mapstructure:"run_timeout_multiple"`
	StandardToolBudget int     `yaml:"standard_tool_budget" mapstructure:"standard_tool_budget"`
	DetailedToolBudget int     `yaml:"detailed_tool_budget" mapstructure:"detailed_tool_budget"`
	SearchRPS          float64 `yaml:"search_rps" mapstructure:"search_rps"`
	ScrapeRPS          float64 `yaml:"scrape_rps" mapstructure:"scrape_rps"`
	ExecRPS            float64 `yaml:"exec_rps" mapstructure:"exec_rps"`
	MaxSearchResults   int     `yaml:"max_search_results" mapstructure:"max_search_results"`
}

// TaskTimeout returns the per-task budget as a duration.
func (r ResearchConfig) TaskTimeout() time.Duration {
	return time.Duration(r.TaskTimeoutSecs) * time.Second
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port   int    `yaml:"port" mapstructure:"port"`
	APIKey string `yaml:"api_key" mapstructure:"api_key"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so viper knows the keys and env
	// overrides reach Unmarshal.
	v.SetDefault("anthropic.key", "")
	v.SetDefault("serper.key", "")
	v.SetDefault("firecrawl.key", "")
	v.SetDefault("sandbox.key", "")
	v.SetDefault("server.api_key", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.opus_model", "claude-opus-4-6")
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("sandbox.base_url", "https://api.e2b.dev/v1")
	v.SetDefault("research.task_timeout_secs", 120)
	v.SetDefault("research.max_concurrency", 12)
	v.SetDefault("research.run_timeout_multiple", 15)
	v.SetDefault("research.standard_tool_budget", 6)
	v.SetDefault("research.detailed_tool_budget", 12)
	v.SetDefault("research.search_rps", 5.0)
	v.SetDefault("research.scrape_rps", 2.0)
	v.SetDefault("research.exec_rps", 1.0)
	v.SetDefault("research.max_search_results", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
