package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	LLM         LLMConfig         `yaml:"llm"`
	Search      SearchConfig      `yaml:"search"`
	DB          DBConfig          `yaml:"db"`
	Log         LogConfig         `yaml:"log"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// ServerConfig HTTP listener settings.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// LLMConfig reasoning-model settings, OpenAI-compatible.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// SearchConfig search-provider settings.
type SearchConfig struct {
	Provider string        `yaml:"provider"`
	Tavily   TavilyConfig  `yaml:"tavily"`
	SearXNG  SearXNGConfig `yaml:"searxng"`
}

// TavilyConfig Tavily settings.
type TavilyConfig struct {
	APIKey string `yaml:"api_key"`
}

// SearXNGConfig SearXNG settings.
type SearXNGConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout int    `yaml:"timeout"`
}

// DBConfig database settings. Driver "memory" runs without postgres.
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// LogConfig logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// PipelineConfig caps applied during one analysis run.
type PipelineConfig struct {
	SearchLimit     int `yaml:"search_limit"`      // filtered results per side
	ArticlesPerSide int `yaml:"articles_per_side"` // articles per side in the final result
	HistoryLimit    int `yaml:"history_limit"`     // rows returned by the history list
}

// ConcurrencyConfig throttling for the LLM endpoint.
type ConcurrencyConfig struct {
	QPS int `yaml:"qps"`
	RPM int `yaml:"rpm"`
}

// LoadConfig reads and parses the yaml config at path, then applies defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Pipeline.SearchLimit <= 0 {
		c.Pipeline.SearchLimit = 6
	}
	if c.Pipeline.ArticlesPerSide <= 0 {
		c.Pipeline.ArticlesPerSide = 4
	}
	if c.Pipeline.HistoryLimit <= 0 {
		c.Pipeline.HistoryLimit = 50
	}
	if c.Concurrency.QPS <= 0 {
		c.Concurrency.QPS = 1
	}
	if c.Concurrency.RPM <= 0 {
		c.Concurrency.RPM = 30
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "memory"
	}
}
