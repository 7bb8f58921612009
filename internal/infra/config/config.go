package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the bot needs. Values come from the YAML file,
// with secrets overridable through the environment. A .env file is honored
// when present.
type Config struct {
	TelegramBot struct {
		Token       string        `yaml:"token"`
		PollTimeout time.Duration `yaml:"poll_timeout"`
		Debug       bool          `yaml:"debug"`
	} `yaml:"telegram_bot"`
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"api"`
	Storage struct {
		// Type selects the session store backend: "memory", "json" or "postgres".
		Type string `yaml:"type"`
		Path string `yaml:"path"`
		DSN  string `yaml:"dsn"`
	} `yaml:"storage"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// LoadConfig reads the YAML config at path and applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg := &Config{}
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.TelegramBot.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not set (config or BOT_TOKEN)")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BOT_TOKEN"); v != "" {
		c.TelegramBot.Token = v
	}
	if v := os.Getenv("API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Storage.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.TelegramBot.PollTimeout == 0 {
		c.TelegramBot.PollTimeout = 10 * time.Second
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://api.ddabattalion.com/api"
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "memory"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/sessions.json"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "pretty"
	}
}
