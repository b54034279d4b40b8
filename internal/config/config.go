package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all floramind configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	LLM      LLMConfig
	Weather  WeatherConfig
}

type ServerConfig struct {
	Bind string
	Port int
}

type DatabaseConfig struct {
	Path string
}

type LLMConfig struct {
	Provider    string // "deepseek", "ollama"
	Model       string // e.g. "deepseek-chat"
	APIKey      string
	BaseURL     string // override for the deepseek endpoint
	OllamaURL   string
	OllamaModel string // e.g. "llama3.2"
}

type WeatherConfig struct {
	APIKey      string
	BaseURL     string // override for the weather endpoint
	CacheTTL    time.Duration
	DefaultCity string // used when a user has no city configured
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider: "deepseek",
			Model:    "deepseek-chat",
		},
		Weather: WeatherConfig{
			CacheTTL:    3 * time.Hour,
			DefaultCity: "Hangzhou",
		},
	}
}

// Load returns the default config overlaid with environment variables.
// A .env file in the working directory is honored when present.
func Load() Config {
	godotenv.Load()

	cfg := Default()

	if v := os.Getenv("FLORAMIND_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("FLORAMIND_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FLORAMIND_DB"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("DEEPSEEK_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("DEEPSEEK_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.LLM.OllamaURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.LLM.OllamaModel = v
	}

	if v := os.Getenv("WEATHER_API_KEY"); v != "" {
		cfg.Weather.APIKey = v
	}
	if v := os.Getenv("WEATHER_BASE_URL"); v != "" {
		cfg.Weather.BaseURL = v
	}
	if v := os.Getenv("WEATHER_CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil && ttl > 0 {
			cfg.Weather.CacheTTL = ttl
		}
	}
	if v := os.Getenv("WEATHER_DEFAULT_CITY"); v != "" {
		cfg.Weather.DefaultCity = v
	}

	return cfg
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
