// Package config loads the service configuration: a YAML file with
// ${VAR}-style environment expansion, plus .env support for local runs.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Duration lets YAML carry human-readable values like "12s" or "24h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	History HistoryConfig `yaml:"history"`
	LLM     LLMConfig     `yaml:"llm"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// HistoryConfig selects the conversation history backend: "memory" (default)
// or "redis".
type HistoryConfig struct {
	Backend    string   `yaml:"backend"`
	RedisURL   string   `yaml:"redis_url"`
	MaxTurns   int      `yaml:"max_turns"`
	SessionTTL Duration `yaml:"session_ttl"`
}

type LLMConfig struct {
	Provider string   `yaml:"provider"`
	Model    string   `yaml:"model"`
	BaseURL  string   `yaml:"base_url"`
	Timeout  Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads the YAML config at path, expanding ${VAR} references from the
// environment (after loading .env if present). path "" uses
// configs/config.yaml; a missing file falls back to defaults so the binary
// runs with zero setup.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path == "" {
		path = "configs/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.Expand(string(data), os.Getenv)
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8090,
			AllowedOrigins: []string{"*"},
		},
		Storage: StorageConfig{SQLitePath: "clinic.db"},
		History: HistoryConfig{
			Backend:    "memory",
			MaxTurns:   10,
			SessionTTL: Duration(24 * time.Hour),
		},
		LLM: LLMConfig{Provider: "local", Timeout: Duration(12 * time.Second)},
		Log: LogConfig{Level: "info", Format: "console", Output: "stdout"},
	}
}

// applyEnvOverrides lets the flat env vars win over the YAML file, matching
// how the LLM layer reads its own env.
func applyEnvOverrides(cfg *Config) {
	cfg.Server.Port = getEnvInt("PORT", cfg.Server.Port)
	cfg.Storage.SQLitePath = getEnv("SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.History.Backend = getEnv("HISTORY_BACKEND", cfg.History.Backend)
	cfg.History.RedisURL = getEnv("REDIS_URL", cfg.History.RedisURL)
	cfg.LLM.Provider = getEnv("LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.Model = getEnv("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = getEnv("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.History.Backend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unknown history backend: %s (supported: memory, redis)", c.History.Backend)
	}
	if c.History.Backend == "redis" && c.History.RedisURL == "" {
		return fmt.Errorf("history backend redis requires redis_url (or REDIS_URL)")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
