package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Upstream UpstreamConfig `koanf:"upstream"`
	Storage  StorageConfig  `koanf:"storage"`
	Events   EventsConfig   `koanf:"events"`
	Chat     ChatConfig     `koanf:"chat"`
}

type ServerConfig struct {
	Port          int    `koanf:"port"`
	AllowedOrigin string `koanf:"allowed_origin"`
}

// UpstreamConfig points at the complaint gateway that owns tickets, the
// chatbot AI endpoints, and authentication.
type UpstreamConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type EventsConfig struct {
	Type string     `koanf:"type"` // direct, amqp, none
	AMQP AMQPConfig `koanf:"amqp"`
}

type AMQPConfig struct {
	URL      string `koanf:"url"`
	Exchange string `koanf:"exchange"`
}

type ChatConfig struct {
	PollInterval time.Duration `koanf:"poll_interval"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads config.yaml if present, then applies RECLAMO_-prefixed
// environment variables on top (double underscore separates levels, e.g.
// RECLAMO_SERVER__PORT), then fills defaults.
func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile is Load with an explicit file path.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !os.IsNotExist(err) {
			return nil, err
		}
	}

	// Load environment variables (can override file config)
	if err := k.Load(env.Provider("RECLAMO_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "RECLAMO_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	// Default values
	defaults := map[string]any{
		"server.port":          8080,
		"upstream.base_url":    "http://localhost:5000",
		"upstream.timeout":     "30s",
		"storage.type":         "memory",
		"storage.sqlite.path":  "reclamo.db",
		"events.type":          "direct",
		"events.amqp.exchange": "reclamo.tickets",
		"chat.poll_interval":   "30s",
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	// Substitute environment variables in secrets-bearing fields
	cfg.Events.AMQP.URL = substituteEnvVars(cfg.Events.AMQP.URL)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Type {
	case "sqlite", "memory", "none", "":
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}
	switch c.Events.Type {
	case "direct", "amqp", "none", "":
	default:
		return fmt.Errorf("unknown events type %q", c.Events.Type)
	}
	if c.Events.Type == "amqp" && c.Events.AMQP.URL == "" {
		return fmt.Errorf("events.amqp.url is required when events.type is amqp")
	}
	if c.Chat.PollInterval <= 0 {
		return fmt.Errorf("chat.poll_interval must be positive")
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
