package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines engine and reference store configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Auth      AuthConfig      `yaml:"auth"`
	Ranger    RangerConfig    `yaml:"ranger"`
	Cache     CacheConfig     `yaml:"cache"`
	Transport TransportConfig `yaml:"transport"`
	Server    ServerConfig    `yaml:"server"`
	DB        DBConfig        `yaml:"db"`
	Events    EventsConfig    `yaml:"events"`
	Log       LogConfig       `yaml:"log"`
}

// StoreConfig locates the remote activity store.
type StoreConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	RetryCount int           `yaml:"retry_count"`
}

type AuthConfig struct {
	Token     string        `yaml:"token"`
	TokenFile string        `yaml:"token_file"`
	JWTSecret string        `yaml:"jwt_secret"`
	JWTIssuer string        `yaml:"jwt_issuer"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type RangerConfig struct {
	ID string `yaml:"id"`
}

// CacheConfig selects the cache backend. Backend is "memory" or "redis".
type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl"`
	Backend string        `yaml:"backend"`
	Redis   RedisConfig   `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// TransportConfig selects how the engine exposes its tools. Mode is "stdio" or "http".
type TransportConfig struct {
	Mode string `yaml:"mode"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ServerConfig is the reference store's listen address.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

// EventsConfig enables lifecycle events when Brokers is non-empty.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Store: StoreConfig{
			BaseURL: "http://localhost:8090",
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			JWTIssuer: "fieldwork",
			TokenTTL:  12 * time.Hour,
		},
		Cache: CacheConfig{
			TTL:     30 * time.Second,
			Backend: "memory",
			Redis:   RedisConfig{Addr: "localhost:6379", Prefix: "fieldwork"},
		},
		Transport: TransportConfig{
			Mode: "stdio",
			Host: "127.0.0.1",
			Port: 8080,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		DB: DBConfig{
			Path: "fieldwork.db",
		},
		Events: EventsConfig{
			Topic: "fieldwork.lifecycle",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("FIELDWORK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Auth.Token == "" && cfg.Auth.TokenFile != "" {
		data, err := os.ReadFile(cfg.Auth.TokenFile)
		if err != nil {
			return Config{}, fmt.Errorf("read token file: %w", err)
		}
		cfg.Auth.Token = strings.TrimSpace(string(data))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects settings the processes cannot start with.
func (c Config) Validate() error {
	switch c.Transport.Mode {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid transport mode %q", c.Transport.Mode)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid cache backend %q", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Store.Timeout <= 0 {
		return fmt.Errorf("store timeout must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Store.BaseURL, "FIELDWORK_STORE_URL")
	setString(&cfg.Auth.Token, "FIELDWORK_TOKEN")
	setString(&cfg.Auth.TokenFile, "FIELDWORK_TOKEN_FILE")
	setString(&cfg.Auth.JWTSecret, "FIELDWORK_JWT_SECRET")
	setString(&cfg.Auth.JWTIssuer, "FIELDWORK_JWT_ISSUER")
	setString(&cfg.Ranger.ID, "FIELDWORK_RANGER_ID")
	setString(&cfg.Cache.Backend, "FIELDWORK_CACHE_BACKEND")
	setString(&cfg.Cache.Redis.Addr, "FIELDWORK_REDIS_ADDR")
	setString(&cfg.Cache.Redis.Password, "FIELDWORK_REDIS_PASSWORD")
	setString(&cfg.Transport.Mode, "FIELDWORK_TRANSPORT")
	setString(&cfg.Transport.Host, "FIELDWORK_HOST")
	setString(&cfg.Server.Host, "FIELDWORK_SERVER_HOST")
	setString(&cfg.DB.Path, "FIELDWORK_DB_PATH")
	setString(&cfg.Events.Topic, "FIELDWORK_EVENTS_TOPIC")
	setString(&cfg.Log.Level, "FIELDWORK_LOG_LEVEL")

	if brokers := os.Getenv("FIELDWORK_EVENTS_BROKERS"); brokers != "" {
		cfg.Events.Brokers = strings.Split(brokers, ",")
	}

	for name, dst := range map[string]*int{
		"FIELDWORK_PORT":          &cfg.Transport.Port,
		"FIELDWORK_SERVER_PORT":   &cfg.Server.Port,
		"FIELDWORK_STORE_RETRIES": &cfg.Store.RetryCount,
		"FIELDWORK_REDIS_DB":      &cfg.Cache.Redis.DB,
	} {
		if raw := os.Getenv(name); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = n
		}
	}

	for name, dst := range map[string]*time.Duration{
		"FIELDWORK_STORE_TIMEOUT": &cfg.Store.Timeout,
		"FIELDWORK_CACHE_TTL":     &cfg.Cache.TTL,
		"FIELDWORK_TOKEN_TTL":     &cfg.Auth.TokenTTL,
	} {
		if raw := os.Getenv(name); raw != "" {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*dst = d
		}
	}
	return nil
}

func setString(dst *string, name string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
