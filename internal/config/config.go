package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Store      StoreConfig      `yaml:"store"`
	Backup     BackupConfig     `yaml:"backup"`
	Events     EventsConfig     `yaml:"events"`
	Redis      RedisConfig      `yaml:"redis"`
	AMQP       AMQPConfig       `yaml:"amqp"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port        int             `yaml:"port"`
	Prefix      string          `yaml:"prefix"`
	CORSOrigins []string        `yaml:"cors_origins"`
	ServeUI     bool            `yaml:"serve_ui"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

// EventsConfig selects where reservation change events are sent in addition
// to the in-process bus. Sink is one of "", "redis" or "amqp".
type EventsConfig struct {
	Sink    string `yaml:"sink"`
	Channel string `yaml:"channel"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type AMQPConfig struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

const (
	SinkNone  = ""
	SinkRedis = "redis"
	SinkAMQP  = "amqp"
)

// Load reads the YAML config at configPath. A missing .env or config file is
// not an error: defaults are applied to whatever was read.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var config Config

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		// ${VAR} references are expanded before parsing
		expandedData := []byte(os.ExpandEnv(string(data)))
		if err := yaml.Unmarshal(expandedData, &config); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Store.Path == "" {
		return errors.New("store path is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if !strings.HasPrefix(c.HTTP.Prefix, "/") {
		return fmt.Errorf("http prefix must start with '/': %q", c.HTTP.Prefix)
	}

	switch c.Events.Sink {
	case SinkNone:
	case SinkRedis:
		if c.Redis.Address == "" {
			return errors.New("events.sink=redis requires redis.address")
		}
	case SinkAMQP:
		if c.AMQP.URL == "" {
			return errors.New("events.sink=amqp requires amqp.url")
		}
	default:
		return fmt.Errorf("unknown events sink: %q", c.Events.Sink)
	}

	if c.Backup.Enabled && c.Backup.StoragePath == "" {
		return errors.New("backup enabled but backup.storage_path is empty")
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "reservas"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 3000
	}
	if c.HTTP.Prefix == "" {
		c.HTTP.Prefix = "/api"
	}
	if len(c.HTTP.Prefix) > 1 {
		c.HTTP.Prefix = strings.TrimRight(c.HTTP.Prefix, "/")
	}
	if len(c.HTTP.CORSOrigins) == 0 {
		c.HTTP.CORSOrigins = []string{"*"}
	}
	if c.Store.Path == "" {
		c.Store.Path = "data/db.json"
	}
	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "24h"
	}
	if c.Events.Channel == "" {
		c.Events.Channel = "reservas.events"
	}
	if c.AMQP.Queue == "" {
		c.AMQP.Queue = c.Events.Channel
	}
	c.Events.Sink = strings.ToLower(strings.TrimSpace(c.Events.Sink))
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
