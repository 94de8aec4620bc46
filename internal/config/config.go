package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/taskhub-io/taskhub/pkg/logger"
)

// Config carries the full server configuration. Values come from the
// environment (with .env support for local runs); a YAML file named by
// TASKHUB_CONFIG overrides on top.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Announce AnnounceConfig `yaml:"announce"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Log      LogConfig      `yaml:"log"`
	Audit    AuditConfig    `yaml:"audit"`
}

type HTTPConfig struct {
	Host string `env:"HTTP_HOST,default=0.0.0.0" yaml:"host"`
	Port int    `env:"HTTP_PORT,default=8080" yaml:"port"`
}

// Addr returns the listen address in host:port form.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Driver          string        `env:"DB_DRIVER,default=memory" yaml:"driver"`
	DSN             string        `env:"DATABASE_DSN,default=" yaml:"dsn"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=10" yaml:"max_open_conns"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m" yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,default=" yaml:"addr"`
	Password string        `env:"REDIS_PASSWORD,default=" yaml:"password"`
	PostTTL  time.Duration `env:"REDIS_POST_TTL,default=30s" yaml:"post_ttl"`
}

type AuthConfig struct {
	Tokens string `env:"AUTH_TOKENS,default=dev-token" yaml:"tokens"`
}

// TokenList splits the comma-separated token string, dropping blanks.
func (c AuthConfig) TokenList() []string {
	parts := strings.Split(c.Tokens, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			tokens = append(tokens, part)
		}
	}
	return tokens
}

type AnnounceConfig struct {
	URL     string        `env:"ANNOUNCE_URL,default=" yaml:"url"`
	APIKey  string        `env:"ANNOUNCE_KEY,default=" yaml:"api_key"`
	Timeout time.Duration `env:"ANNOUNCE_TIMEOUT,default=5s" yaml:"timeout"`
}

type SweepConfig struct {
	Schedule string `env:"SWEEP_SCHEDULE,default=@every 1m" yaml:"schedule"`
}

type LogConfig struct {
	Level      string `env:"LOG_LEVEL,default=info" yaml:"level"`
	Format     string `env:"LOG_FORMAT,default=text" yaml:"format"`
	Output     string `env:"LOG_OUTPUT,default=stdout" yaml:"output"`
	FilePrefix string `env:"LOG_FILE_PREFIX,default=taskhub" yaml:"file_prefix"`
}

// Logging converts the section into the logger package's config type.
func (c LogConfig) Logging() logger.LoggingConfig {
	return logger.LoggingConfig{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		FilePrefix: c.FilePrefix,
	}
}

type AuditConfig struct {
	LogPath    string `env:"AUDIT_LOG_PATH,default=" yaml:"log_path"`
	MaxEntries int    `env:"AUDIT_MAX_ENTRIES,default=200" yaml:"max_entries"`
}

// Load reads configuration from the environment, honoring a local .env file
// and an optional TASKHUB_CONFIG YAML override.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv("TASKHUB_CONFIG")); path != "" {
		if err := applyFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func applyFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
