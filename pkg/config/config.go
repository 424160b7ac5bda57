package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	LogLevel   string `mapstructure:"LOG_LEVEL"`

	PageLoadTimeoutSeconds int `mapstructure:"PAGE_LOAD_TIMEOUT_SECONDS"`
	MaxConcurrency         int `mapstructure:"MAX_CONCURRENCY"`
	ScanFanoutLimit        int `mapstructure:"SCAN_FANOUT_LIMIT"`

	ImageMaxBytes       int64 `mapstructure:"IMAGE_MAX_BYTES"`
	ImageTimeoutSeconds int   `mapstructure:"IMAGE_TIMEOUT_SECONDS"`

	PlannerBaseURL        string  `mapstructure:"PLANNER_BASE_URL"`
	PlannerAPIKey         string  `mapstructure:"PLANNER_API_KEY"`
	PlannerModel          string  `mapstructure:"PLANNER_MODEL"`
	PlannerTemperature    float64 `mapstructure:"PLANNER_TEMPERATURE"`
	PlannerTimeoutSeconds int     `mapstructure:"PLANNER_TIMEOUT_SECONDS"`

	ArchiveEnabled bool `mapstructure:"ARCHIVE_ENABLED"`

	PostgresHost     string `mapstructure:"POSTGRES_HOST"`
	PostgresPort     string `mapstructure:"POSTGRES_PORT"`
	PostgresUser     string `mapstructure:"POSTGRES_USER"`
	PostgresPassword string `mapstructure:"POSTGRES_PASSWORD"`
	PostgresDB       string `mapstructure:"POSTGRES_DB"`

	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int    `mapstructure:"REDIS_DB"`
	TranscriptTTLHours int    `mapstructure:"TRANSCRIPT_TTL_HOURS"`
}

var defaults = map[string]any{
	"SERVER_PORT":               "8080",
	"LOG_LEVEL":                 "info",
	"PAGE_LOAD_TIMEOUT_SECONDS": 60,
	"MAX_CONCURRENCY":           4,
	"SCAN_FANOUT_LIMIT":         0,
	"IMAGE_MAX_BYTES":           5 << 20,
	"IMAGE_TIMEOUT_SECONDS":     30,
	"PLANNER_BASE_URL":          "https://api.openai.com/v1",
	"PLANNER_API_KEY":           "",
	"PLANNER_MODEL":             "gpt-4o-mini",
	"PLANNER_TEMPERATURE":       0.2,
	"PLANNER_TIMEOUT_SECONDS":   120,
	"ARCHIVE_ENABLED":           false,
	"POSTGRES_HOST":             "localhost",
	"POSTGRES_PORT":             "5432",
	"POSTGRES_USER":             "user",
	"POSTGRES_PASSWORD":         "password",
	"POSTGRES_DB":               "crawlpilot",
	"REDIS_ADDR":                "localhost:6379",
	"REDIS_PASSWORD":            "",
	"REDIS_DB":                  0,
	"TRANSCRIPT_TTL_HOURS":      72,
}

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit env file path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	// Environment variables alone are enough in production.
	_ = v.ReadInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) PageLoadTimeout() time.Duration {
	return time.Duration(c.PageLoadTimeoutSeconds) * time.Second
}

func (c *Config) ImageTimeout() time.Duration {
	return time.Duration(c.ImageTimeoutSeconds) * time.Second
}

func (c *Config) PlannerTimeout() time.Duration {
	return time.Duration(c.PlannerTimeoutSeconds) * time.Second
}

func (c *Config) TranscriptTTL() time.Duration {
	return time.Duration(c.TranscriptTTLHours) * time.Hour
}

// PostgresDSN builds the connection string for the archive database.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB)
}
