package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Business  BusinessConfig  `mapstructure:"business"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"DATABASE_URL"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	ReminderCron       string `mapstructure:"SCHEDULER_REMINDER_CRON"`
	ReminderWindowDays int    `mapstructure:"SCHEDULER_REMINDER_WINDOW_DAYS"`
	Timezone           string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	AllowedTerms        string        `mapstructure:"ALLOWED_LOAN_TERMS"`
	AllowedCurrencies   string        `mapstructure:"ALLOWED_CURRENCIES"`
	CardValidityYears   int           `mapstructure:"CARD_VALIDITY_YEARS"`
	OutstandingCacheTTL time.Duration `mapstructure:"OUTSTANDING_CACHE_TTL"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("ALLOWED_LOAN_TERMS", "3,6")
	viper.SetDefault("ALLOWED_CURRENCIES", "IDR,SGD")
	viper.SetDefault("CARD_VALIDITY_YEARS", 4)
	viper.SetDefault("OUTSTANDING_CACHE_TTL", "1h")
	viper.SetDefault("SCHEDULER_REMINDER_CRON", "0 0 9 * * *")
	viper.SetDefault("SCHEDULER_REMINDER_WINDOW_DAYS", 3)
	viper.SetDefault("SCHEDULER_TIMEZONE", "Asia/Jakarta")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if len(c.AllowedTerms()) == 0 {
		return fmt.Errorf("ALLOWED_LOAN_TERMS must list at least one term count")
	}

	if len(c.AllowedCurrencies()) == 0 {
		return fmt.Errorf("ALLOWED_CURRENCIES must list at least one currency code")
	}

	if c.Business.CardValidityYears <= 0 {
		return fmt.Errorf("CARD_VALIDITY_YEARS must be greater than 0")
	}

	if c.Scheduler.ReminderWindowDays <= 0 {
		return fmt.Errorf("SCHEDULER_REMINDER_WINDOW_DAYS must be greater than 0")
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// AllowedTerms returns the allowed installment counts for new loans.
// Malformed entries in the config list are skipped.
func (c *Config) AllowedTerms() []int {
	var terms []int
	for _, part := range strings.Split(c.Business.AllowedTerms, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			continue
		}
		terms = append(terms, n)
	}
	return terms
}

// TermAllowed reports whether terms is an allowed installment count.
func (c *Config) TermAllowed(terms int) bool {
	for _, t := range c.AllowedTerms() {
		if t == terms {
			return true
		}
	}
	return false
}

// AllowedCurrencies returns the allowed currency codes.
func (c *Config) AllowedCurrencies() []string {
	var codes []string
	for _, part := range strings.Split(c.Business.AllowedCurrencies, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		codes = append(codes, code)
	}
	return codes
}

// CurrencyAllowed reports whether code is an allowed currency.
func (c *Config) CurrencyAllowed(code string) bool {
	for _, allowed := range c.AllowedCurrencies() {
		if allowed == code {
			return true
		}
	}
	return false
}
