package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Database
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Redis
	RedisURL string `mapstructure:"REDIS_URL"`

	// CORS
	CorsOrigins []string `mapstructure:"CORS_ORIGINS"`

	// Cartola market API
	CartolaMarketURL  string        `mapstructure:"CARTOLA_MARKET_URL"`
	CartolaStatusURL  string        `mapstructure:"CARTOLA_STATUS_URL"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	MaxRetries        int           `mapstructure:"MAX_RETRIES"`
	RetryBackoff      time.Duration `mapstructure:"RETRY_BACKOFF"`
	ProviderRateLimit int           `mapstructure:"PROVIDER_RATE_LIMIT"`

	CircuitBreakerThreshold int `mapstructure:"CIRCUIT_BREAKER_THRESHOLD"`

	// Cache
	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`

	// Optimization
	DefaultBudget     float64       `mapstructure:"DEFAULT_BUDGET"`
	MaxPerClubDefault int           `mapstructure:"MAX_PER_CLUB_DEFAULT"`
	DefaultFormation  string        `mapstructure:"DEFAULT_FORMATION"`
	SolverEnabled     bool          `mapstructure:"SOLVER_ENABLED"`
	SolverTimeLimit   time.Duration `mapstructure:"SOLVER_TIME_LIMIT"`
	SolverNodeLimit   int           `mapstructure:"SOLVER_NODE_LIMIT"`

	// Background jobs
	EnableBackgroundJobs  bool   `mapstructure:"ENABLE_BACKGROUND_JOBS"`
	MarketRefreshSchedule string `mapstructure:"MARKET_REFRESH_SCHEDULE"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:8501,http://localhost:3000")

	viper.SetDefault("CARTOLA_MARKET_URL", "https://api.cartola.globo.com/atletas/mercado")
	viper.SetDefault("CARTOLA_STATUS_URL", "https://api.cartola.globo.com/mercado/status")
	viper.SetDefault("REQUEST_TIMEOUT", "10s")
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("RETRY_BACKOFF", "400ms") // multiplied by the attempt number
	viper.SetDefault("PROVIDER_RATE_LIMIT", 5) // requests per second
	viper.SetDefault("CIRCUIT_BREAKER_THRESHOLD", 3)

	viper.SetDefault("CACHE_TTL", "300s")

	viper.SetDefault("DEFAULT_BUDGET", 100.0)
	viper.SetDefault("MAX_PER_CLUB_DEFAULT", 3)
	viper.SetDefault("DEFAULT_FORMATION", "4-3-3")
	viper.SetDefault("SOLVER_ENABLED", true)
	viper.SetDefault("SOLVER_TIME_LIMIT", "30s")
	viper.SetDefault("SOLVER_NODE_LIMIT", 20000)

	viper.SetDefault("ENABLE_BACKGROUND_JOBS", false)
	viper.SetDefault("MARKET_REFRESH_SCHEDULE", "@every 5m")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Parse CORS origins from comma-separated string
	if corsStr := viper.GetString("CORS_ORIGINS"); corsStr != "" {
		config.CorsOrigins = strings.Split(corsStr, ",")
	}

	return &config, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
