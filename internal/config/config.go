package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Store    Store    `mapstructure:"store"`
	Journal  Journal  `mapstructure:"journal"`
	Market   Market   `mapstructure:"market"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the document store database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Store selects the collection path layout. Deployments with their own
// backing store use the short per-user layout; shared deployments namespace
// everything under an application id.
type Store struct {
	AppID          string `mapstructure:"app_id"`
	UseCustomPaths bool   `mapstructure:"use_custom_paths"`
}

// Journal holds the journal application settings.
type Journal struct {
	UserID         string  `mapstructure:"user_id"`
	UserEmail      string  `mapstructure:"user_email"`
	PageSize       int     `mapstructure:"page_size"`
	DefaultBalance float64 `mapstructure:"default_balance"`
	RiskPercent    float64 `mapstructure:"risk_percent"`
}

// Market holds the configuration for the display-only market data client.
type Market struct {
	FxURL          string  `mapstructure:"fx_url"`
	TickerURL      string  `mapstructure:"ticker_url"`
	FallbackURL    string  `mapstructure:"fallback_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	CacheMinutes   int     `mapstructure:"cache_minutes"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("database.dsn", "journal.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("store.app_id", "default-app-id")
	viper.SetDefault("journal.page_size", 10)
	viper.SetDefault("journal.default_balance", 1000)
	viper.SetDefault("journal.risk_percent", 1)
	viper.SetDefault("market.fx_url", "https://api.frankfurter.app")
	viper.SetDefault("market.ticker_url", "https://api.binance.com/api/v3")
	viper.SetDefault("market.fallback_url", "https://api.coingecko.com/api/v3")
	viper.SetDefault("market.rate_limit", 5) // requests per second
	viper.SetDefault("market.rate_limit_burst", 2)
	viper.SetDefault("market.cache_minutes", 5)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
