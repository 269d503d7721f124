package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/udayhese96/Gemscap-Assignment/internal/models"
)

const (
	// MinWindow and MaxWindow bound the rolling lookback
	MinWindow = 20
	MaxWindow = 200
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Data
	Symbols    []string // lower-case stream names, e.g. btcusdt
	Timeframes []models.Timeframe
	// AnalysisTimeframe drives pair analysis on bar close
	AnalysisTimeframe models.Timeframe

	// Analytics
	RollingWindow   int
	ZScoreUpper     float64
	ZScoreLower     float64
	ADFSignificance float64

	// Storage
	MaxTicks int
	MaxBars  int

	// WebSocket
	WSBaseURL           string
	ReconnectDelay      time.Duration
	MaxReconnectDelay   time.Duration
	ReconnectMultiplier float64

	// Alerts
	AlertCooldown   time.Duration
	MaxAlertHistory int

	// Health / metrics server
	HealthPort int

	// Redis alert fan-out (optional)
	Redis RedisConfig
}

// RedisConfig holds the optional Redis alert sink configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string
}

// Load loads configuration from environment variables.
// It automatically loads a .env file if one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		Symbols:           getEnvAsStringSlice("SYMBOLS", []string{"btcusdt", "ethusdt"}),
		AnalysisTimeframe: models.Timeframe(getEnv("ANALYSIS_TIMEFRAME", "1m")),

		RollingWindow:   getEnvAsInt("ROLLING_WINDOW", 60),
		ZScoreUpper:     getEnvAsFloat("ZSCORE_UPPER_THRESHOLD", 2.0),
		ZScoreLower:     getEnvAsFloat("ZSCORE_LOWER_THRESHOLD", -2.0),
		ADFSignificance: getEnvAsFloat("ADF_SIGNIFICANCE", 0.05),

		MaxTicks: getEnvAsInt("MAX_TICKS", 100000),
		MaxBars:  getEnvAsInt("MAX_BARS", 10000),

		WSBaseURL:           getEnv("WS_BASE_URL", "wss://fstream.binance.com/ws"),
		ReconnectDelay:      getEnvAsDuration("RECONNECT_DELAY", 1*time.Second),
		MaxReconnectDelay:   getEnvAsDuration("MAX_RECONNECT_DELAY", 30*time.Second),
		ReconnectMultiplier: getEnvAsFloat("RECONNECT_MULTIPLIER", 2.0),

		AlertCooldown:   getEnvAsDuration("ALERT_COOLDOWN", 60*time.Second),
		MaxAlertHistory: getEnvAsInt("MAX_ALERT_HISTORY", 100),

		HealthPort: getEnvAsInt("HEALTH_PORT", 8081),

		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_ALERT_CHANNEL", "alerts"),
		},
	}

	for _, raw := range getEnvAsStringSlice("TIMEFRAMES", []string{"1s", "1m", "5m"}) {
		tf, err := models.ParseTimeframe(raw)
		if err != nil {
			return nil, fmt.Errorf("TIMEFRAMES contains %q: %w", raw, err)
		}
		cfg.Timeframes = append(cfg.Timeframes, tf)
	}

	// Clamp the rolling window rather than failing; the dashboard slider
	// in the original system had the same bounds.
	if cfg.RollingWindow < MinWindow {
		cfg.RollingWindow = MinWindow
	}
	if cfg.RollingWindow > MaxWindow {
		cfg.RollingWindow = MaxWindow
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("SYMBOLS must contain at least one symbol")
	}
	for i, s := range c.Symbols {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("SYMBOLS contains an empty symbol")
		}
		c.Symbols[i] = strings.ToLower(strings.TrimSpace(s))
	}
	if len(c.Timeframes) == 0 {
		return fmt.Errorf("TIMEFRAMES must contain at least one timeframe")
	}
	if _, err := models.ParseTimeframe(string(c.AnalysisTimeframe)); err != nil {
		return fmt.Errorf("ANALYSIS_TIMEFRAME %q: %w", c.AnalysisTimeframe, err)
	}
	if c.ZScoreUpper <= c.ZScoreLower {
		return fmt.Errorf("ZSCORE_UPPER_THRESHOLD must exceed ZSCORE_LOWER_THRESHOLD")
	}
	if c.ADFSignificance <= 0 || c.ADFSignificance >= 1 {
		return fmt.Errorf("ADF_SIGNIFICANCE must be in (0, 1)")
	}
	if c.MaxTicks < 1 || c.MaxBars < 1 {
		return fmt.Errorf("MAX_TICKS and MAX_BARS must be positive")
	}
	if c.ReconnectMultiplier <= 1 {
		return fmt.Errorf("RECONNECT_MULTIPLIER must be greater than 1")
	}
	if c.ReconnectDelay <= 0 || c.MaxReconnectDelay < c.ReconnectDelay {
		return fmt.Errorf("invalid reconnect delay bounds")
	}
	if c.WSBaseURL == "" {
		return fmt.Errorf("WS_BASE_URL is required")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
