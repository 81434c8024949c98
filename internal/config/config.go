// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DBPath string

	// Logging
	LogLevel string

	// Auth
	JWTSecret string

	// Currency
	DomesticCurrency string
	RatesBaseURL     string
	RatesTimeout     time.Duration
	RateCacheTTL     time.Duration

	// Analytics
	InsightsCacheTTL time.Duration

	// AMQP (optional; empty URL disables events)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Ollama (optional; empty URL disables the parse RPCs)
	OllamaURL         string
	OllamaModel       string
	OllamaVisionModel string
	OllamaTimeout     time.Duration
}

// Load reads the configuration from environment variables, applying defaults.
// Call godotenv.Load first to pick up a .env file.
func Load() *Config {
	return &Config{
		Port:   getEnv("PORT", "8080"),
		DBPath: getEnv("DB_PATH", "./data/finagent.db"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		JWTSecret: getEnv("JWT_SECRET", ""),

		DomesticCurrency: strings.ToUpper(getEnv("DOMESTIC_CURRENCY", "SGD")),
		RatesBaseURL:     getEnv("RATES_BASE_URL", "https://api.frankfurter.app"),
		RatesTimeout:     getEnvDuration("RATES_TIMEOUT", 5*time.Second),
		RateCacheTTL:     getEnvDuration("RATE_CACHE_TTL", 24*time.Hour),

		InsightsCacheTTL: getEnvDuration("INSIGHTS_CACHE_TTL", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finagent"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "debts_created"),

		OllamaURL:         getEnv("OLLAMA_URL", ""),
		OllamaModel:       getEnv("OLLAMA_MODEL", "llama3.1"),
		OllamaVisionModel: getEnv("OLLAMA_VISION_MODEL", "llama3.2-vision"),
		OllamaTimeout:     getEnvDuration("OLLAMA_TIMEOUT", 60*time.Second),
	}
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.DBPath == "" {
		errors = append(errors, "database path cannot be empty")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT secret must be at least 16 characters")
	}

	if len(c.DomesticCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid domestic currency '%s': must be a 3-letter code", c.DomesticCurrency))
	}

	if u, err := url.Parse(c.RatesBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errors = append(errors, fmt.Sprintf("invalid rates base URL '%s': must be http or https", c.RatesBaseURL))
	}
	if c.RatesTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("invalid rates timeout %v: must be positive", c.RatesTimeout))
	}
	if c.RateCacheTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rate cache TTL %v: must be at least 1 minute", c.RateCacheTTL))
	}
	if c.InsightsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid insights cache TTL %v: must not be negative", c.InsightsCacheTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.OllamaURL != "" {
		if u, err := url.Parse(c.OllamaURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errors = append(errors, fmt.Sprintf("invalid Ollama URL '%s': must be http or https", c.OllamaURL))
		}
		if c.OllamaTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid Ollama timeout %v: must be positive", c.OllamaTimeout))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
