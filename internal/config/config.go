package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultInviteCode is used when INVITE_CODE is not set.
const DefaultInviteCode = "RockyBalboa2026"

// Config holds application configuration
type Config struct {
	TelegramToken      string `yaml:"telegram_token" validate:"required"`
	ModelAPIKey        string `yaml:"model_api_key" validate:"required"`
	ModelBaseURL       string `yaml:"model_base_url" validate:"required,url"`
	AgentModel         string `yaml:"agent_model" validate:"required"`
	DatabaseURL        string `yaml:"database_url" validate:"required"`
	RabbitMQURL        string `yaml:"rabbitmq_url" validate:"required"`
	RabbitMQPrefetch   int    `yaml:"rabbitmq_prefetch"`
	RedisURL           string `yaml:"redis_url" validate:"required"`
	BaseURL            string `yaml:"base_url" validate:"required,url"`
	ServerPort         string `yaml:"server_port"`
	InviteCode         string `yaml:"invite_code" validate:"required"`
	StravaClientID     string `yaml:"strava_client_id"`
	StravaClientSecret string `yaml:"strava_client_secret"`
	WhisperBaseURL     string `yaml:"whisper_base_url"`
	WhisperModel       string `yaml:"whisper_model"`
	WebhookRate        string `yaml:"webhook_rate"`
	ServerDebugMode    bool   `yaml:"server_debug_mode"`
	WorkerDebugMode    bool   `yaml:"worker_debug_mode"`
	OTELEnabled        bool   `yaml:"otel_enabled"`
	OTELEndpoint       string `yaml:"otel_endpoint"`
}

// StravaRedirectURL returns the public OAuth callback URL.
func (c *Config) StravaRedirectURL() string {
	return c.BaseURL + "/strava/callback"
}

// WebhookURL returns the public Telegram webhook URL.
func (c *Config) WebhookURL() string {
	return c.BaseURL + "/telegram/webhook"
}

// Load loads configuration from environment variables. If CONFIG_FILE
// is set, that YAML file is read first and environment variables
// override it (local development convenience).
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       "8080",
		RabbitMQPrefetch: 1,
		AgentModel:       "meta-llama/llama-3.3-70b-instruct:free",
		ModelBaseURL:     "https://openrouter.ai/api/v1",
		WhisperBaseURL:   "http://localhost:8000/v1",
		WhisperModel:     "medium",
		InviteCode:       DefaultInviteCode,
		WebhookRate:      "5-S",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	// A trailing slash on BASE_URL breaks the webhook and callback URLs.
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.TelegramToken = getEnv("TELEGRAM_TOKEN", cfg.TelegramToken)
	cfg.ModelAPIKey = getEnv("OPENROUTER_API_KEY", cfg.ModelAPIKey)
	cfg.ModelBaseURL = getEnv("MODEL_BASE_URL", cfg.ModelBaseURL)
	cfg.AgentModel = getEnv("AGENT_MODEL", cfg.AgentModel)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", cfg.RabbitMQPrefetch)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.BaseURL = getEnv("BASE_URL", cfg.BaseURL)
	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.InviteCode = getEnv("INVITE_CODE", cfg.InviteCode)
	cfg.StravaClientID = getEnv("STRAVA_CLIENT_ID", cfg.StravaClientID)
	cfg.StravaClientSecret = getEnv("STRAVA_CLIENT_SECRET", cfg.StravaClientSecret)
	cfg.WhisperBaseURL = getEnv("WHISPER_API_URL", cfg.WhisperBaseURL)
	cfg.WhisperModel = getEnv("WHISPER_MODEL", cfg.WhisperModel)
	cfg.WebhookRate = getEnv("WEBHOOK_RATE", cfg.WebhookRate)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
