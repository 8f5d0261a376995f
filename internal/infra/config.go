package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	Port              string
	DatabaseURL       string
	LineChannelSecret string
	LineChannelToken  string
	LineAPIBaseURL    string
	LineDataBaseURL   string
	KieAPIKey         string
	KieBaseURL        string
	KieUploadURL      string
	RelayBaseURL      string
	VariantCount      int
	FreeMonthlyLimit  int
	PollInterval      time.Duration
	PollTimeout       time.Duration
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		LineChannelSecret: os.Getenv("LINE_CHANNEL_SECRET"),
		LineChannelToken:  os.Getenv("LINE_CHANNEL_ACCESS_TOKEN"),
		LineAPIBaseURL:    getEnv("LINE_API_BASE_URL", "https://api.line.me"),
		LineDataBaseURL:   getEnv("LINE_DATA_BASE_URL", "https://api-data.line.me"),
		KieAPIKey:         os.Getenv("KIEAI_API_KEY"),
		KieBaseURL:        getEnv("KIE_BASE_URL", "https://api.kie.ai"),
		KieUploadURL:      getEnv("KIE_UPLOAD_URL", "https://kieai.redpandaai.co/api/file-base64-upload"),
		RelayBaseURL:      getEnv("RELAY_BASE_URL", "https://webhook.site"),
		VariantCount:      getEnvInt("VARIANT_COUNT", 4),
		FreeMonthlyLimit:  getEnvInt("FREE_MONTHLY_LIMIT", 3),
		PollInterval:      time.Second * time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 3)),
		PollTimeout:       time.Second * time.Duration(getEnvInt("POLL_TIMEOUT_SECONDS", 180)),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.LineChannelSecret == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_SECRET is required")
	}

	if cfg.LineChannelToken == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_ACCESS_TOKEN is required")
	}

	if cfg.VariantCount < 1 {
		cfg.VariantCount = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
