package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort          = "8080"
	defaultPaidRateLimit = "20-M"
	defaultSignupCredits = 10

	defaultReplicateBaseURL = "https://api.replicate.com/v1"
	defaultUnstageModel     = "timothybrooks/instruct-pix2pix"
	defaultGenerateModel    = "adirik/interior-design"
	defaultInpaintModel     = "stability-ai/stable-diffusion-inpainting"
	defaultPollInterval     = 1500 * time.Millisecond
	defaultMaxWait          = 5 * time.Minute
	defaultMaxPolls         = 300
)

// loads configuration from environment variables
func LoadEnvironmentVariables() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		_ = err // not an error - production environments may not have .env file
	}

	databaseURL := os.Getenv("DATABASE_URL")
	jwtSecret := os.Getenv("JWT_SECRET")
	sessionSecret := os.Getenv("SESSION_SECRET")
	replicateToken := os.Getenv("REPLICATE_API_TOKEN")

	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET environment variable is required")
	}

	if replicateToken == "" {
		return nil, fmt.Errorf("REPLICATE_API_TOKEN environment variable is required")
	}

	pollInterval, err := durationFromEnv("REPLICATE_POLL_INTERVAL", defaultPollInterval)
	if err != nil {
		return nil, err
	}

	maxWait, err := durationFromEnv("REPLICATE_MAX_WAIT", defaultMaxWait)
	if err != nil {
		return nil, err
	}

	maxPolls, err := intFromEnv("REPLICATE_MAX_POLLS", defaultMaxPolls)
	if err != nil {
		return nil, err
	}

	signupCredits, err := intFromEnv("SIGNUP_CREDITS", defaultSignupCredits)
	if err != nil {
		return nil, err
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	return &Config{
		Environment:   environment,
		Port:          stringFromEnv("PORT", defaultPort),
		BaseURL:       stringFromEnv("BASE_URL", "http://localhost:"+stringFromEnv("PORT", defaultPort)),
		DatabaseURL:   databaseURL,
		RedisURL:      os.Getenv("REDIS_URL"),
		JWTSecret:     jwtSecret,
		SessionSecret: sessionSecret,
		Replicate: ReplicateConfig{
			APIToken:      replicateToken,
			BaseURL:       stringFromEnv("REPLICATE_BASE_URL", defaultReplicateBaseURL),
			UnstageModel:  stringFromEnv("REPLICATE_UNSTAGE_MODEL", defaultUnstageModel),
			GenerateModel: stringFromEnv("REPLICATE_GENERATE_MODEL", defaultGenerateModel),
			InpaintModel:  stringFromEnv("REPLICATE_INPAINT_MODEL", defaultInpaintModel),
			PollInterval:  pollInterval,
			MaxWait:       maxWait,
			MaxPolls:      maxPolls,
		},
		PaidRateLimit:  stringFromEnv("PAID_RATE_LIMIT", defaultPaidRateLimit),
		SignupCredits:  signupCredits,
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     stringFromEnv("SMTP_PORT", "587"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     stringFromEnv("SMTP_FROM", os.Getenv("SMTP_USER")),
		},
	}, nil
}

func stringFromEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 1.5s: %w", key, err)
	}

	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}

	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}

	return n, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
