package config

import "time"

type Config struct {
	Environment string
	Port        string
	BaseURL     string

	DatabaseURL string
	RedisURL    string // optional, enables the redis outbox and rate-limit store

	JWTSecret     string
	SessionSecret string

	Replicate ReplicateConfig

	// ulule/limiter formatted rate for paid endpoints, e.g. "20-M"
	PaidRateLimit string

	// credits granted on registration
	SignupCredits int

	AllowedOrigins []string

	SMTP SMTPConfig
}

type ReplicateConfig struct {
	APIToken      string
	BaseURL       string
	UnstageModel  string
	GenerateModel string
	InpaintModel  string
	PollInterval  time.Duration
	MaxWait       time.Duration
	MaxPolls      int
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

// reports whether the server runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
