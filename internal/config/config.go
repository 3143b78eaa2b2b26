package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Discord Bot
	DiscordToken string `env:"DISCORD_TOKEN" validate:"required"`

	// Discord OAuth2, only needed for the web API
	DiscordClientID     string `env:"DISCORD_CLIENT_ID"`
	DiscordClientSecret string `env:"DISCORD_CLIENT_SECRET"`
	DiscordRedirectURI  string `env:"DISCORD_REDIRECT_URI" envDefault:"http://localhost:3000/api/auth/callback"`

	// Identity store: postgres URL, sqlite://path, or empty for memory
	DatabaseURL string `env:"DATABASE_URL"`

	// Web Server
	WebBind      string `env:"WEB_BIND" envDefault:"0.0.0.0:3000"`
	WebUIBaseURL string `env:"-"`

	// Session signing key, mandatory once the web API is enabled
	JWTSecret string `env:"JWT_SECRET" validate:"required_with=DiscordClientID DiscordClientSecret"`

	Processor ProcessorConfig
	Zap       ZapConfig
	Logging   LoggingConfig
}

type ProcessorConfig struct {
	BaseURL       string        `env:"PROCESSOR_BASE_URL" envDefault:"https://api.makeprisms.com" validate:"required,url"`
	Timeout       time.Duration `env:"PROCESSOR_TIMEOUT" envDefault:"10s" validate:"gt=0"`
	ConnectorName string        `env:"CONNECTOR_NAME" envDefault:"discord-zap-bot" validate:"required"`
	ConnectorType string        `env:"CONNECTOR_TYPE" envDefault:"nwc.alby" validate:"required"`
}

type ZapConfig struct {
	Trigger         string        `env:"ZAP_TRIGGER" envDefault:"⚡" validate:"required"`
	Amount          int64         `env:"ZAP_AMOUNT" envDefault:"21" validate:"gt=0"`
	Currency        string        `env:"ZAP_CURRENCY" envDefault:"SAT" validate:"required"`
	PollInterval    time.Duration `env:"POLL_INTERVAL" envDefault:"5s" validate:"gt=0"`
	PollTimeout     time.Duration `env:"POLL_TIMEOUT" envDefault:"2m" validate:"gt=0"`
	PollMaxAttempts uint          `env:"POLL_MAX_ATTEMPTS" envDefault:"0"`
}

type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

var validate = validator.New()

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()
	return parse(env.Options{})
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	// Extract base URL from redirect URI
	cfg.WebUIBaseURL = extractBaseURL(cfg.DiscordRedirectURI)
	cfg.Processor.BaseURL = strings.TrimRight(cfg.Processor.BaseURL, "/")

	return &cfg, nil
}

// WebEnabled reports whether the OAuth credentials needed by the web API are set.
func (c *Config) WebEnabled() bool {
	return c.DiscordClientID != "" && c.DiscordClientSecret != ""
}

func extractBaseURL(redirectURI string) string {
	// e.g., "http://localhost:3000/api/auth/callback" -> "http://localhost:3000"
	parsed, err := url.Parse(redirectURI)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "http://localhost:3000"
	}

	return fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
}
