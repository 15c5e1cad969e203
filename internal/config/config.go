package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	AppEnv      string `yaml:"app_env"`
	AppBaseURL  string `yaml:"app_base_url"`

	JWTSecret     string        `yaml:"jwt_secret"`
	JWTTTL        time.Duration `yaml:"-"`
	JWTTTLHours   int           `yaml:"jwt_ttl_hours"`
	ResetTokenTTL time.Duration `yaml:"-"`
	ResetTTLMin   int           `yaml:"reset_token_ttl_minutes"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	LogLevel    string `yaml:"log_level"`
	LogEncoding string `yaml:"log_encoding"`

	RateLimitPerMinute      int `yaml:"rate_limit_per_min"`
	RateLimitBurst          int `yaml:"rate_limit_burst"`
	LoginRateLimitPerMinute int `yaml:"login_rate_limit_per_min"`
	LoginRateLimitBurst     int `yaml:"login_rate_limit_burst"`

	// TrustProxyHeaders keys the IP rate limit by X-Forwarded-For.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`

	MailerProvider       string        `yaml:"mailer_provider"`
	MailerCommand        string        `yaml:"mailer_command"`
	MailerFrom           string        `yaml:"mailer_from"`
	MailerTimeout        time.Duration `yaml:"-"`
	MailerTimeoutSeconds int           `yaml:"mailer_timeout_seconds"`
}

func defaults() Config {
	return Config{
		Port:                    "8080",
		AppEnv:                  "production",
		AppBaseURL:              "http://localhost:3000",
		JWTTTLHours:             12,
		ResetTTLMin:             60,
		RateLimitPerMinute:      120,
		RateLimitBurst:          30,
		LoginRateLimitPerMinute: 10,
		LoginRateLimitBurst:     5,
		MailerProvider:          "log",
		MailerCommand:           "python3 scripts/send_email.py",
		MailerFrom:              "no-reply@fieldops.local",
		MailerTimeoutSeconds:    30,
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// named by CONFIG_FILE, then environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(content, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = readString("PORT", cfg.Port)
	cfg.DatabaseURL = readString("DB_DSN", cfg.DatabaseURL)
	cfg.AppEnv = readString("APP_ENV", cfg.AppEnv)
	cfg.AppBaseURL = strings.TrimRight(readString("APP_BASE_URL", cfg.AppBaseURL), "/")
	cfg.JWTSecret = readString("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTTTLHours = readInt("JWT_TTL_HOURS", cfg.JWTTTLHours)
	cfg.ResetTTLMin = readInt("RESET_TOKEN_TTL_MINUTES", cfg.ResetTTLMin)
	cfg.CORSAllowedOrigins = readList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.LogLevel = readString("LOG_LEVEL", cfg.LogLevel)
	cfg.LogEncoding = readString("LOG_ENCODING", cfg.LogEncoding)
	cfg.RateLimitPerMinute = readInt("RATE_LIMIT_PER_MIN", cfg.RateLimitPerMinute)
	cfg.RateLimitBurst = readInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.LoginRateLimitPerMinute = readInt("LOGIN_RATE_LIMIT_PER_MIN", cfg.LoginRateLimitPerMinute)
	cfg.LoginRateLimitBurst = readInt("LOGIN_RATE_LIMIT_BURST", cfg.LoginRateLimitBurst)
	cfg.TrustProxyHeaders = readBool("TRUST_PROXY_HEADERS", cfg.TrustProxyHeaders)
	cfg.MailerProvider = readString("MAILER_PROVIDER", cfg.MailerProvider)
	cfg.MailerCommand = readString("MAILER_COMMAND", cfg.MailerCommand)
	cfg.MailerFrom = readString("MAILER_FROM", cfg.MailerFrom)
	cfg.MailerTimeoutSeconds = readInt("MAILER_TIMEOUT_SECONDS", cfg.MailerTimeoutSeconds)

	cfg.JWTTTL = hours(cfg.JWTTTLHours)
	cfg.ResetTokenTTL = minutes(cfg.ResetTTLMin)
	cfg.MailerTimeout = seconds(cfg.MailerTimeoutSeconds)
	return cfg, nil
}

func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

func readString(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func readList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	var values []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func hours(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Hour
}

func minutes(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Minute
}

func seconds(value int) time.Duration {
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}
