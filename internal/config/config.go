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
	defaultHTTPAddr          = ":8080"
	defaultDatabaseURL       = "salonbook.db"
	defaultTimezone          = "Asia/Kolkata"
	defaultJWTAccessTTL      = "24h"
	defaultJWTSecret         = "change-me-jwt-secret"
	defaultRazorpayBaseURL   = "https://api.razorpay.com/v1"
	defaultCurrency          = "INR"
	defaultOrderCacheTTL     = "5m"
	defaultPendingExpiry     = "30m"
	defaultNotifyTimeout     = "10s"
	defaultRateLimitPerMin   = "60"
	defaultRateLimitBurst    = "20"
	defaultRedisDB           = "0"
	defaultRabbitMQExchange  = "salonbook.events"
	defaultSMTPPort          = "587"
	defaultSNSSenderID       = "SALONBK"
	defaultAWSRegion         = "ap-south-1"
	defaultCORSAllowedOrigin = "http://localhost:3000,http://localhost:5173"
)

type Config struct {
	AppEnv   string
	HTTPAddr string
	Timezone *time.Location

	DatabaseURL string

	JWTSecret    string
	JWTAccessTTL time.Duration

	Razorpay RazorpayConfig

	OrderCacheTTL        time.Duration
	PendingPaymentExpiry time.Duration
	NotifyTimeout        time.Duration

	RateLimitPerMinute int
	RateLimitBurst     int

	CORSAllowedOrigins []string

	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	SMTP     SMTPConfig
	Twilio   TwilioConfig
	SNS      SNSConfig
}

type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string
	BaseURL       string
	Currency      string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type RabbitMQConfig struct {
	URL      string
	Exchange string
}

func (c RabbitMQConfig) Enabled() bool { return c.URL != "" }

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c SMTPConfig) Enabled() bool { return c.Host != "" && c.Username != "" }

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

func (c TwilioConfig) Enabled() bool { return c.AccountSID != "" && c.AuthToken != "" && c.FromNumber != "" }

type SNSConfig struct {
	Enabled  bool
	Region   string
	SenderID string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)
	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))

	tzName := strings.TrimSpace(getEnv("APP_TIMEZONE", defaultTimezone))
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE value %q: %w", tzName, err)
	}
	cfg.Timezone = loc

	if cfg.JWTAccessTTL, err = parseDurationEnv("JWT_ACCESS_TTL", defaultJWTAccessTTL); err != nil {
		return nil, err
	}
	if cfg.OrderCacheTTL, err = parseDurationEnv("ORDER_CACHE_TTL", defaultOrderCacheTTL); err != nil {
		return nil, err
	}
	if cfg.PendingPaymentExpiry, err = parseDurationEnv("PENDING_PAYMENT_EXPIRY", defaultPendingExpiry); err != nil {
		return nil, err
	}
	if cfg.NotifyTimeout, err = parseDurationEnv("NOTIFY_TIMEOUT", defaultNotifyTimeout); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = parseIntEnv("PAYMENT_RATE_LIMIT_PER_MIN", defaultRateLimitPerMin); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = parseIntEnv("PAYMENT_RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}

	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSAllowedOrigin))

	cfg.Razorpay = RazorpayConfig{
		KeyID:         strings.TrimSpace(os.Getenv("RAZORPAY_KEY_ID")),
		KeySecret:     strings.TrimSpace(os.Getenv("RAZORPAY_KEY_SECRET")),
		WebhookSecret: strings.TrimSpace(os.Getenv("RAZORPAY_WEBHOOK_SECRET")),
		BaseURL:       strings.TrimRight(strings.TrimSpace(getEnv("RAZORPAY_BASE_URL", defaultRazorpayBaseURL)), "/"),
		Currency:      strings.ToUpper(strings.TrimSpace(getEnv("PAYMENT_CURRENCY", defaultCurrency))),
	}

	redisDB, err := parseIntEnv("REDIS_DB", defaultRedisDB)
	if err != nil {
		return nil, err
	}
	cfg.Redis = RedisConfig{
		Addr:     strings.TrimSpace(redisAddr()),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	cfg.RabbitMQ = RabbitMQConfig{
		URL:      strings.TrimSpace(firstEnv("RABBITMQ_URL", "AMQP_URL")),
		Exchange: strings.TrimSpace(getEnv("RABBITMQ_EXCHANGE", defaultRabbitMQExchange)),
	}

	cfg.SMTP = SMTPConfig{
		Host:     strings.TrimSpace(os.Getenv("SMTP_HOST")),
		Port:     strings.TrimSpace(getEnv("SMTP_PORT", defaultSMTPPort)),
		Username: strings.TrimSpace(os.Getenv("SMTP_USER")),
		Password: os.Getenv("SMTP_PASS"),
		From:     strings.TrimSpace(os.Getenv("SMTP_FROM")),
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	cfg.Twilio = TwilioConfig{
		AccountSID: strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID")),
		AuthToken:  strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN")),
		FromNumber: strings.TrimSpace(os.Getenv("TWILIO_FROM_NUMBER")),
	}

	cfg.SNS = SNSConfig{
		Enabled:  parseBoolEnv("SNS_SMS_ENABLED", "false"),
		Region:   strings.TrimSpace(getEnv("AWS_REGION", defaultAWSRegion)),
		SenderID: strings.TrimSpace(getEnv("SNS_SMS_SENDER_ID", defaultSNSSenderID)),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTAccessTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL must be > 0")
	}
	if cfg.OrderCacheTTL <= 0 {
		return fmt.Errorf("ORDER_CACHE_TTL must be > 0")
	}
	if cfg.PendingPaymentExpiry <= 0 {
		return fmt.Errorf("PENDING_PAYMENT_EXPIRY must be > 0")
	}
	if cfg.RateLimitPerMinute <= 0 || cfg.RateLimitBurst <= 0 {
		return fmt.Errorf("payment rate limit values must be > 0")
	}
	if len(cfg.Razorpay.Currency) != 3 {
		return fmt.Errorf("PAYMENT_CURRENCY must be a 3-letter ISO code")
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.Razorpay.KeyID == "" || cfg.Razorpay.KeySecret == "" {
			return fmt.Errorf("in prod/release RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET must be set")
		}
		if cfg.Razorpay.WebhookSecret == "" {
			return fmt.Errorf("in prod/release RAZORPAY_WEBHOOK_SECRET must be set")
		}
	}

	return nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func redisAddr() string {
	host := os.Getenv("REDIS_HOST")
	port := os.Getenv("REDIS_PORT")
	if host != "" && port != "" {
		return host + ":" + port
	}
	return os.Getenv("REDIS_ADDR")
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
