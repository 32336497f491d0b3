package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kylerivers/47-industries-admin/models"
	aws_pkg "github.com/kylerivers/47-industries-admin/pkg/aws"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the admin service.
type Config struct {
	Port   string
	AppEnv string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	RedisURL string

	StripeAPIKey        string
	StripeWebhookSecret string
	ShippoAPIKey        string
	ShippoBaseURL       string

	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Ship-from address
	OriginName       string
	OriginCompany    string
	OriginStreet1    string
	OriginStreet2    string
	OriginCity       string
	OriginState      string
	OriginPostalCode string
	OriginCountry    string
	OriginPhone      string
	OriginEmail      string

	EventsBackend     string
	EventsSNSTopicARN string
	KafkaBrokers      []string
	KafkaTopic        string

	PaymentEventsQueueURL string

	JWTSecret      string
	AllowedOrigins []string

	LowStockThreshold       int
	OverstockThreshold      int
	StrictStatusTransitions bool
	IdempotencyTTL          time.Duration
	DefaultTaxRate          decimal.Decimal
	PublicBaseURL           string

	CloudWatchEnabled bool
}

// OriginAddress builds the ship-from Address.
func (c *Config) OriginAddress() models.Address {
	return models.Address{
		Name:       c.OriginName,
		Company:    c.OriginCompany,
		Street1:    c.OriginStreet1,
		Street2:    c.OriginStreet2,
		City:       c.OriginCity,
		State:      c.OriginState,
		PostalCode: c.OriginPostalCode,
		Country:    c.OriginCountry,
		Phone:      c.OriginPhone,
		Email:      c.OriginEmail,
	}
}

func (c *Config) Thresholds() models.Thresholds {
	return models.Thresholds{LowStock: c.LowStockThreshold, Overstock: c.OverstockThreshold}
}

// DSN renders the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

// SecretSource is the subset of the Secrets Manager client LoadConfig needs.
type SecretSource interface {
	GetSecret(ctx context.Context, name string) (string, error)
	GetSecretMap(ctx context.Context, name string) (map[string]string, error)
}

// LoadConfig reads configuration from the environment (after loading .env
// when present) with an optional Secrets Manager override.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		ctx := context.Background()
		if awsCfg, err := aws_pkg.LoadAWSConfig(ctx); err == nil {
			applySecrets(ctx, cfg, aws_pkg.NewSecretsClient(awsCfg))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:   getEnv("PORT", "8095"),
		AppEnv: getEnv("APP_ENV", "development"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone: getEnv("POSTGRES_TIMEZONE", "America/Chicago"),

		RedisURL: os.Getenv("REDIS_URL"),

		StripeAPIKey:        os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		ShippoAPIKey:        os.Getenv("SHIPPO_API_KEY"),
		ShippoBaseURL:       getEnv("SHIPPO_BASE_URL", "https://api.goshippo.com"),

		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: getEnv("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		SMTPFrom: os.Getenv("SMTP_FROM"),

		OriginName:       getEnv("ORIGIN_NAME", "47 Industries"),
		OriginCompany:    getEnv("ORIGIN_COMPANY", "47 Industries LLC"),
		OriginStreet1:    os.Getenv("ORIGIN_STREET1"),
		OriginStreet2:    os.Getenv("ORIGIN_STREET2"),
		OriginCity:       os.Getenv("ORIGIN_CITY"),
		OriginState:      os.Getenv("ORIGIN_STATE"),
		OriginPostalCode: os.Getenv("ORIGIN_POSTAL_CODE"),
		OriginCountry:    getEnv("ORIGIN_COUNTRY", "US"),
		OriginPhone:      os.Getenv("ORIGIN_PHONE"),
		OriginEmail:      os.Getenv("ORIGIN_EMAIL"),

		EventsBackend:     strings.ToLower(getEnv("EVENTS_BACKEND", "none")),
		EventsSNSTopicARN: os.Getenv("EVENTS_SNS_TOPIC_ARN"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "admin-events"),

		PaymentEventsQueueURL: os.Getenv("PAYMENT_EVENTS_QUEUE_URL"),

		JWTSecret:      strings.TrimSpace(os.Getenv("JWT_SECRET")),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		PublicBaseURL:     getEnv("PUBLIC_BASE_URL", "http://localhost:3000"),
		CloudWatchEnabled: os.Getenv("CLOUDWATCH_ENABLED") == "true",
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUser
	}

	var err error
	if cfg.LowStockThreshold, err = getEnvInt("LOW_STOCK_THRESHOLD", 10); err != nil {
		return nil, err
	}
	if cfg.OverstockThreshold, err = getEnvInt("OVERSTOCK_THRESHOLD", 0); err != nil {
		return nil, err
	}
	if cfg.StrictStatusTransitions, err = getEnvBool("STRICT_STATUS_TRANSITIONS", false); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = time.ParseDuration(getEnv("IDEMPOTENCY_TTL", "24h")); err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
	}
	if cfg.DefaultTaxRate, err = decimal.NewFromString(getEnv("DEFAULT_TAX_RATE", "0")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TAX_RATE: %w", err)
	}
	return cfg, nil
}

func applySecrets(ctx context.Context, cfg *Config, sm SecretSource) {
	if m, err := sm.GetSecretMap(ctx, "admin/DB_CREDENTIALS"); err == nil {
		overrideIfSet(&cfg.PostgresUser, m["POSTGRES_USER"])
		overrideIfSet(&cfg.PostgresPassword, m["POSTGRES_PASSWORD"])
		overrideIfSet(&cfg.PostgresDB, m["POSTGRES_DB"])
		overrideIfSet(&cfg.PostgresHost, m["POSTGRES_HOST"])
		overrideIfSet(&cfg.PostgresPort, m["POSTGRES_PORT"])
	}
	if v, err := sm.GetSecret(ctx, "admin/STRIPE_API_KEY"); err == nil {
		overrideIfSet(&cfg.StripeAPIKey, v)
	}
	if v, err := sm.GetSecret(ctx, "admin/SHIPPO_API_KEY"); err == nil {
		overrideIfSet(&cfg.ShippoAPIKey, v)
	}
}

func (c *Config) validate() error {
	if c.PostgresUser == "" || c.PostgresPassword == "" || c.PostgresDB == "" || c.PostgresHost == "" {
		return fmt.Errorf("database config incomplete")
	}
	switch c.EventsBackend {
	case "none", "":
	case "sns":
		if c.EventsSNSTopicARN == "" {
			return fmt.Errorf("EVENTS_BACKEND=sns requires EVENTS_SNS_TOPIC_ARN")
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("EVENTS_BACKEND=kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unknown EVENTS_BACKEND %q", c.EventsBackend)
	}
	if c.LowStockThreshold < 0 || c.OverstockThreshold < 0 {
		return fmt.Errorf("stock thresholds must not be negative")
	}
	if c.OverstockThreshold > 0 && c.OverstockThreshold <= c.LowStockThreshold {
		return fmt.Errorf("OVERSTOCK_THRESHOLD must be greater than LOW_STOCK_THRESHOLD")
	}
	return nil
}

func overrideIfSet(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(p), "/")); p != "" {
			out = append(out, p)
		}
	}
	return out
}
