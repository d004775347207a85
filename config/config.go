package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	AWS          AWSConfig
	NewebPay     NewebPayConfig
	Webhook      WebhookConfig
	Registration RegistrationConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	SiteURL            string // public site base URL, used for QR check-in links and payment result pages
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/stride?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the uploads bucket for blog images.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	UploadsBucket        string
	PresignExpireMinutes int
}

// NewebPayConfig holds the MPG gateway credentials and callback URLs.
type NewebPayConfig struct {
	MerchantID    string
	HashKey       string // 32 bytes
	HashIV        string // 16 bytes
	Version       string
	GatewayURL    string
	NotifyURL     string
	ReturnURL     string
	ClientBackURL string
}

// Enabled reports whether online payment is configured.
func (c NewebPayConfig) Enabled() bool { return c.MerchantID != "" }

// WebhookConfig holds outbound notification delivery settings.
type WebhookConfig struct {
	URLs       []string
	Secret     string
	TimeoutSec int
}

// RegistrationConfig holds course registration settings.
type RegistrationConfig struct {
	DuplicateGuardTTL time.Duration
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			SiteURL:            strings.TrimRight(getEnv("SITE_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "stride"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "ap-northeast-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			UploadsBucket:        getEnv("AWS_S3_UPLOADS_BUCKET", "stride-site-uploads"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		NewebPay: NewebPayConfig{
			MerchantID:    getEnv("NEWEBPAY_MERCHANT_ID", ""),
			HashKey:       getEnv("NEWEBPAY_HASH_KEY", ""),
			HashIV:        getEnv("NEWEBPAY_HASH_IV", ""),
			Version:       getEnv("NEWEBPAY_VERSION", "2.0"),
			GatewayURL:    getEnv("NEWEBPAY_GATEWAY_URL", "https://ccore.newebpay.com/MPG/mpg_gateway"),
			NotifyURL:     getEnv("NEWEBPAY_NOTIFY_URL", ""),
			ReturnURL:     getEnv("NEWEBPAY_RETURN_URL", ""),
			ClientBackURL: getEnv("NEWEBPAY_CLIENT_BACK_URL", ""),
		},
		Webhook: WebhookConfig{
			URLs:       splitTrim(getEnv("WEBHOOK_URLS", ""), ","),
			Secret:     getEnv("WEBHOOK_SECRET", ""),
			TimeoutSec: getEnvInt("WEBHOOK_TIMEOUT_SEC", 10),
		},
		Registration: RegistrationConfig{
			DuplicateGuardTTL: time.Duration(getEnvInt("REGISTRATION_DUPLICATE_GUARD_SEC", 30)) * time.Second,
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at request time.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("PORT is required")
	}
	if c.NewebPay.Enabled() {
		if len(c.NewebPay.HashKey) != 32 {
			return errors.New("NEWEBPAY_HASH_KEY must be 32 characters")
		}
		if len(c.NewebPay.HashIV) != 16 {
			return errors.New("NEWEBPAY_HASH_IV must be 16 characters")
		}
		if c.NewebPay.NotifyURL == "" {
			return errors.New("NEWEBPAY_NOTIFY_URL is required when NEWEBPAY_MERCHANT_ID is set")
		}
	}
	if c.Registration.DuplicateGuardTTL < 0 {
		return errors.New("REGISTRATION_DUPLICATE_GUARD_SEC must not be negative")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitTrim(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, v := range strings.Split(s, sep) {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
