// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/newsletter/internal/logger"
	"github.com/hitoshi/newsletter/internal/model"
	"github.com/hitoshi/newsletter/internal/security"
)

// メール送信バックエンドの種類。
const (
	EmailProviderHTTP = "http"
	EmailProviderSES  = "ses"
)

// トレースのエクスポート先。
const (
	TracesExporterNone   = "none"
	TracesExporterStdout = "stdout"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Server
	ServerPort string
	// BaseURL は確認リンクに埋め込む公開URL。
	BaseURL string

	// Email
	EmailProvider           string
	EmailSender             model.SubscriberEmail
	EmailBaseURL            string
	EmailAuthorizationToken security.Secret
	EmailTimeout            time.Duration

	// AWS (EMAIL_PROVIDER=ses)
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey security.Secret

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel slog.Level

	// Tracing
	TracesExporter string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は未設定のものをまとめてエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	rawSender := os.Getenv("EMAIL_SENDER")
	if rawSender == "" {
		missing = append(missing, "EMAIL_SENDER")
	}

	cfg.EmailProvider = strings.ToLower(getEnvString("EMAIL_PROVIDER", EmailProviderHTTP))
	switch cfg.EmailProvider {
	case EmailProviderHTTP:
		cfg.EmailBaseURL = os.Getenv("EMAIL_BASE_URL")
		if cfg.EmailBaseURL == "" {
			missing = append(missing, "EMAIL_BASE_URL")
		}
		token := os.Getenv("EMAIL_AUTHORIZATION_TOKEN")
		if token == "" {
			missing = append(missing, "EMAIL_AUTHORIZATION_TOKEN")
		}
		cfg.EmailAuthorizationToken = security.NewSecret(token)
	case EmailProviderSES:
		cfg.AWSRegion = os.Getenv("AWS_REGION")
		if cfg.AWSRegion == "" {
			missing = append(missing, "AWS_REGION")
		}
	default:
		return nil, fmt.Errorf("EMAIL_PROVIDER must be %q or %q, got %q", EmailProviderHTTP, EmailProviderSES, cfg.EmailProvider)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	sender, err := model.ParseSubscriberEmail(rawSender)
	if err != nil {
		return nil, fmt.Errorf("EMAIL_SENDER is invalid: %w", err)
	}
	cfg.EmailSender = sender

	if err := validateHTTPURL(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("BASE_URL is invalid: %w", err)
	}
	if cfg.EmailProvider == EmailProviderHTTP {
		if err := validateHTTPURL(cfg.EmailBaseURL); err != nil {
			return nil, fmt.Errorf("EMAIL_BASE_URL is invalid: %w", err)
		}
	}

	cfg.LogLevel, err = logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}

	cfg.TracesExporter = strings.ToLower(getEnvString("OTEL_TRACES_EXPORTER", TracesExporterNone))
	if cfg.TracesExporter != TracesExporterNone && cfg.TracesExporter != TracesExporterStdout {
		return nil, fmt.Errorf("OTEL_TRACES_EXPORTER must be %q or %q, got %q", TracesExporterNone, TracesExporterStdout, cfg.TracesExporter)
	}

	// Optional fields with defaults
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.EmailTimeout = getEnvDuration("EMAIL_TIMEOUT", 10*time.Second)
	cfg.AWSAccessKeyID = os.Getenv("AWS_ACCESS_KEY_ID")
	cfg.AWSSecretAccessKey = security.NewSecret(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)

	return cfg, nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https: %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("host is empty: %q", raw)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
