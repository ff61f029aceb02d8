package app

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/odyssey-erp/receivables/internal/odoo"
	"github.com/odyssey-erp/receivables/internal/receivables"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"90s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"60s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	OdooURL      string        `envconfig:"ODOO_URL"`
	OdooDB       string        `envconfig:"ODOO_DB"`
	OdooUsername string        `envconfig:"ODOO_USERNAME"`
	OdooPassword string        `envconfig:"ODOO_PASSWORD"`
	OdooTimeout  time.Duration `envconfig:"ODOO_TIMEOUT" default:"30s"`

	ReceivablePrefixes  string `envconfig:"RECEIVABLE_ACCOUNT_PREFIXES" default:"12,13"`
	ExcludedPrefixes    string `envconfig:"EXCLUDED_ACCOUNT_PREFIXES" default:"10,133,123"`
	IncludePaymentState bool   `envconfig:"REPORT_INCLUDE_PAYMENT_STATE" default:"false"`
	ReportLimit         int    `envconfig:"REPORT_LIMIT" default:"0"`

	RedisAddr    string `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	GotenbergURL string `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
	ExportDir    string `envconfig:"EXPORT_DIR" default:"exports"`

	GoogleSheetURL  string `envconfig:"GOOGLE_SHEET_URL"`
	GoogleSheetName string `envconfig:"GOOGLE_SHEET_NAME" default:"Receivables"`

	ExportRateLimit int `envconfig:"EXPORT_RATE_LIMIT" default:"10"`

	WorkerMetricsAddr string `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// LoadConfig reads configuration from environment variables. ERP credentials
// are optional here; a missing setting surfaces as an *odoo.ConfigurationError
// on first use so the server can still answer health checks.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.ReportLimit < 0 {
		return nil, errors.New("REPORT_LIMIT must not be negative")
	}
	if cfg.ExportRateLimit <= 0 {
		return nil, errors.New("EXPORT_RATE_LIMIT must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// OdooConfig returns the ERP connection settings.
func (c *Config) OdooConfig() odoo.Config {
	return odoo.Config{
		URL:      strings.TrimSpace(c.OdooURL),
		Database: strings.TrimSpace(c.OdooDB),
		Username: strings.TrimSpace(c.OdooUsername),
		Password: c.OdooPassword,
		Timeout:  c.OdooTimeout,
	}
}

// AccountRules returns the configured receivable account prefixes.
func (c *Config) AccountRules() receivables.AccountRules {
	return receivables.AccountRules{
		Include: receivables.ParsePrefixes(c.ReceivablePrefixes),
		Exclude: receivables.ParsePrefixes(c.ExcludedPrefixes),
	}
}

// ServiceOptions assembles pipeline options around observer.
func (c *Config) ServiceOptions(observer receivables.Observer) receivables.Options {
	return receivables.Options{
		Rules:               c.AccountRules(),
		Observer:            observer,
		Limit:               c.ReportLimit,
		IncludePaymentState: c.IncludePaymentState,
	}
}
