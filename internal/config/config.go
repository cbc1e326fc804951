package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Email     EmailConfig     `yaml:"email"`
	Log       LogConfig       `yaml:"log"`
	Billing   BillingConfig   `yaml:"billing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Cron      CronConfig      `yaml:"cron"`
	Processor ProcessorConfig `yaml:"processor"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// EmailConfig contains SendGrid settings
type EmailConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
	OpsEmail  string `yaml:"ops_email"` // operator escalation address
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// BillingConfig contains platform fee and proration settings
type BillingConfig struct {
	ShortTermFeeRate   float64 `yaml:"short_term_fee_rate"`
	LongTermFeeRate    float64 `yaml:"long_term_fee_rate"`
	FeeThresholdMonths int     `yaml:"fee_threshold_months"`
	ReferenceTimezone  string  `yaml:"reference_timezone"` // anchors due-date and retry-day boundaries
}

// SchedulerConfig contains cron schedule settings
type SchedulerConfig struct {
	ProcessDuePayments  string `yaml:"process_due_payments"`
	RetryFailedPayments string `yaml:"retry_failed_payments"`
}

// CronConfig secures the HTTP cron trigger endpoints
type CronConfig struct {
	Secret string `yaml:"secret"`
}

// ProcessorConfig contains payment processor API settings
type ProcessorConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	WebhookSecret  string `yaml:"webhook_secret"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	if val := os.Getenv("DB_HOST"); val != "" {
		c.Database.Host = val
	}
	if val := os.Getenv("DB_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Database.Port)
	}
	if val := os.Getenv("DB_USER"); val != "" {
		c.Database.User = val
	}
	if val := os.Getenv("DB_PASSWORD"); val != "" {
		c.Database.Password = val
	}
	if val := os.Getenv("DB_NAME"); val != "" {
		c.Database.Database = val
	}
	if val := os.Getenv("DB_SSL_MODE"); val != "" {
		c.Database.SSLMode = val
	}

	// Email
	if val := os.Getenv("SENDGRID_API_KEY"); val != "" {
		c.Email.APIKey = val
	}
	if val := os.Getenv("EMAIL_FROM"); val != "" {
		c.Email.FromEmail = val
	}
	if val := os.Getenv("EMAIL_OPS"); val != "" {
		c.Email.OpsEmail = val
	}

	// Server
	if val := os.Getenv("SERVER_HOST"); val != "" {
		c.Server.Host = val
	}
	if val := os.Getenv("SERVER_PORT"); val != "" {
		fmt.Sscanf(val, "%d", &c.Server.Port)
	}

	// Log
	if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = val
	}

	// Cron
	if val := os.Getenv("CRON_SECRET"); val != "" {
		c.Cron.Secret = val
	}

	// Processor
	if val := os.Getenv("PROCESSOR_BASE_URL"); val != "" {
		c.Processor.BaseURL = val
	}
	if val := os.Getenv("PROCESSOR_API_KEY"); val != "" {
		c.Processor.APIKey = val
	}
	if val := os.Getenv("PROCESSOR_WEBHOOK_SECRET"); val != "" {
		c.Processor.WebhookSecret = val
	}

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	// Email validation
	if c.Email.APIKey == "" {
		return fmt.Errorf("email API key is required")
	}
	if c.Email.FromEmail == "" {
		return fmt.Errorf("email from address is required")
	}

	// Cron validation
	if c.Cron.Secret == "" {
		return fmt.Errorf("cron secret is required")
	}

	// Processor validation
	if c.Processor.BaseURL == "" {
		return fmt.Errorf("processor base URL is required")
	}
	if c.Processor.APIKey == "" {
		return fmt.Errorf("processor API key is required")
	}
	if c.Processor.WebhookSecret == "" {
		return fmt.Errorf("processor webhook secret is required")
	}
	if c.Processor.TimeoutSeconds <= 0 {
		c.Processor.TimeoutSeconds = 30
	}

	// Billing defaults
	if c.Billing.ShortTermFeeRate == 0 {
		c.Billing.ShortTermFeeRate = 0.03
	}
	if c.Billing.LongTermFeeRate == 0 {
		c.Billing.LongTermFeeRate = 0.015
	}
	if c.Billing.FeeThresholdMonths == 0 {
		c.Billing.FeeThresholdMonths = 6
	}
	if c.Billing.ReferenceTimezone == "" {
		c.Billing.ReferenceTimezone = "America/New_York"
	}
	if _, err := time.LoadLocation(c.Billing.ReferenceTimezone); err != nil {
		return fmt.Errorf("invalid reference timezone %q: %w", c.Billing.ReferenceTimezone, err)
	}

	// Scheduler defaults
	if c.Scheduler.ProcessDuePayments == "" {
		c.Scheduler.ProcessDuePayments = "0 0 6 * * *" // 6 AM UTC daily
	}
	if c.Scheduler.RetryFailedPayments == "" {
		c.Scheduler.RetryFailedPayments = "0 0 7 * * *" // 7 AM UTC daily
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location resolves the configured reference timezone. Validate has already
// checked it parses, so a failure here falls back to UTC.
func (c *BillingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReferenceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ProcessorTimeout returns the per-request processor timeout.
func (c *ProcessorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
