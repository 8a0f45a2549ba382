// Package config loads the website backend configuration from environment
// variables with viper, applies defaults and validates the result.
package config

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minAdminKeyLength = 16
)

// Mail providers.
const (
	MailProviderSMTP   = "smtp"
	MailProviderResend = "resend"
)

// Audit backends.
const (
	AuditBackendRedis    = "redis"
	AuditBackendPostgres = "postgres"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// SiteURL is the public origin used for absolute links such as the sitemap.
	SiteURL string `mapstructure:"SITE_URL" yaml:"site_url"`
	// TrustedProxies are CIDRs or IPs whose X-Forwarded-For is honored.
	// Empty means forwarded headers are ignored.
	TrustedProxies []string `mapstructure:"TRUSTED_PROXIES" yaml:"trusted_proxies"`
}

// DatabaseConfig holds the PostgreSQL connection used by the postgres audit backend.
type DatabaseConfig struct {
	Host           string `mapstructure:"HOST" yaml:"host"`
	Port           int    `mapstructure:"PORT" yaml:"port"`
	User           string `mapstructure:"USER" yaml:"user"`
	Password       string `mapstructure:"PASSWORD" yaml:"password"`
	Name           string `mapstructure:"NAME" yaml:"name"`
	SSLMode        string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxConnections int    `mapstructure:"MAX_CONNECTIONS" yaml:"max_connections"`
	ConnMaxLife    string `mapstructure:"CONN_MAX_LIFE" yaml:"conn_max_life"`
}

// URL returns a postgres:// connection URL suitable for pgx and golang-migrate.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS" yaml:"address"`
	Password     string `mapstructure:"PASSWORD" yaml:"password"`
	DB           int    `mapstructure:"DB" yaml:"db"`
	UseTLS       bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
	PoolSize     int    `mapstructure:"POOL_SIZE" yaml:"pool_size"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS" yaml:"min_idle_conns"`
}

// MailConfig holds outbound mail settings for contact notifications and auto-replies.
type MailConfig struct {
	Provider string `mapstructure:"PROVIDER" yaml:"provider"`

	SMTPHost string `mapstructure:"SMTP_HOST" yaml:"smtp_host"`
	SMTPPort int    `mapstructure:"SMTP_PORT" yaml:"smtp_port"`
	SMTPUser string `mapstructure:"SMTP_USER" yaml:"smtp_user"`
	SMTPPass string `mapstructure:"SMTP_PASS" yaml:"smtp_pass"`
	// SMTPImplicitTLS dials TLS directly (port 465). Otherwise STARTTLS is used when offered.
	SMTPImplicitTLS bool `mapstructure:"SMTP_SECURE" yaml:"smtp_secure"`

	ResendAPIKey string `mapstructure:"RESEND_API_KEY" yaml:"resend_api_key"`

	// FromAddress defaults to SMTPUser. The visitor's address is never used here.
	FromAddress      string `mapstructure:"FROM_ADDRESS" yaml:"from_address"`
	FromName         string `mapstructure:"FROM_NAME" yaml:"from_name"`
	AutoReplyName    string `mapstructure:"AUTOREPLY_FROM_NAME" yaml:"autoreply_from_name"`
	ToAddress        string `mapstructure:"TO_ADDRESS" yaml:"to_address"`
	SubjectPrefix    string `mapstructure:"SUBJECT_PREFIX" yaml:"subject_prefix"`
	AutoReplyEnabled bool   `mapstructure:"AUTOREPLY_ENABLED" yaml:"autoreply_enabled"`

	ConnectTimeout time.Duration `mapstructure:"CONNECT_TIMEOUT" yaml:"connect_timeout"`
	SendTimeout    time.Duration `mapstructure:"SEND_TIMEOUT" yaml:"send_timeout"`
}

// ContactConfig holds the admission policy of the contact form.
type ContactConfig struct {
	// MinFillTime is the minimum time between form render and submit.
	MinFillTime time.Duration `mapstructure:"MIN_FILL_TIME" yaml:"min_fill_time"`
	// PolicyFile optionally points at a YAML file overriding classifier thresholds.
	PolicyFile string `mapstructure:"POLICY_FILE" yaml:"policy_file"`
}

// RateLimitConfig holds configuration for the contact submission limiter.
type RateLimitConfig struct {
	MaxSubmissions int           `mapstructure:"MAX_SUBMISSIONS" yaml:"max_submissions"`
	Window         time.Duration `mapstructure:"WINDOW" yaml:"window"`
	// FailClosed rejects submissions when the counter store is unreachable.
	FailClosed bool `mapstructure:"FAIL_CLOSED" yaml:"fail_closed"`
	// CSPReportsPerMinute caps violation reports per client.
	CSPReportsPerMinute int `mapstructure:"CSP_REPORTS_PER_MINUTE" yaml:"csp_reports_per_minute"`
}

// AuditConfig holds configuration for the admission audit trail.
type AuditConfig struct {
	Enabled   bool          `mapstructure:"ENABLED" yaml:"enabled"`
	Backend   string        `mapstructure:"BACKEND" yaml:"backend"`
	Retention time.Duration `mapstructure:"RETENTION" yaml:"retention"`
	// HashSalt keys the email digest. Empty falls back to a plain SHA-256.
	HashSalt string `mapstructure:"HASH_SALT" yaml:"hash_salt"`
	// DefaultListLimit and MaxListLimit bound the admin listing.
	DefaultListLimit int `mapstructure:"DEFAULT_LIST_LIMIT" yaml:"default_list_limit"`
	MaxListLimit     int `mapstructure:"MAX_LIST_LIMIT" yaml:"max_list_limit"`
}

// AdminConfig holds the credential for the audit read endpoint.
type AdminConfig struct {
	// APIKey is compared against the bearer token. Empty disables the endpoint.
	APIKey string `mapstructure:"API_KEY" yaml:"api_key"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server    ServerConfig    `mapstructure:"SERVER" yaml:"server"`
	Database  DatabaseConfig  `mapstructure:"DATABASE" yaml:"database"`
	Redis     RedisConfig     `mapstructure:"REDIS" yaml:"redis"`
	Mail      MailConfig      `mapstructure:"MAIL" yaml:"mail"`
	Contact   ContactConfig   `mapstructure:"CONTACT" yaml:"contact"`
	RateLimit RateLimitConfig `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
	Audit     AuditConfig     `mapstructure:"AUDIT" yaml:"audit"`
	Admin     AdminConfig     `mapstructure:"ADMIN" yaml:"admin"`
}

// IsDevelopment returns true if the application is running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// UsesPostgres reports whether any component needs a database pool.
func (c *Config) UsesPostgres() bool {
	return c.Audit.Enabled && c.Audit.Backend == AuditBackendPostgres
}

// bindEnvVars binds environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.TRUSTED_PROXIES", []string{})
	v.SetDefault("SERVER.SITE_URL", "https://smartclientcrm.com")
	v.SetDefault("SERVER.VERSION", "dev")

	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "smartconnect_website")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_CONNECTIONS", 4)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")

	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 5)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)

	v.SetDefault("MAIL.PROVIDER", MailProviderSMTP)
	v.SetDefault("MAIL.SMTP_PORT", 587)
	v.SetDefault("MAIL.SMTP_SECURE", false)
	v.SetDefault("MAIL.FROM_NAME", "SmartConnect Website")
	v.SetDefault("MAIL.AUTOREPLY_FROM_NAME", "SmartConnect CRM UG")
	v.SetDefault("MAIL.SUBJECT_PREFIX", "[Website Anfrage]")
	v.SetDefault("MAIL.AUTOREPLY_ENABLED", false)
	v.SetDefault("MAIL.CONNECT_TIMEOUT", 12*time.Second)
	v.SetDefault("MAIL.SEND_TIMEOUT", 20*time.Second)

	v.SetDefault("CONTACT.MIN_FILL_TIME", 1200*time.Millisecond)
	v.SetDefault("CONTACT.POLICY_FILE", "")

	v.SetDefault("RATE_LIMIT.MAX_SUBMISSIONS", 5)
	v.SetDefault("RATE_LIMIT.WINDOW", 10*time.Minute)
	v.SetDefault("RATE_LIMIT.FAIL_CLOSED", false)
	v.SetDefault("RATE_LIMIT.CSP_REPORTS_PER_MINUTE", 60)

	v.SetDefault("AUDIT.ENABLED", true)
	v.SetDefault("AUDIT.BACKEND", AuditBackendRedis)
	v.SetDefault("AUDIT.RETENTION", 30*24*time.Hour)
	v.SetDefault("AUDIT.HASH_SALT", "")
	v.SetDefault("AUDIT.DEFAULT_LIST_LIMIT", 50)
	v.SetDefault("AUDIT.MAX_LIST_LIMIT", 200)

	v.SetDefault("ADMIN.API_KEY", "")
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, unmarshals and validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	setDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.TRUSTED_PROXIES", "TRUSTED_PROXIES"},
		{"SERVER.SITE_URL", "SITE_URL"},
		{"SERVER.VERSION", "APP_VERSION"},
		// Database config
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		// Redis config
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		// Mail config
		{"MAIL.PROVIDER", "MAIL_PROVIDER"},
		{"MAIL.SMTP_HOST", "SMTP_HOST"},
		{"MAIL.SMTP_PORT", "SMTP_PORT"},
		{"MAIL.SMTP_USER", "SMTP_USER"},
		{"MAIL.SMTP_PASS", "SMTP_PASS"},
		{"MAIL.SMTP_SECURE", "SMTP_SECURE"},
		{"MAIL.RESEND_API_KEY", "RESEND_API_KEY"},
		{"MAIL.FROM_ADDRESS", "CONTACT_FROM_EMAIL"},
		{"MAIL.FROM_NAME", "CONTACT_FROM_NAME"},
		{"MAIL.TO_ADDRESS", "CONTACT_TO_EMAIL"},
		{"MAIL.AUTOREPLY_ENABLED", "CONTACT_AUTOREPLY_ENABLED"},
		{"MAIL.CONNECT_TIMEOUT", "SMTP_CONNECT_TIMEOUT"},
		{"MAIL.SEND_TIMEOUT", "SMTP_SEND_TIMEOUT"},
		// Contact policy
		{"CONTACT.MIN_FILL_TIME", "CONTACT_MIN_FILL_TIME"},
		{"CONTACT.POLICY_FILE", "CONTACT_POLICY_FILE"},
		// Rate limit config
		{"RATE_LIMIT.MAX_SUBMISSIONS", "RATE_LIMIT_MAX_SUBMISSIONS"},
		{"RATE_LIMIT.WINDOW", "RATE_LIMIT_WINDOW"},
		{"RATE_LIMIT.FAIL_CLOSED", "RATE_LIMIT_FAIL_CLOSED"},
		{"RATE_LIMIT.CSP_REPORTS_PER_MINUTE", "CSP_REPORTS_PER_MINUTE"},
		// Audit config
		{"AUDIT.ENABLED", "AUDIT_LOG_ENABLED"},
		{"AUDIT.BACKEND", "AUDIT_LOG_BACKEND"},
		{"AUDIT.RETENTION", "AUDIT_LOG_RETENTION"},
		{"AUDIT.HASH_SALT", "AUDIT_HASH_SALT"},
		// Admin
		{"ADMIN.API_KEY", "ADMIN_API_KEY"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"allowed_origins", cfg.Server.AllowedOrigins,
		"trusted_proxies", cfg.Server.TrustedProxies,
		"mail_provider", cfg.Mail.Provider,
		"mail_to", logger.MaskEmail(cfg.Mail.ToAddress),
		"autoreply_enabled", cfg.Mail.AutoReplyEnabled,
		"rate_limit_max", cfg.RateLimit.MaxSubmissions,
		"rate_limit_window", cfg.RateLimit.Window.String(),
		"rate_limit_fail_closed", cfg.RateLimit.FailClosed,
		"audit_enabled", cfg.Audit.Enabled,
		"audit_backend", cfg.Audit.Backend,
		"admin_endpoint_enabled", cfg.Admin.APIKey != "",
	)
	return &cfg, nil
}

// validateConfig checks the loaded values and fills derived defaults.
func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if cfg.Server.Environment != EnvDevelopment && cfg.Server.Environment != EnvProduction {
		return fmt.Errorf("unknown environment %q", cfg.Server.Environment)
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}
	if _, err := url.ParseRequestURI(cfg.Server.SiteURL); err != nil {
		return fmt.Errorf("invalid site url '%s': %w", cfg.Server.SiteURL, err)
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if err := validateMailConfig(&cfg.Mail); err != nil {
		return err
	}

	if cfg.Contact.MinFillTime < 0 {
		return fmt.Errorf("contact min fill time must not be negative")
	}

	if cfg.RateLimit.MaxSubmissions <= 0 {
		return fmt.Errorf("rate limit max submissions must be positive")
	}
	if cfg.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if cfg.RateLimit.CSPReportsPerMinute <= 0 {
		return fmt.Errorf("csp reports per minute must be positive")
	}

	switch cfg.Audit.Backend {
	case AuditBackendRedis, AuditBackendPostgres:
	default:
		return fmt.Errorf("unknown audit backend %q", cfg.Audit.Backend)
	}
	if cfg.Audit.Retention <= 0 {
		return fmt.Errorf("audit retention must be positive")
	}
	if cfg.Audit.DefaultListLimit <= 0 || cfg.Audit.MaxListLimit < cfg.Audit.DefaultListLimit {
		return fmt.Errorf("audit list limits must be positive with max >= default")
	}
	if cfg.UsesPostgres() {
		if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Name == "" {
			return fmt.Errorf("database host, user and name are required for the postgres audit backend")
		}
	}

	if cfg.Admin.APIKey == "" {
		log.Warn("ADMIN_API_KEY not set, contact log endpoint will reject every request")
	} else if len(cfg.Admin.APIKey) < minAdminKeyLength {
		return fmt.Errorf("admin API key must be at least %d characters long", minAdminKeyLength)
	}

	return nil
}

func validateMailConfig(cfg *MailConfig) error {
	switch cfg.Provider {
	case MailProviderSMTP:
		if cfg.SMTPHost == "" {
			return fmt.Errorf("smtp host is required")
		}
		if cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535 {
			return fmt.Errorf("smtp port %d out of range", cfg.SMTPPort)
		}
		if cfg.SMTPUser == "" {
			return fmt.Errorf("smtp user is required")
		}
	case MailProviderResend:
		if cfg.ResendAPIKey == "" {
			return fmt.Errorf("resend API key is required")
		}
	default:
		return fmt.Errorf("unknown mail provider %q", cfg.Provider)
	}

	if cfg.FromAddress == "" {
		cfg.FromAddress = cfg.SMTPUser
	}
	if cfg.ToAddress == "" {
		cfg.ToAddress = cfg.SMTPUser
	}
	if _, err := mail.ParseAddress(cfg.FromAddress); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if _, err := mail.ParseAddress(cfg.ToAddress); err != nil {
		return fmt.Errorf("invalid destination address: %w", err)
	}

	if cfg.ConnectTimeout <= 0 || cfg.SendTimeout <= 0 {
		return fmt.Errorf("mail timeouts must be positive")
	}
	if cfg.ConnectTimeout > cfg.SendTimeout {
		return fmt.Errorf("mail connect timeout must not exceed send timeout")
	}
	return nil
}

// containsWildcard checks if the list of allowed origins contains the wildcard "*".
func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
