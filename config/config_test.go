package config

import (
	"testing"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logger.IsTest = true
}

func baseEnv() map[string]string {
	return map[string]string{
		"ENVIRONMENT": "development",
		"SMTP_HOST":   "smtp.example.de",
		"SMTP_USER":   "website@smartclientcrm.com",
		"SMTP_PASS":   "secret",
	}
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		envVars     map[string]string
		expectError bool
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:    "defaults",
			envVars: baseEnv(),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "8080", cfg.Server.Port)
				assert.Equal(t, 5, cfg.RateLimit.MaxSubmissions)
				assert.Equal(t, 10*time.Minute, cfg.RateLimit.Window)
				assert.False(t, cfg.RateLimit.FailClosed)
				assert.Equal(t, 1200*time.Millisecond, cfg.Contact.MinFillTime)
				assert.Equal(t, 12*time.Second, cfg.Mail.ConnectTimeout)
				assert.Equal(t, 20*time.Second, cfg.Mail.SendTimeout)
				assert.Equal(t, 30*24*time.Hour, cfg.Audit.Retention)
				assert.Equal(t, "[Website Anfrage]", cfg.Mail.SubjectPrefix)
				// sender and destination fall back to the SMTP account
				assert.Equal(t, "website@smartclientcrm.com", cfg.Mail.FromAddress)
				assert.Equal(t, "website@smartclientcrm.com", cfg.Mail.ToAddress)
				assert.False(t, cfg.Mail.AutoReplyEnabled)
				assert.True(t, cfg.Audit.Enabled)
				assert.Equal(t, AuditBackendRedis, cfg.Audit.Backend)
			},
		},
		{
			name: "overrides from environment",
			envVars: merge(baseEnv(), map[string]string{
				"CONTACT_TO_EMAIL":          "vertrieb@smartclientcrm.com",
				"CONTACT_AUTOREPLY_ENABLED": "true",
				"RATE_LIMIT_FAIL_CLOSED":    "true",
				"RATE_LIMIT_WINDOW":         "5m",
				"AUDIT_LOG_ENABLED":         "false",
				"ADMIN_API_KEY":             "0123456789abcdef0123",
				"TRUSTED_PROXIES":           "10.0.0.0/8",
			}),
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "vertrieb@smartclientcrm.com", cfg.Mail.ToAddress)
				assert.True(t, cfg.Mail.AutoReplyEnabled)
				assert.True(t, cfg.RateLimit.FailClosed)
				assert.Equal(t, 5*time.Minute, cfg.RateLimit.Window)
				assert.False(t, cfg.Audit.Enabled)
				assert.Equal(t, "0123456789abcdef0123", cfg.Admin.APIKey)
				assert.Equal(t, []string{"10.0.0.0/8"}, cfg.Server.TrustedProxies)
			},
		},
		{
			name:        "missing smtp host",
			envVars:     map[string]string{"SMTP_USER": "website@smartclientcrm.com"},
			expectError: true,
		},
		{
			name: "resend provider needs api key",
			envVars: merge(baseEnv(), map[string]string{
				"MAIL_PROVIDER": "resend",
			}),
			expectError: true,
		},
		{
			name: "short admin key",
			envVars: merge(baseEnv(), map[string]string{
				"ADMIN_API_KEY": "short",
			}),
			expectError: true,
		},
		{
			name: "unknown audit backend",
			envVars: merge(baseEnv(), map[string]string{
				"AUDIT_LOG_BACKEND": "s3",
			}),
			expectError: true,
		},
		{
			name: "invalid destination address",
			envVars: merge(baseEnv(), map[string]string{
				"CONTACT_TO_EMAIL": "not an address",
			}),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := LoadConfig()
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestDatabaseConfigURL(t *testing.T) {
	cfg := &DatabaseConfig{Host: "db", Port: 5432, User: "audit", Password: "p@ss word", Name: "website"}
	assert.Equal(t, "postgres://audit:p%40ss+word@db:5432/website?sslmode=disable", cfg.URL())
}

func TestUsesPostgres(t *testing.T) {
	cfg := &Config{Audit: AuditConfig{Enabled: true, Backend: AuditBackendPostgres}}
	assert.True(t, cfg.UsesPostgres())
	cfg.Audit.Enabled = false
	assert.False(t, cfg.UsesPostgres())
}

func merge(a, b map[string]string) map[string]string {
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
