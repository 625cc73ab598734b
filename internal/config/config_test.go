package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the loader reads so the host environment
// cannot leak into assertions
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "APP_ENV", "LOG_LEVEL", "GIN_MODE", "FRONTEND_ORIGIN", "RATE_LIMIT_PER_HOUR",
		"DATABASE_URL", "REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "REDIS_DB",
		"SECRET_KEY", "ALGORITHM", "ACCESS_TOKEN_EXPIRE_MINUTES", "OTP_EXP", "OTP_RESEND_WINDOW",
		"PAYPAL_MODE", "PAYPAL_CLIENT_ID", "PAYPAL_CLIENT_SECRET", "PAYPAL_API_BASE",
		"PAYPAL_WEBHOOK_ID", "PAYPAL_ALLOW_UNVERIFIED_WEBHOOKS", "PAYPAL_CURRENCY",
		"PAYPAL_RETURN_URL", "PAYPAL_CANCEL_URL",
		"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "FROM_EMAIL",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFrom_EnvironmentOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://donations@localhost/donations")
	t.Setenv("SECRET_KEY", "s3cret")
	t.Setenv("OTP_EXP", "120")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("PAYPAL_WEBHOOK_ID", "WH-123")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "postgres://donations@localhost/donations", cfg.DSN)
	assert.Equal(t, "cache:6380", cfg.RedisAddr)
	assert.Equal(t, 120*time.Second, cfg.OTP_TTL)
	assert.Equal(t, 60*time.Second, cfg.OTP_ResendWindow)
	assert.Equal(t, "HS256", cfg.JWTAlgorithm)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL)
	assert.Equal(t, sandboxAPIBase, cfg.PayPalAPIBase)
	assert.Equal(t, "WH-123", cfg.PayPalWebhookID)
	assert.False(t, cfg.WebhookVerificationDisabled())
}

func TestLoadFrom_FileWithEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
app:
  port: 9090
  rate_limit_per_hour: 50
database:
  dsn: postgres://file
jwt:
  secret: from-file
  algorithm: hs512
  access_expire_minutes: 15
otp:
  ttl_seconds: 600
  resend_window: 0s
paypal:
  mode: live
  currency: eur
smtp:
  host: smtp.example.com
  from_email: noreply@example.com
`)
	t.Setenv("SECRET_KEY", "from-env")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 50, cfg.RateLimitPerHour)
	assert.Equal(t, "from-env", cfg.JWTSecret, "environment wins over file")
	assert.Equal(t, "HS512", cfg.JWTAlgorithm)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTP_TTL)
	assert.Equal(t, time.Duration(0), cfg.OTP_ResendWindow)
	assert.Equal(t, liveAPIBase, cfg.PayPalAPIBase)
	assert.Equal(t, "EUR", cfg.PayPalCurrency)
	assert.Equal(t, "smtp.example.com", cfg.SMTPHost)
	assert.Equal(t, 587, cfg.SMTPPort)
}

func TestLoadFrom_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing database url",
			env:     map[string]string{"SECRET_KEY": "x"},
			wantErr: "DATABASE_URL is required",
		},
		{
			name:    "missing secret",
			env:     map[string]string{"DATABASE_URL": "postgres://x"},
			wantErr: "SECRET_KEY is required",
		},
		{
			name:    "unsupported algorithm",
			env:     map[string]string{"DATABASE_URL": "postgres://x", "SECRET_KEY": "x", "ALGORITHM": "RS256"},
			wantErr: `unsupported ALGORITHM "RS256"`,
		},
		{
			name:    "non-positive otp ttl",
			env:     map[string]string{"DATABASE_URL": "postgres://x", "SECRET_KEY": "x", "OTP_EXP": "0"},
			wantErr: "OTP_EXP must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFrom("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "app: [unterminated")
	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not parse config yaml")
}

func TestConfig_WebhookVerificationDisabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.WebhookVerificationDisabled(), "empty webhook id alone is not the insecure mode")

	cfg.PayPalAllowUnverifiedWebhook = true
	assert.True(t, cfg.WebhookVerificationDisabled())

	cfg.PayPalWebhookID = "WH-1"
	assert.False(t, cfg.WebhookVerificationDisabled(), "a configured id always verifies")
}
