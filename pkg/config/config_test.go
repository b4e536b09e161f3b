package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagnosis/taskmanager/pkg/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, config.StoreDriverPostgres, cfg.Database.Driver)
	assert.Equal(t, 30*24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 5, cfg.OTP.RateLimit)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.NotEmpty(t, cfg.Auth.JWTSecret, "development gets a fallback secret")
	assert.False(t, cfg.Email.MailerSendEnabled())
	assert.False(t, cfg.Email.SMTPEnabled())
	assert.False(t, cfg.SMS.TwilioEnabled())
}

func TestLoadRequiresSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadWithoutAppEnvIsProduction(t *testing.T) {
	t.Setenv("APP_ENV", "")
	require.NoError(t, os.Unsetenv("APP_ENV"))
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	require.Error(t, err, "no fallback secret unless development is chosen")

	t.Setenv("JWT_SECRET", "s3cret")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Server.Env)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("OTP_RATE_LIMIT", "3")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC1")
	t.Setenv("TWILIO_AUTH_TOKEN", "tok")
	t.Setenv("TWILIO_FROM_NUMBER", "+15550001111")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, config.StoreDriverMemory, cfg.Database.Driver)
	assert.Equal(t, 3, cfg.OTP.RateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.SMS.TwilioEnabled())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := config.Load()
	require.Error(t, err)
}
