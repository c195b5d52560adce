package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "")
	t.Setenv("ALLOWED_ORIGINS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mock", cfg.Payment.Provider)
	assert.Equal(t, "INR", cfg.Payment.Currency)
	assert.Equal(t, []string{"*"}, cfg.App.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.Cache.StatsTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.RedisAddr())
}

func TestLoad_PaymentConfig(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "razorpay")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_123")
	t.Setenv("RAZORPAY_KEY_SECRET", "secret")
	t.Setenv("PAYMENT_RECEIPT_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "rzp_test_123", cfg.Payment.KeyID)
	assert.Equal(t, 5*time.Second, cfg.Payment.ReceiptTimeout)
}

func TestLoad_RazorpayRequiresCredentials(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "razorpay")
	t.Setenv("RAZORPAY_KEY_ID", "")
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("PAYMENT_PROVIDER", "mock")
	t.Setenv("ALLOWED_ORIGINS", "https://portal.example.com, https://admin.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://portal.example.com", "https://admin.example.com"}, cfg.App.AllowedOrigins)
}
