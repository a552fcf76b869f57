package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/berniyo/daraja-gateway/internal/mpesa"
)

func requiredEnv() []string {
	return []string{
		"MPESA_CONSUMER_KEY=key",
		"MPESA_CONSUMER_SECRET=secret",
		"PASSKEY=passkey",
		"BUSINESS_SHORTCODE=174379",
		"CALLBACK_URL=https://example.com/callback",
		"BASE_URL=https://sandbox.safaricom.co.ke",
		"PHONE_NUMBER=254708374149",
		"ACCOUNT_REFERENCE=ORDER-1",
	}
}

func TestFromEnvironDefaults(t *testing.T) {
	cfg, err := FromEnviron(requiredEnv())
	require.NoError(t, err)
	require.True(t, cfg.TokenCache)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Zero(t, cfg.STKPushRateLimit)

	m, err := cfg.Mpesa()
	require.NoError(t, err)
	require.Equal(t, "174379", m.BusinessShortCode)
	require.Equal(t, time.Local, m.Location)
	require.True(t, m.TokenCache)
	require.ElementsMatch(t, []string{"key", "secret", "passkey"}, m.Secrets())
}

func TestFromEnvironOverrides(t *testing.T) {
	environ := append(requiredEnv(),
		"MPESA_TIMEZONE=Africa/Nairobi",
		"MPESA_TOKEN_CACHE=false",
		"MPESA_HTTP_TIMEOUT=3s",
		"STK_PUSH_RATE_LIMIT=0.5",
		"LOG_FORMAT=json",
	)

	cfg, err := FromEnviron(environ)
	require.NoError(t, err)
	require.False(t, cfg.TokenCache)
	require.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	require.Equal(t, 0.5, cfg.STKPushRateLimit)
	require.Equal(t, "json", cfg.LogFormat)
	m, err := cfg.Mpesa()
	require.NoError(t, err)
	require.Equal(t, "Africa/Nairobi", m.Location.String())
}

func TestMpesaReportsBadTimezoneWithoutValidate(t *testing.T) {
	cfg := &Config{Timezone: "Mars/Olympus"}

	m, err := cfg.Mpesa()
	require.Nil(t, m)
	require.ErrorContains(t, err, "MPESA_TIMEZONE")
}

func TestFromEnvironListsEveryMissingValue(t *testing.T) {
	_, err := FromEnviron([]string{"MPESA_CONSUMER_KEY=key", "PASSKEY= "})

	var cfgErr *mpesa.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, []string{
		"MPESA_CONSUMER_SECRET",
		"PASSKEY",
		"BUSINESS_SHORTCODE",
		"CALLBACK_URL",
		"BASE_URL",
		"PHONE_NUMBER",
		"ACCOUNT_REFERENCE",
	}, cfgErr.Missing)
}

func TestFromEnvironRejectsBadValues(t *testing.T) {
	_, err := FromEnviron(append(requiredEnv(), "MPESA_TIMEZONE=Mars/Olympus"))
	require.ErrorContains(t, err, "MPESA_TIMEZONE")

	_, err = FromEnviron(append(requiredEnv(), "MPESA_HTTP_TIMEOUT=0s"))
	require.ErrorContains(t, err, "MPESA_HTTP_TIMEOUT")

	_, err = FromEnviron(append(requiredEnv(), "STK_PUSH_RATE_LIMIT=-1"))
	require.ErrorContains(t, err, "STK_PUSH_RATE_LIMIT")

	_, err = FromEnviron(append(requiredEnv(), "MPESA_TOKEN_CACHE=maybe"))
	require.Error(t, err)
}

func TestLoadReadsDotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := strings.Join(requiredEnv(), "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	keys := []string{
		"MPESA_CONSUMER_KEY", "MPESA_CONSUMER_SECRET", "PASSKEY", "BUSINESS_SHORTCODE",
		"CALLBACK_URL", "BASE_URL", "PHONE_NUMBER", "ACCOUNT_REFERENCE",
	}
	for _, k := range keys {
		// t.Setenv restores the previous value; Unsetenv leaves the slot empty for godotenv.
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	t.Setenv("BUSINESS_SHORTCODE", "600000")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "key", cfg.ConsumerKey)
	require.Equal(t, "600000", cfg.BusinessShortCode, "environment wins over the file")
}

func TestLoadMissingFileFallsBackToEnvironment(t *testing.T) {
	for _, kv := range requiredEnv() {
		k, v, _ := strings.Cut(kv, "=")
		t.Setenv(k, v)
	}

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	require.Equal(t, "ORDER-1", cfg.AccountReference)
}
