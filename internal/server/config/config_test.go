package config

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"testbin"}, args...)
}

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, ":50051", c.GRPCHealthAddr)
	assert.Equal(t, 12*time.Hour, c.SessionTokenValidityDuration)
	assert.Equal(t, 2*time.Hour, c.AdminTokenValidityDuration)
	assert.False(t, c.Production)
	assert.Equal(t, 5, c.OTPMaxAttempts)
	assert.Equal(t, []string{"http://localhost:3000"}, c.AllowedOrigins)
}

func TestLoadConfig_UsesDefaultsWithoutOverrides(t *testing.T) {
	withArgs(t)

	c := LoadConfig()
	require.NotNil(t, c)

	var want Config
	want.LoadDefaults()
	assert.Empty(t, cmp.Diff(&want, c))
}

func TestParseFlags(t *testing.T) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.PanicOnError)
	withArgs(t,
		"-a", "127.0.0.1:9000", "-g", ":6000", "-d", "db", "-s", "secret", "-k", "admin",
		"-t", "60", "-m", "30", "-u", "http://up", "-o", "org", "-r", "redis:6379",
		"-l", "zap", "-origins", "https://a.example, https://b.example", "-prod=true",
	)

	c := &Config{}
	c.LoadDefaults()
	require.NotPanics(t, func() { parseFlags(c) })

	assert.Equal(t, "127.0.0.1:9000", c.HTTPAddr)
	assert.Equal(t, ":6000", c.GRPCHealthAddr)
	assert.Equal(t, "db", c.DatabaseDSN)
	assert.Equal(t, "secret", c.SecretKey)
	assert.Equal(t, "admin", c.AdminSecretKey)
	assert.Equal(t, time.Hour, c.SessionTokenValidityDuration)
	assert.Equal(t, 30*time.Minute, c.AdminTokenValidityDuration)
	assert.Equal(t, "http://up", c.UpstreamBaseURL)
	assert.Equal(t, "org", c.UpstreamOrgCode)
	assert.Equal(t, "redis:6379", c.RedisAddr)
	assert.Equal(t, "zap", c.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.True(t, c.Production)
}

func TestParseFlags_BadValuePanics(t *testing.T) {
	withArgs(t, "-t", "soon")

	c := &Config{}
	require.Panics(t, func() { parseFlags(c) })
}

func Test_parseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"http_addr":                       "www.example:9000",
		"database_dsn":                    "postgres://x",
		"secret_key":                      "my_secret_key",
		"session_token_validity_duration": "6h",
		"admin_token_validity_duration":   "90m",
		"production":                      true,
		"upstream_timeout":                "3s",
		"otp_max_attempts":                3,
		"allowed_origins":                 []string{"https://portal.example"},
	})

	t.Run("loads from json", func(t *testing.T) {
		withArgs(t, "-config", path)

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, "postgres://x", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 6*time.Hour, cfg.SessionTokenValidityDuration)
		assert.Equal(t, 90*time.Minute, cfg.AdminTokenValidityDuration)
		assert.True(t, cfg.Production)
		assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
		assert.Equal(t, 3, cfg.OTPMaxAttempts)
		assert.Equal(t, []string{"https://portal.example"}, cfg.AllowedOrigins)

		// untouched by the file
		assert.Equal(t, "adminSecretKey", cfg.AdminSecretKey)
		assert.Equal(t, 5, cfg.OTPRequestLimit)
	})

	t.Run("no config flag leaves config unchanged", func(t *testing.T) {
		withArgs(t)

		cfg := &Config{HTTPAddr: "defaults:1234"}
		parseJson(cfg)
		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
		withArgs(t, "-c", bad)

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}

func Test_parseEnv(t *testing.T) {
	withArgs(t)
	t.Setenv("CLASSGATE_SECRET_KEY", "from-env")
	t.Setenv("CLASSGATE_SESSION_TOKEN_VALIDITY", "30m")
	t.Setenv("CLASSGATE_PRODUCTION", "true")
	t.Setenv("CLASSGATE_OTP_REQUEST_LIMIT", "9")
	t.Setenv("CLASSGATE_ALLOWED_ORIGINS", "https://a, https://b")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "from-env", cfg.SecretKey)
	assert.Equal(t, 30*time.Minute, cfg.SessionTokenValidityDuration)
	assert.True(t, cfg.Production)
	assert.Equal(t, 9, cfg.OTPRequestLimit)
	assert.Equal(t, []string{"https://a", "https://b"}, cfg.AllowedOrigins)
}

func Test_parseEnv_DotenvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CLASSGATE_UPSTREAM_ORG_CODE=acme\n"), 0o600))
	withArgs(t, "-env", path)
	t.Cleanup(func() { os.Unsetenv("CLASSGATE_UPSTREAM_ORG_CODE") })

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "acme", cfg.UpstreamOrgCode)
}

func Test_parseEnv_MalformedPanics(t *testing.T) {
	withArgs(t)
	t.Setenv("CLASSGATE_OTP_MAX_ATTEMPTS", "many")

	require.Panics(t, func() { parseEnv(&Config{}) })
}
