package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/classgate/internal/flagx"
	"github.com/joho/godotenv"
)

// envPrefix namespaces every environment variable read by the server.
const envPrefix = "CLASSGATE_"

// parseEnv overlays CLASSGATE_* environment variables. Values from the
// dotenv file named by -env (or ./.env when present) are loaded first; real
// environment variables win over the file.
func parseEnv(config *Config) {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := godotenv.Load(path); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	envString(&config.HTTPAddr, "HTTP_ADDR")
	envString(&config.GRPCHealthAddr, "GRPC_HEALTH_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.SecretKey, "SECRET_KEY")
	envString(&config.AdminSecretKey, "ADMIN_SECRET_KEY")
	envDuration(&config.SessionTokenValidityDuration, "SESSION_TOKEN_VALIDITY")
	envDuration(&config.AdminTokenValidityDuration, "ADMIN_TOKEN_VALIDITY")
	envBool(&config.Production, "PRODUCTION")
	envString(&config.UpstreamBaseURL, "UPSTREAM_BASE_URL")
	envString(&config.UpstreamOrgCode, "UPSTREAM_ORG_CODE")
	envDuration(&config.UpstreamTimeout, "UPSTREAM_TIMEOUT")
	envString(&config.RedisAddr, "REDIS_ADDR")
	envString(&config.RedisPassword, "REDIS_PASSWORD")
	envDuration(&config.OTPValidityDuration, "OTP_VALIDITY")
	envInt(&config.OTPMaxAttempts, "OTP_MAX_ATTEMPTS")
	envInt(&config.OTPRequestLimit, "OTP_REQUEST_LIMIT")
	envDuration(&config.OTPRequestWindow, "OTP_REQUEST_WINDOW")
	if v := lookupEnv("ALLOWED_ORIGINS"); v != "" {
		config.AllowedOrigins = splitList(v)
	}
	envString(&config.LogFormat, "LOG_FORMAT")
	envBool(&config.Debug, "DEBUG")
	envDuration(&config.HealthCheckInterval, "HEALTH_CHECK_INTERVAL")
}

func lookupEnv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func envString(dst *string, key string) {
	if v := lookupEnv(key); v != "" {
		*dst = v
	}
}

// Malformed numeric values panic for the same reason invalid JSON does.
func envInt(dst *int, key string) {
	v := lookupEnv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(err)
	}
	*dst = n
}

func envBool(dst *bool, key string) {
	v := lookupEnv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		panic(err)
	}
	*dst = b
}

func envDuration(dst *time.Duration, key string) {
	v := lookupEnv(key)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
