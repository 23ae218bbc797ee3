package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/classgate/internal/flagx"
	"github.com/dmitrijs2005/classgate/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file.
// Zero values (and nil pointers) leave the current setting untouched, so a
// partial file overrides only what it names.
type JsonConfig struct {
	HTTPAddr                     string         `json:"http_addr"`
	GRPCHealthAddr               string         `json:"grpc_health_addr"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	AdminSecretKey               string         `json:"admin_secret_key"`
	SessionTokenValidityDuration timex.Duration `json:"session_token_validity_duration"`
	AdminTokenValidityDuration   timex.Duration `json:"admin_token_validity_duration"`
	Production                   *bool          `json:"production"`
	UpstreamBaseURL              string         `json:"upstream_base_url"`
	UpstreamOrgCode              string         `json:"upstream_org_code"`
	UpstreamTimeout              timex.Duration `json:"upstream_timeout"`
	RedisAddr                    string         `json:"redis_addr"`
	RedisPassword                string         `json:"redis_password"`
	OTPValidityDuration          timex.Duration `json:"otp_validity_duration"`
	OTPMaxAttempts               int            `json:"otp_max_attempts"`
	OTPRequestLimit              int            `json:"otp_request_limit"`
	OTPRequestWindow             timex.Duration `json:"otp_request_window"`
	AllowedOrigins               []string       `json:"allowed_origins"`
	LogFormat                    string         `json:"log_format"`
	Debug                        *bool          `json:"debug"`
	HealthCheckInterval          timex.Duration `json:"health_check_interval"`
}

// parseJson overlays values from the JSON file named by -c / -config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON
// panics: a misconfigured server must not start.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.AdminSecretKey, c.AdminSecretKey)
	setDuration(&config.SessionTokenValidityDuration, c.SessionTokenValidityDuration.Duration)
	setDuration(&config.AdminTokenValidityDuration, c.AdminTokenValidityDuration.Duration)
	if c.Production != nil {
		config.Production = *c.Production
	}
	setString(&config.UpstreamBaseURL, c.UpstreamBaseURL)
	setString(&config.UpstreamOrgCode, c.UpstreamOrgCode)
	setDuration(&config.UpstreamTimeout, c.UpstreamTimeout.Duration)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setDuration(&config.OTPValidityDuration, c.OTPValidityDuration.Duration)
	setInt(&config.OTPMaxAttempts, c.OTPMaxAttempts)
	setInt(&config.OTPRequestLimit, c.OTPRequestLimit)
	setDuration(&config.OTPRequestWindow, c.OTPRequestWindow.Duration)
	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.LogFormat, c.LogFormat)
	if c.Debug != nil {
		config.Debug = *c.Debug
	}
	setDuration(&config.HealthCheckInterval, c.HealthCheckInterval.Duration)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v time.Duration) {
	if v != 0 {
		*dst = v
	}
}
