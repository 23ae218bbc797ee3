package config

import (
	"flag"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/classgate/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address
//	-d string   PostgreSQL DSN
//	-s string   session token HMAC secret
//	-k string   admin token HMAC secret
//	-t int      session token validity, minutes
//	-m int      admin token validity, minutes
//	-u string   upstream API base URL
//	-o string   upstream organisation code
//	-r string   Redis address
//	-l string   log format (json, text, zap)
//	-origins    comma separated CORS origins
//	-prod       production cookie attributes (use -prod=true / -prod=false)
//
// Duration flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-g", "-d", "-s", "-k", "-t", "-m", "-u", "-o", "-r", "-l", "-origins", "-prod",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run HTTP server")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "address and port to run gRPC health server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "session secret key")
	fs.StringVar(&config.AdminSecretKey, "k", config.AdminSecretKey, "admin secret key")

	sessionValidity := fs.Int("t", int(config.SessionTokenValidityDuration.Minutes()), "session token validity (in minutes)")
	adminValidity := fs.Int("m", int(config.AdminTokenValidityDuration.Minutes()), "admin token validity (in minutes)")

	fs.StringVar(&config.UpstreamBaseURL, "u", config.UpstreamBaseURL, "upstream API base URL")
	fs.StringVar(&config.UpstreamOrgCode, "o", config.UpstreamOrgCode, "upstream organisation code")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format: json, text or zap")
	origins := fs.String("origins", strings.Join(config.AllowedOrigins, ","), "allowed CORS origins")
	fs.BoolVar(&config.Production, "prod", config.Production, "production mode")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.SessionTokenValidityDuration = time.Duration(*sessionValidity) * time.Minute
	config.AdminTokenValidityDuration = time.Duration(*adminValidity) * time.Minute
	config.AllowedOrigins = splitList(*origins)
}
