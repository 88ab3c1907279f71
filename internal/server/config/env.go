package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// EnvConfig lists the environment variables understood by the server. A
// .env file in the working directory is loaded first when present; variables
// already set in the process win over the file.
type EnvConfig struct {
	EndpointAddrHTTP   string        `env:"FUNDKEEPER_HTTP_ADDR"`
	EndpointAddrGRPC   string        `env:"FUNDKEEPER_GRPC_ADDR"`
	DatabaseDSN        string        `env:"FUNDKEEPER_DATABASE_DSN"`
	SecretKey          string        `env:"FUNDKEEPER_SECRET_KEY"`
	SessionTTL         time.Duration `env:"FUNDKEEPER_SESSION_TTL"`
	CookieSecure       string        `env:"FUNDKEEPER_COOKIE_SECURE"`
	RequestTimeout     time.Duration `env:"FUNDKEEPER_REQUEST_TIMEOUT"`
	CORSAllowedOrigins string        `env:"FUNDKEEPER_CORS_ORIGINS"`
	GoogleClientID     string        `env:"FUNDKEEPER_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string        `env:"FUNDKEEPER_GOOGLE_CLIENT_SECRET"`
	OAuthRedirectURL   string        `env:"FUNDKEEPER_OAUTH_REDIRECT_URL"`
	S3RootUser         string        `env:"FUNDKEEPER_S3_USER"`
	S3RootPassword     string        `env:"FUNDKEEPER_S3_PASSWORD"`
	S3Bucket           string        `env:"FUNDKEEPER_S3_BUCKET"`
	S3Region           string        `env:"FUNDKEEPER_S3_REGION"`
	S3BaseEndpoint     string        `env:"FUNDKEEPER_S3_ENDPOINT"`
}

// dotenvPath is a seam for tests.
var dotenvPath = ".env"

// parseEnv overlays environment variables onto config. Unset variables leave
// the current value alone. A malformed value (e.g. an unparsable duration)
// panics like a malformed config file does.
func parseEnv(config *Config) {
	if _, err := os.Stat(dotenvPath); err == nil {
		if err := godotenv.Load(dotenvPath); err != nil {
			panic(err)
		}
	}

	e := &EnvConfig{}
	if err := envdecode.Decode(e); err != nil {
		if errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
			return
		}
		panic(err)
	}

	e.apply(config)
}

func (e *EnvConfig) apply(config *Config) {
	setNonEmpty(&config.EndpointAddrHTTP, e.EndpointAddrHTTP)
	setNonEmpty(&config.EndpointAddrGRPC, e.EndpointAddrGRPC)
	setNonEmpty(&config.DatabaseDSN, e.DatabaseDSN)
	setNonEmpty(&config.SecretKey, e.SecretKey)
	setNonEmpty(&config.GoogleClientID, e.GoogleClientID)
	setNonEmpty(&config.GoogleClientSecret, e.GoogleClientSecret)
	setNonEmpty(&config.OAuthRedirectURL, e.OAuthRedirectURL)
	setNonEmpty(&config.S3RootUser, e.S3RootUser)
	setNonEmpty(&config.S3RootPassword, e.S3RootPassword)
	setNonEmpty(&config.S3Bucket, e.S3Bucket)
	setNonEmpty(&config.S3Region, e.S3Region)
	setNonEmpty(&config.S3BaseEndpoint, e.S3BaseEndpoint)

	if e.SessionTTL != 0 {
		config.SessionTTL = e.SessionTTL
	}
	if e.RequestTimeout != 0 {
		config.RequestTimeout = e.RequestTimeout
	}
	if e.CookieSecure != "" {
		config.CookieSecure = strings.EqualFold(e.CookieSecure, "true") || e.CookieSecure == "1"
	}
	if e.CORSAllowedOrigins != "" {
		config.CORSAllowedOrigins = splitList(e.CORSAllowedOrigins)
	}
}

func setNonEmpty(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
