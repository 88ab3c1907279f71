package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fundkeeper/internal/flagx"
	"github.com/dmitrijs2005/fundkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations accept both
// "2h"-style strings and integer nanoseconds. Absent fields keep the value
// already present in Config.
type JsonConfig struct {
	EndpointAddrHTTP   *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC   *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN        *string         `json:"database_dsn"`
	SecretKey          *string         `json:"secret_key"`
	SessionTTL         *timex.Duration `json:"session_ttl"`
	CookieSecure       *bool           `json:"cookie_secure"`
	RequestTimeout     *timex.Duration `json:"request_timeout"`
	ReadTimeout        *timex.Duration `json:"read_timeout"`
	WriteTimeout       *timex.Duration `json:"write_timeout"`
	DBProbeInterval    *timex.Duration `json:"db_probe_interval"`
	LoginRatePerSecond *float64        `json:"login_rate_per_second"`
	LoginBurst         *int            `json:"login_burst"`
	CORSAllowedOrigins []string        `json:"cors_allowed_origins"`
	GoogleClientID     *string         `json:"google_client_id"`
	GoogleClientSecret *string         `json:"google_client_secret"`
	OAuthRedirectURL   *string         `json:"oauth_redirect_url"`
	S3RootUser         *string         `json:"s3_root_user"`
	S3RootPassword     *string         `json:"s3_root_password"`
	S3Bucket           *string         `json:"s3_bucket"`
	S3Region           *string         `json:"s3_region"`
	S3BaseEndpoint     *string         `json:"s3_base_endpoint"`
}

// parseJson overlays the file named by -c/-config onto config. Without the
// flag nothing happens; an unreadable or malformed file panics, since the
// server cannot start on a config it was explicitly told to use.
func parseJson(config *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.OAuthRedirectURL, c.OAuthRedirectURL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.ReadTimeout != nil {
		config.ReadTimeout = c.ReadTimeout.Duration
	}
	if c.WriteTimeout != nil {
		config.WriteTimeout = c.WriteTimeout.Duration
	}
	if c.DBProbeInterval != nil {
		config.DBProbeInterval = c.DBProbeInterval.Duration
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
	if c.LoginRatePerSecond != nil {
		config.LoginRatePerSecond = *c.LoginRatePerSecond
	}
	if c.LoginBurst != nil {
		config.LoginBurst = *c.LoginBurst
	}
	if len(c.CORSAllowedOrigins) > 0 {
		config.CORSAllowedOrigins = c.CORSAllowedOrigins
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
