package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/senas-auth/internal/flagx"
	"github.com/dmitrijs2005/senas-auth/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON config file. Durations accept
// strings such as "15m" or integer nanoseconds; a present zero is kept, so
// "refresh_token_validity_duration": "0s" makes renewal tokens non-expiring.
type JsonConfig struct {
	EndpointAddrHTTP             string          `json:"endpoint_addr_http"`
	DatabaseDSN                  string          `json:"database_dsn"`
	SecretKey                    string          `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	AllowedOrigins               []string        `json:"allowed_origins"`
	CookieSecure                 *bool           `json:"cookie_secure"`
	FirebaseProjectID            string          `json:"firebase_project_id"`
	FirebaseCertsURL             string          `json:"firebase_certs_url"`
	FederatedTimeout             *timex.Duration `json:"federated_timeout"`
	RedisURL                     string          `json:"redis_url"`
	LogLevel                     string          `json:"log_level"`
	S3RootUser                   string          `json:"s3_root_user"`
	S3RootPassword               string          `json:"s3_root_password"`
	S3Bucket                     string          `json:"s3_bucket"`
	S3Region                     string          `json:"s3_region"`
	S3BaseEndpoint               string          `json:"s3_base_endpoint"`
}

// parseJson overlays the JSON file given with -c/-config onto config. Only
// keys present in the file replace existing values. Nothing happens when no
// file is given; an unreadable or invalid file panics.
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

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.FirebaseProjectID, c.FirebaseProjectID)
	setString(&config.FirebaseCertsURL, c.FirebaseCertsURL)
	setString(&config.RedisURL, c.RedisURL)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.FederatedTimeout, c.FederatedTimeout)

	if len(c.AllowedOrigins) > 0 {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.CookieSecure != nil {
		config.CookieSecure = *c.CookieSecure
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
