package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/donationhub/internal/flagx"
	"github.com/dmitrijs2005/donationhub/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations use
// timex.Duration so files can say "15m" instead of nanoseconds.
//
// Only keys present in the file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	Issuer                       *string         `json:"issuer"`
	AccessSecretKey              *string         `json:"access_secret_key"`
	RefreshSecretKey             *string         `json:"refresh_secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	RefreshRotationThreshold     *float64        `json:"refresh_rotation_threshold"`
	PasswordHashCost             *int            `json:"password_hash_cost"`
	PaginationLimitDefault       *int            `json:"pagination_limit_default"`
	TokenSweepInterval           *timex.Duration `json:"token_sweep_interval"`
	RevokedTokenRetention        *timex.Duration `json:"revoked_token_retention"`
	RedisAddr                    *string         `json:"redis_addr"`
	AuthRateLimitPerMin          *int            `json:"auth_rate_limit_per_min"`
	S3RootUser                   *string         `json:"s3_root_user"`
	S3RootPassword               *string         `json:"s3_root_password"`
	S3Bucket                     *string         `json:"s3_bucket"`
	S3Region                     *string         `json:"s3_region"`
	S3BaseEndpoint               *string         `json:"s3_base_endpoint"`
	LogLevel                     *string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by -c/-config
// (or $DONATIONHUB_CONFIG) into config. With no file configured it does
// nothing; an unreadable file or invalid JSON panics.
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

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.Issuer, c.Issuer)
	setString(&config.AccessSecretKey, c.AccessSecretKey)
	setString(&config.RefreshSecretKey, c.RefreshSecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.RefreshRotationThreshold != nil {
		config.RefreshRotationThreshold = *c.RefreshRotationThreshold
	}
	if c.PasswordHashCost != nil {
		config.PasswordHashCost = *c.PasswordHashCost
	}
	if c.PaginationLimitDefault != nil {
		config.PaginationLimitDefault = *c.PaginationLimitDefault
	}
	if c.TokenSweepInterval != nil {
		config.TokenSweepInterval = c.TokenSweepInterval.Duration
	}
	if c.RevokedTokenRetention != nil {
		config.RevokedTokenRetention = c.RevokedTokenRetention.Duration
	}
	setString(&config.RedisAddr, c.RedisAddr)
	if c.AuthRateLimitPerMin != nil {
		config.AuthRateLimitPerMin = *c.AuthRateLimitPerMin
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
