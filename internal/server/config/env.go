package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/medkeeper/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variables recognised by parseEnv.
const (
	EnvGRPCAddr          = "MEDKEEPER_GRPC_ADDR"
	EnvHTTPAddr          = "MEDKEEPER_HTTP_ADDR"
	EnvDatabaseDSN       = "MEDKEEPER_DATABASE_DSN"
	EnvSecretKey         = "MEDKEEPER_SECRET_KEY"
	EnvAccessTokenTTL    = "MEDKEEPER_ACCESS_TOKEN_TTL"
	EnvS3User            = "MEDKEEPER_S3_USER"
	EnvS3Password        = "MEDKEEPER_S3_PASSWORD"
	EnvS3Bucket          = "MEDKEEPER_S3_BUCKET"
	EnvS3Region          = "MEDKEEPER_S3_REGION"
	EnvS3Endpoint        = "MEDKEEPER_S3_ENDPOINT"
	EnvPresignExpiry     = "MEDKEEPER_PRESIGN_EXPIRY"
	EnvAuditPollInterval = "MEDKEEPER_AUDIT_POLL_INTERVAL"
	EnvLogLevel          = "MEDKEEPER_LOG_LEVEL"
)

// parseEnv overlays MEDKEEPER_* variables. If -env names a dotenv file it
// is loaded first; variables already set in the process win over the file.
func parseEnv(config *Config) error {
	if envFile := flagx.EnvFileFlag(); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	setString(&config.EndpointAddrGRPC, EnvGRPCAddr)
	setString(&config.EndpointAddrHTTP, EnvHTTPAddr)
	setString(&config.DatabaseDSN, EnvDatabaseDSN)
	setString(&config.SecretKey, EnvSecretKey)
	setString(&config.S3RootUser, EnvS3User)
	setString(&config.S3RootPassword, EnvS3Password)
	setString(&config.S3Bucket, EnvS3Bucket)
	setString(&config.S3Region, EnvS3Region)
	setString(&config.S3BaseEndpoint, EnvS3Endpoint)
	setString(&config.LogLevel, EnvLogLevel)

	for name, target := range map[string]*time.Duration{
		EnvAccessTokenTTL:    &config.AccessTokenValidityDuration,
		EnvPresignExpiry:     &config.PresignExpiry,
		EnvAuditPollInterval: &config.AuditPollInterval,
	} {
		if err := setDuration(target, name); err != nil {
			return err
		}
	}

	return nil
}

func setString(target *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*target = v
	}
}

func setDuration(target *time.Duration, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	*target = d
	return nil
}
