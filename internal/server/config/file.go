package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/medkeeper/internal/flagx"
	"github.com/dmitrijs2005/medkeeper/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the config file. Durations accept
// strings such as "15m" or integer nanoseconds. Empty fields leave the
// current value untouched.
type FileConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	EndpointAddrHTTP            string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                    string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	PresignExpiry               timex.Duration `json:"presign_expiry" yaml:"presign_expiry"`
	AuditPollInterval           timex.Duration `json:"audit_poll_interval" yaml:"audit_poll_interval"`
	LogLevel                    string         `json:"log_level" yaml:"log_level"`
}

// parseFile loads the file named by -c/-config, if any. Files ending in
// .yaml or .yml are decoded as YAML, everything else as JSON.
func parseFile(config *Config) error {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(config *Config) {
	overlay := func(dst *string, src string) {
		if src != "" {
			*dst = src
		}
	}

	overlay(&config.EndpointAddrGRPC, fc.EndpointAddrGRPC)
	overlay(&config.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	overlay(&config.DatabaseDSN, fc.DatabaseDSN)
	overlay(&config.SecretKey, fc.SecretKey)
	overlay(&config.S3RootUser, fc.S3RootUser)
	overlay(&config.S3RootPassword, fc.S3RootPassword)
	overlay(&config.S3Bucket, fc.S3Bucket)
	overlay(&config.S3Region, fc.S3Region)
	overlay(&config.S3BaseEndpoint, fc.S3BaseEndpoint)
	overlay(&config.LogLevel, fc.LogLevel)

	if fc.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	if fc.PresignExpiry.Duration > 0 {
		config.PresignExpiry = fc.PresignExpiry.Duration
	}
	if fc.AuditPollInterval.Duration > 0 {
		config.AuditPollInterval = fc.AuditPollInterval.Duration
	}
}
