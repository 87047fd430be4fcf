package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophadmin/internal/flagx"
	"github.com/dmitrijs2005/gophadmin/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// both "15m" strings and integer nanoseconds. Only non-zero values override
// what is already set.
type FileConfig struct {
	EndpointAddrHTTP            string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	DatabaseDSN                 string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                   string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	S3RootUser                  string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                    string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3PublicBaseURL             string         `json:"s3_public_base_url" yaml:"s3_public_base_url"`
	RedisAddr                   string         `json:"redis_addr" yaml:"redis_addr"`
	PushChannel                 string         `json:"push_channel" yaml:"push_channel"`
	WorkerMetricsAddr           string         `json:"worker_metrics_addr" yaml:"worker_metrics_addr"`
	LogLevel                    string         `json:"log_level" yaml:"log_level"`
	LogFormat                   string         `json:"log_format" yaml:"log_format"`
	Verbose                     bool           `json:"verbose" yaml:"verbose"`
	AppURL                      string         `json:"app_url" yaml:"app_url"`
	SignInPath                  string         `json:"signin_path" yaml:"signin_path"`
	UnauthorizedPath            string         `json:"unauthorized_path" yaml:"unauthorized_path"`
	CORSOrigins                 []string       `json:"cors_origins" yaml:"cors_origins"`
	UploadMaxWidth              int            `json:"upload_max_width" yaml:"upload_max_width"`
	UploadQuality               float64        `json:"upload_quality" yaml:"upload_quality"`
	UploadRatePerMinute         int            `json:"upload_rate_per_minute" yaml:"upload_rate_per_minute"`
	Firebase                    FirebaseConfig `json:"firebase" yaml:"firebase"`
	Emulators                   EmulatorConfig `json:"emulators" yaml:"emulators"`
}

// parseFile overlays the file named by -c / -config, if any. Files ending in
// .yaml or .yml are decoded as YAML, anything else as JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fc := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, fc)
	default:
		err = json.Unmarshal(raw, fc)
	}
	if err != nil {
		return err
	}

	fc.apply(config)
	return nil
}

func (fc *FileConfig) apply(c *Config) {
	setString(&c.EndpointAddrHTTP, fc.EndpointAddrHTTP)
	setString(&c.DatabaseDSN, fc.DatabaseDSN)
	setString(&c.SecretKey, fc.SecretKey)
	if fc.AccessTokenValidityDuration.Duration > 0 {
		c.AccessTokenValidityDuration = fc.AccessTokenValidityDuration.Duration
	}
	setString(&c.S3RootUser, fc.S3RootUser)
	setString(&c.S3RootPassword, fc.S3RootPassword)
	setString(&c.S3Bucket, fc.S3Bucket)
	setString(&c.S3Region, fc.S3Region)
	setString(&c.S3BaseEndpoint, fc.S3BaseEndpoint)
	setString(&c.S3PublicBaseURL, fc.S3PublicBaseURL)
	setString(&c.RedisAddr, fc.RedisAddr)
	setString(&c.PushChannel, fc.PushChannel)
	setString(&c.WorkerMetricsAddr, fc.WorkerMetricsAddr)
	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFormat, fc.LogFormat)
	c.Verbose = c.Verbose || fc.Verbose
	setString(&c.AppURL, fc.AppURL)
	setString(&c.SignInPath, fc.SignInPath)
	setString(&c.UnauthorizedPath, fc.UnauthorizedPath)
	if len(fc.CORSOrigins) > 0 {
		c.CORSOrigins = fc.CORSOrigins
	}
	if fc.UploadMaxWidth > 0 {
		c.UploadMaxWidth = fc.UploadMaxWidth
	}
	if fc.UploadQuality > 0 {
		c.UploadQuality = fc.UploadQuality
	}
	if fc.UploadRatePerMinute > 0 {
		c.UploadRatePerMinute = fc.UploadRatePerMinute
	}

	setString(&c.Firebase.APIKey, fc.Firebase.APIKey)
	setString(&c.Firebase.AuthDomain, fc.Firebase.AuthDomain)
	setString(&c.Firebase.ProjectID, fc.Firebase.ProjectID)
	setString(&c.Firebase.StorageBucket, fc.Firebase.StorageBucket)
	setString(&c.Firebase.MessagingSenderID, fc.Firebase.MessagingSenderID)
	setString(&c.Firebase.AppID, fc.Firebase.AppID)
	setString(&c.Firebase.MeasurementID, fc.Firebase.MeasurementID)
	setString(&c.Firebase.CredentialsFile, fc.Firebase.CredentialsFile)

	if fc.Emulators.Auth.Set() {
		c.Emulators.Auth = fc.Emulators.Auth
	}
	if fc.Emulators.Firestore.Set() {
		c.Emulators.Firestore = fc.Emulators.Firestore
	}
	if fc.Emulators.Storage.Set() {
		c.Emulators.Storage = fc.Emulators.Storage
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
