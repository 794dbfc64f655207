package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/dmitrijs2005/contractdocs/internal/flagx"
	"github.com/dmitrijs2005/contractdocs/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "30m" style strings or integer nanoseconds, sizes accept "10MB".
// Absent fields keep their current value.
type JsonConfig struct {
	EndpointAddrHTTP   string            `json:"endpoint_addr_http"`
	DatabaseProvider   string            `json:"database_provider"`
	DatabaseDSN        string            `json:"database_dsn"`
	StorageRoot        string            `json:"storage_root"`
	StorageBackend     string            `json:"storage_backend"`
	StagingRegistry    string            `json:"staging_registry"`
	BadgerDir          string            `json:"badger_dir"`
	StagingRetention   timex.Duration    `json:"staging_retention"`
	SweepInterval      timex.Duration    `json:"sweep_interval"`
	MaxUploadSize      datasize.ByteSize `json:"max_upload_size"`
	AllowedExtensions  []string          `json:"allowed_extensions"`
	MatchSizeTolerance *float64          `json:"match_size_tolerance"`
	S3RootUser         string            `json:"s3_root_user"`
	S3RootPassword     string            `json:"s3_root_password"`
	S3Bucket           string            `json:"s3_bucket"`
	S3Region           string            `json:"s3_region"`
	S3BaseEndpoint     string            `json:"s3_base_endpoint"`
	LogLevel           *slog.Level       `json:"log_level"`
}

// parseJson overlays values from the file named by -c/-config (or
// $CONTRACTDOCS_CONFIG). Without a file it does nothing.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.ConfigFile(os.Args[1:])
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", jsonConfigFile, err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseProvider, c.DatabaseProvider)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.StorageRoot, c.StorageRoot)
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.StagingRegistry, c.StagingRegistry)
	setString(&config.BadgerDir, c.BadgerDir)
	if c.StagingRetention.Duration > 0 {
		config.StagingRetention = c.StagingRetention.Duration
	}
	if c.SweepInterval.Duration > 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	if c.AllowedExtensions != nil {
		config.AllowedExtensions = c.AllowedExtensions
	}
	if c.MatchSizeTolerance != nil {
		config.MatchSizeTolerance = *c.MatchSizeTolerance
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.LogLevel != nil {
		config.LogLevel = *c.LogLevel
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
