// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/dmitrijs2005/contractdocs/internal/dbx"
)

// Storage backends for permanent archives.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
)

// Staging registry implementations.
const (
	RegistryDatabase = "database"
	RegistryBadger   = "badger"
)

// Config holds runtime settings for the contractdocs server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - DatabaseProvider / DatabaseDSN: relational backend ("postgres" or "sqlite") and its DSN.
//   - StorageRoot: directory holding the staging/ and archive/ subtrees.
//   - StorageBackend: where archive bytes live ("local" or "s3"). Staging is always local.
//   - StagingRegistry / BadgerDir: where staged-file records live ("database" or "badger").
//   - StagingRetention: age after which a session is swept.
//   - SweepInterval: how often the expiration sweeper runs.
//   - MaxUploadSize / AllowedExtensions: upload policy.
//   - MatchSizeTolerance: relative size window used to find original PDFs.
//   - S3RootUser / S3RootPassword / S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - LogLevel: minimum slog level.
type Config struct {
	EndpointAddrHTTP   string
	DatabaseProvider   string
	DatabaseDSN        string
	StorageRoot        string
	StorageBackend     string
	StagingRegistry    string
	BadgerDir          string
	StagingRetention   time.Duration
	SweepInterval      time.Duration
	MaxUploadSize      datasize.ByteSize
	AllowedExtensions  []string
	MatchSizeTolerance float64
	S3RootUser         string
	S3RootPassword     string
	S3Bucket           string
	S3Region           string
	S3BaseEndpoint     string
	LogLevel           slog.Level
}

// DefaultAllowedExtensions is the upload allow-list used unless overridden.
var DefaultAllowedExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".jpg", ".jpeg", ".png"}

// LoadDefaults populates Config with development defaults: a local SQLite
// database and filesystem storage under ./data.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseProvider = string(dbx.SQLite)
	c.DatabaseDSN = "data/contractdocs.db"
	c.StorageRoot = "data/storage"
	c.StorageBackend = StorageLocal
	c.StagingRegistry = RegistryDatabase
	c.BadgerDir = "data/staging-registry"
	c.StagingRetention = 2 * time.Hour
	c.SweepInterval = 30 * time.Minute
	c.MaxUploadSize = 10 * datasize.MB
	c.AllowedExtensions = append([]string(nil), DefaultAllowedExtensions...)
	c.MatchSizeTolerance = 0.2
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "contracts"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.LogLevel = slog.LevelInfo
}

// Backend parses DatabaseProvider.
func (c *Config) Backend() (dbx.Backend, error) {
	return dbx.ParseBackend(c.DatabaseProvider)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if _, err := c.Backend(); err != nil {
		return err
	}
	if strings.TrimSpace(c.DatabaseDSN) == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.StorageRoot == "" {
		return fmt.Errorf("storage root is required")
	}
	switch c.StorageBackend {
	case StorageLocal, StorageS3:
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
	switch c.StagingRegistry {
	case RegistryDatabase:
	case RegistryBadger:
		if c.BadgerDir == "" {
			return fmt.Errorf("badger dir is required for the badger staging registry")
		}
	default:
		return fmt.Errorf("unknown staging registry %q", c.StagingRegistry)
	}
	if c.StagingRetention <= 0 || c.SweepInterval <= 0 {
		return fmt.Errorf("staging retention and sweep interval must be positive")
	}
	if c.MaxUploadSize == 0 {
		return fmt.Errorf("max upload size must be positive")
	}
	if c.MatchSizeTolerance < 0 || c.MatchSizeTolerance >= 1 {
		return fmt.Errorf("match size tolerance must be in [0, 1)")
	}
	return nil
}

// NormalizeExtensions lower-cases entries and adds a leading dot.
func NormalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg); err != nil {
		return nil, err
	}
	cfg.AllowedExtensions = NormalizeExtensions(cfg.AllowedExtensions)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
