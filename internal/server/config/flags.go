package config

import (
	"flag"
	"os"
	"strings"

	"github.com/dmitrijs2005/contractdocs/internal/flagx"
)

var serverFlags = []string{
	"-a", "-t", "-d", "-r", "-s", "-k", "-K", "-R", "-i", "-m", "-x", "-T",
	"-u", "-p", "-b", "-g", "-e", "-l",
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-t string     database provider: postgres | sqlite
//	-d string     database DSN
//	-r string     storage root directory
//	-s string     archive storage backend: local | s3
//	-k string     staging registry: database | badger
//	-K string     badger directory
//	-R duration   staging retention (e.g., "2h")
//	-i duration   sweep interval (e.g., "30m")
//	-m size       max upload size (e.g., "10MB")
//	-x list       allowed extensions, comma separated
//	-T float      size tolerance when matching original PDFs
//	-u/-p/-b/-g/-e  S3 user, password, bucket, region, endpoint
//	-l level      log level (debug, info, warn, error)
//
// os.Args is first filtered to the flags handled here with flagx.FilterArgs.
func parseFlags(config *Config) error {
	args := flagx.FilterArgs(os.Args[1:], serverFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseProvider, "t", config.DatabaseProvider, "database provider")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageRoot, "r", config.StorageRoot, "storage root")
	fs.StringVar(&config.StorageBackend, "s", config.StorageBackend, "archive storage backend")
	fs.StringVar(&config.StagingRegistry, "k", config.StagingRegistry, "staging registry")
	fs.StringVar(&config.BadgerDir, "K", config.BadgerDir, "badger directory")
	fs.DurationVar(&config.StagingRetention, "R", config.StagingRetention, "staging retention")
	fs.DurationVar(&config.SweepInterval, "i", config.SweepInterval, "sweep interval")
	fs.TextVar(&config.MaxUploadSize, "m", config.MaxUploadSize, "max upload size")
	fs.Func("x", "allowed extensions (comma separated)", func(s string) error {
		config.AllowedExtensions = strings.Split(s, ",")
		return nil
	})
	fs.Float64Var(&config.MatchSizeTolerance, "T", config.MatchSizeTolerance, "original PDF size tolerance")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.TextVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(args)
}
