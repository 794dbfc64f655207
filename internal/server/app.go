// Package server wires configuration, storage and services together and runs
// the HTTP API alongside the staging sweeper until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/filex"
	"github.com/dmitrijs2005/contractdocs/internal/logging"
	"github.com/dmitrijs2005/contractdocs/internal/server/blobstore"
	"github.com/dmitrijs2005/contractdocs/internal/server/config"
	"github.com/dmitrijs2005/contractdocs/internal/server/httpapi"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/staged"
	"github.com/dmitrijs2005/contractdocs/internal/server/services"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	closers []io.Closer
	server  *httpapi.HTTPServer
	sweeper *services.Sweeper
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)
	app := &App{config: c, logger: logger}

	if err := app.init(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	return app, nil
}

func (app *App) init(ctx context.Context) error {
	c := app.config

	backend, err := c.Backend()
	if err != nil {
		return err
	}
	if backend == dbx.SQLite {
		path, _, _ := strings.Cut(c.DatabaseDSN, "?")
		if _, err := filex.EnsureDir(filepath.Dir(path)); err != nil {
			return fmt.Errorf("db init error: %w", err)
		}
	}
	db, err := repomanager.Open(ctx, backend, c.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db)

	rm, err := repomanager.New(backend)
	if err != nil {
		return err
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return err
	}

	blobs, err := app.blobStore(ctx)
	if err != nil {
		return fmt.Errorf("blob store init error: %w", err)
	}
	registry, err := app.stagingRegistry(rm)
	if err != nil {
		return fmt.Errorf("staging registry init error: %w", err)
	}

	policy := services.PolicyFromConfig(c)
	staging := services.NewStagingService(c.StorageRoot, registry, policy, c.StagingRetention, app.logger)
	archives := services.NewArchiveService(db, rm, blobs, policy, app.logger)
	// No HTML-to-PDF engine is bundled; PDF generation answers 501 until one
	// is plugged in here.
	contracts := services.NewContractService(db, rm, staging, archives, nil, app.logger)
	integrity := services.NewIntegrityService(db, rm, c.MatchSizeTolerance, app.logger)

	app.sweeper = services.NewSweeper(staging, c.SweepInterval, c.StagingRetention, app.logger)
	app.server = httpapi.NewHTTPServer(c.EndpointAddrHTTP, app.logger, httpapi.Services{
		Staging:   staging,
		Archives:  archives,
		Contracts: contracts,
		Integrity: integrity,
	}, int64(c.MaxUploadSize.Bytes()))

	app.logger.Info(ctx, "app initialized",
		"database", rm.Backend().String(),
		"storage", c.StorageBackend,
		"staging_registry", c.StagingRegistry,
	)
	return nil
}

func (app *App) blobStore(ctx context.Context) (blobstore.Store, error) {
	c := app.config
	if c.StorageBackend == config.StorageS3 {
		return blobstore.NewS3(ctx, blobstore.S3Options{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
	}
	return blobstore.NewLocal(c.StorageRoot), nil
}

func (app *App) stagingRegistry(rm repomanager.RepositoryManager) (staged.Repository, error) {
	if app.config.StagingRegistry == config.RegistryBadger {
		reg, err := staged.OpenBadger(app.config.BadgerDir)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, reg)
		return reg, nil
	}
	return rm.Staged(app.db), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or the HTTP server fails, then releases
// the database and the staging registry.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sweeper.Run(ctx)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "App stopped")
	return app.Close()
}

// Close releases resources in reverse order of acquisition.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}
