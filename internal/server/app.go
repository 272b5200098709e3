// Package server wires the development relayer: configuration, the
// ciphertext store, the mock coprocessor and the gRPC endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/dmitrijs2005/moodkeeper/internal/server/config"
	"github.com/dmitrijs2005/moodkeeper/internal/server/repositories/repomanager"

	gs "github.com/dmitrijs2005/moodkeeper/internal/server/grpc"
)

type App struct {
	config *config.Config
	logger logging.Logger
	cp     *coprocessor.Coprocessor
	db     *sql.DB
}

// openDB is a seam for tests.
var openDB = func(ctx context.Context, dsn string) (*sql.DB, error) {
	return repomanager.Open(ctx, dsn, repomanager.NewPostgresRepositoryManager())
}

// NewApp builds the relayer from c. An empty DatabaseDSN keeps ciphertexts
// in memory for the lifetime of the process.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(os.Stdout, "json", c.LogLevel)

	var repo coprocessor.Repository = coprocessor.NewMemoryRepository()
	var db *sql.DB

	if c.DatabaseDSN != "" {
		var err error
		db, err = openDB(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		repo = repomanager.NewPostgresRepositoryManager().Ciphertexts(db)
	} else {
		logger.Warn(ctx, "no database configured, ciphertexts are kept in memory")
	}

	if c.NetworkKey == "" || c.KMSKey == "" {
		logger.Warn(ctx, "coprocessor keys not configured, using random keys")
	}

	cp, err := coprocessor.NewFromHex(c.NetworkKey, c.KMSKey, repo)
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("coprocessor init error: %w", err)
	}

	return &App{config: c, logger: logger, cp: cp, db: db}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.cp, app.config.SecretKey).
		WithShutdownTimeout(app.config.ShutdownTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "kms", app.cp.KMSAddress().Hex())

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}
	app.logger.Info(ctx, "Stopped")
}
