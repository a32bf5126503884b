// Package server wires configuration, storage, credential services and the
// HTTP API into a runnable process and handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/senas-auth/internal/cryptox"
	"github.com/dmitrijs2005/senas-auth/internal/logging"
	"github.com/dmitrijs2005/senas-auth/internal/server/catalog"
	"github.com/dmitrijs2005/senas-auth/internal/server/config"
	"github.com/dmitrijs2005/senas-auth/internal/server/federated"
	"github.com/dmitrijs2005/senas-auth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/senas-auth/internal/server/rest"
	"github.com/dmitrijs2005/senas-auth/internal/server/services"
	"github.com/redis/go-redis/v9"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	redis  *redis.Client
	server *rest.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, cfg.LogLevel)

	db, err := sql.Open(repomanager.DriverName, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app := &App{config: cfg, logger: logger, db: db}

	var certCache federated.CertCache
	if cfg.RedisURL != "" {
		client, err := federated.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn(ctx, "redis unavailable, caching certificates in process", "error", err)
		} else {
			app.redis = client
			certCache = federated.NewRedisCertCache(client, "", logger)
		}
	}

	verifier := federated.NewFirebaseVerifier(federated.FirebaseConfig{
		ProjectID: cfg.FirebaseProjectID,
		CertsURL:  cfg.FirebaseCertsURL,
		Timeout:   cfg.FederatedTimeout,
	}, certCache, logger)
	if cfg.FirebaseProjectID == "" {
		logger.Warn(ctx, "FIREBASE_PROJECT_ID not set, federated sign-in disabled")
	}

	us := services.NewUserService(db, rm, cryptox.NewHasher(cryptox.DefaultParams), verifier, cfg, logger)
	cs := catalog.NewService(cfg)
	app.server = rest.NewServer(cfg, us, cs, logger)

	return app, nil
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

// Run serves until a termination signal arrives or the server fails, then
// releases the database pool and the Redis client.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	runErr := app.server.Run(ctx)
	if runErr != nil {
		app.logger.Error(ctx, "http server stopped", "error", runErr)
	}

	return errors.Join(runErr, app.close())
}

func (app *App) close() error {
	var errs []error
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	errs = append(errs, app.db.Close())
	return errors.Join(errs...)
}
