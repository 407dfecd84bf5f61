// Package server initializes and runs the MouseTrap service: it opens the
// database, applies migrations, seeds the administrator, and runs the
// connection server, the training scheduler and the metrics endpoint until
// a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/mousetrap/internal/logging"
	"github.com/dmitrijs2005/mousetrap/internal/server/config"
	"github.com/dmitrijs2005/mousetrap/internal/server/metrics"
	"github.com/dmitrijs2005/mousetrap/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/mousetrap/internal/server/services"
	"github.com/dmitrijs2005/mousetrap/internal/server/tcp"
	"github.com/dmitrijs2005/mousetrap/internal/server/training"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	rm        repomanager.RepositoryManager
	accounts  *services.AccountService
	models    *services.ModelService
	scheduler *training.Scheduler
	collector *metrics.Collector
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	store := services.NewStore(db, rm)
	lock := &training.ModelLock{}
	collector := metrics.NewCollector()

	opts := training.DefaultOptions()
	opts.MinSamples = c.MinSamples
	opts.RetrainInterval = c.RetrainInterval
	opts.TickInterval = c.TickInterval
	opts.DiscoverInterval = c.DiscoverInterval
	opts.CostThreshold = c.CostThreshold
	opts.MaxEpochs = c.MaxEpochs

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		rm:        rm,
		accounts:  services.NewAccountService(store),
		models:    services.NewModelService(store, lock, c.MinSamples, c.CostLimit),
		scheduler: training.NewScheduler(opts, store, lock, collector, logger),
		collector: collector,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// prepare migrates the schema and seeds the administrator account.
func (app *App) prepare(ctx context.Context) error {
	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping error: %w", err)
	}
	if err := app.rm.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	if app.config.AdminPassword == "" {
		app.logger.Warn(ctx, "admin password not configured, admin account not seeded")
		return nil
	}
	created, err := app.accounts.EnsureAdmin(ctx, app.config.AdminUserName, app.config.AdminPassword, app.config.AdminEmail)
	if err != nil {
		return fmt.Errorf("admin seeding error: %w", err)
	}
	if created {
		app.logger.Info(ctx, "admin account created", "user", app.config.AdminUserName)
	}
	return nil
}

func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.db.Close()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	if err := app.prepare(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := app.scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		app.scheduler.Wait()
		return nil
	})

	g.Go(func() error {
		srv := tcp.NewServer(tcp.Options{
			Addr:             app.config.EndpointAddr,
			MaxConnections:   app.config.MaxConnections,
			PollInterval:     app.config.PollInterval,
			AcceptTimeout:    tcp.DefaultOptions().AcceptTimeout,
			HandshakeTimeout: tcp.DefaultOptions().HandshakeTimeout,
			IdleTimeout:      app.config.IdleTimeout,
		}, app.accounts, app.models, app.scheduler, app.collector, app.logger)
		return srv.Run(gctx)
	})

	if app.config.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.NewServer(app.config.MetricsAddr, app.collector, app.logger).Run(gctx)
		})
	}

	err := g.Wait()
	if err != nil {
		app.logger.Error(ctx, "app stopped with error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
	return err
}
