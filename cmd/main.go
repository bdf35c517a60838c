package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "emergency_dashboard/docs"
	"emergency_dashboard/internal/config"
	"emergency_dashboard/internal/feed"
	"emergency_dashboard/internal/handlers"
	"emergency_dashboard/internal/logger"
	"emergency_dashboard/internal/navigation"
	"emergency_dashboard/internal/repository"
	"emergency_dashboard/internal/repository/db"
	"emergency_dashboard/internal/scheduler"
	"emergency_dashboard/internal/server"
	"emergency_dashboard/internal/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// @title        Emergency 119 Dashboard API
// @version      1.0
// @description  Dashboard views, verification countdowns and the event timeline.
// @BasePath     /
func main() {
	// load configs/config.yml, E119_* env overrides
	cfg, err := config.Load("configs")
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	log := logger.Get(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	conn, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	alerts, err := feed.Load(cfg.Feed.Path)
	if err != nil {
		log.Fatalw("failed to load alert feed", "path", cfg.Feed.Path, "err", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	coord := scheduler.New(
		scheduler.WithLogger(log),
		scheduler.WithMetrics(scheduler.NewMetrics(reg)),
	)
	defer coord.Close()

	// wire dependencies
	repos := repository.NewRepository(conn)
	services := service.NewService(repos, service.Deps{
		Coordinator:    coord,
		Log:            log,
		View:           cfg.DashboardView(),
		Flow:           cfg.VerificationFlow(),
		Feed:           alerts,
		Navigator:      navigation.Logging(log),
		RecorderBuffer: cfg.WS.Buffer * 16,
	})
	defer services.Close()

	apiHandler := handlers.NewHandler(services, log,
		handlers.WithMetrics(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		handlers.WithWebSocket(cfg.WS.Buffer, cfg.WS.AllowedOrigins),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &server.Server{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return services.Recorder.Run(gctx) })
	g.Go(func() error { return runHTTPServer(srv, cfg.Port, apiHandler, log) })
	g.Go(func() error { return waitForShutdown(gctx, srv, log) })

	if err := g.Wait(); err != nil {
		log.Errorw("server stopped with error", "err", err)
		return
	}
	log.Infow("server stopped")
}

// openDB initializes the SQLite database using configuration.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, error) {
	if cfg.DB.Path == config.InMemoryDSN {
		log.Infow("db.path not set in config; timeline kept in memory", "dsn", cfg.DB.Path)
	}
	return db.InitDB(cfg.DB.Path)
}

// runHTTPServer blocks until the server stops. A graceful shutdown is not an error.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) error {
	log.Infow("http server listening", "port", port)
	if err := srv.Run(port, handler.InitRoutes()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// waitForShutdown waits for a termination signal (or a failed sibling) and
// stops the HTTP server, allowing in-flight requests to complete.
func waitForShutdown(ctx context.Context, srv *server.Server, log *logger.Logger) error {
	<-ctx.Done()
	log.Infow("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
