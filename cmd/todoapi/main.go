package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"todoapi/internal/cluster"
	"todoapi/internal/config"
	"todoapi/internal/metrics"
	"todoapi/internal/repository"
	"todoapi/internal/server"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Basic logger for startup errors
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := setupLogger(cfg.LogLevel)

	slot, isWorker, err := cluster.WorkerSlot()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to read worker slot")
	}

	if isWorker {
		runWorker(cfg, slot, logger.With().Int("worker", slot).Int("pid", os.Getpid()).Logger())
		return
	}
	runSupervisor(cfg, *configPath, logger.With().Str("role", "supervisor").Int("pid", os.Getpid()).Logger())
}

// runSupervisor opens the shared listeners and keeps the workers alive
func runSupervisor(cfg *config.Config, configPath string, logger zerolog.Logger) {
	logger.Info().
		Str("config", configPath).
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("wsPort", cfg.WSPort).
		Int("workers", cfg.GetWorkerCount()).
		Msg("starting todoapi")

	if cfg.Database.Migrate {
		migrate(cfg, logger)
	}

	httpLn, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to listen")
	}
	defer httpLn.Close()

	listeners := []net.Listener{httpLn}
	if cfg.IsWSEnabled() {
		wsLn, err := net.Listen("tcp", net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.WSPort)))
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to listen for WebSocket")
		}
		defer wsLn.Close()
		listeners = append(listeners, wsLn)
	}

	files, err := cluster.ListenerFiles(listeners...)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to share listeners")
	}
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	exe, err := os.Executable()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to locate executable")
	}

	registry := prometheus.NewRegistry()
	supMetrics := metrics.NewSupervisorMetrics(metrics.Namespace, registry)

	var metricsServer *metrics.Server
	if cfg.IsMetricsEnabled() {
		metricsServer = metrics.NewServer(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.MetricsPort)), registry, logger)
		metricsServer.StartAsync()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Workers hold the read end and shut down once this process is gone
	lifelineR, lifelineW, err := cluster.NewLifeline()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create lifeline")
	}
	defer lifelineR.Close()
	defer lifelineW.Close()

	spawner := &cluster.ExecSpawner{Path: exe, Args: os.Args[1:], Files: files, Lifeline: lifelineR}
	sup := cluster.NewSupervisor(cfg.GetWorkerCount(), spawner, supMetrics, logger)
	if err := sup.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("supervisor failed")
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetShutdownTimeoutDuration())
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("error stopping metrics server")
		}
	}

	logger.Info().Msg("supervisor stopped")
}

// migrate applies the schema once before any worker starts
func migrate(cfg *config.Config, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := repository.Open(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := repository.Migrate(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("database", cfg.Database.Name).Msg("schema applied")
}

// runWorker serves requests on the listeners inherited from the supervisor
func runWorker(cfg *config.Config, slot int, logger zerolog.Logger) {
	supervisorGone, err := cluster.SupervisorGone()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to watch supervisor")
	}

	httpLn, err := cluster.InheritedListener(0, "http")
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to inherit listener")
	}

	var wsLn net.Listener
	if cfg.IsWSEnabled() {
		wsLn, err = cluster.InheritedListener(1, "ws")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to inherit WebSocket listener")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := repository.Open(ctx, cfg.Database)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	var metricsAddr string
	if cfg.IsMetricsEnabled() {
		metricsAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.GetWorkerMetricsPort(slot)))
	}

	srv, err := server.New(cfg, server.Repositories{
		Activities: repository.NewActivityRepository(db),
		Todos:      repository.NewTodoRepository(db),
	}, metricsAddr, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create server")
	}

	if err := srv.Start(httpLn, wsLn); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}

	// Wait for shutdown signal or for the supervisor to disappear
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	case <-supervisorGone:
		logger.Warn().Msg("supervisor exited, shutting down")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.GetShutdownTimeoutDuration())
	defer cancelShutdown()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during shutdown")
	}
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}
