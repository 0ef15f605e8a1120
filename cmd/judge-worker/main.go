package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"judgeworker/internal/broker"
	"judgeworker/internal/config"
	"judgeworker/internal/db"
	"judgeworker/internal/dispatch"
	"judgeworker/internal/grader"
	"judgeworker/internal/language"
	"judgeworker/internal/ops"
	"judgeworker/internal/problem"
	"judgeworker/internal/sandbox"
	"judgeworker/internal/status"
	"judgeworker/pkg/utils/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()

	registry, err := buildRegistry(cfg)
	if err != nil {
		logger.Error(ctx, "init language registry failed", zap.Error(err))
		return
	}
	logger.Info(ctx, "languages registered", zap.Strings("languages", registry.Names()))

	mysqlDB, err := db.NewMySQL(cfg.DatabaseURL)
	if err != nil {
		logger.Error(ctx, "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()

	problems, err := problem.NewSQLRepository(mysqlDB)
	if err != nil {
		logger.Error(ctx, "init problem repository failed", zap.Error(err))
		return
	}

	runner, err := sandbox.NewRunner(sandbox.Config{NsjailPath: cfg.NsjailPath})
	if err != nil {
		logger.Error(ctx, "init sandbox runner failed", zap.Error(err))
		return
	}

	judge, err := grader.New(grader.Config{
		Registry:  registry,
		Problems:  problems,
		Sandbox:   runner,
		WorkRoot:  cfg.WorkRoot,
		WallLimit: cfg.WallLimit(),
		MemLimit:  cfg.MemoryLimit,
	})
	if err != nil {
		logger.Error(ctx, "init grader failed", zap.Error(err))
		return
	}

	statusRepo, closeStatus, err := buildStatusRepo(cfg)
	if err != nil {
		logger.Error(ctx, "init status repository failed", zap.Error(err))
		return
	}
	defer closeStatus()

	brokerClient, err := broker.New(broker.Config{URL: cfg.BrokerURL})
	if err != nil {
		logger.Error(ctx, "init broker failed", zap.Error(err))
		return
	}
	defer func() {
		_ = brokerClient.Close()
	}()

	consumeCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := brokerClient.Connect(consumeCtx); err != nil {
		logger.Error(ctx, "connect broker failed", zap.Error(err))
		return
	}
	if err := brokerClient.DeclareQueue(cfg.ResultQueue); err != nil {
		logger.Error(ctx, "declare result queue failed", zap.Error(err))
		return
	}

	dispatcher, err := dispatch.New(dispatch.Config{
		Grader:      judge,
		Publisher:   brokerClient,
		Status:      statusRepo,
		ResultQueue: cfg.ResultQueue,
		MaxInflight: cfg.MaxInflight,
	})
	if err != nil {
		logger.Error(ctx, "init dispatcher failed", zap.Error(err))
		return
	}

	opsServer := startOpsServer(ctx, cfg, mysqlDB, brokerClient, statusRepo)

	logger.Info(ctx, "judge worker started",
		zap.String("job_queue", cfg.JobQueue),
		zap.String("result_queue", cfg.ResultQueue),
		zap.Int("max_inflight", cfg.MaxInflight))

	if err := brokerClient.Consume(consumeCtx, cfg.JobQueue, dispatcher.HandleDelivery); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "consume stopped", zap.Error(err))
	}

	logger.Info(ctx, "shutting down, draining in-flight jobs",
		zap.Duration("window", cfg.ShutdownTimeout))
	if !dispatcher.Shutdown(cfg.ShutdownTimeout) {
		logger.Warn(ctx, "drain window expired, jobs were cancelled")
	}

	if opsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(ctx, "ops server shutdown failed", zap.Error(err))
		}
	}
	logger.Info(ctx, "judge worker stopped")
}

func buildRegistry(cfg config.Config) (*language.Registry, error) {
	if cfg.LanguagesFile != "" {
		return language.NewRegistryFromFile(cfg.LanguagesFile)
	}
	return language.NewRegistry(), nil
}

// buildStatusRepo picks the Redis status store when configured and a
// no-op store otherwise.
func buildStatusRepo(cfg config.Config) (status.Repository, func(), error) {
	if cfg.RedisURL == "" {
		return status.Noop{}, func() {}, nil
	}
	repo, err := status.NewRedisRepository(cfg.RedisURL, 0)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() { _ = repo.Close() }, nil
}

func startOpsServer(ctx context.Context, cfg config.Config, database ops.Pinger, brokerClient ops.Pinger, statusRepo status.Repository) *http.Server {
	if cfg.OpsAddr == "" {
		return nil
	}
	srv := ops.NewServer(ops.Config{
		Addr:   cfg.OpsAddr,
		DB:     database,
		Broker: brokerClient,
		Status: statusRepo,
	})
	go func() {
		logger.Info(ctx, "ops server started", zap.String("addr", cfg.OpsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "ops server stopped", zap.Error(err))
		}
	}()
	return srv
}
