package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guildmint/guildmint/internal/database"
	"github.com/guildmint/guildmint/internal/engine"
	"github.com/guildmint/guildmint/internal/health"
	"github.com/guildmint/guildmint/internal/jobs"
	"github.com/guildmint/guildmint/internal/jobs/handlers"
	"github.com/guildmint/guildmint/internal/lifecycle"
	"github.com/guildmint/guildmint/pkg/config"
	"github.com/guildmint/guildmint/pkg/graceful"
	"github.com/guildmint/guildmint/pkg/logger"
	appredis "github.com/guildmint/guildmint/pkg/redis"

	_ "github.com/lib/pq"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "guildmint: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, flushLogs, err := logger.New(logger.Options{
		Level:       cfg.Logger.Level,
		Format:      cfg.Logger.Format,
		File:        cfg.Logger.File,
		MaxSizeMB:   cfg.Logger.MaxSizeMB,
		MaxBackups:  cfg.Logger.MaxBackups,
		MaxAgeDays:  cfg.Logger.MaxAgeDays,
		SentryDSN:   cfg.Sentry.DSN,
		Environment: cfg.Sentry.Environment,
		SampleRate:  cfg.Sentry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer flushLogs()
	slog.SetDefault(log)

	log.Info("starting guildmint economy engine", slog.String("env", cfg.AppEnv))

	config.Watch(v, log, func(next *config.Config) {
		// Per-guild tuning lives in the database; a reload only moves the
		// defaults applied to guilds seen for the first time.
		log.Info("economy defaults updated", slog.String("env", next.AppEnv))
	})

	db, err := sql.Open("postgres", cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if cfg.DB.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	}
	if cfg.DB.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	}
	if cfg.DB.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	migrator := database.NewMigrator(db, log)
	if err := migrator.ApplyDir(ctx, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := appredis.New(ctx, appredis.Config{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	eng := engine.New(engine.Options{
		DB:            db,
		Redis:         redisClient.Client,
		GuildDefaults: cfg.Economy.GuildDefaults(),
		CacheTTL:      cfg.Economy.ConfigCacheTTL,
		Log:           log,
	})

	shutdown := lifecycle.NewShutdown(log)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	queues := map[string]int{
		jobs.QueueCritical: 6,
		jobs.QueueDefault:  3,
		jobs.QueueLow:      1,
	}

	worker := jobs.NewWorker(redisOpt, queues, cfg.Jobs.Concurrency, log)
	worker.RegisterHandler(jobs.TaskTypeGuildHealthReport,
		handlers.NewGuildHealthReportHandler(eng.Configs, eng.Audits, log))
	worker.RegisterHandler(jobs.TaskTypeIdempotencyCleanup,
		handlers.NewIdempotencyCleanupHandler(redisClient.Client, log))
	go func() {
		if err := worker.Run(); err != nil {
			log.Error("jobs worker stopped", slog.Any("error", err))
		}
	}()
	shutdown.Register("jobs-worker", func(context.Context) error {
		worker.Shutdown()
		return nil
	})

	scheduler := jobs.NewScheduler(redisOpt, cfg.Jobs.HealthReportSchedule, cfg.Jobs.IdempotencyCleanupSchedule, log)
	if err := scheduler.RegisterTasks(); err != nil {
		return fmt.Errorf("register scheduled tasks: %w", err)
	}
	scheduler.Run()
	shutdown.Register("jobs-scheduler", func(context.Context) error {
		scheduler.Shutdown()
		return nil
	})

	// Publish the sector gauges right away instead of waiting for the
	// first scheduled tick.
	queue := jobs.NewManager(redisOpt, log)
	shutdown.Register("jobs-queue", func(context.Context) error {
		return queue.Close()
	})
	if task, err := jobs.NewGuildHealthReportTask(nil); err == nil {
		if _, err := queue.Enqueue(ctx, task); err != nil {
			log.Warn("failed to enqueue startup health report", slog.Any("error", err))
		}
	}

	checker := health.NewChecker(log)
	checker.AddCheck("postgres", health.NewDBChecker(db))
	checker.AddCheck("redis", health.NewRedisChecker(redisClient.Client))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", checker.Handler())
	mux.Handle("/v1/", eng.ReportingHandler())

	port := cfg.HTTP.Port
	if port == 0 {
		port = 8080
	}
	shutdownTimeout := cfg.HTTP.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	server := graceful.NewServer(log, &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}, shutdownTimeout)

	serverErr := server.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown.Execute(shutdownCtx); err != nil {
		log.Error("shutdown finished with errors", slog.Any("error", err))
	}

	log.Info("guildmint economy engine stopped")
	return serverErr
}
