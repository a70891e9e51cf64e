// cmd/notifier/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"journal-notifier/internal/common/config"
	"journal-notifier/internal/common/database"
	"journal-notifier/internal/common/logger"
	"journal-notifier/internal/common/observability"
	"journal-notifier/internal/notify/creator"
	"journal-notifier/internal/notify/dispatcher"
	"journal-notifier/internal/notify/lock"
	"journal-notifier/internal/notify/query"
	"journal-notifier/internal/notify/scheduler"
	"journal-notifier/internal/notify/store"
	"journal-notifier/internal/notify/stream"
	transport "journal-notifier/internal/transport/http"
	"journal-notifier/internal/transport/http/middleware"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting notifier...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	if err := store.EnsureSchema(ctx, pg.GetDB()); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- Wire the pipeline ---
	nc := cfg.Notifications

	eventStore := store.NewEventStore(pg.GetDB(), log)
	notificationStore := store.NewNotificationStore(pg.GetDB(), log)
	preferenceStore := store.NewPreferenceStore(pg.GetDB(), log)

	hub := stream.NewHub(log, nc.HeartbeatDuration())

	disp := dispatcher.New(eventStore, notificationStore, hub, obs, log, dispatcher.Config{
		BackoffBase:    nc.BackoffBaseDuration(),
		BackoffCeiling: nc.BackoffCeilingDuration(),
		ErrorCap:       nc.ErrorCap,
		StaleClaim:     nc.StaleClaimDuration(),
		Concurrency:    nc.DispatchConcurrency,
	})

	scanLock := lock.NewLeaseLock(rdb.GetClient(), nc.LockKey, nc.LockTTLDuration(), log)
	sched := scheduler.New(eventStore, disp, scanLock, log, scheduler.Config{
		Interval:   nc.ScanIntervalDuration(),
		BatchSize:  nc.ScanBatchSize,
		StaleClaim: nc.StaleClaimDuration(),
	})

	creatorSvc := creator.New(eventStore, disp, log)
	querySvc := query.NewService(notificationStore, preferenceStore, hub, query.Config{
		DefaultPageSize: nc.DefaultPageSize,
		MaxPageSize:     nc.MaxPageSize,
	}, log)

	schedCtx, stopScheduler := context.WithCancel(ctx)
	go sched.Run(schedCtx)
	zapLog.Info("Scheduler started", zap.Int("intervalSeconds", nc.ScanInterval))

	// --- HTTP server ---
	router := transport.NewRouter(cfg, &transport.Deps{
		DB:       pg.GetDB(),
		Redis:    rdb.GetClient(),
		Creator:  creatorSvc,
		Query:    querySvc,
		Hub:      hub,
		Provider: middleware.NewJWTProvider(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Logger:   log,
	})

	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// pprof shares the default mux on a separate internal port.
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			zapLog.Error("pprof server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	stopScheduler()

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.HTTP.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Notifier stopped")
}
