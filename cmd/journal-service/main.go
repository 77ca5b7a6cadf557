package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/trogers1052/trade-journal/internal/analytics"
	"github.com/trogers1052/trade-journal/internal/api"
	"github.com/trogers1052/trade-journal/internal/cache"
	"github.com/trogers1052/trade-journal/internal/config"
	"github.com/trogers1052/trade-journal/internal/database"
	"github.com/trogers1052/trade-journal/internal/kafka"
	"github.com/trogers1052/trade-journal/internal/logger"
	"github.com/trogers1052/trade-journal/internal/report"
	"github.com/trogers1052/trade-journal/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		return err
	}
	log.Info("database ready", zap.String("host", cfg.Database.Host), zap.String("name", cfg.Database.DBName))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports := &report.Service{
		Trades:     db,
		Metadata:   db,
		Strategies: db,
		Logger:     log.Named("report"),
		Timezone:   analytics.ParseTimezone(cfg.Analytics.Timezone),
	}

	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis)
		if err != nil {
			log.Warn("report cache disabled", zap.Error(err))
		} else {
			defer redisCache.Close()
			reports.Cache = redisCache
		}
	}

	var wg sync.WaitGroup
	if len(cfg.Kafka.Brokers) > 0 {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TradesTopic, cfg.Kafka.GroupID, db, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Start(ctx); err != nil {
				log.Error("trade consumer stopped", zap.Error(err))
			}
		}()

		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()

		if cfg.Scheduler.Enabled {
			job := &scheduler.SnapshotJob{
				Reports:   reports,
				Publisher: producer,
				Logger:    log.Named("snapshots"),
				Timeout:   5 * time.Minute,
			}
			runner := scheduler.New(log.Named("cron"), ctx)
			if _, err := runner.Add(cfg.Scheduler.SnapshotCron, job.Run); err != nil {
				return fmt.Errorf("invalid snapshot schedule %q: %w", cfg.Scheduler.SnapshotCron, err)
			}
			runner.Start()
			defer runner.Stop()
		}
	} else {
		log.Warn("no kafka brokers configured; trade ingestion and snapshots disabled")
	}

	handler := api.NewHandler(db, reports, log)
	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           api.SetupRoutes(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case serveErr = <-errCh:
		log.Error("server error", zap.Error(serveErr))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown incomplete", zap.Error(err))
	}
	wg.Wait()

	return serveErr
}
