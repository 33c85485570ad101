package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/partsmatch/partsmatch-backend/internal/delivery"
	"github.com/partsmatch/partsmatch-backend/internal/notifications"
	"github.com/partsmatch/partsmatch-backend/internal/requests"
	"github.com/partsmatch/partsmatch-backend/pkg/config"
	"github.com/partsmatch/partsmatch-backend/pkg/db"
	"github.com/partsmatch/partsmatch-backend/pkg/logger"
	"github.com/partsmatch/partsmatch-backend/pkg/metrics"
	"github.com/partsmatch/partsmatch-backend/pkg/migrate"
	"github.com/partsmatch/partsmatch-backend/pkg/pubsub"
	"github.com/partsmatch/partsmatch-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "delivery-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "delivery-worker"

	logg = logger.New(logger.Options{
		ServiceName: "delivery-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	var sink delivery.NotificationSink = delivery.NewInAppSink(notificationsRepo)
	if cfg.PubSub.PushEnabled() {
		psClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		sink = delivery.NewCompositeSink(sink, delivery.NewPushSink(psClient.NotificationPublisher()))
	}

	processor, err := delivery.NewProcessor(delivery.ProcessorParams{
		DB:       dbClient,
		Queue:    delivery.NewRepository(dbClient.DB()),
		Requests: requests.NewRepository(dbClient.DB()),
		Sink:     sink,
		Logger:   logg,
		Config:   cfg.Delivery,
		Metrics:  metrics.NewDeliveryWorkerMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery processor", err)
		os.Exit(1)
	}

	lock, err := delivery.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Delivery.SweepInterval)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	worker, err := delivery.NewWorker(delivery.WorkerParams{
		Processor: processor,
		Lock:      lock,
		Logger:    logg,
		Config:    cfg.Delivery,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting delivery worker")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "delivery worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "delivery worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return redis.Key("delivery-worker", "lock", env)
}
