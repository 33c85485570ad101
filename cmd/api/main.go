package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/partsmatch/partsmatch-backend/api/controllers"
	"github.com/partsmatch/partsmatch-backend/api/routes"
	"github.com/partsmatch/partsmatch-backend/internal/delivery"
	"github.com/partsmatch/partsmatch-backend/internal/notifications"
	"github.com/partsmatch/partsmatch-backend/internal/requests"
	"github.com/partsmatch/partsmatch-backend/internal/sellers"
	"github.com/partsmatch/partsmatch-backend/pkg/config"
	"github.com/partsmatch/partsmatch-backend/pkg/db"
	"github.com/partsmatch/partsmatch-backend/pkg/logger"
	"github.com/partsmatch/partsmatch-backend/pkg/metrics"
	"github.com/partsmatch/partsmatch-backend/pkg/migrate"
	"github.com/partsmatch/partsmatch-backend/pkg/pubsub"
	"github.com/partsmatch/partsmatch-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	requestsRepo := requests.NewRepository(dbClient.DB())
	queueRepo := delivery.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	requestsService, err := requests.NewService(requests.ServiceParams{
		DB:         dbClient,
		Repo:       requestsRepo,
		Sellers:    sellers.NewRepository(dbClient.DB()),
		Queue:      queueRepo,
		Calculator: delivery.NewScheduleCalculator(cfg.Delivery),
		Config:     cfg.Delivery,
		Logger:     logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

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
		Queue:    queueRepo,
		Requests: requestsRepo,
		Sink:     sink,
		Logger:   logg,
		Config:   cfg.Delivery,
		Metrics:  metrics.NewDeliveryWorkerMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery processor", err)
		os.Exit(1)
	}

	lock, err := delivery.NewRedisLock(redisClient, redis.Key("delivery-worker", "lock", cfg.App.Env), cfg.Delivery.SweepInterval)
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
	if cfg.Delivery.AutoStart {
		worker.Start(context.Background())
	}

	stats, err := delivery.NewStatsReporter(queueRepo, cfg.Delivery, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create stats reporter", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			RequestsSvc:   requestsService,
			Notifications: notificationsRepo,
			Worker:        worker,
			Stats:         stats,
			ReadyChecks: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
