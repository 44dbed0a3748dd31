package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"foodhub/config"
	"foodhub/internal/api"
	"foodhub/internal/broker"
	"foodhub/internal/cart"
	"foodhub/internal/catalog"
	"foodhub/internal/checkout"
	"foodhub/internal/pricing"
	"foodhub/internal/redisclient"
	"foodhub/internal/service"
	"foodhub/internal/store"
	"foodhub/internal/util"
	"foodhub/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting foodhub",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver))

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("foodhub", cfg.Observ.JaegerEndpoint, cfg.Observ.TraceSampleRatio)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	ctx := context.Background()

	kv, ready, err := openStorage(cfg)
	if err != nil {
		logger.Fatal("Failed to open cart storage", zap.Error(err))
	}
	defer kv.Close()

	menu, err := catalog.Default()
	if err != nil {
		logger.Fatal("Failed to load menu", zap.Error(err))
	}

	feed := worker.NewFeed(cfg.Business.NotificationFeed)
	notificationHandler := worker.NewNotificationHandler(feed)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var producer broker.Publisher
	var notificationWorker *worker.NotificationWorker
	if cfg.Kafka.Enabled {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStore)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStore, cfg.Kafka.ConsumerGroup)
		notificationWorker = worker.NewNotificationWorker(consumer, notificationHandler)
		go func() {
			if err := notificationWorker.Start(workerCtx); err != nil {
				logger.Error("Notification worker error", zap.Error(err))
			}
		}()
	} else {
		producer = broker.NewLocalProducer(notificationHandler.HandleMessage)
	}
	defer producer.Close()

	eventPublisher := broker.NewEventPublisher(producer)

	policy := pricing.NewPolicy(cfg.Business.DeliveryFee, cfg.Business.TaxRate)
	cartStore, err := cart.NewStore(ctx, kv, policy,
		cart.WithStorageKey(cfg.Storage.CartKey),
		cart.WithNotifier(eventPublisher))
	if err != nil {
		logger.Fatal("Failed to restore cart", zap.Error(err))
	}

	lifecycle := checkout.NewLifecycle(
		checkout.WithSubmitDelay(cfg.Business.CheckoutDelay),
		checkout.WithPublisher(eventPublisher))

	cartService := service.NewCartService(menu, cartStore, lifecycle)
	checkoutService := service.NewCheckoutService(lifecycle, cartStore)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(menu, cartService, checkoutService, feed, ready)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if notificationWorker != nil {
		notificationWorker.Stop()
	}

	logger.Info("Server exited")
}

// openStorage returns the key-value store selected by STORAGE_DRIVER and a
// readiness probe for it
func openStorage(cfg *config.Config) (store.KeyValueStore, func() error, error) {
	logger := util.GetLogger()

	switch cfg.Storage.Driver {
	case config.StorageRedis:
		client, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.KeyPrefix, cfg.Redis.TTL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		ready := func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		return client, ready, nil

	case config.StoragePostgres:
		db, err := store.NewPostgresStore(cfg.Database.URL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Database connected")
		return db, db.GetDB().Ping, nil

	default:
		return store.NewMemoryStore(), nil, nil
	}
}
