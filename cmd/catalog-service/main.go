package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/catalog-service/internal/auth"
	"github.com/iyhunko/catalog-service/internal/cache"
	"github.com/iyhunko/catalog-service/internal/config"
	httpAPI "github.com/iyhunko/catalog-service/internal/http"
	"github.com/iyhunko/catalog-service/internal/http/controller"
	"github.com/iyhunko/catalog-service/internal/http/middleware"
	"github.com/iyhunko/catalog-service/internal/logger"
	"github.com/iyhunko/catalog-service/internal/metrics"
	"github.com/iyhunko/catalog-service/internal/repository"
	mongostore "github.com/iyhunko/catalog-service/internal/repository/mongo"
	"github.com/iyhunko/catalog-service/internal/repository/sql"
	"github.com/iyhunko/catalog-service/internal/service"
	sqspkg "github.com/iyhunko/catalog-service/internal/sqs"
	"github.com/iyhunko/catalog-service/internal/storage"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)
	logger.InitJSONLogger(conf.DebugMode)
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := make(map[string]controller.HealthCheck)

	// SQS is optional for the API. Without a queue, Postgres events stay pending in the outbox
	// and Mongo deployments publish nothing.
	var sqsPublisher service.EventPublisher
	if conf.AWS.SQSQueueURL != "" {
		sqsClient, err := sqspkg.NewClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
		handleErr("creating SQS client", err)
		sqsPublisher = sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL)
	}

	var (
		store        repository.ProductStore
		events       service.EventPublisher
		tx           service.Transactor
		outboxWorker *service.OutboxWorker
	)
	switch conf.StoreDriver {
	case config.StoreDriverMongo:
		client, db, err := mongostore.Connect(ctx, conf.Mongo)
		handleErr("connecting to MongoDB", err)
		defer func() {
			if err := client.Disconnect(context.Background()); err != nil {
				slog.Error("Failed to disconnect from MongoDB", slog.Any("err", err))
			}
		}()
		store = mongostore.NewProductRepository(db)
		events = sqsPublisher
		checks["mongo"] = func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	default:
		db, err := sql.StartDB(ctx, conf.Database)
		handleErr("starting database", err)
		defer db.Close()
		store = sql.NewProductRepository(db)
		eventRepository := sql.NewEventRepository(db)
		tx = sql.NewTransactionalRepository(db)
		if sqsPublisher != nil {
			outboxWorker = service.NewOutboxWorker(eventRepository, sqsPublisher, conf.OutboxInterval)
			go outboxWorker.Start(ctx)
		} else {
			slog.Warn("SQS queue not configured, catalog events stay in the outbox")
		}
		checks["postgres"] = db.PingContext
	}

	var categories service.CategoryCache
	if conf.Redis.Addr != "" {
		redisClient, err := cache.NewRedisClient(ctx, conf.Redis)
		handleErr("connecting to Redis", err)
		defer redisClient.Close()
		categories = cache.NewCategoryCache(redisClient, conf.Redis.TTL)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	var images controller.ImageResolver
	if conf.AWS.S3Bucket != "" {
		presignClient, err := storage.NewPresignClient(ctx, conf.AWS.Region, conf.AWS.Endpoint)
		handleErr("creating S3 presign client", err)
		images = storage.NewImagePresigner(presignClient, conf.AWS.S3Bucket, conf.AWS.S3PresignTTL)
	}

	var catalogService *service.CatalogService
	if tx != nil {
		catalogService = service.NewTransactionalCatalogService(store, tx, categories)
	} else {
		catalogService = service.NewCatalogService(store, events, categories)
	}

	ctr := controller.New(checks)
	productCtr := controller.NewProductController(catalogService, images)
	httpMiddleware := middleware.New(auth.NewVerifier(conf.Auth.JWTSecret))
	router := httpAPI.InitRouter(gin.New(), httpMiddleware, ctr, productCtr)

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("HTTP server starting", slog.String("port", conf.HTTPServer.Port), slog.String("store", conf.StoreDriver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to HTTP requests", err)
		}
	}()

	metricsServer := metrics.NewServer(conf.MetricsServer)
	go func() {
		slog.Info("Metrics server starting", slog.String("port", conf.MetricsServer.Port))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			handleErr("listening to metrics requests", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", slog.Any("err", err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Metrics server shutdown failed", slog.Any("err", err))
	}
	if outboxWorker != nil {
		outboxWorker.Stop()
	}
}

func handleErr(msg string, err error) {
	if err != nil {
		log.Fatalf("error while %s: %v", msg, err)
	}
}
