// Package app общий каркас сервиса: logger, OTel, метрики, MongoDB, kafka publisher/consumers,
// HTTP сервер и graceful shutdown. Сервисы собирают из него свой App в internal/<service>/app.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/shestoi/GoMarket/platform/config"
	"github.com/shestoi/GoMarket/platform/dispatch"
	platformhealth "github.com/shestoi/GoMarket/platform/health/http"
	platformkafka "github.com/shestoi/GoMarket/platform/kafka"
	platformlogging "github.com/shestoi/GoMarket/platform/logging"
	"github.com/shestoi/GoMarket/platform/metrics"
	platformmongo "github.com/shestoi/GoMarket/platform/mongodb"
	"github.com/shestoi/GoMarket/platform/observability"
	platformshutdown "github.com/shestoi/GoMarket/platform/shutdown"
)

// Base зависимости, общие для всех сервисов
type Base struct {
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Shutdown *platformshutdown.Manager
	Registry *dispatch.Registry
	Router   chi.Router

	cfg         config.Common
	serviceName string
	checks      []platformhealth.Check
	publisher   *platformkafka.Publisher
	server      *http.Server
	wg          sync.WaitGroup
}

// NewBase создаёт logger, инициализирует OTel и регистрирует shutdown функции
func NewBase(serviceName string, cfg config.Common) (*Base, error) {
	logger, err := platformlogging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.Info("Building service", cfg.Fields()...)

	otelShutdown, err := observability.Init(context.Background(), cfg.OTel)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	shutdownMgr := platformshutdown.New(cfg.ShutdownTimeout, logger)
	// регистрируется первым, значит выполняется последним: спаны остальных шагов успеют уйти
	shutdownMgr.Add("otel", otelShutdown)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Use(observability.HTTPMiddleware(serviceName, logger))

	return &Base{
		Logger:      logger,
		Metrics:     metrics.New(serviceName),
		Shutdown:    shutdownMgr,
		Registry:    dispatch.NewRegistry(),
		Router:      router,
		cfg:         cfg,
		serviceName: serviceName,
	}, nil
}

// ConnectMongo подключается к MongoDB, регистрирует disconnect и readiness проверку
func (b *Base) ConnectMongo(ctx context.Context) (*mongo.Database, error) {
	b.Logger.Info("Connecting to MongoDB")
	client, err := platformmongo.Connect(ctx, b.cfg.MongoURI)
	if err != nil {
		return nil, err
	}
	b.Logger.Info("MongoDB connection established")

	b.Shutdown.Add("mongodb", platformshutdown.DisconnectMongo(client))
	b.checks = append(b.checks, platformhealth.Check{Name: "mongodb", Fn: platformmongo.PingCheck(client)})
	return client.Database(b.cfg.MongoDBName), nil
}

// Publisher kafka publisher сервиса (создаётся один раз)
func (b *Base) Publisher() *platformkafka.Publisher {
	if b.publisher == nil {
		b.publisher = platformkafka.NewPublisher(b.Logger, b.cfg.Kafka, b.serviceName, b.Metrics)
		b.Shutdown.Add("kafka_publisher", platformshutdown.CloseFunc(b.publisher))
	}
	return b.publisher
}

// HandlerMiddlewares middleware для обработчиков событий.
// При EVENT_DEDUP_ENABLED=true добавляется дедупликация по event_id.
func (b *Base) HandlerMiddlewares(ctx context.Context) ([]dispatch.Middleware, error) {
	if !b.cfg.Dedup.Enabled {
		return nil, nil
	}

	var store dispatch.ProcessedEventsStore
	switch b.cfg.Dedup.Backend {
	case config.DedupBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: b.cfg.Dedup.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", b.cfg.Dedup.RedisAddr, err)
		}
		b.Shutdown.Add("redis_client", platformshutdown.CloseFunc(client))
		b.checks = append(b.checks, platformhealth.Check{Name: "redis", Fn: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
		store = dispatch.NewRedisProcessedEventsStore(client)
	default:
		store = dispatch.NewMemoryProcessedEventsStore()
	}

	b.Logger.Info("Event deduplication enabled",
		zap.String("backend", b.cfg.Dedup.Backend),
		zap.Duration("ttl", b.cfg.Dedup.TTL),
	)
	return []dispatch.Middleware{dispatch.Deduplicate(store, b.cfg.Dedup.TTL, b.Logger)}, nil
}

// Run поднимает HTTP сервер (/health, /metrics и маршруты сервиса) и kafka consumers для всех
// зарегистрированных групп, затем блокируется до сигнала shutdown
func (b *Base) Run() error {
	defer platformlogging.Sync(b.Logger)

	b.Router.Get("/health", platformhealth.Handler(2*time.Second, b.checks...))
	b.Router.Handle("/metrics", b.Metrics.Handler())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, route := range b.Registry.Routes() {
		b.Logger.Info("Event handler registered",
			zap.String("route", route.String()),
			zap.String("handler", b.Registry.HandlerName(route)),
		)
	}

	var consumers []*platformkafka.GroupConsumer
	if len(b.Registry.Routes()) > 0 {
		dlq := platformkafka.NewDLQPublisher(b.Logger, b.cfg.Kafka)
		b.Shutdown.Add("kafka_dlq_publisher", platformshutdown.CloseFunc(dlq))

		consumers = platformkafka.NewConsumers(b.Logger, b.cfg.Kafka, b.serviceName, b.Registry, dlq, b.Metrics)
		b.Shutdown.Add("kafka_consumers", func(context.Context) error {
			cancel()
			var errs []error
			for _, c := range consumers {
				errs = append(errs, c.Close())
			}
			return errors.Join(errs...)
		})
	}

	b.server = &http.Server{
		Addr:              b.cfg.HTTPAddr,
		Handler:           b.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	b.Shutdown.Add("http_server", platformshutdown.ShutdownHTTPServer(b.server))

	b.Logger.Info("Starting service", zap.String("http_addr", b.cfg.HTTPAddr), zap.Int("consumer_groups", len(consumers)))

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			b.Logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	for _, c := range consumers {
		b.wg.Add(1)
		go func(c *platformkafka.GroupConsumer) {
			defer b.wg.Done()
			if err := c.Start(ctx); err != nil {
				b.Logger.Error("Kafka consumer error", zap.String("group", c.Group()), zap.Error(err))
			}
		}(c)
	}

	b.Shutdown.Wait()

	b.wg.Wait()
	b.Logger.Info("Service stopped")
	return nil
}
