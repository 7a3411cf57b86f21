package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"dochub/docs"
	"dochub/internal/config"
	"dochub/internal/database"
	"dochub/internal/database/migration"
	"dochub/internal/events"
	handlers "dochub/internal/http/handler"
	"dochub/internal/http/middleware"
	"dochub/internal/logger"
	"dochub/internal/otel"
	"dochub/internal/repository/postgres"
	"dochub/internal/service"
	"dochub/internal/storage"
	"dochub/internal/tool"
)

const shutdownTimeout = 15 * time.Second

// @title DocHub API
// @version 1.0
// @BasePath /
func main() {
	cfg := config.Load()
	logger.Init(cfg.Location())
	log := logger.Component("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn().Err(err).Msg("tracing_shutdown_failed")
		}
	}()

	store, err := storage.Open(cfg.Upload, cfg.MinIO)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Upload.StorageDriver).Msg("failed to initialize storage")
	}

	publisher := newPublisher(cfg.Kafka)
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register service metrics")
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	services := handlers.Services{
		Pipeline: service.NewPipelineService(tool.DefaultRegistry(), metrics, publisher),
		Files:    service.NewFileService(store, cfg.Upload.MaxFileSizeBytes(), cfg.PublicBaseURL, metrics, publisher),
	}

	// The signature registry is optional; without a database its routes are not mounted.
	if cfg.Database.Enabled() {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		if _, err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		services.DB = db
		services.Signatures = service.NewSignatureService(postgres.NewSignaturePostgres(db))
	}

	limiter, closeLimiter := newRateLimiter(ctx, cfg)
	defer closeLimiter()

	app := fiber.New(fiber.Config{
		AppName:               "dochub",
		BodyLimit:             cfg.Upload.BodyLimitBytes(),
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(cfg.Location()))
	app.Use(httpMetrics.Handler())
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.CORSOrigins,
		AllowMethods:  "GET,HEAD,POST,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,If-Modified-Since," + middleware.RequestIDHeader,
		ExposeHeaders: "Content-Disposition,Content-Length,Last-Modified," + middleware.RequestIDHeader,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(otelhttp.NewHandler(
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), "metrics",
	)))

	handlers.RegisterRoutes(app, services, limiter)

	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}
		host := c.Get("Host")
		if host == "" {
			host = cfg.AppHost
		}
		docs.SwaggerInfo.Host = host
		docs.SwaggerInfo.Schemes = []string{scheme}
		return swagger.HandlerDefault(c)
	})

	if retention := cfg.Upload.Retention(); retention > 0 {
		sweeper := service.NewSweeper(store, retention, metrics, publisher)
		go sweeper.Run(ctx, cfg.Upload.SweepInterval())
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("storage", cfg.Upload.StorageDriver).Bool("signatures", services.Signatures != nil).Msg("server_starting")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	case <-ctx.Done():
		log.Info().Msg("server_stopping")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("server_shutdown_failed")
		}
	}
}

func newPublisher(cfg config.KafkaConfig) events.Publisher {
	if len(cfg.Brokers) == 0 {
		return events.Noop{}
	}
	log := logger.Component("main")
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("event_publisher_configured")
	return events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

// newRateLimiter returns nil when limiting is disabled. Counters live in Redis
// when REDIS_ADDR is set and in process memory otherwise.
func newRateLimiter(ctx context.Context, cfg *config.AppConfig) (fiber.Handler, func()) {
	log := logger.Component("main")
	if cfg.RateLimit.Max <= 0 {
		return nil, func() {}
	}
	window := time.Duration(cfg.RateLimit.WindowSec) * time.Second
	if cfg.Redis.Addr == "" {
		return middleware.RateLimit(cfg.RateLimit.Max, window, nil), func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis_unreachable")
	}
	store := middleware.NewRedisStorage(client, "dochub:")
	return middleware.RateLimit(cfg.RateLimit.Max, window, store), func() { _ = store.Close() }
}
