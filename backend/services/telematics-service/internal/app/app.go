package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"truckwatch/backend/libs/db"
	"truckwatch/backend/libs/logging"
	libredis "truckwatch/backend/libs/redis"
	"truckwatch/backend/services/telematics-service/internal/archive"
	"truckwatch/backend/services/telematics-service/internal/config"
	"truckwatch/backend/services/telematics-service/internal/detector"
	httpserver "truckwatch/backend/services/telematics-service/internal/http"
	"truckwatch/backend/services/telematics-service/internal/http/handlers"
	"truckwatch/backend/services/telematics-service/internal/http/middleware"
	"truckwatch/backend/services/telematics-service/internal/metrics"
	"truckwatch/backend/services/telematics-service/internal/notifier"
	redisstore "truckwatch/backend/services/telematics-service/internal/redis"
	"truckwatch/backend/services/telematics-service/internal/service"
	"truckwatch/backend/services/telematics-service/internal/store"
	"truckwatch/backend/services/telematics-service/internal/subscriptions"
	"truckwatch/backend/services/telematics-service/internal/ws"
)

const startupTimeout = 15 * time.Second

// App wires telematics service dependencies.
type App struct {
	server   *httpserver.Server
	notifier *notifier.Notifier
	hub      *ws.Hub
	archive  *archive.Writer
	pool     *pgxpool.Pool
	redis    *redis.Client
	logger   *zap.Logger
}

// New constructs application components. Postgres and Redis are only
// connected when configured.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	telemetry := store.NewTelemetryStore()
	anomalies := store.NewAnomalyStore()
	registry := subscriptions.NewRegistry()

	a.hub = ws.NewHub(logging.Component(logger, "ws"))
	sinks := []notifier.Sink{a.hub}

	if cfg.RedisEnabled() {
		client, err := libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.redis = client
		sinks = append(sinks, redisstore.NewAnomalyPublisher(client, cfg.Redis.RecentLimit, 0))
		logger.Info("redis anomaly publisher enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var archiver service.Archiver
	if cfg.ArchiveEnabled() {
		pool, err := db.NewPostgresPool(ctx, cfg.Archive.DSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pool = pool

		repo := archive.NewRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.archive = archive.NewWriter(repo, archive.Config{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.ArchiveFlushInterval(),
			QueueSize:     cfg.Archive.QueueSize,
		}, logging.Component(logger, "archive"))
		archiver = a.archive
		logger.Info("postgres archive enabled")
	}

	a.notifier = notifier.New(notifier.Config{
		Workers:         cfg.Notifier.Workers,
		QueueSize:       cfg.Notifier.QueueSize,
		EnqueueTimeout:  cfg.EnqueueTimeout(),
		DeliveryTimeout: cfg.DeliveryTimeout(),
	}, registry, notifier.NewWebhookClient(nil, cfg.DeliveryTimeout()), logging.Component(logger, "notifier"), sinks...)

	telemetryService := service.NewTelemetryService(telemetry, anomalies, archiver, logging.Component(logger, "telemetry"))
	analysisService := service.NewAnalysisService(telemetry, anomalies, detector.New(), a.notifier, archiver, service.AnalysisConfig{
		MaxSliceRows: cfg.Analysis.MaxSliceRows,
		Timeout:      cfg.AnalysisTimeout(),
	}, logging.Component(logger, "analysis"))

	routes := httpserver.Routes{
		Telemetry:     handlers.NewTelemetryHandlers(telemetryService, cfg.UploadLimit(), logger),
		Analysis:      handlers.NewAnalysisHandlers(analysisService, logger),
		Subscriptions: handlers.NewSubscriptionsHandlers(registry, logger),
		LiveFeed:      ws.NewServer(a.hub, 10*time.Second, 30*time.Second, logging.Component(logger, "ws")).HandleWS,
		Health:        handlers.NewHealthHandler(telemetryService, a.notifier),
		Metrics:       metrics.Handler(),
	}

	router := httpserver.NewRouter(routes)
	a.server = httpserver.NewServer(
		cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)
	return a, nil
}

// Run serves HTTP and the live feed until ctx is done, then drains the
// notifier and the archive in that order.
func (a *App) Run(ctx context.Context) error {
	a.notifier.Start()

	archiveCtx, stopArchive := context.WithCancel(context.Background())
	defer stopArchive()
	archiveDone := make(chan struct{})
	if a.archive != nil {
		go func() {
			defer close(archiveDone)
			_ = a.archive.Run(archiveCtx)
		}()
	} else {
		close(archiveDone)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.server.Run(gctx) })
	g.Go(func() error { return a.hub.Run(gctx) })
	err := g.Wait()

	a.notifier.Close()
	stopArchive()
	<-archiveDone
	return err
}

// Close releases resources.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
