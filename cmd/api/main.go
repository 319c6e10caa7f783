package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/trendhome-fenster/api/internal/di"
	"github.com/trendhome-fenster/api/internal/handlers"
	"github.com/trendhome-fenster/api/internal/platform/auth"
	"github.com/trendhome-fenster/api/internal/platform/config"
	pfirestore "github.com/trendhome-fenster/api/internal/platform/firestore"
	"github.com/trendhome-fenster/api/internal/platform/idempotency"
	"github.com/trendhome-fenster/api/internal/platform/jobs"
	"github.com/trendhome-fenster/api/internal/platform/mail"
	"github.com/trendhome-fenster/api/internal/platform/observability"
	"github.com/trendhome-fenster/api/internal/platform/secrets"
	platformstorage "github.com/trendhome-fenster/api/internal/platform/storage"
	"github.com/trendhome-fenster/api/internal/repositories"
	firestoreRepo "github.com/trendhome-fenster/api/internal/repositories/firestore"
	"github.com/trendhome-fenster/api/internal/services"
)

const meterName = "github.com/trendhome-fenster/api"

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	level, _ := config.Lookup("LOG_LEVEL")
	baseLogger, err := observability.NewLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	resolver := newSecretResolver(ctx, logger)
	defer func() {
		if err := resolver.Close(); err != nil {
			logger.Warn("secret resolver close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx, config.WithSecretResolver(resolver))
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(startedAt)

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	if _, err := firestoreProvider.Client(ctx); err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}

	redisClient := newRedisClient(cfg)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	var checks []repositories.DependencyCheck
	if redisClient != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:     "redis",
			Optional: true,
			Check:    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}

	collab := di.Collaborators{
		Meter:  otel.GetMeterProvider().Meter(meterName),
		Logger: logger,
		Build:  buildInfo,
	}

	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, auth.WithSessionTTL(cfg.Auth.SessionTTL))
	if err != nil {
		logger.Fatal("failed to initialise session issuer", zap.Error(err))
	}
	collab.Sessions = issuer
	authenticator := auth.NewAuthenticator(issuer)

	collab.Mail = mail.NewSender(cfg.Mail, logger.Named("mail"))
	if !cfg.Mail.Enabled() {
		logger.Info("smtp not configured; notifications are dropped")
	}

	publisher, pubsubClient := newOrderEventPublisher(ctx, logger, cfg)
	if publisher != nil {
		collab.Events = publisher
		defer publisher.Stop()
	}
	if pubsubClient != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:     "pubsub",
			Optional: true,
			Check: func(ctx context.Context) error {
				_, err := pubsubClient.Topic(cfg.PubSub.OrderEventsTopic).Exists(ctx)
				return err
			},
		})
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
	}

	archiver, storageClient := newOrderArchiver(ctx, logger, cfg)
	if archiver != nil {
		collab.Archiver = archiver
	}
	if storageClient != nil {
		defer func() {
			if err := storageClient.Close(); err != nil {
				logger.Warn("storage close error", zap.Error(err))
			}
		}()
	}

	registry, err := firestoreRepo.NewRegistry(firestoreProvider, checks...)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	container, err := di.NewContainer(ctx, cfg, registry, collab)
	if err != nil {
		logger.Fatal("failed to build services", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	seedCtx, seedCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := container.Seed(seedCtx, logger.Named("seed")); err != nil {
		logger.Error("seeding defaults failed", zap.Error(err))
	}
	seedCancel()

	idempotencyStore := idempotency.NewFirestoreStore(firestoreProvider)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			runIdempotencyCleanup(cleanupCtx, logger.Named("idempotency"), idempotencyStore, cfg.Idempotency)
		}()
	}

	svc := container.Services
	// A typed nil client must not reach the limiter as a non-nil interface.
	var limiterStore redis.Cmdable
	if redisClient != nil {
		limiterStore = redisClient
	}
	authLimiter := handlers.NewRedisRateLimiter(limiterStore, cfg.RateLimits.AuthPerMinute, time.Minute, logger.Named("ratelimit"))
	contactLimiter := handlers.NewRedisRateLimiter(limiterStore, cfg.RateLimits.ContactPerMinute, time.Minute, logger.Named("ratelimit"))

	configurationHandlers := handlers.NewConfigurationHandlers(authenticator, svc.Catalog, svc.Configurator)
	orderHandlers := handlers.NewOrderHandlers(authenticator, svc.Orders, handlers.WithOrderIdempotency(idempotencyMiddleware))
	contactHandlers := handlers.NewContactHandlers(authenticator, svc.Contacts, contactLimiter)
	authHandlers := handlers.NewAuthHandlers(authenticator, svc.Users, authLimiter)
	adminHandlers := handlers.NewAdminHandlers(authenticator, svc.Users, svc.Dashboard, authLimiter)

	projectID := strings.TrimSpace(cfg.Firestore.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		corsMiddleware(cfg.Server.AllowedOrigins, cfg.Idempotency.Header),
		observability.ClientIPMiddleware(cfg.Server.TrustedProxyHops),
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(svc.System),
	)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithConfigurationRoutes(configurationHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithContactRoutes(contactHandlers.Routes),
		handlers.WithAuthRoutes(authHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("trendhome fenster api listening", zap.String("version", buildInfo.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := container.Drain(shutdownCtx); err != nil {
		logger.Error("pending side effects did not finish before shutdown deadline", zap.Error(err))
	}
}

func buildInfoFromEnv(started time.Time) services.BuildInfo {
	lookup := func(key, fallback string) string {
		value, err := config.Lookup(key)
		if err != nil || strings.TrimSpace(value) == "" {
			return fallback
		}
		return strings.TrimSpace(value)
	}
	return services.BuildInfo{
		Version:     lookup("API_BUILD_VERSION", "dev"),
		CommitSHA:   lookup("API_BUILD_COMMIT_SHA", "unknown"),
		Environment: lookup("API_ENVIRONMENT", "local"),
		StartedAt:   started,
	}
}

func newSecretResolver(ctx context.Context, logger *zap.Logger) *secrets.Resolver {
	projectID, _ := config.Lookup("API_SECRET_PROJECT_ID")
	if strings.TrimSpace(projectID) == "" {
		projectID, _ = config.Lookup("GOOGLE_CLOUD_PROJECT")
	}
	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
	}
	if path, _ := config.Lookup("API_SECRET_FALLBACK_FILE"); strings.TrimSpace(path) != "" {
		opts = append(opts, secrets.WithFallbackFile(path))
	}
	return secrets.NewResolver(ctx, projectID, opts...)
}

func newRedisClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RateLimits.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.RateLimits.RedisPassword,
		DB:       cfg.RateLimits.RedisDB,
	})
}

// newOrderEventPublisher returns nil values when Pub/Sub is not configured or
// unreachable at startup; order submission keeps working without events.
func newOrderEventPublisher(ctx context.Context, logger *zap.Logger, cfg config.Config) (*jobs.PubSubOrderEventPublisher, *pubsub.Client) {
	projectID := strings.TrimSpace(cfg.PubSub.ProjectID)
	topicName := strings.TrimSpace(cfg.PubSub.OrderEventsTopic)
	if projectID == "" || topicName == "" {
		logger.Info("pubsub not configured; order events disabled")
		return nil, nil
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		logger.Warn("pubsub unavailable; order events disabled", zap.Error(err))
		return nil, nil
	}
	publisher, err := jobs.NewPubSubOrderEventPublisher(client.Topic(topicName))
	if err != nil {
		logger.Warn("order event publisher init failed", zap.Error(err))
		return nil, client
	}
	return publisher, client
}

func newOrderArchiver(ctx context.Context, logger *zap.Logger, cfg config.Config) (*platformstorage.Archiver, *cloudstorage.Client) {
	bucket := strings.TrimSpace(cfg.Storage.OrderDocumentsBucket)
	if bucket == "" {
		logger.Info("order document bucket not configured; archiving disabled")
		return nil, nil
	}
	client, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Warn("storage unavailable; archiving disabled", zap.Error(err))
		return nil, nil
	}
	archiver, err := platformstorage.NewArchiver(client, bucket)
	if err != nil {
		logger.Warn("order archiver init failed", zap.Error(err))
		return nil, client
	}
	return archiver, client
}

func corsMiddleware(origins []string, idempotencyHeader string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", idempotencyHeader},
		ExposedHeaders:   []string{"X-Idempotent-Replay", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

func runIdempotencyCleanup(ctx context.Context, logger *zap.Logger, store *idempotency.FirestoreStore, cfg config.IdempotencyConfig) {
	ticker := time.NewTicker(cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), cfg.CleanupBatchSize)
			cancel()
			if err != nil {
				logger.Error("idempotency cleanup error", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("idempotency cleanup removed records", zap.Int("count", removed))
			}
		case <-ctx.Done():
			return
		}
	}
}
