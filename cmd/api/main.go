package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"greenlight_backend/internal/adapters"
	"greenlight_backend/internal/departments"
	"greenlight_backend/internal/evaluation"
	evalservice "greenlight_backend/internal/evaluation/service"
	"greenlight_backend/internal/events"
	apphttp "greenlight_backend/internal/http"
	"greenlight_backend/internal/http/router"
	"greenlight_backend/internal/notification"
	"greenlight_backend/internal/staging"
	stagingservice "greenlight_backend/internal/staging/service"
	"greenlight_backend/platform/ai/textgen"
	"greenlight_backend/platform/config"
	"greenlight_backend/platform/db"
	"greenlight_backend/platform/graph"
	"greenlight_backend/platform/logger"
	"greenlight_backend/platform/taskexec"
	"greenlight_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	catalog, err := departments.Load(cfg.GetDepartmentsFile())
	if err != nil {
		log.Error("failed to load department catalog", "error", err)
		panic("failed to load department catalog: " + err.Error())
	}
	log.Info("department catalog loaded", "departments", catalog.Count())

	// ========================================================================
	// External Capabilities
	// ========================================================================

	textGen, err := textgen.NewClient(ctx, textgen.Config{
		APIKey:            cfg.GetGeminiAPIKey(),
		TextModel:         cfg.GetTextModel(),
		VisionModel:       cfg.GetVisionModel(),
		Timeout:           cfg.GetAITimeout(),
		RequestsPerSecond: cfg.GetAIRequestsPerSecond(),
	})
	if err != nil {
		log.Error("failed to initialize text generation client", "error", err)
		panic("failed to initialize text generation client: " + err.Error())
	}

	graphClient := graph.NewClient(graph.Config{
		BaseURL: cfg.GetGraphURL(),
		APIKey:  cfg.GetGraphAPIKey(),
		Timeout: cfg.GetGraphTimeout(),
	})
	if !cfg.IsGraphEnabled() {
		log.Warn("GRAPH_SERVICE_URL not configured; duplicate detection degrades to no matches")
	}

	taskClient := taskexec.NewClient(taskexec.Config{
		BaseURL: cfg.GetTaskExecURL(),
		APIKey:  cfg.GetTaskExecAPIKey(),
		Timeout: cfg.GetTaskExecTimeout(),
	})

	locker := initStageLocker(cfg, log)

	// ========================================================================
	// Domain Modules
	// ========================================================================

	var ai stagingservice.TextGenerator = textGen
	var search stagingservice.SimilaritySearcher = graphClient
	stagingModule := staging.NewModule(pool, ai, search, eventBus, val, log)

	contentProvider := adapters.NewStagingContentAdapter(stagingModule.Repository())
	evaluationModule := evaluation.NewModule(pool, catalog, contentProvider, taskClient, locker, eventBus, val, log)

	notificationModule := notification.NewModule(eventBus, log)

	// ========================================================================
	// HTTP Server
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			stagingModule,
			evaluationModule,
			notificationModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initStageLocker prefers the Redis lock so concurrent submissions are
// serialized across replicas; without Redis it falls back to a per-process
// lock.
func initStageLocker(cfg config.SchedulerConfig, log *logger.Logger) evalservice.StageLocker {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		log.Warn("REDIS_URL not configured; evaluation submit lock is per-process only")
		return evalservice.NewMemoryLocker()
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Error("invalid REDIS_URL; evaluation submit lock is per-process only", "error", err)
		return evalservice.NewMemoryLocker()
	}
	return evalservice.NewRedisLocker(redis.NewClient(opt))
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s: %w", name, lastErr)
}
