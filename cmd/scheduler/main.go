package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"greenlight_backend/internal/adapters"
	"greenlight_backend/internal/departments"
	evalrepo "greenlight_backend/internal/evaluation/repository"
	evalservice "greenlight_backend/internal/evaluation/service"
	"greenlight_backend/internal/events"
	"greenlight_backend/internal/scheduler"
	stagingrepo "greenlight_backend/internal/staging/repository"
	"greenlight_backend/platform/config"
	"greenlight_backend/platform/db"
	"greenlight_backend/platform/logger"
	"greenlight_backend/platform/taskexec"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)

	catalog, err := departments.Load(cfg.GetDepartmentsFile())
	if err != nil {
		log.Error("failed to load department catalog", "error", err)
		panic("failed to load department catalog: " + err.Error())
	}

	taskClient := taskexec.NewClient(taskexec.Config{
		BaseURL: cfg.GetTaskExecURL(),
		APIKey:  cfg.GetTaskExecAPIKey(),
		Timeout: cfg.GetTaskExecTimeout(),
	})

	// Worker-side evaluation wiring (no HTTP handlers required). The worker
	// only reconciles and sweeps, so the submit lock never contends.
	contentProvider := adapters.NewStagingContentAdapter(stagingrepo.New(pool))
	evaluationSvc := evalservice.New(
		evalrepo.New(pool),
		catalog,
		contentProvider,
		taskClient,
		evalservice.NewMemoryLocker(),
		eventBus,
		log,
	)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	enqueuer := scheduler.NewPeriodicEnqueuer(client, log, cfg.GetTaskPollInterval(), cfg.GetTaskStaleAfter())
	go enqueuer.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, evaluationSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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

	return errors.New(name + ": " + lastErr.Error())
}
