package scheduler

import (
	"context"
	"fmt"
	"time"

	evalservice "greenlight_backend/internal/evaluation/service"
	"greenlight_backend/platform/config"
	"greenlight_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	evaluation *evalservice.Service
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, evaluation *evalservice.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		evaluation: evaluation,
		log:        log,
	}

	mux.HandleFunc(TaskPollEvaluations, w.handlePollEvaluations)
	mux.HandleFunc(TaskSweepStaleEvaluations, w.handleSweepStaleEvaluations)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handlePollEvaluations(ctx context.Context, task *asynq.Task) error {
	payload, err := ParsePollEvaluationsPayload(task)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := w.evaluation.PollInProgress(ctx); err != nil {
		return err
	}

	w.log.Debug("evaluation poll complete",
		"queued_for", start.Sub(payload.EnqueuedAt).String(),
		"took", time.Since(start).String(),
	)
	return nil
}

func (w *Worker) handleSweepStaleEvaluations(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSweepStaleEvaluationsPayload(task)
	if err != nil {
		return err
	}

	staleAfter := payload.StaleAfter
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return w.evaluation.SweepStale(ctx, staleAfter)
}
