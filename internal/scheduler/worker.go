package scheduler

import (
	"context"
	"fmt"

	"property_portal_backend/internal/notification/mailer"
	"property_portal_backend/platform/config"
	"property_portal_backend/platform/logger"

	"github.com/hibiken/asynq"
)

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	batcher *mailer.Batcher
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, batcher *mailer.Batcher, log *logger.Logger) (*Worker, error) {
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
		queue = defaultQueue
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
		server:  server,
		mux:     mux,
		batcher: batcher,
		log:     log,
	}

	mux.HandleFunc(TaskEmailBatch, w.handleEmailBatch)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return nil
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
		return err
	}
	return nil
}

func (w *Worker) handleEmailBatch(ctx context.Context, task *asynq.Task) error {
	batch, err := ParseEmailBatchPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	sent, err := w.batcher.Send(ctx, batch)
	w.log.Info("email batch delivered",
		"title", batch.Title,
		"recipients", len(batch.Recipients),
		"sent", sent,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return nil
}
