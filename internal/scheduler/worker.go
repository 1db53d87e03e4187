package scheduler

import (
	"context"
	"fmt"

	"leadflow_backend/internal/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Sweeper runs one scan-and-enqueue cycle over the lead store.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper Sweeper
	log     *logger.Logger
}

func NewWorker(cfg *config.Config, sweeper Sweeper, log *logger.Logger) (*Worker, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL, cfg.RedisTLSInsecure)
	if err != nil {
		return nil, err
	}

	queue := cfg.AsynqQueue
	if queue == "" {
		queue = "default"
	}

	server := asynq.NewServer(opt, asynq.Config{
		// Sweeps scan the whole store; one at a time is enough.
		Concurrency: 1,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		sweeper: sweeper,
		log:     log,
	}

	mux.HandleFunc(TaskFollowUpSweep, w.handleFollowUpSweep)

	return w, nil
}

func (w *Worker) handleFollowUpSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpSweepPayload(task)
	if err != nil {
		return err
	}

	enqueued, err := w.sweeper.Sweep(ctx)
	if err != nil {
		return err
	}

	w.log.Info("sweep task complete",
		"requestedAt", payload.RequestedAt,
		"enqueued", enqueued,
	)
	return nil
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
