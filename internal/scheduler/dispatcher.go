package scheduler

import (
	"context"
	"fmt"
	"time"

	"leadflow_backend/internal/config"
	"leadflow_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// SweepDispatcher enqueues a follow-up sweep task on a fixed interval.
// It is the clock of the out-of-process sweeper; the worker does the scans.
type SweepDispatcher struct {
	client   *asynq.Client
	queue    string
	interval time.Duration
	log      *logger.Logger
}

func NewSweepDispatcher(cfg *config.Config, log *logger.Logger) (*SweepDispatcher, error) {
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

	return &SweepDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		interval: cfg.SweepInterval,
		log:      log,
	}, nil
}

func (d *SweepDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *SweepDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		task, err := NewFollowUpSweepTask(FollowUpSweepPayload{RequestedAt: time.Now().UTC()})
		if err != nil {
			d.log.Warn("sweep task build failed", "error", err)
			continue
		}

		if _, err := d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue)); err != nil {
			d.log.Warn("sweep enqueue failed", "error", err)
		}
	}
}
