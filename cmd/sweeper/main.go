package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadflow_backend/internal/config"
	"leadflow_backend/internal/delivery"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/followup"
	"leadflow_backend/internal/leads/engine"
	"leadflow_backend/internal/leads/store"
	"leadflow_backend/internal/scheduler"
	"leadflow_backend/platform/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting sweeper", "env", cfg.Env)

	if cfg.RedisURL == "" {
		panic("REDIS_URL is required for the sweeper; without it the API runs the monitor in-process")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	leadStore, err := store.Open(cfg.LeadsDBPath, log)
	if err != nil {
		log.Error("failed to open lead store", "error", err)
		panic("failed to open lead store: " + err.Error())
	}
	defer func() { _ = leadStore.Close() }()

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	redisClient := redis.NewClient(opt)
	defer func() { _ = redisClient.Close() }()

	queue := followup.NewRedisQueue(redisClient)

	eventBus := events.NewInMemoryBus(log)

	drain := delivery.NewDrain(delivery.NewSender(cfg), log)
	drain.RegisterHandlers(eventBus)

	templates := engine.DefaultTemplates()
	if cfg.TemplatesPath != "" {
		tpl, err := engine.LoadTemplates(cfg.TemplatesPath)
		if err != nil {
			log.Error("failed to load message templates", "error", err, "path", cfg.TemplatesPath)
			panic("failed to load message templates: " + err.Error())
		}
		templates = tpl
	}

	monitor := followup.NewMonitor(leadStore, queue, eventBus, log, followup.Config{
		SilenceThreshold: cfg.SilenceThreshold,
		SweepInterval:    cfg.SweepInterval,
		MessageText:      templates.FollowUp,
	})

	dispatcher, err := scheduler.NewSweepDispatcher(cfg, log)
	if err != nil {
		log.Error("failed to initialize sweep dispatcher", "error", err)
		panic("failed to initialize sweep dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, monitor, log)
	if err != nil {
		log.Error("failed to initialize sweep worker", "error", err)
		panic("failed to initialize sweep worker: " + err.Error())
	}

	worker.Run(ctx)
}
