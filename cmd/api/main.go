package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadflow_backend/internal/config"
	"leadflow_backend/internal/delivery"
	"leadflow_backend/internal/events"
	"leadflow_backend/internal/followup"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/http/router"
	"leadflow_backend/internal/leads"
	"leadflow_backend/internal/leads/engine"
	"leadflow_backend/internal/leads/store"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var leadStore *store.Store
	if err := withRetry(ctx, log, "lead store open", 5, 2*time.Second, func() error {
		st, err := store.Open(cfg.LeadsDBPath, log)
		if err != nil {
			return err
		}
		leadStore = st
		return nil
	}); err != nil {
		log.Error("failed to open lead store", "error", err)
		panic("failed to open lead store: " + err.Error())
	}
	defer func() { _ = leadStore.Close() }()
	log.Info("lead store opened", "path", cfg.LeadsDBPath)

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	templates := engine.DefaultTemplates()
	if cfg.TemplatesPath != "" {
		tpl, err := engine.LoadTemplates(cfg.TemplatesPath)
		if err != nil {
			log.Error("failed to load message templates", "error", err, "path", cfg.TemplatesPath)
			panic("failed to load message templates: " + err.Error())
		}
		templates = tpl
		log.Info("message templates loaded", "path", cfg.TemplatesPath)
	}
	eng := engine.New(templates, engine.Options{MaxAge: cfg.MaxLeadAge})

	// Follow-up queue: Redis-backed when configured, in-process otherwise.
	queue, closeQueue := initFollowUpQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Delivery drain subscribes to domain events (not HTTP-facing)
	drain := delivery.NewDrain(delivery.NewSender(cfg), log)
	drain.RegisterHandlers(eventBus)

	leadsModule := leads.NewModule(leadStore, queue, eng, eventBus, val, log)

	// When no Redis is configured the sweeper runs in-process.
	if cfg.RedisURL == "" {
		monitor := followup.NewMonitor(leadStore, queue, eventBus, log, followup.Config{
			SilenceThreshold: cfg.SilenceThreshold,
			SweepInterval:    cfg.SweepInterval,
			MessageText:      eng.Templates().FollowUp,
		})
		go monitor.Run(ctx)
	} else {
		log.Info("redis configured; expecting out-of-process sweeper", "queue", cfg.AsynqQueue)
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   leadStore,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
		},
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.New(app),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func initFollowUpQueue(cfg *config.Config, log *logger.Logger) (followup.Queue, func()) {
	if cfg.RedisURL == "" {
		return followup.NewMemoryQueue(), nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}

	client := redis.NewClient(opt)
	log.Info("redis follow-up queue enabled", "addr", opt.Addr)
	return followup.NewRedisQueue(client), func() {
		_ = client.Close()
	}
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
