package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/config"
	"github.com/lehelkovach/osl-agent-prototype-sub000/infrastructure/di"
	"github.com/lehelkovach/osl-agent-prototype-sub000/interfaces/http/rest"
	"github.com/lehelkovach/osl-agent-prototype-sub000/internal/scheduler"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	container, err := di.BuildContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to build container: %v", err)
	}

	router := rest.NewRouter(container.Mediator, container.Logger)
	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		container.Logger.Info("starting server",
			zap.String("address", cfg.ServerAddress),
			zap.String("environment", cfg.Environment),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	go runScheduler(ctx, container.Scheduler, container.Logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	container.Logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("server shutdown error", zap.Error(err))
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("failed to sync logger: %v", err)
	}

	log.Println("server stopped")
}

// runScheduler drives the C6 scheduler's cooperative tick (§4.6) on a
// fixed wall-clock interval until ctx is cancelled at shutdown.
func runScheduler(ctx context.Context, sched *scheduler.Scheduler, logger *zap.Logger) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, err := range sched.Tick(now) {
				logger.Warn("scheduler enqueue failed", zap.Error(err))
			}
		}
	}
}
