package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"waveband/internal/catalog"
	"waveband/internal/config"
	"waveband/internal/logging"
	"waveband/internal/repository"
	"waveband/internal/scheduler"
	"waveband/internal/scoring"
	"waveband/internal/service"
	"waveband/internal/transport/rest"
	"waveband/internal/transport/ws"
)

func main() {
	logging.BootstrapLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logging.Log.Fatalf("Failed to load config: %v", err)
	}

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logging.Log.Fatalf("Failed to ping Redis: %v", err)
	}
	logging.Log.Infof("Connected to Redis at %s", cfg.RedisAddr)

	// Catalog and repositories
	cat := catalog.New(rdb, cfg.CatalogURL, cfg.CatalogTTL)
	draftRepo := repository.NewDraftRepo(rdb)
	gameRepo := repository.NewGameRepo(rdb, cat)
	guessRepo := repository.NewGuessRepo(rdb)
	jobRepo := repository.NewJobRepo(rdb)

	// External post publisher
	var publisher service.PostPublisher
	if cfg.PublisherURL != "" {
		publisher = service.NewHTTPPublisher(cfg.PublisherURL)
		logging.Log.Infof("Post publisher: %s", cfg.PublisherURL)
	} else {
		publisher = service.NoopPublisher{}
		logging.Log.Warn("PUBLISHER_URL not set, using noop publisher")
	}

	// WebSocket hub
	wsHub := ws.NewHub()

	// Services
	authSvc := service.NewAuthService(cfg.JWTSecret)
	lifecycle := service.NewLifecycleService(draftRepo, gameRepo, cat, publisher, cfg.DraftTTL, cfg.RevealWindow)
	guesses := service.NewGuessService(gameRepo, guessRepo, cfg.MedianCacheTTL)
	engine := scoring.NewEngine(scoring.UpvoteSignal{})
	sched := scheduler.New(gameRepo, jobRepo, lifecycle)

	lifecycle.SetBroadcaster(wsHub)
	guesses.SetBroadcaster(wsHub)

	// Background lifecycle ticks
	go sched.Run(ctx, cfg.TickInterval)
	logging.Log.Infof("Scheduler running every %s", cfg.TickInterval)

	// Router
	router := rest.NewRouter(&rest.Container{
		AuthService:   authSvc,
		Lifecycle:     lifecycle,
		Guesses:       guesses,
		Engine:        engine,
		Scheduler:     sched,
		InternalToken: cfg.InternalToken,
		WSHub:         wsHub,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logging.Log.Infof("Server starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logging.Log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Log.Fatalf("Server forced to shutdown: %v", err)
	}

	logging.Log.Info("Server exited")
}
