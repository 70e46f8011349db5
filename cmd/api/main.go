package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/stayradar/stayradar/internal/api"
	"github.com/stayradar/stayradar/internal/config"
	"github.com/stayradar/stayradar/internal/database"
	"github.com/stayradar/stayradar/internal/fetch"
	"github.com/stayradar/stayradar/internal/headers"
	"github.com/stayradar/stayradar/internal/jobs"
	"github.com/stayradar/stayradar/internal/logger"
	"github.com/stayradar/stayradar/internal/parser"
	"github.com/stayradar/stayradar/internal/proxy"
	"github.com/stayradar/stayradar/internal/scraper"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("starting api server", "port", cfg.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.Name,
		MaxConns: cfg.Database.MaxConns,
	})
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	listings := database.NewListingRepository(db)
	if err := listings.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	pool := proxy.NewPool(cfg.Proxy.URLs, cfg.Proxy.Cooldown, log)
	gen := headers.NewGenerator()
	executor := fetch.NewExecutor(cfg.Scraper.RequestTimeout, log)
	service := scraper.NewService(pool, gen, executor, parser.New(log), scraper.Config{
		Strategy: proxy.Strategy(cfg.Proxy.Strategy),
		DelayMin: cfg.Scraper.DelayMin,
		DelayMax: cfg.Scraper.DelayMax,
	}, log)

	queue := jobs.NewQueue(redisClient, cfg.Redis.JobQueue, log)
	handlers := api.NewHandlers(service, queue, listings, pool, cfg.Scraper.MaxPages, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.WriteTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down server")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
