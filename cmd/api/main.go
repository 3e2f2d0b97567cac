package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/flibusta-apps/batch-downloader/internal/api"
	"github.com/flibusta-apps/batch-downloader/internal/catalog"
	"github.com/flibusta-apps/batch-downloader/internal/config"
	"github.com/flibusta-apps/batch-downloader/internal/queue"
	"github.com/flibusta-apps/batch-downloader/internal/ratelimit"
	"github.com/flibusta-apps/batch-downloader/internal/store"
	"github.com/flibusta-apps/batch-downloader/internal/tasks"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)
		<-ch
		cancel()
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	jobs := store.New(redisClient, cfg.JobTTL)
	broker := queue.NewRedisQueue(redisClient, cfg.ResultTTL)
	library := catalog.New(cfg.LibraryURL, cfg.LibraryAPIKey, cfg.CatalogPageSize, cfg.HTTPTimeout)
	creator := tasks.NewCreator(jobs, broker, library)
	limiter := ratelimit.NewTokenBucket(redisClient, cfg.RateLimitCapacity, cfg.RateLimitRefill, time.Hour)

	server := api.New(cfg, jobs, creator, limiter)
	httpServer := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: server.Router(),
	}

	log.Printf("api listening on :%s", cfg.HTTPPort)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(shutdownCtx)
}
