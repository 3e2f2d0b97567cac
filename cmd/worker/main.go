package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/flibusta-apps/batch-downloader/internal/blob"
	"github.com/flibusta-apps/batch-downloader/internal/catalog"
	"github.com/flibusta-apps/batch-downloader/internal/config"
	"github.com/flibusta-apps/batch-downloader/internal/fetcher"
	"github.com/flibusta-apps/batch-downloader/internal/queue"
	"github.com/flibusta-apps/batch-downloader/internal/store"
	"github.com/flibusta-apps/batch-downloader/internal/tasks"
	"github.com/flibusta-apps/batch-downloader/internal/telemetry"
	workerproc "github.com/flibusta-apps/batch-downloader/internal/worker"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()

	blobs, err := blob.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init blob store: %v", err)
	}

	jobs := store.New(redisClient, cfg.JobTTL)
	broker := queue.NewRedisQueue(redisClient, cfg.ResultTTL)
	library := catalog.New(cfg.LibraryURL, cfg.LibraryAPIKey, cfg.CatalogPageSize, cfg.HTTPTimeout)
	cache := fetcher.New(cfg.CacheURL, cfg.CacheAPIKey, cfg.SpoolThreshold, cfg.HTTPTimeout)

	executor := tasks.NewExecutor(cfg, jobs, broker, library, cache, blobs)

	processor := workerproc.NewProcessor(cfg, broker)
	processor.RegisterHandler(tasks.TaskDownload, executor.HandleDownload)
	processor.RegisterHandler(tasks.TaskCheck, executor.HandleCheck)
	processor.RegisterHandler(tasks.TaskArchive, executor.HandleArchive)

	go func() {
		if err := http.ListenAndServe(cfg.MetricsAddr, telemetry.Handler()); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	log.Printf("worker started poll_interval=%s check_delay=%s", cfg.WorkerPollInterval, cfg.CheckDelay)
	if err := processor.Run(ctx); err != nil {
		log.Printf("worker stopped: %v", err)
	}
}
