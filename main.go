package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"x2tsvc/config"
	"x2tsvc/server"
	"x2tsvc/services"
	"x2tsvc/worker"

	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting x2t conversion service...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Using x2t installation at %s", cfg.X2TPath)

	var dbSvc *services.DatabaseService
	if cfg.DatabaseURL != "" {
		dbSvc, err = services.NewDatabaseService(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer dbSvc.Close()
		log.Println("Connected to database successfully")
	}

	janitor := services.NewJanitor()
	s3Svc := services.NewS3Service(cfg)
	x2tSvc := services.NewX2TService(cfg.X2TPath, cfg.FontsPath)
	pipeline := services.NewPipeline(cfg, s3Svc, x2tSvc, janitor, dbSvc)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	// Queue consumers are optional; the HTTP surface is always on.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Println("Connected to Redis successfully")

		pool := worker.NewPool(cfg, redisClient, pipeline)
		for i := 0; i < cfg.WorkerCount; i++ {
			wg.Add(1)
			go func(workerID int) {
				defer wg.Done()
				pool.StartWorker(ctx, workerID)
			}(i)
		}
		log.Printf("Started %d conversion workers on queue %s", cfg.WorkerCount, cfg.PendingQueue)
	}

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(pipeline).Handler(),
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("Listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	log.Println("Service is ready to process conversions")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutdown signal received, stopping...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		janitor.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All workers stopped gracefully")
	case <-time.After(30 * time.Second):
		log.Println("Shutdown timeout, forcing exit")
	}

	if redisClient != nil {
		redisClient.Close()
	}
	log.Println("Conversion service stopped")
}
