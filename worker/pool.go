package worker

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"x2tsvc/config"
	"x2tsvc/models"
	"x2tsvc/services"

	"github.com/redis/go-redis/v9"
)

// Pool consumes queued conversion jobs and feeds them to the pipeline.
// Failed jobs go straight to the failed queue; there is no retry.
type Pool struct {
	config      *config.Config
	redisClient *redis.Client
	pipeline    *services.Pipeline
}

func NewPool(cfg *config.Config, redisClient *redis.Client, pipeline *services.Pipeline) *Pool {
	return &Pool{
		config:      cfg,
		redisClient: redisClient,
		pipeline:    pipeline,
	}
}

func (p *Pool) StartWorker(ctx context.Context, workerID int) {
	log.Printf("[Worker %d] Starting", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Worker %d] Shutting down", workerID)
			return
		default:
			// Atomic pop from pending and push to processing
			result, err := p.redisClient.BRPopLPush(
				ctx,
				p.config.PendingQueue,
				p.config.ProcessingQueue,
				30*time.Second,
			).Result()

			if err == redis.Nil {
				// Timeout, no jobs available
				continue
			}

			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				log.Printf("[Worker %d] Redis error: %v", workerID, err)
				time.Sleep(5 * time.Second)
				continue
			}

			var job models.ConversionJob
			if err := json.Unmarshal([]byte(result), &job); err != nil {
				log.Printf("[Worker %d] Failed to parse job: %v", workerID, err)
				// Remove malformed job from processing queue
				p.redisClient.LRem(ctx, p.config.ProcessingQueue, 1, result)
				continue
			}

			p.processJob(ctx, workerID, &job, result)
		}
	}
}

func (p *Pool) processJob(ctx context.Context, workerID int, job *models.ConversionJob, jobJSON string) {
	req := &job.Request
	log.Printf("[Worker %d] Converting %s/%s -> %s/%s",
		workerID, req.SourceBucket, req.SourceKey, req.DestBucket, req.DestKey)

	startTime := time.Now()
	convErr := p.pipeline.Convert(ctx, req)

	// The job is finished either way; classification already happened.
	p.redisClient.LRem(ctx, p.config.ProcessingQueue, 1, jobJSON)

	if convErr != nil {
		log.Printf("[Worker %d] Conversion failed: %s", workerID, convErr.Error())

		failed := models.FailedJob{
			Request:  *req,
			X2TCode:  convErr.X2TCode,
			Message:  convErr.Message,
			FailedAt: time.Now(),
		}
		if convErr.Reason != nil {
			reason := string(*convErr.Reason)
			failed.Reason = &reason
		}

		failedJSON, err := json.Marshal(failed)
		if err != nil {
			log.Printf("[Worker %d] Failed to marshal failed job: %v", workerID, err)
			return
		}
		p.redisClient.LPush(ctx, p.config.FailedQueue, failedJSON)
		return
	}

	log.Printf("[Worker %d] Conversion completed successfully (%.2fs)",
		workerID, time.Since(startTime).Seconds())
}
