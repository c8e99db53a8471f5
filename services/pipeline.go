package services

import (
	"context"
	"log"
	"time"

	"x2tsvc/config"
	"x2tsvc/models"
)

// Pipeline sequences one conversion: write job config, download the source,
// run x2t, then upload the result or classify the failure. Workspace
// cleanup is handed to the janitor and never awaited on the response path.
type Pipeline struct {
	cfg     *config.Config
	s3      *S3Service
	x2t     *X2TService
	janitor *Janitor
	db      *DatabaseService
}

// NewPipeline wires the pipeline. db may be nil when outcome recording is
// disabled.
func NewPipeline(cfg *config.Config, s3 *S3Service, x2t *X2TService, janitor *Janitor, db *DatabaseService) *Pipeline {
	return &Pipeline{cfg: cfg, s3: s3, x2t: x2t, janitor: janitor, db: db}
}

// Convert runs the pipeline for one request. A nil return means the
// destination object was written.
func (p *Pipeline) Convert(ctx context.Context, req *models.ConversionRequest) *ConvertError {
	start := time.Now()
	convErr := p.convert(ctx, req)

	if p.db != nil {
		if err := p.db.RecordOutcome(ctx, req, convErr, time.Since(start)); err != nil {
			log.Printf("[Pipeline] failed to record outcome: %v", err)
		}
	}

	return convErr
}

func (p *Pipeline) convert(ctx context.Context, req *models.ConversionRequest) *ConvertError {
	if p.cfg.ConversionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.ConversionTimeout)
		defer cancel()
	}

	ws, err := AllocateWorkspace(p.cfg.TempDir)
	if err != nil {
		log.Printf("[Pipeline] failed to setup temporary paths: %v", err)
		return &ConvertError{Message: "failed to setup temporary file paths"}
	}
	defer p.janitor.Schedule(ws)

	configBytes := p.x2t.JobConfig(ws.InputPath, ws.OutputPath)

	log.Printf("[Pipeline] writing config file")
	if convErr := p.x2t.WriteConfig(ws.ConfigPath, configBytes); convErr != nil {
		return convErr
	}

	log.Printf("[Pipeline] streaming source file")
	if convErr := p.s3.Download(ctx, req.SourceBucket, req.SourceKey, ws.InputPath); convErr != nil {
		return convErr
	}

	log.Printf("[Pipeline] running x2t")
	result, convErr := p.x2t.Run(ctx, ws.ConfigPath)
	if convErr != nil {
		return convErr
	}
	log.Printf("[Pipeline] x2t complete")

	if !result.Success() {
		return Classify(result, ws.InputPath, p.cfg.IntegrityReadLimit)
	}

	if convErr := p.s3.Upload(ctx, ws.OutputPath, req.DestBucket, req.DestKey); convErr != nil {
		return convErr
	}

	return nil
}
